package link

import "time"

// Framer fills a Pool from local serial bytes and, when Streams is
// set, watches the same bytes for sample packets.
type Framer struct {
	Pool    *Pool
	Streams *StreamStager

	lastByte time.Time
	mark     PoolMark
	dropped  int
}

// Feed consumes one serial byte.
func (f *Framer) Feed(now time.Time, b byte) {
	f.lastByte = now
	mark := f.Pool.Mark()
	if !f.Pool.Append(b) {
		f.dropped++
	}
	if f.Streams != nil && f.Streams.Feed(b) {
		f.mark = mark
	}
}

// Quiet tells if nothing arrived within window.
func (f *Framer) Quiet(now time.Time, window time.Duration) bool {
	return now.Sub(f.lastByte) > window
}

// TakeStream returns the ready sample frame and removes its bytes
// from the page being filled.
func (f *Framer) TakeStream() (Frame, bool) {
	if f.Streams == nil || !f.Streams.ReadyForLaunch() {
		return nil, false
	}
	frame := f.Streams.Frame()
	f.Streams.Reset()
	f.Pool.Truncate(f.mark)
	return frame, true
}

// Dropped returns and clears the number of bytes dropped by overflow.
func (f *Framer) Dropped() int {
	n := f.dropped
	f.dropped = 0
	return n
}
