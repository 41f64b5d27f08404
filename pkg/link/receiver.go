package link

// RecvResult is the outcome of validating an inbound page frame.
type RecvResult int

const (
	// RecvAccepted means the frame is part of a page still in progress.
	RecvAccepted RecvResult = iota
	// RecvCompleted means the frame completed a page.
	RecvCompleted
	// RecvBadChecksum means the checksum didn't match.
	RecvBadChecksum
	// RecvMissed means a frame of the page was lost.
	RecvMissed
	// RecvRejected means no room for a new page.
	RecvRejected
)

// Reply returns the control code to answer the result with.
func (r RecvResult) Reply() (ControlCode, bool) {
	switch r {
	case RecvBadChecksum:
		return BadChecksum, true
	case RecvMissed:
		return Missed, true
	case RecvRejected:
		return PageReject, true
	}
	return InvalidCode, false
}

// receiver reassembles pages from normal frames.
type receiver struct {
	prevSeq byte
	buf     []byte

	checksumErrors int
	missed         int
	rejected       int
}

func newReceiver() *receiver {
	return &receiver{buf: make([]byte, 0, PoolCapacity*MaxPayloadSize)}
}

// accept validates a normal frame of at least two bytes. A new page
// is only started when room is true. The page is returned on
// RecvCompleted.
func (r *receiver) accept(f Frame, room bool) (RecvResult, []byte) {
	if !ChecksumMatches(f) {
		r.checksumErrors++
		return RecvBadChecksum, nil
	}
	seq := f.Header().Seq()
	switch {
	case r.prevSeq == 0:
		if !room {
			r.rejected++
			return RecvRejected, nil
		}
		r.buf = append(r.buf[:0], f.Payload()...)
		if seq == 0 {
			return r.finish()
		}
		r.prevSeq = seq
	case r.prevSeq-seq == 1:
		r.buf = append(r.buf, f.Payload()...)
		r.prevSeq = seq
		if seq == 0 {
			return r.finish()
		}
	default:
		r.missed++
		r.reset()
		return RecvMissed, nil
	}
	return RecvAccepted, nil
}

func (r *receiver) finish() (RecvResult, []byte) {
	page := make([]byte, len(r.buf))
	copy(page, r.buf)
	r.reset()
	return RecvCompleted, page
}

// midPage tells if a multi-frame page is being received.
func (r *receiver) midPage() bool {
	return r.prevSeq != 0
}

// drop gives up a page whose next frame never came.
func (r *receiver) drop() {
	r.missed++
	r.reset()
}

func (r *receiver) reset() {
	r.prevSeq = 0
	r.buf = r.buf[:0]
}
