package link

import "time"

type frameKind int

const (
	sentNothing frameKind = iota
	sentPoll
	sentControl
	sentPage
	sentStream
)

// sender transmits the page in a Pool one frame per turnaround.
type sender struct {
	pool   *Pool
	last   frameKind
	lastAt time.Time
	// unacked is set from sending a page frame until the peer answers
	// it. Other frames sent meanwhile don't answer for it.
	unacked bool

	resends int
}

// next encodes the next frame of the page. The countdown sequence is
// derived from the slots left, reaching 0 on the last one.
func (s *sender) next() (Frame, bool) {
	slot := s.pool.NextToSend()
	if slot == nil {
		return nil, false
	}
	seq := byte(s.pool.used - s.pool.sent - 1)
	payload := slot.Payload()
	slot.data[0] = byte(MakeHeader(false, seq, payload))
	frame := make(Frame, slot.write)
	copy(frame, slot.data[:slot.write])
	s.pool.sent++
	return frame, true
}

// rewindOne resends the last frame.
func (s *sender) rewindOne() bool {
	if s.last != sentPage || s.pool.sent == 0 {
		return false
	}
	s.pool.sent--
	s.resends++
	return true
}

// rewindPage resends the page from its first frame.
func (s *sender) rewindPage() bool {
	if s.pool.sent == 0 {
		return false
	}
	s.pool.sent = 0
	s.resends++
	return true
}

// acked takes a reply without recovery code as the acknowledgement of
// the last frame sent. The pool is reset once the last frame of the
// page is acknowledged.
func (s *sender) acked() bool {
	if s.last != sentPage || !s.unacked {
		return false
	}
	s.unacked = false
	return s.complete()
}

// replied records a reply carrying a recovery code.
func (s *sender) replied() {
	if s.last == sentPage {
		s.unacked = false
	}
}

// lost rewinds the page if the last page frame was never answered.
// A countdown restarting from the first frame is always seen by the
// receiver, a frame skipped at either end of the page is not.
func (s *sender) lost() bool {
	if !s.unacked {
		return false
	}
	s.unacked = false
	return s.rewindPage()
}

// complete resets the pool once every frame went out.
func (s *sender) complete() bool {
	if !s.pool.AllSent() {
		return false
	}
	s.pool.Clean(s.pool.used)
	return true
}

// inFlight tells if a page is partially transmitted.
func (s *sender) inFlight() bool {
	return s.pool.sent > 0
}

func (s *sender) sent(now time.Time, kind frameKind) {
	s.last = kind
	if kind == sentPage {
		s.lastAt, s.unacked = now, true
	}
}
