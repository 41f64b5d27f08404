package link

type streamState int

const (
	streamIdle    streamState = iota // waiting for head marker
	streamStoring                    // head seen, collecting the body
	streamTail                       // body complete, waiting for tail
	streamReady                      // complete, waiting for launch
)

// StreamStager recognizes sample packets in a serial byte stream.
// A sample packet is the head marker, 31 bytes of body and a tail
// byte whose high nibble is 0xC and low nibble the subtype.
type StreamStager struct {
	buf     [MaxFrameSize]byte
	n       int
	state   streamState
	subtype byte
}

// Feed runs the recognizer on one byte. It returns true when the byte
// started a new candidate, the caller may want to remember where.
func (s *StreamStager) Feed(b byte) (started bool) {
	switch s.state {
	case streamReady:
		// another byte after the tail: not a sample packet after all
		s.Reset()
		return s.begin(b)
	case streamStoring:
		s.buf[s.n] = b
		s.n++
		if s.n >= MaxFrameSize {
			s.state = streamTail
		}
	case streamTail:
		if isStreamTail(b) {
			s.subtype = b & 0x0f
			s.state = streamReady
			return false
		}
		s.Reset()
		return s.begin(b)
	default:
		return s.begin(b)
	}
	return false
}

func (s *StreamStager) begin(b byte) bool {
	if b != streamHead {
		return false
	}
	s.buf[0] = b
	s.n, s.state = 1, streamStoring
	return true
}

// GotHead tells if a candidate is being collected.
func (s *StreamStager) GotHead() bool {
	return s.state != streamIdle
}

// ReadyForLaunch tells if a complete sample packet is waiting.
func (s *StreamStager) ReadyForLaunch() bool {
	return s.state == streamReady
}

// Subtype returns the tail nibble of the ready packet.
func (s *StreamStager) Subtype() byte {
	return s.subtype
}

// Frame encodes the ready packet as a stream frame. The head marker
// is replaced by the frame header.
func (s *StreamStager) Frame() Frame {
	return EncodeFrame(true, s.subtype, s.buf[1:MaxFrameSize])
}

// Reset drops any candidate.
func (s *StreamStager) Reset() {
	s.n, s.state, s.subtype = 0, streamIdle, 0
}

// StreamPacket re-frames a received stream frame for the PC:
// start byte, payload and stop byte carrying the subtype.
func StreamPacket(f Frame) []byte {
	out := make([]byte, 0, streamPacketSize)
	out = append(out, streamStart)
	out = append(out, f.Payload()...)
	return append(out, f.Header().StopByte())
}
