package link

const (
	// MaxFrameSize is the largest frame the radio carries.
	MaxFrameSize = 32
	// MaxPayloadSize is the payload room after the header byte.
	MaxPayloadSize = MaxFrameSize - 1

	streamFlag   byte = 0x80
	seqMask      byte = 0x78
	checksumMask byte = 0x07
)

// Header is the first byte of every frame longer than one byte.
type Header byte

// Checksum calculates the 3-bit checksum of payload.
func Checksum(payload []byte) byte {
	var sum uint32
	for _, b := range payload {
		sum += uint32(b)
	}
	return byte(-sum) & checksumMask
}

// MakeHeader packs the stream flag, the sequence (or subtype) nibble
// and the checksum of payload.
func MakeHeader(stream bool, seq byte, payload []byte) Header {
	var h byte
	if stream {
		h |= streamFlag
	}
	h |= (seq & 0x0f) << 3
	h |= Checksum(payload)
	return Header(h)
}

// IsStream tells if the frame is a stream frame.
func (h Header) IsStream() bool {
	return byte(h)&streamFlag != 0
}

// Seq returns the countdown sequence, or the subtype of a stream frame.
func (h Header) Seq() byte {
	return (byte(h) & seqMask) >> 3
}

// Checksum returns the checksum bits.
func (h Header) Checksum() byte {
	return byte(h) & checksumMask
}

// StopByte is the byte terminating a stream packet on the PC side.
func (h Header) StopByte() byte {
	return streamStop | h.Seq()
}

// ChecksumMatches verifies frame[0] against the payload that follows.
// Frames shorter than two bytes carry no checksum and never match.
func ChecksumMatches(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	return Header(frame[0]).Checksum() == Checksum(frame[1:])
}

// Frame is an encoded radio frame.
type Frame []byte

// EncodeFrame builds a frame from header and payload.
func EncodeFrame(stream bool, seq byte, payload []byte) Frame {
	f := make(Frame, len(payload)+1)
	f[0] = byte(MakeHeader(stream, seq, payload))
	copy(f[1:], payload)
	return f
}

// Header returns the header of a frame with payload.
func (f Frame) Header() Header {
	return Header(f[0])
}

// Payload returns bytes after the header.
func (f Frame) Payload() []byte {
	if len(f) < 2 {
		return nil
	}
	return f[1:]
}

// IsControl tells if the frame is a single control byte.
func (f Frame) IsControl() bool {
	return len(f) == 1
}

// IsPoll tells if the frame is a zero-length poll.
func (f Frame) IsPoll() bool {
	return len(f) == 0
}
