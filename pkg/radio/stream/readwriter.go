// Package stream carries radio frames over a byte stream, e.g. a TCP
// connection or a serial line to a radio modem.
package stream

import (
	"io"

	"github.com/robotalks/radio.go/pkg/link"
)

// ReadWriter implements radio.Transport.
// Each frame is prefixed by one byte indicating the length.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// ReadPacket implements radio.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size [1]byte
	if _, err := io.ReadFull(p, size[:]); err != nil {
		return nil, err
	}
	if int(size[0]) > link.MaxFrameSize {
		return nil, link.ErrFrameTooLarge
	}
	pkt := make([]byte, size[0])
	_, err := io.ReadFull(p, pkt)
	return pkt, err
}

// WritePacket implements radio.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > link.MaxFrameSize {
		return link.ErrFrameTooLarge
	}
	buf := make([]byte, len(pkt)+1)
	buf[0] = byte(len(pkt))
	copy(buf[1:], pkt)
	_, err := p.Write(buf)
	return err
}

// Close closes the underlying stream if possible.
func (p *ReadWriter) Close() error {
	if c, ok := p.ReadWriter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
