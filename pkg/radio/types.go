// Package radio defines the transport carrying link frames between
// Host and Device.
package radio

import "io"

// PacketReader reads frames.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes frames. Delivery isn't confirmed.
type PacketWriter interface {
	WritePacket([]byte) error
}

// Transport reads/writes frames.
type Transport interface {
	PacketReader
	PacketWriter
}

// ChannelSwitcher is implemented by transports with a notion of
// radio channel. Frames only travel between ends on the same channel.
type ChannelSwitcher interface {
	SwitchChannel(ch uint32) error
}

// SwitchChannel switches t if it supports channels.
func SwitchChannel(t Transport, ch uint32) error {
	if s, ok := t.(ChannelSwitcher); ok {
		return s.SwitchChannel(ch)
	}
	return nil
}

// Close closes t if it's an io.Closer.
func Close(t Transport) error {
	if c, ok := t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
