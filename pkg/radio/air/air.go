// Package air simulates the radio between two ends in memory.
package air

import (
	"io"
	"sync"
)

// LossFunc decides if a frame sent by from is lost.
type LossFunc func(from *Antenna, frame []byte) bool

// Air connects Antennas on the same channel.
type Air struct {
	Loss LossFunc

	lock     sync.Mutex
	antennas []*Antenna
}

// Antenna is one end, implementing radio.Transport and
// radio.ChannelSwitcher.
type Antenna struct {
	Name string

	air     *Air
	channel uint32
	inbox   chan []byte
	closed  chan struct{}
	once    sync.Once
}

// New creates an Air.
func New() *Air {
	return &Air{}
}

// Pair creates an Air with two Antennas.
func Pair() (host, device *Antenna) {
	a := New()
	return a.Antenna("host"), a.Antenna("device")
}

// Antenna adds an end.
func (a *Air) Antenna(name string) *Antenna {
	ant := &Antenna{
		Name:   name,
		air:    a,
		inbox:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
	a.lock.Lock()
	a.antennas = append(a.antennas, ant)
	a.lock.Unlock()
	return ant
}

func (a *Air) transmit(from *Antenna, frame []byte) {
	if loss := a.Loss; loss != nil && loss(from, frame) {
		return
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	for _, ant := range a.antennas {
		if ant == from || ant.channel != from.channel {
			continue
		}
		data := make([]byte, len(frame))
		copy(data, frame)
		select {
		case ant.inbox <- data:
		default:
			// receiver not keeping up, the frame is lost
		}
	}
}

// Channel returns the current channel.
func (t *Antenna) Channel() uint32 {
	t.air.lock.Lock()
	defer t.air.lock.Unlock()
	return t.channel
}

// SwitchChannel implements radio.ChannelSwitcher.
func (t *Antenna) SwitchChannel(ch uint32) error {
	t.air.lock.Lock()
	t.channel = ch
	t.air.lock.Unlock()
	return nil
}

// ReadPacket implements radio.PacketReader.
func (t *Antenna) ReadPacket() ([]byte, error) {
	select {
	case f := <-t.inbox:
		return f, nil
	case <-t.closed:
		return nil, io.EOF
	}
}

// WritePacket implements radio.PacketWriter.
func (t *Antenna) WritePacket(frame []byte) error {
	select {
	case <-t.closed:
		return io.ErrClosedPipe
	default:
	}
	t.air.transmit(t, frame)
	return nil
}

// Close implements io.Closer.
func (t *Antenna) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}
