package mqtt

import (
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"
)

// Transport implements radio.Transport and radio.ChannelSwitcher.
// Frames travel on per channel topics:
//   ch<N>/host   frames for the Host
//   ch<N>/device frames for the Device
type Transport struct {
	Queue *Queue
	Role  string // "host" or "device"

	lock     sync.Mutex
	channel  uint32
	sub      *Subscription
	packetCh chan []byte
	closed   bool
	ownQueue bool
}

// NewTransport creates the Transport for role, not subscribed until
// the first SwitchChannel.
func NewTransport(q *Queue, role string) *Transport {
	return &Transport{Queue: q, Role: role, packetCh: make(chan []byte, 16)}
}

// DialTransport connects the broker at brokerURL and creates a Transport
// owning the connection.
func DialTransport(brokerURL, role string) (*Transport, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	q := NewQueue(opts, topicPrefix)
	if err := q.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", brokerURL, err)
	}
	t := NewTransport(q, role)
	t.ownQueue = true
	return t, nil
}

// ChannelTopic returns the topic frames for role use on a channel.
func ChannelTopic(ch uint32, role string) string {
	return fmt.Sprintf("ch%d/%s", ch, role)
}

func (t *Transport) peer() string {
	if t.Role == "host" {
		return "device"
	}
	return "host"
}

// SwitchChannel implements radio.ChannelSwitcher.
func (t *Transport) SwitchChannel(ch uint32) error {
	t.lock.Lock()
	old := t.sub
	if old != nil && t.channel == ch {
		t.lock.Unlock()
		return nil
	}
	t.channel, t.sub = ch, nil
	t.lock.Unlock()

	// tokens are not waited with the lock held, handleMsg needs it
	if old != nil {
		if err := old.Close(); err != nil {
			return err
		}
	}
	sub := t.Queue.Sub(ChannelTopic(ch, t.Role), t.handleMsg)
	t.lock.Lock()
	t.sub = sub
	t.lock.Unlock()
	sub.Token.Wait()
	return sub.Token.Error()
}

// ReadPacket implements radio.PacketReader.
func (t *Transport) ReadPacket() ([]byte, error) {
	pkt, ok := <-t.packetCh
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

// WritePacket implements radio.PacketWriter.
func (t *Transport) WritePacket(pkt []byte) error {
	t.lock.Lock()
	topic := ChannelTopic(t.channel, t.peer())
	t.lock.Unlock()
	token := t.Queue.Pub(topic, pkt)
	token.Wait()
	return token.Error()
}

// Close implements io.Closer.
func (t *Transport) Close() error {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return nil
	}
	t.closed = true
	sub := t.sub
	close(t.packetCh)
	t.lock.Unlock()
	var err error
	if sub != nil {
		err = sub.Close()
	}
	if t.ownQueue {
		t.Queue.Close()
	}
	return err
}

func (t *Transport) handleMsg(topic string, payload []byte) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed || topic != ChannelTopic(t.channel, t.Role) {
		return
	}
	select {
	case t.packetCh <- payload:
	default:
		glog.Warningf("drop frame on %s, reader not keeping up", topic)
	}
}
