package sh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robotalks/radio.go/pkg/link"
)

// Console talks to a Host over its serial line. Bytes not belonging to
// a reply are kept as data received from the Device.
type Console struct {
	Port    io.ReadWriter
	Timeout time.Duration

	lock     sync.Mutex
	buf      bytes.Buffer
	err      error
	notifyCh chan struct{}
}

// Reply is a message from the Host.
type Reply struct {
	OK   bool
	Text string
	// Value is the raw value byte some replies carry.
	Value    byte
	HasValue bool
}

func (r Reply) String() string {
	status := "Failure"
	if r.OK {
		status = "Success"
	}
	return status + ": " + r.Text
}

// NewConsole creates a Console and starts reading port.
func NewConsole(port io.ReadWriter) *Console {
	c := &Console{
		Port:     port,
		Timeout:  time.Second,
		notifyCh: make(chan struct{}, 1),
	}
	go c.readLoop()
	return c
}

func (c *Console) readLoop() {
	buf := make([]byte, 256)
	for {
		n, err := c.Port.Read(buf)
		c.lock.Lock()
		c.buf.Write(buf[:n])
		if err != nil {
			c.err = err
		}
		c.lock.Unlock()
		select {
		case c.notifyCh <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
	}
}

// Command sends a Host command and waits for the reply.
func (c *Console) Command(ctx context.Context, cmd link.HostCmd, args ...byte) (Reply, error) {
	if _, err := c.Port.Write(cmd.Encode(args...)); err != nil {
		return Reply{}, err
	}
	msg, err := c.wait(ctx, []byte(link.EOT))
	if err != nil {
		return Reply{}, err
	}
	return ParseReply(msg)
}

// TimeSync sends the time sync mark and waits for the acknowledge.
func (c *Console) TimeSync(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := c.Port.Write([]byte{link.TimeSync}); err != nil {
		return 0, err
	}
	if _, err := c.wait(ctx, []byte{link.TimeSyncAck}); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// Send writes data to be forwarded to the Device.
func (c *Console) Send(data []byte) error {
	_, err := c.Port.Write(data)
	return err
}

// Received takes the data received so far.
func (c *Console) Received() []byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	data := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	return data
}

// wait waits until term shows up and returns the bytes up to and
// including it.
func (c *Console) wait(ctx context.Context, term []byte) ([]byte, error) {
	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()
	for {
		c.lock.Lock()
		if idx := bytes.Index(c.buf.Bytes(), term); idx >= 0 {
			msg := append([]byte(nil), c.buf.Next(idx+len(term))...)
			c.lock.Unlock()
			return msg, nil
		}
		err := c.err
		c.lock.Unlock()
		if err != nil {
			return nil, err
		}
		select {
		case <-c.notifyCh:
		case <-timer.C:
			return nil, context.DeadlineExceeded
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ParseReply parses a Host message terminated by EOT. Device data
// preceding the message is skipped.
func ParseReply(msg []byte) (Reply, error) {
	var r Reply
	text := strings.TrimSuffix(string(msg), link.EOT)
	idx := strings.LastIndex(text, "Success: ")
	if failIdx := strings.LastIndex(text, "Failure: "); failIdx > idx {
		idx = failIdx
	} else if idx >= 0 {
		r.OK = true
	}
	if idx < 0 {
		return r, fmt.Errorf("unexpected reply %q", msg)
	}
	r.Text = text[idx+len("Success: "):]
	r.Text, r.Value, r.HasValue = splitValue(r.Text)
	return r, nil
}

// splitValue removes the raw byte following a decimal value.
func splitValue(text string) (string, byte, bool) {
	if len(text) < 2 {
		return text, 0, false
	}
	raw, rest := text[len(text)-1], text[:len(text)-1]
	start := len(rest)
	for start > 0 && rest[start-1] >= '0' && rest[start-1] <= '9' {
		start--
	}
	if start == len(rest) {
		return text, 0, false
	}
	val, err := strconv.Atoi(rest[start:])
	if err != nil || val != int(raw) {
		return text, 0, false
	}
	return rest, raw, true
}
