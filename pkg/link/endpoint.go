package link

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang/glog"
)

// Role is the part an endpoint plays on the link.
type Role int

// Roles.
const (
	RoleHost Role = iota
	RoleDevice
	RolePassThrough
)

var roleNames = []string{"host", "device", "passthrough"}

// String implements fmt.Stringer.
func (r Role) String() string {
	if int(r) >= 0 && int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole converts a name into Role.
func ParseRole(name string) (Role, error) {
	for n, s := range roleNames {
		if strings.EqualFold(name, s) {
			return Role(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedRole, name)
}

// behavior is the role specific part of an Endpoint.
type behavior interface {
	// OnFrame reacts to a frame from the peer and decides at most one reply.
	OnFrame(now time.Time, f Frame) (Frame, bool)
	// OnTimer runs in the main cycle and may decide to transmit.
	OnTimer(now time.Time) (Frame, bool)
}

// Stats counts link events.
type Stats struct {
	FramesSent      int
	FramesReceived  int
	PagesReceived   int
	StreamsSent     int
	StreamsReceived int
	StreamsDropped  int
	Resends         int
	ChecksumErrors  int
	Missed          int
	Rejected        int
	Overflows       int
	BytesDropped    int
	Oversized       int
}

// Status is a snapshot of an Endpoint.
type Status struct {
	Role      Role
	Settings  Settings
	PeerAlive bool
	Stats     Stats
}

const (
	maxPendingPages   = 2
	maxPendingStreams = 3
)

type chunkKind int

const (
	chunkPage chunkKind = iota
	chunkStream
	chunkMessage
)

type chunk struct {
	kind chunkKind
	data []byte
}

// outbox queues bytes for the local serial sink in arrival order.
type outbox struct {
	chunks  []chunk
	pages   int
	streams int
}

func (o *outbox) push(kind chunkKind, data []byte) {
	o.chunks = append(o.chunks, chunk{kind: kind, data: data})
	switch kind {
	case chunkPage:
		o.pages++
	case chunkStream:
		o.streams++
	}
}

func (o *outbox) flush(w io.Writer) error {
	for len(o.chunks) > 0 {
		c := o.chunks[0]
		if _, err := w.Write(c.data); err != nil {
			return err
		}
		o.chunks = o.chunks[1:]
		switch c.kind {
		case chunkPage:
			o.pages--
		case chunkStream:
			o.streams--
		}
	}
	o.chunks = nil
	return nil
}

// Endpoint owns all protocol state of one side of the link.
// It is not safe for concurrent use, see Station.
type Endpoint struct {
	role     Role
	behavior behavior
	config   *ConfigStore

	fill   *Pool
	send   *Pool
	framer Framer
	tx     sender
	rx     *receiver
	poll   PollScheduler
	out    outbox
	stats  Stats

	switchChannel uint32
	switchPending bool
	baud          int
}

// NewEndpoint loads the settings and creates an Endpoint for role.
func NewEndpoint(role Role, config *ConfigStore) (*Endpoint, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	e := &Endpoint{
		role:   role,
		config: config,
		fill:   NewPool(),
		send:   NewPool(),
		rx:     newReceiver(),
	}
	e.framer.Pool = e.fill
	e.tx.pool = e.send
	e.poll.Interval = settings.PollInterval()
	switch role {
	case RoleHost:
		e.behavior = &hostRole{e: e}
	case RoleDevice:
		e.framer.Streams = &StreamStager{}
		e.behavior = &deviceRole{e: e}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRole, role)
	}
	glog.Infof("%s endpoint on channel %d, poll time %dms", role, settings.Channel, settings.PollTime)
	return e, nil
}

// Role returns the role.
func (e *Endpoint) Role() Role {
	return e.role
}

// Settings returns the settings in effect.
func (e *Endpoint) Settings() Settings {
	return e.config.Current()
}

// HandleInbound processes a frame from the peer and returns the frame
// to reply with, if any.
func (e *Endpoint) HandleInbound(now time.Time, frame []byte) (Frame, bool) {
	if len(frame) > MaxFrameSize {
		e.stats.Oversized++
		glog.Warningf("drop %d byte frame: %v", len(frame), ErrFrameTooLarge)
		return nil, false
	}
	e.stats.FramesReceived++
	e.poll.Heard(now)
	out, ok := e.behavior.OnFrame(now, Frame(frame))
	if ok {
		e.transmitted(now, out)
	}
	return out, ok
}

// Tick runs the timers and returns a frame to transmit, if any.
func (e *Endpoint) Tick(now time.Time) (Frame, bool) {
	out, ok := e.behavior.OnTimer(now)
	if ok {
		e.transmitted(now, out)
	}
	return out, ok
}

// Feed consumes one byte from the local serial line.
func (e *Endpoint) Feed(now time.Time, b byte) {
	e.framer.Feed(now, b)
	if n := e.framer.Dropped(); n > 0 {
		e.stats.BytesDropped += n
	}
}

// Flush writes queued output to the local serial line.
func (e *Endpoint) Flush(w io.Writer) error {
	return e.out.flush(w)
}

// TakeChannelSwitch returns a channel the radio must switch to after
// the last returned frame has been sent.
func (e *Endpoint) TakeChannelSwitch() (uint32, bool) {
	if !e.switchPending {
		return 0, false
	}
	e.switchPending = false
	return e.switchChannel, true
}

// TakeBaudChange returns a baud rate the local serial line must use
// after the output has been flushed.
func (e *Endpoint) TakeBaudChange() (int, bool) {
	baud := e.baud
	e.baud = 0
	return baud, baud != 0
}

// Status returns a snapshot.
func (e *Endpoint) Status(now time.Time) Status {
	stats := e.stats
	stats.Resends = e.tx.resends
	stats.ChecksumErrors = e.rx.checksumErrors
	stats.Missed = e.rx.missed
	stats.Rejected = e.rx.rejected
	return Status{
		Role:      e.role,
		Settings:  e.config.Current(),
		PeerAlive: e.poll.Alive(now),
		Stats:     stats,
	}
}

func (e *Endpoint) transmitted(now time.Time, f Frame) {
	e.stats.FramesSent++
	e.poll.Sent(now)
	switch {
	case f.IsPoll():
		e.tx.sent(now, sentPoll)
	case f.IsControl():
		e.tx.sent(now, sentControl)
	case f.Header().IsStream():
		e.stats.StreamsSent++
		e.tx.sent(now, sentStream)
	default:
		e.tx.sent(now, sentPage)
	}
	if glog.V(4) {
		glog.Infof("%s TX % x", e.role, []byte(f))
	}
}

// recover applies a recovery request to the page being sent.
func (e *Endpoint) recover(code ControlCode) bool {
	switch code {
	case BadChecksum:
		e.tx.rewindOne()
	case Missed, PageReject:
		e.tx.rewindPage()
	default:
		return false
	}
	e.tx.replied()
	glog.V(3).Infof("%s recover on %s, %d/%d sent", e.role, code, e.send.Sent(), e.send.Used())
	return true
}

// receive validates a normal frame and queues a completed page.
func (e *Endpoint) receive(f Frame) (ControlCode, bool) {
	res, page := e.rx.accept(f, e.out.pages < maxPendingPages)
	if res == RecvCompleted {
		e.stats.PagesReceived++
		e.out.push(chunkPage, page)
	}
	if code, ok := res.Reply(); ok {
		glog.V(3).Infof("%s RX header 0x%02x: %s", e.role, f[0], code)
		return code, true
	}
	return InvalidCode, false
}

// promote moves the filling page to the sending pool when the sending
// pool is idle and the page is complete: the serial line went quiet or
// the pool can't take more.
func (e *Endpoint) promote(now time.Time) (promoted, overflowed bool) {
	if !e.send.IsEmpty() || e.fill.IsEmpty() {
		return false, false
	}
	full := e.fill.Used() == PoolCapacity && e.fill.slots[PoolCapacity-1].IsFull()
	if !full && !e.fill.Overflowed() && !e.framer.Quiet(now, SerialQuietWindow) {
		return false, false
	}
	if s := e.framer.Streams; s != nil {
		if s.ReadyForLaunch() {
			return false, false
		}
		s.Reset()
	}
	overflowed = e.fill.Overflowed()
	if overflowed {
		e.stats.Overflows++
		glog.Warningf("%s serial overflow, page truncated to %d bytes", e.role, e.fill.Len())
	}
	e.send.swap(e.fill)
	return true, overflowed
}

func (e *Endpoint) requestSwitch(ch uint32) {
	e.switchChannel, e.switchPending = ch, true
}

func (e *Endpoint) message(msg string) {
	e.out.push(chunkMessage, []byte(msg))
}
