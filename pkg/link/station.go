package link

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/radio.go/pkg/radio"
)

// StatusNotifier is called when the status of the endpoint changed.
type StatusNotifier interface {
	StatusChanged(context.Context, Status)
}

// StatusChangedFunc is func type of StatusNotifier.
type StatusChangedFunc func(context.Context, Status)

// StatusChanged implements StatusNotifier.
func (f StatusChangedFunc) StatusChanged(ctx context.Context, s Status) {
	f(ctx, s)
}

// BaudSetter is implemented by serial lines which can change speed.
type BaudSetter interface {
	SetBaud(baud int) error
}

// Station runs an Endpoint between a local serial line and a radio
// transport. All Endpoint access happens on the Run goroutine.
type Station struct {
	Endpoint *Endpoint
	Serial   io.ReadWriter
	Radio    radio.Transport
	Notifier StatusNotifier
	Cycle    time.Duration

	// Now returns the time, replaceable for tests.
	Now func() time.Time

	last Status
}

// NewStation creates a Station.
func NewStation(e *Endpoint, serial io.ReadWriter, tr radio.Transport) *Station {
	return &Station{
		Endpoint: e,
		Serial:   serial,
		Radio:    tr,
		Cycle:    time.Millisecond,
		Now:      time.Now,
	}
}

// Name implements framework.Named.
func (s *Station) Name() string {
	return "station/" + s.Endpoint.Role().String()
}

// Run implements framework.Runnable.
func (s *Station) Run(ctx context.Context) error {
	if err := radio.SwitchChannel(s.Radio, s.Endpoint.Settings().Channel); err != nil {
		return fmt.Errorf("switch channel: %w", err)
	}

	byteCh, frameCh := make(chan byte, 64), make(chan []byte, 4)
	errCh := make(chan error, 2)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.serialLoop(subCtx, byteCh, errCh)
	go s.radioLoop(subCtx, frameCh, errCh)

	ticker := time.NewTicker(s.Cycle)
	defer ticker.Stop()
	for {
		var err error
		select {
		case b := <-byteCh:
			s.Endpoint.Feed(s.Now(), b)
		case f := <-frameCh:
			err = s.transmit(s.Endpoint.HandleInbound(s.Now(), f))
		case <-ticker.C:
			err = s.cycle(ctx)
		case err = <-errCh:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err != nil {
			return err
		}
	}
}

// cycle is one pass of the main cycle: timers, serial drain and
// pending line changes.
func (s *Station) cycle(ctx context.Context) error {
	now := s.Now()
	if err := s.transmit(s.Endpoint.Tick(now)); err != nil {
		return err
	}
	if err := s.Endpoint.Flush(s.Serial); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if baud, ok := s.Endpoint.TakeBaudChange(); ok {
		if setter, ok := s.Serial.(BaudSetter); ok {
			if err := setter.SetBaud(baud); err != nil {
				glog.Errorf("set baud %d: %v", baud, err)
			}
		} else {
			glog.Warningf("serial line can't change baud to %d", baud)
		}
	}
	s.notify(ctx, now)
	return nil
}

// transmit sends a frame if there's one, then applies a channel switch
// decided in the same step.
func (s *Station) transmit(f Frame, ok bool) error {
	if ok {
		if err := s.Radio.WritePacket(f); err != nil {
			glog.Warningf("radio write: %v", err)
		}
	}
	if ch, ok := s.Endpoint.TakeChannelSwitch(); ok {
		if err := radio.SwitchChannel(s.Radio, ch); err != nil {
			return fmt.Errorf("switch channel %d: %w", ch, err)
		}
	}
	return nil
}

func (s *Station) notify(ctx context.Context, now time.Time) {
	status := s.Endpoint.Status(now)
	if status.PeerAlive == s.last.PeerAlive && status.Settings == s.last.Settings {
		return
	}
	s.last = status
	if n := s.Notifier; n != nil {
		n.StatusChanged(ctx, status)
	}
}

func (s *Station) serialLoop(ctx context.Context, byteCh chan<- byte, errCh chan<- error) {
	buf := make([]byte, 64)
	for {
		n, err := s.Serial.Read(buf)
		for _, b := range buf[:n] {
			select {
			case byteCh <- b:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- fmt.Errorf("serial read: %w", err)
			return
		}
	}
}

func (s *Station) radioLoop(ctx context.Context, frameCh chan<- []byte, errCh chan<- error) {
	for {
		f, err := s.Radio.ReadPacket()
		if err != nil {
			errCh <- fmt.Errorf("radio read: %w", err)
			return
		}
		select {
		case frameCh <- f:
		case <-ctx.Done():
			return
		}
	}
}
