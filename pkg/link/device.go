package link

import (
	"time"

	"github.com/golang/glog"
)

// deviceRole drives the link: it transmits, and hears the Host only in
// acknowledgements of its own transmissions.
type deviceRole struct {
	e *Endpoint

	started  bool
	literal  ControlCode // ready code whose literal is expected next
	awaiting bool
	overflow bool
}

func (d *deviceRole) OnFrame(now time.Time, f Frame) (Frame, bool) {
	e := d.e
	switch {
	case f.IsPoll():
		e.tx.acked()
	case f.IsControl():
		if d.awaiting {
			d.awaiting = false
			return d.apply(f[0])
		}
		code := ControlCode(f[0])
		if e.recover(code) {
			if code == PageReject {
				// resent from the main cycle, the Host needs to drain first
				return nil, false
			}
			return d.next(now, false)
		}
		e.tx.acked()
		switch code {
		case ChangeChannelRequest:
			d.literal, d.awaiting = ChangeChannelReady, true
			return ChangeChannelReady.Frame(), true
		case ChangePollTimeRequest:
			d.literal, d.awaiting = ChangePollTimeReady, true
			return ChangePollTimeReady.Frame(), true
		case Init:
			e.rx.reset()
		case InvalidCode:
		default:
			glog.V(3).Infof("device RX unexpected %s", code)
			return InvalidCode.Frame(), true
		}
	case f.Header().IsStream():
		e.tx.acked()
		glog.V(3).Info("device RX stream frame, ignored")
	default:
		e.tx.acked()
		if code, reply := e.receive(f); reply {
			return code.Frame(), true
		}
		// every page frame is answered in the same turnaround, the Host
		// takes anything later as a sign its frame was lost
		return d.next(now, true)
	}
	return d.next(now, false)
}

// apply takes the literal following a ready code. The channel switch
// happens after this turnaround, then the Host is polled right away.
func (d *deviceRole) apply(b byte) (Frame, bool) {
	e := d.e
	switch d.literal {
	case ChangeChannelReady:
		if err := e.config.SetChannel(uint32(b)); err != nil {
			glog.Warningf("device channel change: %v", err)
			return InvalidCode.Frame(), true
		}
		e.requestSwitch(uint32(b))
		glog.Infof("device switching to channel %d", b)
	case ChangePollTimeReady:
		if err := e.config.SetPollTime(uint32(b)); err != nil {
			glog.Warningf("device poll time change: %v", err)
			return InvalidCode.Frame(), true
		}
		e.poll.Interval = e.Settings().PollInterval()
		glog.Infof("device poll time %dms", b)
	}
	e.poll.Force()
	return nil, false
}

// next picks what to transmit: control notices, then a sample packet,
// then the page. poll asks for a zero-length frame if nothing else.
func (d *deviceRole) next(now time.Time, poll bool) (Frame, bool) {
	e := d.e
	if d.overflow {
		d.overflow = false
		return DeviceSerialOverflow.Frame(), true
	}
	if f, ok := e.framer.TakeStream(); ok {
		return f, true
	}
	if _, overflowed := e.promote(now); overflowed {
		return DeviceSerialOverflow.Frame(), true
	}
	if f, ok := e.tx.next(); ok {
		return f, true
	}
	if poll {
		return Frame{}, true
	}
	return nil, false
}

func (d *deviceRole) OnTimer(now time.Time) (Frame, bool) {
	e := d.e
	if !d.started {
		d.started = true
		return Init.Frame(), true
	}
	if f, ok := e.framer.TakeStream(); ok {
		return f, true
	}
	if _, overflowed := e.promote(now); overflowed {
		d.overflow = true
	}
	if d.overflow || (e.send.HasPending() && !e.tx.inFlight()) {
		return d.next(now, false)
	}
	if !e.poll.Due(now) {
		return nil, false
	}
	if e.tx.lost() {
		glog.V(3).Infof("device page frame unanswered, resend %d frames", e.send.Used())
		return d.next(now, true)
	}
	if e.rx.midPage() {
		// the Host's next frame never came
		e.rx.drop()
		return Missed.Frame(), true
	}
	return d.next(now, true)
}
