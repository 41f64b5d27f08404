package link

import (
	"time"

	"github.com/golang/glog"
)

type handshakeState int

const (
	handshakeIdle handshakeState = iota
	handshakeChannelRequested
	handshakeChannelConfirm
	handshakePollRequested
	handshakePollConfirm
)

// hostRole answers Device transmissions and serves the PC.
type hostRole struct {
	e *Endpoint

	control    ControlCode
	hasControl bool

	handshake   handshakeState
	started     time.Time
	newChannel  uint32
	prevChannel uint32
	newPollTime uint32

	alive bool
}

func (h *hostRole) OnFrame(now time.Time, f Frame) (Frame, bool) {
	e := h.e
	// The Device answers a page frame in the same turnaround. Hearing it
	// only after a poll interval means the frame was lost.
	if e.tx.unacked && now.Sub(e.tx.lastAt) >= e.poll.Interval && e.tx.lost() {
		glog.V(3).Infof("host page frame unanswered, resend %d frames", e.send.Used())
	}
	if !f.IsControl() || ControlCode(f[0]) != InvalidCode {
		h.confirm()
	}
	switch {
	case f.IsPoll():
		e.tx.acked()
	case f.IsControl():
		code := ControlCode(f[0])
		if e.recover(code) {
			if code == PageReject {
				// resent on a later turnaround, once the Device drained its output
				return Frame{}, true
			}
			return h.next()
		}
		e.tx.acked()
		switch code {
		case Init:
			e.rx.reset()
		case InvalidCode:
			h.abort(code)
		case DeviceSerialOverflow:
			e.message(failure("Device serial buffer overflowed"))
		// A ready outside a handshake is late or duplicated. It is
		// dropped without InvalidCode so the Device doesn't take the
		// reply as a literal.
		case ChangeChannelReady:
			if h.handshake == handshakeChannelRequested {
				return h.sendChannel(now)
			}
		case ChangePollTimeReady:
			if h.handshake == handshakePollRequested {
				return h.sendPollTime(now)
			}
		default:
			glog.V(3).Infof("host RX unexpected %s", code)
			return InvalidCode.Frame(), true
		}
	case f.Header().IsStream():
		e.tx.acked()
		if !ChecksumMatches(f) {
			e.rx.checksumErrors++
			return BadChecksum.Frame(), true
		}
		e.stats.StreamsReceived++
		if e.out.streams >= maxPendingStreams {
			e.stats.StreamsDropped++
			break
		}
		e.out.push(chunkStream, StreamPacket(f))
	default:
		e.tx.acked()
		if code, reply := e.receive(f); reply {
			return code.Frame(), true
		}
	}
	return h.next()
}

// next decides the reply carried by the acknowledgement: a pending
// handshake request first, then the next frame of the page. Every
// Device transmission is acknowledged, if need be with an empty frame.
func (h *hostRole) next() (Frame, bool) {
	if h.hasControl {
		h.hasControl = false
		return h.control.Frame(), true
	}
	if f, ok := h.e.tx.next(); ok {
		return f, true
	}
	return Frame{}, true
}

func (h *hostRole) OnTimer(now time.Time) (Frame, bool) {
	e := h.e
	alive := e.poll.Alive(now)
	if alive != h.alive {
		h.alive = alive
		if alive {
			glog.Info("device is up")
		} else {
			glog.Warningf("device lost, last heard %s ago", now.Sub(e.poll.LastHeard()))
		}
	}
	if h.handshake != handshakeIdle && now.Sub(h.started) > lostFactor*e.poll.Interval {
		h.timeout()
	}
	if promoted, _ := e.promote(now); promoted {
		h.inspect(now)
	}
	return nil, false
}

// confirm completes a handshake once the Device is heard with the new
// parameters in effect.
func (h *hostRole) confirm() {
	switch h.handshake {
	case handshakeChannelConfirm:
		h.handshake = handshakeIdle
		h.e.message(success(channelNumber(h.e.Settings().Channel)))
	case handshakePollConfirm:
		h.handshake = handshakeIdle
		h.e.message(success(pollTime(h.e.Settings().PollTime)))
	}
}

func (h *hostRole) requestChannel(now time.Time, ch uint32) {
	h.newChannel = ch
	h.begin(now, handshakeChannelRequested, ChangeChannelRequest)
}

func (h *hostRole) requestPollTime(now time.Time, ms uint32) {
	h.newPollTime = ms
	h.begin(now, handshakePollRequested, ChangePollTimeRequest)
}

func (h *hostRole) begin(now time.Time, state handshakeState, code ControlCode) {
	h.handshake, h.started = state, now
	h.control, h.hasControl = code, true
	glog.V(2).Infof("host handshake %s", code)
}

// sendChannel persists the requested channel and sends it as the
// literal. The radio switches after the literal has been sent.
func (h *hostRole) sendChannel(now time.Time) (Frame, bool) {
	e := h.e
	prev := e.Settings().Channel
	if err := e.config.SetChannel(h.newChannel); err != nil {
		glog.Errorf("save channel %d: %v", h.newChannel, err)
		h.handshake = handshakeIdle
		e.message(failure("Unable to save new channel number"))
		// the Device is waiting for a literal, keep it where it is
		return Frame{byte(prev)}, true
	}
	h.prevChannel = prev
	h.handshake, h.started = handshakeChannelConfirm, now
	e.requestSwitch(h.newChannel)
	glog.Infof("host switching channel %d -> %d", prev, h.newChannel)
	return Frame{byte(h.newChannel)}, true
}

func (h *hostRole) sendPollTime(now time.Time) (Frame, bool) {
	e := h.e
	prev := e.Settings().PollTime
	if err := e.config.SetPollTime(h.newPollTime); err != nil {
		glog.Errorf("save poll time %d: %v", h.newPollTime, err)
		h.handshake = handshakeIdle
		e.message(failure("Unable to save new poll time"))
		return Frame{byte(prev)}, true
	}
	e.poll.Interval = e.Settings().PollInterval()
	h.handshake, h.started = handshakePollConfirm, now
	return Frame{byte(h.newPollTime)}, true
}

// timeout gives up a handshake the Device didn't follow. A channel
// already switched is reverted.
func (h *hostRole) timeout() {
	e := h.e
	if h.handshake == handshakeChannelConfirm {
		if err := e.config.SetChannel(h.prevChannel); err != nil {
			glog.Errorf("restore channel %d: %v", h.prevChannel, err)
		}
		e.requestSwitch(e.Settings().Channel)
		glog.Warningf("device not heard on new channel, back to %d", e.Settings().Channel)
	}
	h.hasControl = false
	h.handshake = handshakeIdle
	e.message(commsDown)
}

func (h *hostRole) abort(code ControlCode) {
	var req ControlCode
	switch h.handshake {
	case handshakeChannelRequested, handshakeChannelConfirm:
		req = ChangeChannelRequest
	case handshakePollRequested, handshakePollConfirm:
		req = ChangePollTimeRequest
	default:
		return
	}
	err := &ControlError{Request: req, Code: code}
	glog.Warningf("handshake aborted: %v", err)
	h.handshake = handshakeIdle
	h.hasControl = false
	h.e.message(failure("Device refused the request"))
}
