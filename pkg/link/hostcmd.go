package link

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

// CmdKey prefixes the commands a PC sends to the Host itself.
const CmdKey byte = 0xF0

// HostCmd is the code following CmdKey.
type HostCmd byte

// Host commands.
const (
	CmdChannelGet         HostCmd = 0x00
	CmdChannelSet         HostCmd = 0x01
	CmdChannelSetOverride HostCmd = 0x02
	CmdPollTimeGet        HostCmd = 0x03
	CmdPollTimeSet        HostCmd = 0x04
	CmdBaudDefault        HostCmd = 0x05
	CmdBaudFast           HostCmd = 0x06
	CmdSysUp              HostCmd = 0x07
)

// Serial line speeds selectable from the PC.
const (
	BaudDefault = 115200
	BaudFast    = 230400
)

const (
	// TimeSync is the one byte page the PC sends to mark time.
	TimeSync byte = '<'
	// TimeSyncAck answers TimeSync.
	TimeSyncAck byte = ','
	// EOT terminates every Host message.
	EOT = "$$$"
)

var commsDown = failure("Communications timeout - Device failed to poll Host")

// Encode builds the page a PC writes for this command.
func (c HostCmd) Encode(args ...byte) []byte {
	return append([]byte{CmdKey, byte(c)}, args...)
}

func success(msg string) string { return "Success: " + msg + EOT }
func failure(msg string) string { return "Failure: " + msg + EOT }

// The raw value byte follows the decimal for drivers parsing binary.
func channelNumber(ch uint32) string {
	return fmt.Sprintf("Channel number: %d", ch) + string([]byte{byte(ch)})
}

func pollTime(ms uint32) string {
	return fmt.Sprintf("Poll time: %d", ms) + string([]byte{byte(ms)})
}

// inspect looks at a page just promoted for sending. Commands for the
// Host are consumed instead of forwarded.
func (h *hostRole) inspect(now time.Time) {
	e := h.e
	if e.send.Used() != 1 {
		return
	}
	page := e.send.Bytes()
	if len(page) == 1 && page[0] == TimeSync {
		e.out.push(chunkMessage, []byte{TimeSyncAck})
		return
	}
	if len(page) < 2 || len(page) > 3 || page[0] != CmdKey {
		return
	}
	cmd := HostCmd(page[1])
	var arg byte
	if len(page) == 3 {
		arg = page[2]
	}
	if !h.command(now, cmd, arg, len(page) == 3) {
		return
	}
	glog.V(2).Infof("host command 0x%02x consumed", byte(cmd))
	e.send.Clean(1)
}

// command runs one command and returns false if the page should be
// forwarded to the Device as normal data.
func (h *hostRole) command(now time.Time, cmd HostCmd, arg byte, hasArg bool) bool {
	e := h.e
	alive := e.poll.Alive(now)
	settings := e.Settings()
	if !hasArg {
		switch cmd {
		case CmdChannelGet:
			if alive {
				e.message(success("Host and Device on " + channelNumber(settings.Channel)))
			} else {
				e.message(failure("Host on " + channelNumber(settings.Channel)))
			}
		case CmdPollTimeGet:
			if alive {
				e.message(success(pollTime(settings.PollTime)))
			} else {
				e.message(commsDown)
			}
		case CmdBaudDefault:
			e.message(success(fmt.Sprintf("Switch your baud rate to %d", BaudDefault)))
			e.baud = BaudDefault
		case CmdBaudFast:
			e.message(success(fmt.Sprintf("Switch your baud rate to %d", BaudFast)))
			e.baud = BaudFast
		case CmdSysUp:
			if alive {
				e.message(success("System is Up"))
			} else {
				e.message(failure("System is Down"))
			}
		default:
			return false
		}
		return true
	}

	switch cmd {
	case CmdChannelSet:
		switch {
		case ValidateChannel(uint32(arg)) != nil:
			e.message(failure("Verify channel number is less than 25"))
		case h.handshake != handshakeIdle:
			e.message(failure("Handshake in progress"))
		case !alive:
			e.message(commsDown)
		default:
			h.requestChannel(now, uint32(arg))
		}
	case CmdChannelSetOverride:
		if err := e.config.SetChannel(uint32(arg)); err != nil {
			glog.Warningf("channel override: %v", err)
			e.message(failure("Verify channel number is less than 25"))
			break
		}
		e.requestSwitch(uint32(arg))
		e.message(success("Host override - " + channelNumber(uint32(arg))))
	case CmdPollTimeSet:
		switch {
		case ValidatePollTime(uint32(arg)) != nil:
			e.message(failure("Verify poll time is between 1 and 255"))
		case h.handshake != handshakeIdle:
			e.message(failure("Handshake in progress"))
		case !alive:
			e.message(commsDown)
		default:
			h.requestPollTime(now, uint32(arg))
		}
	default:
		return false
	}
	return true
}
