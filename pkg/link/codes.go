package link

import "fmt"

// ControlCode is the content of a single-byte frame.
type ControlCode byte

// Control codes exchanged between Host and Device.
const (
	InvalidCode           ControlCode = 0x00
	BadChecksum           ControlCode = 0x01
	Missed                ControlCode = 0x02
	Init                  ControlCode = 0x03
	DeviceSerialOverflow  ControlCode = 0x04
	ChangeChannelRequest  ControlCode = 0x05
	ChangeChannelReady    ControlCode = 0x06
	ChangePollTimeRequest ControlCode = 0x07
	ChangePollTimeReady   ControlCode = 0x08
	PageReject            ControlCode = 0x09
)

var controlCodeNames = map[ControlCode]string{
	InvalidCode:           "invalid-code",
	BadChecksum:           "bad-checksum",
	Missed:                "missed",
	Init:                  "init",
	DeviceSerialOverflow:  "device-serial-overflow",
	ChangeChannelRequest:  "change-channel-request",
	ChangeChannelReady:    "change-channel-ready",
	ChangePollTimeRequest: "change-poll-time-request",
	ChangePollTimeReady:   "change-poll-time-ready",
	PageReject:            "page-reject",
}

// String implements fmt.Stringer.
func (c ControlCode) String() string {
	if name, ok := controlCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(0x%02x)", byte(c))
}

// IsKnown tells if c is part of the control vocabulary.
func (c ControlCode) IsKnown() bool {
	_, ok := controlCodeNames[c]
	return ok
}

// Frame encodes the code as a control frame.
func (c ControlCode) Frame() Frame {
	return Frame{byte(c)}
}

// Stream packet markers on the serial lines.
const (
	streamHead  byte = 0x41
	streamStart byte = 0xA0
	streamStop  byte = 0xC0

	streamPacketSize = 33
)

func isStreamTail(b byte) bool {
	return b>>4 == streamStop>>4
}
