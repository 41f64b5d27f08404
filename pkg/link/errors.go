package link

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelRange indicates a channel number beyond the radio limits.
	ErrChannelRange = errors.New("channel out of range")
	// ErrPollTimeRange indicates a poll time which can't be sent as one byte.
	ErrPollTimeRange = errors.New("poll time out of range")
	// ErrUnsupportedRole indicates the role can't run an endpoint.
	ErrUnsupportedRole = errors.New("unsupported role")
	// ErrFrameTooLarge indicates a frame exceeding MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")
)

// ControlError wraps a control code the peer answered a request with.
type ControlError struct {
	Request ControlCode
	Code    ControlCode
}

// Error implements error.
func (e *ControlError) Error() string {
	return fmt.Sprintf("%s answered with %s", e.Request, e.Code)
}
