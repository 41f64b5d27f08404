package sh

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/radio.go/pkg/link"
)

func TestParseReply(t *testing.T) {
	testCases := []struct {
		name  string
		msg   string
		reply Reply
		fail  bool
	}{
		{
			name:  "success",
			msg:   "Success: System is Up$$$",
			reply: Reply{OK: true, Text: "System is Up"},
		},
		{
			name:  "failure",
			msg:   "Failure: System is Down$$$",
			reply: Reply{Text: "System is Down"},
		},
		{
			name:  "channel with raw value",
			msg:   "Success: Host and Device on Channel number: 5\x05$$$",
			reply: Reply{OK: true, Text: "Host and Device on Channel number: 5", Value: 5, HasValue: true},
		},
		{
			name:  "poll time above ascii",
			msg:   "Success: Poll time: 200\xc8$$$",
			reply: Reply{OK: true, Text: "Poll time: 200", Value: 200, HasValue: true},
		},
		{
			name:  "trailing number is not a value",
			msg:   "Success: Switch your baud rate to 230400$$$",
			reply: Reply{OK: true, Text: "Switch your baud rate to 230400"},
		},
		{
			name:  "device data before reply",
			msg:   "abcFailure: Communications timeout - Device failed to poll Host$$$",
			reply: Reply{Text: "Communications timeout - Device failed to poll Host"},
		},
		{
			name: "garbage",
			msg:  "hello$$$",
			fail: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reply, err := ParseReply([]byte(tc.msg))
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.reply, reply)
		})
	}
}

// testPort answers each write with a canned response.
type testPort struct {
	readCh  chan []byte
	writeCh chan []byte
	answer  func([]byte) []byte
}

func newTestPort(answer func([]byte) []byte) *testPort {
	return &testPort{
		readCh:  make(chan []byte, 4),
		writeCh: make(chan []byte, 4),
		answer:  answer,
	}
}

func (p *testPort) Read(b []byte) (int, error) {
	data, ok := <-p.readCh
	if !ok {
		return 0, io.EOF
	}
	return copy(b, data), nil
}

func (p *testPort) Write(b []byte) (int, error) {
	p.writeCh <- append([]byte(nil), b...)
	if resp := p.answer(b); len(resp) > 0 {
		p.readCh <- resp
	}
	return len(b), nil
}

func TestConsoleCommand(t *testing.T) {
	port := newTestPort(func(b []byte) []byte {
		switch {
		case len(b) == 2 && b[0] == link.CmdKey && link.HostCmd(b[1]) == link.CmdChannelGet:
			return []byte("Success: Host and Device on Channel number: 25\x19$$$")
		case len(b) == 1 && b[0] == link.TimeSync:
			return []byte{link.TimeSyncAck}
		}
		return nil
	})
	c := NewConsole(port)
	defer close(port.readCh)

	reply, err := c.Command(context.Background(), link.CmdChannelGet)
	require.NoError(t, err)
	require.True(t, reply.OK)
	require.Equal(t, byte(25), reply.Value)
	require.Equal(t, []byte{link.CmdKey, 0x00}, <-port.writeCh)

	_, err = c.TimeSync(context.Background())
	require.NoError(t, err)
	<-port.writeCh

	require.NoError(t, c.Send([]byte("data")))
	require.Equal(t, []byte("data"), <-port.writeCh)
	port.readCh <- []byte("from device")
	require.Eventually(t, func() bool {
		return string(c.Received()) == "from device"
	}, time.Second, time.Millisecond)
}

func TestConsoleTimeout(t *testing.T) {
	port := newTestPort(func([]byte) []byte { return nil })
	c := NewConsole(port)
	c.Timeout = 10 * time.Millisecond
	defer close(port.readCh)

	_, err := c.Command(context.Background(), link.CmdSysUp)
	require.Equal(t, context.DeadlineExceeded, err)
}
