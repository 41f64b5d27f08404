package link

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
		sum     byte
	}{
		{name: "empty", payload: nil, sum: 0},
		{name: "one", payload: []byte{1}, sum: 7},
		{name: "wraps to zero", payload: []byte{8}, sum: 0},
		{name: "text", payload: []byte("OK"), sum: 6},
		{name: "overflowing sum", payload: []byte{0xff, 0xff, 0xff}, sum: 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.sum, Checksum(tc.payload))
		})
	}
}

func TestHeader(t *testing.T) {
	testCases := []struct {
		name   string
		stream bool
		seq    byte
		header Header
	}{
		{name: "last frame", seq: 0, header: 0x06},
		{name: "countdown", seq: 3, header: 0x1e},
		{name: "highest seq", seq: 15, header: 0x7e},
		{name: "stream subtype", stream: true, seq: 3, header: 0x9e},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := MakeHeader(tc.stream, tc.seq, []byte("OK"))
			require.Equal(t, tc.header, h)
			require.Equal(t, tc.stream, h.IsStream())
			require.Equal(t, tc.seq, h.Seq())
			require.Equal(t, byte(6), h.Checksum())
		})
	}
	require.Equal(t, byte(0xc3), Header(0x9e).StopByte())
}

func TestChecksumMatches(t *testing.T) {
	testCases := []struct {
		name  string
		frame []byte
		match bool
	}{
		{name: "valid", frame: []byte{0x06, 'O', 'K'}, match: true},
		{name: "valid with seq", frame: []byte{0x1e, 'O', 'K'}, match: true},
		{name: "corrupted payload", frame: []byte{0x06, 'O', 'L'}, match: false},
		{name: "corrupted header", frame: []byte{0x07, 'O', 'K'}, match: false},
		{name: "control", frame: []byte{0x00}, match: false},
		{name: "poll", frame: nil, match: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.match, ChecksumMatches(tc.frame))
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	f := EncodeFrame(false, 2, []byte("abc"))
	require.Len(t, f, 4)
	require.Equal(t, []byte("abc"), f.Payload())
	require.Equal(t, byte(2), f.Header().Seq())
	require.True(t, ChecksumMatches(f))
	require.False(t, f.IsControl())
	require.False(t, f.IsPoll())

	require.True(t, Init.Frame().IsControl())
	require.Nil(t, Init.Frame().Payload())
	require.True(t, Frame{}.IsPoll())
}

func TestControlCode(t *testing.T) {
	require.Equal(t, "bad-checksum", BadChecksum.String())
	require.Equal(t, "code(0x42)", ControlCode(0x42).String())
	require.True(t, PageReject.IsKnown())
	require.False(t, ControlCode(0x42).IsKnown())
	require.Equal(t, Frame{0x03}, Init.Frame())
}

func TestControlError(t *testing.T) {
	var err error = &ControlError{Request: ChangeChannelRequest, Code: InvalidCode}
	require.EqualError(t, err, "change-channel-request answered with invalid-code")
	var ce *ControlError
	require.ErrorAs(t, fmt.Errorf("handshake: %w", err), &ce)
	require.Equal(t, InvalidCode, ce.Code)
}
