package link

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func samplePacket(subtype byte) []byte {
	pkt := []byte{streamHead}
	for n := 0; n < MaxPayloadSize; n++ {
		pkt = append(pkt, byte(n))
	}
	return append(pkt, streamStop|subtype)
}

func TestStreamStager(t *testing.T) {
	testCases := []struct {
		name  string
		in    []byte
		ready bool
		head  bool
	}{
		{name: "complete packet", in: samplePacket(3), ready: true, head: true},
		{name: "noise", in: []byte("hello"), ready: false, head: false},
		{name: "incomplete", in: samplePacket(3)[:20], ready: false, head: true},
		{name: "bad tail", in: append(samplePacket(3)[:32], 0x12), ready: false, head: false},
		{name: "bad tail restarts on head", in: append(samplePacket(3)[:32], streamHead), ready: false, head: true},
		{name: "byte after tail", in: append(samplePacket(3), 'x'), ready: false, head: false},
		{name: "after noise", in: append([]byte("abc"), samplePacket(1)...), ready: true, head: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var s StreamStager
			for _, b := range tc.in {
				s.Feed(b)
			}
			require.Equal(t, tc.ready, s.ReadyForLaunch())
			require.Equal(t, tc.head, s.GotHead())
		})
	}
}

func TestStreamFrame(t *testing.T) {
	var s StreamStager
	pkt := samplePacket(5)
	for n, b := range pkt {
		require.Equal(t, n == 0, s.Feed(b))
	}
	require.True(t, s.ReadyForLaunch())
	require.Equal(t, byte(5), s.Subtype())

	f := s.Frame()
	require.Len(t, f, MaxFrameSize)
	require.True(t, f.Header().IsStream())
	require.Equal(t, byte(5), f.Header().Seq())
	require.True(t, ChecksumMatches(f))
	require.Equal(t, pkt[1:32], f.Payload())

	out := StreamPacket(f)
	require.Len(t, out, streamPacketSize)
	require.Equal(t, streamStart, out[0])
	require.Equal(t, pkt[1:32], out[1:32])
	require.Equal(t, byte(0xc5), out[32])

	s.Reset()
	require.False(t, s.GotHead())
}

func TestFramer(t *testing.T) {
	now := time.Now()
	testCases := []struct {
		name   string
		in     []byte
		stream bool
		page   []byte
	}{
		{name: "plain bytes", in: []byte("hello"), page: []byte("hello")},
		{name: "packet only", in: samplePacket(2), stream: true, page: []byte{}},
		{name: "packet after bytes", in: append([]byte("ab"), samplePacket(2)...), stream: true, page: []byte("ab")},
		{name: "packet followed by bytes", in: append(samplePacket(2), 'c', 'd'), page: append(samplePacket(2), 'c', 'd')},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := Framer{Pool: NewPool(), Streams: &StreamStager{}}
			for _, b := range tc.in {
				f.Feed(now, b)
			}
			frame, ok := f.TakeStream()
			require.Equal(t, tc.stream, ok)
			if ok {
				require.Equal(t, samplePacket(2)[1:32], frame.Payload())
			}
			require.Equal(t, tc.page, f.Pool.Bytes())
		})
	}
}

func TestFramerQuietAndDropped(t *testing.T) {
	now := time.Now()
	f := Framer{Pool: NewPool()}
	f.Feed(now, 'a')
	require.False(t, f.Quiet(now.Add(SerialQuietWindow), SerialQuietWindow))
	require.True(t, f.Quiet(now.Add(SerialQuietWindow+time.Millisecond), SerialQuietWindow))

	for _, b := range bytes.Repeat([]byte{'x'}, PoolCapacity*MaxPayloadSize+9) {
		f.Feed(now, b)
	}
	require.Equal(t, 10, f.Dropped())
	require.Equal(t, 0, f.Dropped())
	_, ok := f.TakeStream()
	require.False(t, ok)
}
