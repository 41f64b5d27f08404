package link

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func fillPool(p *Pool, data []byte) int {
	var dropped int
	for _, b := range data {
		if !p.Append(b) {
			dropped++
		}
	}
	return dropped
}

func TestPoolAppend(t *testing.T) {
	testCases := []struct {
		name       string
		size       int
		used       int
		dropped    int
		overflowed bool
	}{
		{name: "empty", size: 0, used: 0},
		{name: "one byte", size: 1, used: 1},
		{name: "one slot", size: MaxPayloadSize, used: 1},
		{name: "spill to second slot", size: MaxPayloadSize + 1, used: 2},
		{name: "full", size: PoolCapacity * MaxPayloadSize, used: PoolCapacity},
		{name: "overflow", size: (PoolCapacity + 1) * MaxPayloadSize, used: PoolCapacity,
			dropped: MaxPayloadSize, overflowed: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPool()
			data := bytes.Repeat([]byte{'x'}, tc.size)
			require.Equal(t, tc.dropped, fillPool(p, data))
			require.Equal(t, tc.used, p.Used())
			require.Equal(t, tc.overflowed, p.Overflowed())
			require.Equal(t, tc.size-tc.dropped, p.Len())
			require.Equal(t, data[:tc.size-tc.dropped], p.Bytes())
			require.Equal(t, tc.size == 0, p.IsEmpty())
		})
	}
}

func TestPoolOverflowDropsUntilClean(t *testing.T) {
	p := NewPool()
	fillPool(p, bytes.Repeat([]byte{'x'}, PoolCapacity*MaxPayloadSize))
	require.False(t, p.Append('y'))
	require.True(t, p.Overflowed())
	require.False(t, p.Append('z'))

	p.Clean(p.Used())
	require.True(t, p.IsEmpty())
	require.False(t, p.Overflowed())
	require.True(t, p.Append('a'))
	require.Equal(t, []byte("a"), p.Bytes())
}

func TestPoolSending(t *testing.T) {
	p := NewPool()
	fillPool(p, bytes.Repeat([]byte{'x'}, MaxPayloadSize*2+5))
	require.Equal(t, 3, p.Used())
	require.True(t, p.HasPending())
	require.False(t, p.AllSent())

	tx := sender{pool: p}
	var seqs []byte
	for {
		f, ok := tx.next()
		if !ok {
			break
		}
		require.True(t, ChecksumMatches(f))
		seqs = append(seqs, f.Header().Seq())
	}
	require.Equal(t, []byte{2, 1, 0}, seqs)
	require.True(t, p.AllSent())
	require.Nil(t, p.NextToSend())

	require.True(t, tx.complete())
	require.True(t, p.IsEmpty())
	require.False(t, tx.complete())
}

func TestPoolTruncate(t *testing.T) {
	testCases := []struct {
		name   string
		before int
		after  int
	}{
		{name: "empty", before: 0, after: 33},
		{name: "within slot", before: 10, after: 5},
		{name: "at slot boundary", before: MaxPayloadSize, after: 33},
		{name: "across slots", before: 40, after: 33},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPool()
			head := bytes.Repeat([]byte{'a'}, tc.before)
			fillPool(p, head)
			mark := p.Mark()
			used := p.Used()
			fillPool(p, bytes.Repeat([]byte{'b'}, tc.after))
			p.Truncate(mark)
			require.Equal(t, used, p.Used())
			require.Equal(t, head, p.Bytes())
			require.True(t, p.Append('c'))
			require.Equal(t, append(head, 'c'), p.Bytes())
		})
	}
}

func TestPoolSwap(t *testing.T) {
	fill, send := NewPool(), NewPool()
	fillPool(fill, []byte("hello"))
	send.swap(fill)
	require.True(t, fill.IsEmpty())
	require.Equal(t, []byte("hello"), send.Bytes())
	require.True(t, fill.Append('x'))
	require.Equal(t, []byte("x"), fill.Bytes())
}
