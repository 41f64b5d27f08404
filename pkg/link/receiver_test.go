package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recvStep struct {
	frame  Frame
	room   bool
	result RecvResult
	page   []byte
}

type recvSequenceBuilder struct {
	steps []recvStep
}

func recvSequence() *recvSequenceBuilder {
	return &recvSequenceBuilder{}
}

func (b *recvSequenceBuilder) frame(seq byte, payload string) *recvSequenceBuilder {
	b.steps = append(b.steps, recvStep{
		frame:  EncodeFrame(false, seq, []byte(payload)),
		room:   true,
		result: RecvAccepted,
	})
	return b
}

func (b *recvSequenceBuilder) corrupted(seq byte, payload string) *recvSequenceBuilder {
	b.frame(seq, payload)
	b.steps[len(b.steps)-1].frame[0] ^= 0x01
	return b
}

func (b *recvSequenceBuilder) noRoom() *recvSequenceBuilder {
	b.steps[len(b.steps)-1].room = false
	return b
}

func (b *recvSequenceBuilder) expect(result RecvResult) *recvSequenceBuilder {
	b.steps[len(b.steps)-1].result = result
	return b
}

func (b *recvSequenceBuilder) completes(page string) *recvSequenceBuilder {
	b.steps[len(b.steps)-1].result = RecvCompleted
	b.steps[len(b.steps)-1].page = []byte(page)
	return b
}

func TestReceiver(t *testing.T) {
	testCases := []struct {
		name  string
		steps []recvStep
	}{
		{
			name:  "single frame page",
			steps: recvSequence().frame(0, "OK").completes("OK").steps,
		},
		{
			name: "countdown",
			steps: recvSequence().
				frame(2, "ab").
				frame(1, "cd").
				frame(0, "ef").completes("abcdef").
				steps,
		},
		{
			name: "bad checksum keeps the page",
			steps: recvSequence().
				frame(1, "ab").
				corrupted(0, "cd").expect(RecvBadChecksum).
				frame(0, "cd").completes("abcd").
				steps,
		},
		{
			name: "missed frame",
			steps: recvSequence().
				frame(3, "ab").
				frame(1, "ef").expect(RecvMissed).
				frame(3, "ab").
				frame(2, "cd").
				frame(1, "ef").
				frame(0, "gh").completes("abcdefgh").
				steps,
		},
		{
			name: "repeated frame",
			steps: recvSequence().
				frame(1, "ab").
				frame(1, "ab").expect(RecvMissed).
				steps,
		},
		{
			name: "no room for a new page",
			steps: recvSequence().
				frame(1, "ab").noRoom().expect(RecvRejected).
				frame(1, "ab").
				frame(0, "cd").noRoom().completes("abcd").
				steps,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newReceiver()
			for n, step := range tc.steps {
				res, page := r.accept(step.frame, step.room)
				require.Equal(t, step.result, res, "step %d", n)
				require.Equal(t, step.page, page, "step %d", n)
			}
		})
	}
}

func TestRecvResultReply(t *testing.T) {
	testCases := []struct {
		result RecvResult
		code   ControlCode
		reply  bool
	}{
		{result: RecvAccepted},
		{result: RecvCompleted},
		{result: RecvBadChecksum, code: BadChecksum, reply: true},
		{result: RecvMissed, code: Missed, reply: true},
		{result: RecvRejected, code: PageReject, reply: true},
	}
	for _, tc := range testCases {
		code, reply := tc.result.Reply()
		require.Equal(t, tc.reply, reply)
		if reply {
			require.Equal(t, tc.code, code)
		}
	}
}

func TestSenderRewind(t *testing.T) {
	p := NewPool()
	fillPool(p, make([]byte, MaxPayloadSize*3))
	tx := sender{pool: p}
	now := time.Unix(1000, 0)

	f, _ := tx.next()
	tx.sent(now, sentPage)
	require.Equal(t, byte(2), f.Header().Seq())
	f, _ = tx.next()
	tx.sent(now, sentPage)
	require.Equal(t, byte(1), f.Header().Seq())

	require.True(t, tx.rewindOne())
	f, _ = tx.next()
	require.Equal(t, byte(1), f.Header().Seq())

	require.True(t, tx.rewindPage())
	f, _ = tx.next()
	require.Equal(t, byte(2), f.Header().Seq())
	require.Equal(t, 2, tx.resends)

	tx.sent(now, sentStream)
	require.False(t, tx.rewindOne())
	require.True(t, tx.inFlight())
}

func TestSenderAcknowledgement(t *testing.T) {
	now := time.Unix(1000, 0)
	testCases := []struct {
		name     string
		frames   int
		answered bool
		after    frameKind
		reply    func(tx *sender) bool
		ok       bool
		sent     int
		complete bool
		unacked  bool
	}{
		{name: "last frame acknowledged", frames: 2,
			reply: (*sender).acked, ok: true, complete: true},
		{name: "middle frame acknowledged", frames: 1,
			reply: (*sender).acked, sent: 1},
		{name: "stream answered after the last frame", frames: 2, after: sentStream,
			reply: (*sender).acked, sent: 2, unacked: true},
		{name: "last frame never answered", frames: 2,
			reply: (*sender).lost, ok: true},
		{name: "frame lost behind a stream", frames: 2, after: sentStream,
			reply: (*sender).lost, ok: true},
		{name: "answered frame isn't lost", frames: 1, answered: true, after: sentPoll,
			reply: (*sender).lost, sent: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPool()
			fillPool(p, make([]byte, MaxPayloadSize*2))
			tx := sender{pool: p}
			for n := 0; n < tc.frames; n++ {
				_, ok := tx.next()
				require.True(t, ok)
				tx.sent(now, sentPage)
			}
			if tc.answered {
				tx.acked()
			}
			if tc.after != sentNothing {
				tx.sent(now, tc.after)
			}
			require.Equal(t, tc.ok, tc.reply(&tx))
			require.Equal(t, tc.complete, p.IsEmpty())
			if !tc.complete {
				require.Equal(t, tc.sent, p.Sent())
			}
			require.Equal(t, tc.unacked, tx.unacked)
		})
	}
}
