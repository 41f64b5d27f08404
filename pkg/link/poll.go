package link

import "time"

const (
	// DefaultPollTime is the Device poll interval when none is configured.
	DefaultPollTime = 63 * time.Millisecond
	// SerialQuietWindow is how long the local serial line stays idle
	// before a partially filled page is sent.
	SerialQuietWindow = 3 * time.Millisecond

	lostFactor = 2
)

// PollScheduler tracks the Device poll cadence and the Host's view of
// whether the Device is alive.
type PollScheduler struct {
	Interval time.Duration

	lastSent  time.Time
	lastHeard time.Time
	heard     bool
	forced    bool
}

// Sent records a transmission of any kind.
func (p *PollScheduler) Sent(now time.Time) {
	p.lastSent = now
	p.forced = false
}

// Due tells if the poll interval elapsed since the last transmission.
func (p *PollScheduler) Due(now time.Time) bool {
	return p.forced || now.Sub(p.lastSent) > p.Interval
}

// Force makes the next Due return true regardless of time.
func (p *PollScheduler) Force() {
	p.forced = true
}

// Heard records a frame from the peer.
func (p *PollScheduler) Heard(now time.Time) {
	p.lastHeard, p.heard = now, true
}

// Alive tells if the peer was heard within twice the poll interval.
func (p *PollScheduler) Alive(now time.Time) bool {
	return p.heard && now.Sub(p.lastHeard) <= lostFactor*p.Interval
}

// LastHeard returns when the peer was heard last.
func (p *PollScheduler) LastHeard() time.Time {
	return p.lastHeard
}
