package link

// PoolCapacity is the number of slots in a Pool, i.e. the most
// frames a page can span.
const PoolCapacity = 16

// Slot holds one frame. data[0] is reserved for the header which is
// filled in when the slot is sent.
type Slot struct {
	data  [MaxFrameSize]byte
	write int
	read  int
}

func (s *Slot) clean() {
	s.write, s.read = 1, 0
}

// Payload returns the payload bytes written so far.
func (s *Slot) Payload() []byte {
	return s.data[1:s.write]
}

// IsFull tells if no more payload fits.
func (s *Slot) IsFull() bool {
	return s.write >= MaxFrameSize
}

// Pool is a page buffer of fixed size slots.
type Pool struct {
	slots      [PoolCapacity]Slot
	current    int
	used       int
	sent       int
	overflowed bool
}

// PoolMark is a write position in a Pool.
type PoolMark struct {
	slot  int
	write int
	used  int
}

// NewPool creates an empty Pool.
func NewPool() *Pool {
	p := &Pool{}
	p.Reset()
	return p
}

// Reset clears all slots including data.
func (p *Pool) Reset() {
	for n := range p.slots {
		p.slots[n] = Slot{}
		p.slots[n].clean()
	}
	p.resetCounters()
}

// Clean resets cursors of the first n slots only.
func (p *Pool) Clean(n int) {
	if n > PoolCapacity {
		n = PoolCapacity
	}
	for i := 0; i < n; i++ {
		p.slots[i].clean()
	}
	p.resetCounters()
}

func (p *Pool) resetCounters() {
	p.current, p.used, p.sent, p.overflowed = 0, 0, 0, false
}

// Append writes one byte. It returns false when the byte is dropped
// because the pool is overflowed.
func (p *Pool) Append(b byte) bool {
	if p.overflowed {
		return false
	}
	slot := &p.slots[p.current]
	if slot.IsFull() {
		if p.used >= PoolCapacity {
			p.overflowed = true
			return false
		}
		p.current++
		p.used++
		slot = &p.slots[p.current]
		slot.clean()
	} else if p.used == 0 {
		p.used = 1
	}
	slot.data[slot.write] = b
	slot.write++
	return true
}

// Used returns the number of slots holding data for the page.
func (p *Pool) Used() int {
	return p.used
}

// Sent returns the number of slots already transmitted.
func (p *Pool) Sent() int {
	return p.sent
}

// Overflowed tells if bytes have been dropped.
func (p *Pool) Overflowed() bool {
	return p.overflowed
}

// IsEmpty tells if the pool holds nothing.
func (p *Pool) IsEmpty() bool {
	return p.used == 0
}

// HasPending tells if some slots are not sent yet.
func (p *Pool) HasPending() bool {
	return p.sent < p.used
}

// AllSent tells if a non-empty page has been completely transmitted.
func (p *Pool) AllSent() bool {
	return p.used > 0 && p.sent == p.used
}

// NextToSend returns the slot to transmit next, nil if none.
func (p *Pool) NextToSend() *Slot {
	if !p.HasPending() {
		return nil
	}
	return &p.slots[p.sent]
}

// Len returns the number of payload bytes held.
func (p *Pool) Len() int {
	var n int
	for i := 0; i < p.used; i++ {
		n += p.slots[i].write - 1
	}
	return n
}

// Bytes returns a copy of all payload bytes in order.
func (p *Pool) Bytes() []byte {
	out := make([]byte, 0, p.Len())
	for i := 0; i < p.used; i++ {
		out = append(out, p.slots[i].Payload()...)
	}
	return out
}

// Mark records the current write position.
func (p *Pool) Mark() PoolMark {
	return PoolMark{slot: p.current, write: p.slots[p.current].write, used: p.used}
}

// Truncate drops everything written after m. Slots already sent are
// not touched: if m falls before them the pool is cleaned instead.
func (p *Pool) Truncate(m PoolMark) {
	if p.sent > 0 && m.slot < p.sent {
		p.Clean(p.used)
		return
	}
	for i := m.slot + 1; i <= p.current; i++ {
		p.slots[i].clean()
	}
	p.current, p.used = m.slot, m.used
	p.slots[p.current].write = m.write
	p.overflowed = false
}

// swap exchanges the content of two pools.
func (p *Pool) swap(other *Pool) {
	*p, *other = *other, *p
}
