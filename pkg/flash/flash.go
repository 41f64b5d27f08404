// Package flash emulates word addressable non-volatile storage.
package flash

import (
	"errors"
	"sync"
)

const (
	// PageSize is the erase unit in bytes.
	PageSize = 1024
	// Erased is the value of a word after erase.
	Erased uint32 = 0xFFFFFFFF
)

var (
	// ErrAddress indicates an unaligned or out of range address.
	ErrAddress = errors.New("invalid flash address")
	// ErrNotErased indicates a write to a word which is not erased.
	ErrNotErased = errors.New("word not erased")
)

// Storage is the contract for persisted words.
type Storage interface {
	ReadWord(addr uint32) uint32
	WriteWord(addr uint32, val uint32) error
	EraseRegion(addr uint32) error
}

// Mem is an in-memory Storage.
type Mem struct {
	Size uint32

	lock  sync.Mutex
	words map[uint32]uint32
}

// NewMem creates Mem with size bytes.
func NewMem(size uint32) *Mem {
	return &Mem{Size: size, words: make(map[uint32]uint32)}
}

func (m *Mem) check(addr uint32) error {
	if addr%4 != 0 || addr >= m.Size {
		return ErrAddress
	}
	return nil
}

// ReadWord implements Storage.
func (m *Mem) ReadWord(addr uint32) uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()
	if val, ok := m.words[addr]; ok {
		return val
	}
	return Erased
}

// WriteWord implements Storage. Like NOR flash, only erased words can
// be written.
func (m *Mem) WriteWord(addr uint32, val uint32) error {
	if err := m.check(addr); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if cur, ok := m.words[addr]; ok && cur != Erased {
		return ErrNotErased
	}
	m.words[addr] = val
	return nil
}

// EraseRegion implements Storage.
func (m *Mem) EraseRegion(addr uint32) error {
	if err := m.check(addr); err != nil {
		return err
	}
	start := addr - addr%PageSize
	m.lock.Lock()
	defer m.lock.Unlock()
	for a := range m.words {
		if a >= start && a < start+PageSize {
			delete(m.words, a)
		}
	}
	return nil
}
