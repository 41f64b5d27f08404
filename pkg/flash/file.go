package flash

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/golang/glog"
)

// File is a Storage persisted in a regular file, one page long.
type File struct {
	Path string

	lock sync.Mutex
	page [PageSize]byte
}

// OpenFile loads the file at path. A missing file reads as erased.
func OpenFile(path string) (*File, error) {
	f := &File{Path: path}
	for n := range f.page {
		f.page[n] = 0xff
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		glog.V(2).Infof("flash %s not found, starting erased", path)
	case err != nil:
		return nil, fmt.Errorf("read flash %s: %w", path, err)
	default:
		copy(f.page[:], data)
	}
	return f, nil
}

func (f *File) check(addr uint32) error {
	if addr%4 != 0 || addr >= PageSize {
		return ErrAddress
	}
	return nil
}

// ReadWord implements Storage.
func (f *File) ReadWord(addr uint32) uint32 {
	if f.check(addr) != nil {
		return Erased
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	return binary.LittleEndian.Uint32(f.page[addr:])
}

// WriteWord implements Storage.
func (f *File) WriteWord(addr uint32, val uint32) error {
	if err := f.check(addr); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if binary.LittleEndian.Uint32(f.page[addr:]) != Erased {
		return ErrNotErased
	}
	binary.LittleEndian.PutUint32(f.page[addr:], val)
	return f.sync()
}

// EraseRegion implements Storage.
func (f *File) EraseRegion(addr uint32) error {
	if err := f.check(addr); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	for n := range f.page {
		f.page[n] = 0xff
	}
	return f.sync()
}

func (f *File) sync() error {
	if err := os.WriteFile(f.Path, f.page[:], 0644); err != nil {
		return fmt.Errorf("write flash %s: %w", f.Path, err)
	}
	return nil
}
