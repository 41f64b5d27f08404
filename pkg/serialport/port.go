// Package serialport opens the local serial line of a station.
package serialport

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// DefaultBaud is the line speed at startup.
const DefaultBaud = 115200

// Port is a serial line which can change speed while open.
type Port struct {
	Path string

	lock sync.Mutex
	port serial.Port
	mode serial.Mode
}

// Open opens path at baud, 8N1.
func Open(path string, baud int) (*Port, error) {
	p := &Port{
		Path: path,
		mode: serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	port, err := serial.Open(path, &p.mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	p.port = port
	glog.Infof("serial %s opened at %d baud", path, baud)
	return p, nil
}

// Ports lists serial ports of the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// SetBaud changes the speed once pending output drained.
func (p *Port) SetBaud(baud int) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.port.Drain(); err != nil {
		glog.Warningf("serial %s drain: %v", p.Path, err)
	}
	p.mode.BaudRate = baud
	if err := p.port.SetMode(&p.mode); err != nil {
		return fmt.Errorf("set %s to %d baud: %w", p.Path, baud, err)
	}
	glog.Infof("serial %s switched to %d baud", p.Path, baud)
	return nil
}

// Baud returns the current speed.
func (p *Port) Baud() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.mode.BaudRate
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.port.Close()
}
