package board

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio"
)

// RPIODriver drives GPIO lines through the memory-mapped GPIO block of
// the SoC. Opening the driver maps the block once; all pins share it.
type RPIODriver struct {
	mu     sync.Mutex
	opened bool
}

// NewRPIODriver maps the GPIO memory and returns a ready driver.
// Requires access to /dev/gpiomem (or /dev/mem on older kernels).
func NewRPIODriver() (*RPIODriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("opening GPIO memory: %w", err)
	}
	return &RPIODriver{opened: true}, nil
}

// OpenPin opens the GPIO line behind the given handle.
func (d *RPIODriver) OpenPin(handle PinHandle) (Pin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		return nil, fmt.Errorf("GPIO driver is closed")
	}

	n, err := handle.BCM()
	if err != nil {
		return nil, err
	}
	return &rpioPin{handle: handle, pin: rpio.Pin(n)}, nil
}

// Close unmaps the GPIO memory. Pins opened earlier become invalid.
func (d *RPIODriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		return nil
	}
	d.opened = false
	return rpio.Close()
}

type rpioPin struct {
	handle PinHandle
	pin    rpio.Pin
}

func (p *rpioPin) Handle() PinHandle {
	return p.handle
}

func (p *rpioPin) SetDirection(dir PinDirection) error {
	switch dir {
	case DirInput:
		p.pin.Input()
	case DirOutput:
		p.pin.Output()
	default:
		return fmt.Errorf("unknown pin direction %d", dir)
	}
	return nil
}

func (p *rpioPin) Write(level PinLevel) error {
	if level == High {
		p.pin.High()
	} else {
		p.pin.Low()
	}
	return nil
}

func (p *rpioPin) Read() (PinLevel, error) {
	if p.pin.Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

func (p *rpioPin) Close() error {
	return nil
}
