package board

import (
	"fmt"
	"sync"
	"time"
)

// FakeDriver is an in-memory pin driver for tests. Every handle opens a
// FakePin that records writes and answers reads from a scripted level.
type FakeDriver struct {
	mu       sync.Mutex
	pins     map[PinHandle]*FakePin
	failOpen map[PinHandle]error
	closed   bool
}

// NewFakeDriver creates an empty fake driver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		pins:     make(map[PinHandle]*FakePin),
		failOpen: make(map[PinHandle]error),
	}
}

// FailOpen makes every subsequent OpenPin for the handle fail with err.
func (d *FakeDriver) FailOpen(handle PinHandle, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failOpen[handle] = err
}

// Pin returns the fake pin behind a handle, creating it on first use.
// Tests use this to script levels before the code under test opens the pin.
func (d *FakeDriver) Pin(handle PinHandle) *FakePin {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pinLocked(handle)
}

func (d *FakeDriver) pinLocked(handle PinHandle) *FakePin {
	if p, ok := d.pins[handle]; ok {
		return p
	}
	p := &FakePin{handle: handle}
	d.pins[handle] = p
	return p
}

// OpenPin opens the fake pin behind the given handle.
func (d *FakeDriver) OpenPin(handle PinHandle) (Pin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("fake driver is closed")
	}
	if err := d.failOpen[handle]; err != nil {
		return nil, err
	}
	return d.pinLocked(handle), nil
}

// Opened reports whether the handle has been opened or scripted.
func (d *FakeDriver) Opened(handle PinHandle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pins[handle]
	return ok
}

// Close marks the driver closed; further OpenPin calls fail.
func (d *FakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// FakePin is a single scripted GPIO line.
type FakePin struct {
	mu        sync.Mutex
	handle    PinHandle
	direction PinDirection
	level     PinLevel
	writes    []PinLevel
	readFunc  func() PinLevel
	readErr   error
}

func (p *FakePin) Handle() PinHandle {
	return p.handle
}

func (p *FakePin) SetDirection(dir PinDirection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.direction = dir
	return nil
}

// Direction returns the last direction set on the pin.
func (p *FakePin) Direction() PinDirection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.direction
}

func (p *FakePin) Write(level PinLevel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.writes = append(p.writes, level)
	return nil
}

// Writes returns a snapshot of all levels written so far.
func (p *FakePin) Writes() []PinLevel {
	p.mu.Lock()
	defer p.mu.Unlock()
	writes := make([]PinLevel, len(p.writes))
	copy(writes, p.writes)
	return writes
}

func (p *FakePin) Read() (PinLevel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return Low, p.readErr
	}
	if p.readFunc != nil {
		return p.readFunc(), nil
	}
	return p.level, nil
}

// SetLevel fixes the level returned by Read.
func (p *FakePin) SetLevel(level PinLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readFunc = nil
	p.level = level
}

// SetReadFunc answers every Read from the given function.
func (p *FakePin) SetReadFunc(fn func() PinLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readFunc = fn
}

// SetReadError makes every Read fail with err.
func (p *FakePin) SetReadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// SchedulePulse arranges for the pin to read High starting delay from
// now and for the given width, Low otherwise. Models an echo line.
func (p *FakePin) SchedulePulse(delay, width time.Duration) {
	rise := time.Now().Add(delay)
	fall := rise.Add(width)
	p.SetReadFunc(func() PinLevel {
		now := time.Now()
		if now.After(rise) && now.Before(fall) {
			return High
		}
		return Low
	})
}

func (p *FakePin) Close() error {
	return nil
}
