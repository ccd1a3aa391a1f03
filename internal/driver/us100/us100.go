// Package us100 drives the US-100 ultrasonic sensor in UART mode.
//
// The sensor answers two single-byte commands on a 9600 8N1 serial line:
// 0x55 triggers a distance measurement and returns two bytes, the
// distance in millimeters big-endian; 0x50 returns one byte, the die
// temperature offset by 45.
package us100

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

const (
	cmdDistance    = 0x55
	cmdTemperature = 0x50

	// DefaultBaud is the fixed UART rate of the sensor.
	DefaultBaud = 9600

	// DefaultTimeout bounds one read on the serial line.
	DefaultTimeout = 500 * time.Millisecond
)

// ErrNoReply is returned when the sensor does not answer a command
// within the read timeout of the port.
var ErrNoReply = errors.New("no reply from sensor")

// Port is the serial line the sensor hangs off. Satisfied by tarm/serial
// ports and by in-memory fakes in tests.
type Port interface {
	io.ReadWriteCloser

	// Flush discards buffered data on the line.
	Flush() error
}

// Config holds the serial parameters for one sensor.
type Config struct {
	Device  string
	Baud    int
	Timeout time.Duration
}

// US100 is one sensor on a serial line. Commands are serialized; the
// sensor answers strictly one command at a time.
type US100 struct {
	mu     sync.Mutex
	port   Port
	device string
}

// Open opens the serial device and returns a ready sensor.
func Open(cfg Config) (*US100, error) {
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", cfg.Device, err)
	}

	return &US100{port: port, device: cfg.Device}, nil
}

// NewWithPort wraps an already open port. Tests use this.
func NewWithPort(port Port) *US100 {
	return &US100{port: port}
}

// Device returns the device path the sensor was opened with.
func (u *US100) Device() string {
	return u.device
}

// DistanceMillimeters triggers one measurement and returns the distance.
func (u *US100) DistanceMillimeters(ctx context.Context) (uint16, error) {
	buf := make([]byte, 2)
	if err := u.command(ctx, cmdDistance, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// TemperatureCelsius queries the built-in temperature sensor.
func (u *US100) TemperatureCelsius(ctx context.Context) (int, error) {
	buf := make([]byte, 1)
	if err := u.command(ctx, cmdTemperature, buf); err != nil {
		return 0, err
	}
	// The sensor reports temperature with a +45 offset.
	return int(buf[0]) - 45, nil
}

func (u *US100) command(ctx context.Context, cmd byte, reply []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	// Stale bytes from an aborted earlier command would shift the reply.
	if err := u.port.Flush(); err != nil {
		return fmt.Errorf("flushing port: %w", err)
	}
	if _, err := u.port.Write([]byte{cmd}); err != nil {
		return fmt.Errorf("sending command 0x%02X: %w", cmd, err)
	}

	read := 0
	for read < len(reply) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := u.port.Read(reply[read:])
		if err != nil {
			return fmt.Errorf("reading reply: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: got %d of %d bytes", ErrNoReply, read, len(reply))
		}
		read += n
	}
	return nil
}

// Close releases the serial line.
func (u *US100) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.port.Close()
}
