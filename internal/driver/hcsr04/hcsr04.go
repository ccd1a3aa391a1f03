// Package hcsr04 drives the HC-SR04 ultrasonic rangefinder over two GPIO
// lines: a trigger output and an echo input. A measurement fires a 10µs
// burst on the trigger line and times the echo pulse; the pulse width
// covers the round trip of the sound wave.
package hcsr04

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"owipex_ultrasonic/internal/platform/board"
)

const (
	// speedOfSound is the propagation speed in cm per second at room
	// temperature. The sensor datasheet calibrates against this value.
	speedOfSound = 34320.0

	triggerSettle = 2 * time.Microsecond
	triggerPulse  = 10 * time.Microsecond

	// DefaultTimeout bounds the wait for the echo pulse.
	DefaultTimeout = 1 * time.Second
)

// ErrEchoTimeout is returned when the echo line does not produce a
// complete pulse within the configured timeout.
var ErrEchoTimeout = errors.New("echo timeout")

// HCSR04 is one rangefinder bound to a trigger and an echo line.
// Measurements are serialized; the sensor cannot overlap bursts.
type HCSR04 struct {
	mu            sync.Mutex
	trigger       board.Pin
	echo          board.Pin
	triggerHandle board.PinHandle
	echoHandle    board.PinHandle
	timeout       time.Duration
}

// New opens the two lines on the given board and prepares the sensor.
// A timeout of zero or less falls back to DefaultTimeout.
func New(b *board.Board, trigger, echo board.PinHandle, timeout time.Duration) (*HCSR04, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	triggerPin, err := b.OpenPin(trigger)
	if err != nil {
		return nil, fmt.Errorf("opening trigger pin: %w", err)
	}
	echoPin, err := b.OpenPin(echo)
	if err != nil {
		triggerPin.Close()
		return nil, fmt.Errorf("opening echo pin: %w", err)
	}

	if err := triggerPin.SetDirection(board.DirOutput); err != nil {
		triggerPin.Close()
		echoPin.Close()
		return nil, fmt.Errorf("configuring trigger pin: %w", err)
	}
	if err := echoPin.SetDirection(board.DirInput); err != nil {
		triggerPin.Close()
		echoPin.Close()
		return nil, fmt.Errorf("configuring echo pin: %w", err)
	}

	// The trigger line must idle low, otherwise the first burst is lost.
	if err := triggerPin.Write(board.Low); err != nil {
		triggerPin.Close()
		echoPin.Close()
		return nil, fmt.Errorf("clearing trigger pin: %w", err)
	}

	return &HCSR04{
		trigger:       triggerPin,
		echo:          echoPin,
		triggerHandle: trigger,
		echoHandle:    echo,
		timeout:       timeout,
	}, nil
}

// TriggerHandle returns the handle of the trigger line.
func (h *HCSR04) TriggerHandle() board.PinHandle {
	return h.triggerHandle
}

// EchoHandle returns the handle of the echo line.
func (h *HCSR04) EchoHandle() board.PinHandle {
	return h.echoHandle
}

// Timeout returns the echo timeout of the sensor.
func (h *HCSR04) Timeout() time.Duration {
	return h.timeout
}

// DistanceCentimeters fires one measurement and returns the distance in
// centimeters. The call busy-polls the echo line, so it returns within
// roughly twice the configured timeout in the worst case.
func (h *HCSR04) DistanceCentimeters(ctx context.Context) (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.burst(); err != nil {
		return 0, err
	}

	start, err := h.waitForLevel(ctx, board.High, time.Now().Add(h.timeout))
	if err != nil {
		return 0, fmt.Errorf("waiting for echo rise: %w", err)
	}

	end, err := h.waitForLevel(ctx, board.Low, start.Add(h.timeout))
	if err != nil {
		return 0, fmt.Errorf("waiting for echo fall: %w", err)
	}

	return centimetersFromPulse(end.Sub(start)), nil
}

func (h *HCSR04) burst() error {
	if err := h.trigger.Write(board.Low); err != nil {
		return fmt.Errorf("clearing trigger: %w", err)
	}
	time.Sleep(triggerSettle)
	if err := h.trigger.Write(board.High); err != nil {
		return fmt.Errorf("raising trigger: %w", err)
	}
	time.Sleep(triggerPulse)
	if err := h.trigger.Write(board.Low); err != nil {
		return fmt.Errorf("dropping trigger: %w", err)
	}
	return nil
}

func (h *HCSR04) waitForLevel(ctx context.Context, want board.PinLevel, deadline time.Time) (time.Time, error) {
	for {
		level, err := h.echo.Read()
		if err != nil {
			return time.Time{}, fmt.Errorf("reading echo pin: %w", err)
		}
		if level == want {
			return time.Now(), nil
		}
		if time.Now().After(deadline) {
			return time.Time{}, fmt.Errorf("%w: no %s level within %s", ErrEchoTimeout, want, h.timeout)
		}
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
	}
}

// centimetersFromPulse converts the width of the echo pulse into the
// one-way distance. The pulse covers the round trip, so half of it counts.
func centimetersFromPulse(width time.Duration) float64 {
	return speedOfSound / 2.0 * width.Seconds()
}

// Close releases both lines.
func (h *HCSR04) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.trigger.Close()
	if cerr := h.echo.Close(); err == nil {
		err = cerr
	}
	return err
}
