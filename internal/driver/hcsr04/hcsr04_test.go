package hcsr04

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"owipex_ultrasonic/internal/platform/board"
)

func newTestBoard() (*board.Board, *board.FakeDriver) {
	driver := board.NewFakeDriver()
	return board.NewBoard("testboard", driver), driver
}

func TestNew(t *testing.T) {
	b, driver := newTestBoard()

	h, err := New(b, "D23", "D24", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if h.TriggerHandle() != "D23" {
		t.Errorf("trigger handle = %q, want D23", h.TriggerHandle())
	}
	if h.EchoHandle() != "D24" {
		t.Errorf("echo handle = %q, want D24", h.EchoHandle())
	}
	if h.Timeout() != 500*time.Millisecond {
		t.Errorf("timeout = %v, want 500ms", h.Timeout())
	}

	if dir := driver.Pin("D23").Direction(); dir != board.DirOutput {
		t.Errorf("trigger direction = %v, want output", dir)
	}
	if dir := driver.Pin("D24").Direction(); dir != board.DirInput {
		t.Errorf("echo direction = %v, want input", dir)
	}

	// The trigger line must be forced low before the first burst.
	writes := driver.Pin("D23").Writes()
	if len(writes) == 0 || writes[len(writes)-1] != board.Low {
		t.Errorf("trigger line not idling low after New: %v", writes)
	}
}

func TestNewDefaultTimeout(t *testing.T) {
	b, _ := newTestBoard()

	h, err := New(b, "D23", "D24", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if h.Timeout() != DefaultTimeout {
		t.Fatalf("timeout = %v, want DefaultTimeout", h.Timeout())
	}
}

func TestNewUnsupportedPin(t *testing.T) {
	b, _ := newTestBoard()

	if _, err := New(b, "D99", "D24", 0); !errors.Is(err, board.ErrUnsupportedPin) {
		t.Fatalf("New with D99 = %v, want ErrUnsupportedPin", err)
	}
}

func TestDistanceCentimeters(t *testing.T) {
	b, driver := newTestBoard()

	h, err := New(b, "D23", "D24", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	// Echo pulse of roughly 2ms, i.e. a target within a few tens of cm.
	driver.Pin("D24").SchedulePulse(0, 2*time.Millisecond)

	cm, err := h.DistanceCentimeters(context.Background())
	if err != nil {
		t.Fatalf("DistanceCentimeters returned error: %v", err)
	}
	if cm <= 0 || cm > 70 {
		t.Fatalf("distance = %.2f cm, want a plausible value for a 2ms pulse", cm)
	}

	// The burst must have toggled the trigger line high and back low.
	writes := driver.Pin("D23").Writes()
	sawHigh := false
	for _, w := range writes {
		if w == board.High {
			sawHigh = true
		}
	}
	if !sawHigh {
		t.Fatal("no trigger burst recorded")
	}
	if writes[len(writes)-1] != board.Low {
		t.Fatal("trigger line left high after measurement")
	}
}

func TestDistanceTimeoutNoEcho(t *testing.T) {
	b, driver := newTestBoard()

	h, err := New(b, "D23", "D24", 15*time.Millisecond)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	driver.Pin("D24").SetLevel(board.Low)

	if _, err := h.DistanceCentimeters(context.Background()); !errors.Is(err, ErrEchoTimeout) {
		t.Fatalf("DistanceCentimeters = %v, want ErrEchoTimeout", err)
	}
}

func TestDistanceTimeoutEchoStuckHigh(t *testing.T) {
	b, driver := newTestBoard()

	h, err := New(b, "D23", "D24", 15*time.Millisecond)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	driver.Pin("D24").SetLevel(board.High)

	if _, err := h.DistanceCentimeters(context.Background()); !errors.Is(err, ErrEchoTimeout) {
		t.Fatalf("DistanceCentimeters = %v, want ErrEchoTimeout", err)
	}
}

func TestDistanceReadError(t *testing.T) {
	b, driver := newTestBoard()

	h, err := New(b, "D23", "D24", 15*time.Millisecond)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	driver.Pin("D24").SetReadError(errors.New("line fault"))

	if _, err := h.DistanceCentimeters(context.Background()); err == nil {
		t.Fatal("DistanceCentimeters should propagate pin read errors")
	}
}

func TestDistanceContextCancel(t *testing.T) {
	b, driver := newTestBoard()

	h, err := New(b, "D23", "D24", 5*time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	driver.Pin("D24").SetLevel(board.Low)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := h.DistanceCentimeters(ctx); err == nil {
		t.Fatal("DistanceCentimeters should fail on context cancellation")
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation did not interrupt the poll loop")
	}
}

func TestCentimetersFromPulse(t *testing.T) {
	// 1ms round trip at 34320 cm/s is 17.16cm one way.
	got := centimetersFromPulse(time.Millisecond)
	if math.Abs(got-17.16) > 0.001 {
		t.Fatalf("centimetersFromPulse(1ms) = %.4f, want 17.16", got)
	}

	if got := centimetersFromPulse(0); got != 0 {
		t.Fatalf("centimetersFromPulse(0) = %.4f, want 0", got)
	}
}
