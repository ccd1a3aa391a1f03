package monitored

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerTicks(t *testing.T) {
	var ticks int64
	poller := NewBackgroundPoller(5*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	})

	poller.Start()
	time.Sleep(40 * time.Millisecond)
	poller.Stop()

	if atomic.LoadInt64(&ticks) == 0 {
		t.Error("Expected at least one tick while running")
	}

	// No further ticks after Stop.
	settled := atomic.LoadInt64(&ticks)
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt64(&ticks) != settled {
		t.Error("Expected no ticks after Stop")
	}
}

func TestPollerStartIsIdempotent(t *testing.T) {
	var ticks int64
	poller := NewBackgroundPoller(5*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	})

	poller.Start()
	poller.Start()
	poller.Start()

	if !poller.IsRunning() {
		t.Fatal("Expected poller to be running")
	}

	// A single Stop must end the loop even after repeated Start calls.
	poller.Stop()
	if poller.IsRunning() {
		t.Error("Expected poller to be stopped after one Stop")
	}

	settled := atomic.LoadInt64(&ticks)
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt64(&ticks) != settled {
		t.Error("Expected no ticks after Stop")
	}
}

func TestPollerStopTwice(t *testing.T) {
	poller := NewBackgroundPoller(5*time.Millisecond, nil)

	poller.Start()
	poller.Stop()
	poller.Stop()

	if poller.IsRunning() {
		t.Error("Expected poller to be stopped")
	}
}

func TestPollerStopBeforeStart(t *testing.T) {
	poller := NewBackgroundPoller(5*time.Millisecond, nil)

	// Must not block or panic.
	poller.Stop()

	if poller.IsRunning() {
		t.Error("Expected poller to be stopped")
	}
}

func TestPollerRestart(t *testing.T) {
	var ticks int64
	poller := NewBackgroundPoller(5*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	})

	poller.Start()
	poller.Stop()

	before := atomic.LoadInt64(&ticks)
	poller.Start()
	if !poller.IsRunning() {
		t.Fatal("Expected poller to be running after restart")
	}

	time.Sleep(40 * time.Millisecond)
	poller.Stop()

	if atomic.LoadInt64(&ticks) <= before {
		t.Error("Expected ticks to resume after restart")
	}
}

func TestPollerDefaultInterval(t *testing.T) {
	poller := NewBackgroundPoller(0, nil)
	if poller.interval != time.Second {
		t.Errorf("Expected default interval of 1s, got %s", poller.interval)
	}
}
