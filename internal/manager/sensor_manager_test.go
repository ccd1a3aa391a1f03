package manager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/types"
)

type fakeSensor struct {
	id       string
	enabled  bool
	metadata map[string]interface{}
	readFunc func(ctx context.Context) (types.Reading, error)
	reads    int32
}

func newFakeSensor(id string) *fakeSensor {
	return &fakeSensor{
		id:       id,
		enabled:  true,
		metadata: make(map[string]interface{}),
	}
}

func (f *fakeSensor) ID() string                       { return f.id }
func (f *fakeSensor) Name() string                     { return "Sensor " + f.id }
func (f *fakeSensor) Type() types.DeviceType           { return types.TypeSensor }
func (f *fakeSensor) Metadata() map[string]interface{} { return f.metadata }
func (f *fakeSensor) IsEnabled() bool                  { return f.enabled }
func (f *fakeSensor) Enable(enabled bool)              { f.enabled = enabled }
func (f *fakeSensor) Close() error                     { return nil }

func (f *fakeSensor) Read(ctx context.Context) (types.Reading, error) {
	atomic.AddInt32(&f.reads, 1)
	if f.readFunc != nil {
		return f.readFunc(ctx)
	}
	return types.NewReading(types.ReadingTypeDistance, 1.25, "m", nil), nil
}

func (f *fakeSensor) ReadRaw(ctx context.Context) ([]byte, error) { return nil, nil }

func (f *fakeSensor) AvailableReadings() []types.ReadingType {
	return []types.ReadingType{types.ReadingTypeDistance}
}

func (f *fakeSensor) GetCalibration() map[string]interface{} { return nil }

func (f *fakeSensor) SetCalibration(calibration map[string]interface{}) error { return nil }

func (f *fakeSensor) readCount() int32 {
	return atomic.LoadInt32(&f.reads)
}

func newTestManager(t *testing.T) (*SensorManager, *device.Registry, chan map[string]interface{}) {
	t.Helper()

	registry := device.NewRegistry()
	t.Cleanup(func() { registry.Close() })

	telemetry := make(chan map[string]interface{}, 16)
	sm := NewSensorManager(registry, telemetry)
	sm.SetBusDebounce(time.Millisecond)

	return sm, registry, telemetry
}

func waitForPayload(t *testing.T, ch chan map[string]interface{}) map[string]interface{} {
	t.Helper()

	select {
	case payload := <-ch:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for telemetry payload")
		return nil
	}
}

func expectNoPayload(t *testing.T, ch chan map[string]interface{}) {
	t.Helper()

	select {
	case payload := <-ch:
		t.Fatalf("Expected no telemetry payload, got %v", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollDueReadsAndPublishes(t *testing.T) {
	sm, registry, telemetry := newTestManager(t)

	s := newFakeSensor("tank1")
	s.metadata["device_type"] = "ultrasonic"
	s.metadata["location"] = "basin 3"
	if err := registry.AddDevice(s); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}

	sm.pollDue()
	payload := waitForPayload(t, telemetry)

	simple, ok := payload["simple"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected simple payload, got %v", payload)
	}
	if got := simple["tank1_distance"]; got != 1.25 {
		t.Errorf("Expected tank1_distance 1.25, got %v", got)
	}

	jsonPayload, ok := payload["json"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected json payload, got %v", payload)
	}
	data, ok := jsonPayload["tank1_data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected tank1_data document, got %v", jsonPayload)
	}
	if data["status"] != "active" {
		t.Errorf("Expected status active, got %v", data["status"])
	}

	info, ok := data["info"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected info section, got %v", data)
	}
	if info["type"] != "ultrasonic" {
		t.Errorf("Expected device type ultrasonic, got %v", info["type"])
	}
	if info["location"] != "basin 3" {
		t.Errorf("Expected location basin 3, got %v", info["location"])
	}

	measurements, ok := data["measurements"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected measurements section, got %v", data)
	}
	if measurements["distance"] != 1.25 {
		t.Errorf("Expected distance measurement 1.25, got %v", measurements["distance"])
	}
	if measurements["distance_unit"] != "m" {
		t.Errorf("Expected unit m, got %v", measurements["distance_unit"])
	}

	reading, ok := sm.LatestReading("tank1")
	if !ok {
		t.Fatal("Expected latest reading to be stored")
	}
	if reading.Value != 1.25 {
		t.Errorf("Expected stored value 1.25, got %v", reading.Value)
	}
}

func TestPollDueHonorsInterval(t *testing.T) {
	sm, registry, telemetry := newTestManager(t)

	s := newFakeSensor("tank1")
	if err := registry.AddDevice(s); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}
	sm.SetReadInterval("tank1", time.Hour)

	sm.pollDue()
	waitForPayload(t, telemetry)

	sm.pollDue()
	expectNoPayload(t, telemetry)

	if n := s.readCount(); n != 1 {
		t.Errorf("Expected 1 read, got %d", n)
	}
}

func TestPollDueSkipsDisabledSensor(t *testing.T) {
	sm, registry, telemetry := newTestManager(t)

	s := newFakeSensor("tank1")
	s.Enable(false)
	if err := registry.AddDevice(s); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}

	sm.pollDue()
	expectNoPayload(t, telemetry)

	if n := s.readCount(); n != 0 {
		t.Errorf("Expected no reads, got %d", n)
	}
}

func TestPollDueSkipsInFlightRead(t *testing.T) {
	sm, registry, telemetry := newTestManager(t)

	gate := make(chan struct{})
	s := newFakeSensor("tank1")
	s.readFunc = func(ctx context.Context) (types.Reading, error) {
		<-gate
		return types.NewReading(types.ReadingTypeDistance, 0.5, "m", nil), nil
	}
	if err := registry.AddDevice(s); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}
	sm.SetReadInterval("tank1", time.Millisecond)

	sm.pollDue()
	time.Sleep(10 * time.Millisecond)
	sm.pollDue()
	time.Sleep(10 * time.Millisecond)

	if n := s.readCount(); n != 1 {
		t.Errorf("Expected a single in-flight read, got %d", n)
	}

	close(gate)
	waitForPayload(t, telemetry)
}

func TestReadErrorPublishesErrorPayload(t *testing.T) {
	sm, registry, telemetry := newTestManager(t)

	s := newFakeSensor("tank1")
	s.readFunc = func(ctx context.Context) (types.Reading, error) {
		return types.Reading{}, errors.New("sensor offline")
	}
	if err := registry.AddDevice(s); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}

	sm.pollDue()
	payload := waitForPayload(t, telemetry)

	if payload["tank1_error"] != "sensor offline" {
		t.Errorf("Expected error payload, got %v", payload)
	}
	if _, ok := sm.LatestReading("tank1"); ok {
		t.Error("Expected no latest reading after a failed read")
	}
}

func TestReadNow(t *testing.T) {
	sm, registry, telemetry := newTestManager(t)

	s := newFakeSensor("tank1")
	if err := registry.AddDevice(s); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}

	reading, err := sm.ReadNow(context.Background(), "tank1")
	if err != nil {
		t.Fatalf("Failed to read sensor: %v", err)
	}
	if reading.Value != 1.25 {
		t.Errorf("Expected value 1.25, got %v", reading.Value)
	}

	waitForPayload(t, telemetry)

	if _, ok := sm.LatestReading("tank1"); !ok {
		t.Error("Expected latest reading to be stored")
	}

	if _, err := sm.ReadNow(context.Background(), "unknown"); err == nil {
		t.Error("Expected error for unknown device")
	}
}

func TestIntervalResolution(t *testing.T) {
	sm, _, _ := newTestManager(t)

	s := newFakeSensor("tank1")

	lockedIntervalFor := func() time.Duration {
		sm.scheduleMutex.Lock()
		defer sm.scheduleMutex.Unlock()
		return sm.intervalFor(s)
	}

	if got := lockedIntervalFor(); got != DefaultReadInterval {
		t.Errorf("Expected default interval, got %v", got)
	}

	s.metadata["read_interval_seconds"] = 45.0
	if got := lockedIntervalFor(); got != 45*time.Second {
		t.Errorf("Expected 45s from metadata, got %v", got)
	}

	s.metadata["read_interval_seconds"] = 30
	if got := lockedIntervalFor(); got != 30*time.Second {
		t.Errorf("Expected 30s from metadata, got %v", got)
	}

	sm.SetReadInterval("tank1", 5*time.Second)
	if got := lockedIntervalFor(); got != 5*time.Second {
		t.Errorf("Expected explicit override 5s, got %v", got)
	}
}

func TestPublishDropsWhenChannelFull(t *testing.T) {
	registry := device.NewRegistry()
	defer registry.Close()

	sm := NewSensorManager(registry, make(chan map[string]interface{}))
	sm.SetBusDebounce(time.Millisecond)

	s := newFakeSensor("tank1")
	if err := registry.AddDevice(s); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}

	sm.pollDue()
	time.Sleep(50 * time.Millisecond)

	// The read must complete even though nobody consumes the channel.
	if _, ok := sm.LatestReading("tank1"); !ok {
		t.Error("Expected latest reading despite full telemetry channel")
	}
}

func TestStartStop(t *testing.T) {
	sm, registry, _ := newTestManager(t)

	s := newFakeSensor("tank1")
	if err := registry.AddDevice(s); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}

	sm.Start()
	sm.Stop()
}

func TestLatestReadings(t *testing.T) {
	sm, registry, telemetry := newTestManager(t)

	first := newFakeSensor("tank1")
	second := newFakeSensor("tank2")
	if err := registry.AddDevice(first); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}
	if err := registry.AddDevice(second); err != nil {
		t.Fatalf("Failed to add device: %v", err)
	}

	sm.pollDue()
	waitForPayload(t, telemetry)
	waitForPayload(t, telemetry)

	readings := sm.LatestReadings()
	if len(readings) != 2 {
		t.Fatalf("Expected 2 readings, got %d", len(readings))
	}
	for _, id := range []string{"tank1", "tank2"} {
		if _, ok := readings[id]; !ok {
			t.Errorf("Expected reading for %s", id)
		}
	}
}
