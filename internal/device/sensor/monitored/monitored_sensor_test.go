package monitored

import (
	"context"
	"errors"
	"testing"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/device/sensor/ultrasonic"
	"owipex_ultrasonic/internal/platform/board"
	"owipex_ultrasonic/internal/types"
)

func monitoredConfig(attrs map[string]interface{}) types.DeviceConfig {
	return types.DeviceConfig{
		ID:         "tank_level",
		Name:       "Tank Level",
		Type:       "ultrasonic_monitored",
		Enabled:    true,
		Attributes: attrs,
	}
}

func testBoardDeps(t *testing.T) (types.Dependencies, *board.FakeDriver) {
	t.Helper()

	fake := board.NewFakeDriver()
	b := board.NewBoard("local", fake)
	return types.Dependencies{"local": b}, fake
}

func TestValidateConfigRequiresBoard(t *testing.T) {
	config := monitoredConfig(map[string]interface{}{
		ultrasonic.AttrTriggerPin: "D23",
		ultrasonic.AttrEchoPin:    "D24",
	})
	if _, err := ValidateConfig(config); !errors.Is(err, device.ErrMissingField) {
		t.Errorf("Expected ErrMissingField without board attribute, got %v", err)
	}

	config.Attributes[AttrBoard] = "local"
	deps, err := ValidateConfig(config)
	if err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}
	if len(deps) != 1 || deps[0] != "local" {
		t.Errorf("Expected dependency list [local], got %v", deps)
	}
}

func TestValidateConfigRequiresPins(t *testing.T) {
	config := monitoredConfig(map[string]interface{}{
		AttrBoard: "local",
	})
	if _, err := ValidateConfig(config); !errors.Is(err, device.ErrMissingField) {
		t.Errorf("Expected ErrMissingField without pins, got %v", err)
	}
}

func TestApplyConfigMissingDependency(t *testing.T) {
	config := monitoredConfig(map[string]interface{}{
		ultrasonic.AttrTriggerPin: "D23",
		ultrasonic.AttrEchoPin:    "D24",
		AttrBoard:                 "local",
	})

	// The named board was never registered, so the dependency map is empty.
	_, err := CreateMonitoredSensor(config, types.Dependencies{})
	if !errors.Is(err, device.ErrMissingDependency) {
		t.Errorf("Expected ErrMissingDependency, got %v", err)
	}
}

func TestApplyConfigWrongDependencyType(t *testing.T) {
	config := monitoredConfig(map[string]interface{}{
		ultrasonic.AttrTriggerPin: "D23",
		ultrasonic.AttrEchoPin:    "D24",
		AttrBoard:                 "local",
	})

	_, err := CreateMonitoredSensor(config, types.Dependencies{"local": "not a board"})
	if !errors.Is(err, device.ErrMissingDependency) {
		t.Errorf("Expected ErrMissingDependency for wrong type, got %v", err)
	}
}

func TestAutoStartDefault(t *testing.T) {
	deps, fake := testBoardDeps(t)

	config := monitoredConfig(map[string]interface{}{
		ultrasonic.AttrTriggerPin: "16",
		ultrasonic.AttrEchoPin:    "18",
		AttrBoard:                 "local",
	})

	dev, err := CreateMonitoredSensor(config, deps)
	if err != nil {
		t.Fatalf("CreateMonitoredSensor failed: %v", err)
	}
	defer dev.Close()

	monitoredSensor := dev.(*MonitoredSensor)
	if !monitoredSensor.Poller().IsRunning() {
		t.Error("Expected poller to auto-start after successful configuration")
	}

	if !fake.Opened("D23") || !fake.Opened("D24") {
		t.Error("Expected resolved pins to be opened on the dependency board")
	}
}

func TestAutoStartDisabled(t *testing.T) {
	deps, _ := testBoardDeps(t)

	config := monitoredConfig(map[string]interface{}{
		ultrasonic.AttrTriggerPin: "D23",
		ultrasonic.AttrEchoPin:    "D24",
		AttrBoard:                 "local",
		AttrAutoStart:             false,
	})

	dev, err := CreateMonitoredSensor(config, deps)
	if err != nil {
		t.Fatalf("CreateMonitoredSensor failed: %v", err)
	}
	defer dev.Close()

	if dev.(*MonitoredSensor).Poller().IsRunning() {
		t.Error("Expected poller to stay stopped with auto_start=false")
	}
}

func TestAutoStartSkippedOnBrokenPins(t *testing.T) {
	deps, _ := testBoardDeps(t)

	config := monitoredConfig(map[string]interface{}{
		ultrasonic.AttrTriggerPin: "abc",
		ultrasonic.AttrEchoPin:    "D24",
		AttrBoard:                 "local",
	})

	// Pin errors are swallowed like in the plain sensor; only the poller
	// must not start.
	dev, err := CreateMonitoredSensor(config, deps)
	if err != nil {
		t.Fatalf("Expected pin failure to be swallowed, got %v", err)
	}
	defer dev.Close()

	monitoredSensor := dev.(*MonitoredSensor)
	if monitoredSensor.Poller().IsRunning() {
		t.Error("Expected poller to stay stopped after failed configuration")
	}
	if monitoredSensor.Status().Configured {
		t.Error("Expected sensor to be unconfigured")
	}

	reading, err := monitoredSensor.Read(context.Background())
	if err != nil {
		t.Fatalf("Read must not fail: %v", err)
	}
	if reading.Value != ultrasonic.DistanceUnavailable {
		t.Errorf("Expected %v, got %v", ultrasonic.DistanceUnavailable, reading.Value)
	}
}

func TestCloseStopsPoller(t *testing.T) {
	deps, _ := testBoardDeps(t)

	config := monitoredConfig(map[string]interface{}{
		ultrasonic.AttrTriggerPin: "D23",
		ultrasonic.AttrEchoPin:    "D24",
		AttrBoard:                 "local",
	})

	dev, err := CreateMonitoredSensor(config, deps)
	if err != nil {
		t.Fatalf("CreateMonitoredSensor failed: %v", err)
	}

	monitoredSensor := dev.(*MonitoredSensor)
	if !monitoredSensor.Poller().IsRunning() {
		t.Fatal("Expected poller to be running")
	}

	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if monitoredSensor.Poller().IsRunning() {
		t.Error("Expected poller to be stopped after Close")
	}

	// Closing again must be safe.
	if err := dev.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}
