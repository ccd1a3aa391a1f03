package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"owipex_ultrasonic/internal/types"
)

func TestCreateDeviceUnknownType(t *testing.T) {
	factory := NewFactory()

	_, err := factory.CreateDevice(types.DeviceConfig{ID: "dev1", Type: "unknown"})
	if err == nil {
		t.Fatal("Expected error for unknown device type, got nil")
	}
}

func TestCreateDeviceValidateError(t *testing.T) {
	factory := NewFactory()

	created := false
	factory.RegisterCreator("broken",
		func(config types.DeviceConfig) ([]string, error) {
			return nil, fmt.Errorf("%w: trigger_pin", ErrMissingField)
		},
		func(config types.DeviceConfig, deps types.Dependencies) (types.Device, error) {
			created = true
			return newTestDevice(config.ID, types.TypeSensor), nil
		})

	_, err := factory.CreateDevice(types.DeviceConfig{ID: "dev1", Type: "broken"})
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("Expected ErrMissingField in chain, got %v", err)
	}
	if created {
		t.Error("Expected creator not to run after a validation error")
	}
}

func TestCreateDeviceResolvesDependencies(t *testing.T) {
	factory := NewFactory()
	board := struct{ name string }{name: "local"}
	factory.RegisterResource("local", board)

	var gotDeps types.Dependencies
	factory.RegisterCreator("dep_test",
		func(config types.DeviceConfig) ([]string, error) {
			return []string{"local", "missing"}, nil
		},
		func(config types.DeviceConfig, deps types.Dependencies) (types.Device, error) {
			gotDeps = deps
			return newTestDevice(config.ID, types.TypeSensor), nil
		})

	if _, err := factory.CreateDevice(types.DeviceConfig{ID: "dev1", Type: "dep_test"}); err != nil {
		t.Fatalf("CreateDevice failed: %v", err)
	}

	if _, ok := gotDeps["local"]; !ok {
		t.Error("Expected registered resource 'local' in dependencies")
	}
	if _, ok := gotDeps["missing"]; ok {
		t.Error("Expected unregistered name 'missing' to be absent from dependencies")
	}
}

func TestCreateDeviceNilValidator(t *testing.T) {
	factory := NewFactory()
	factory.RegisterCreator("plain", nil,
		func(config types.DeviceConfig, deps types.Dependencies) (types.Device, error) {
			if len(deps) != 0 {
				t.Errorf("Expected empty dependencies, got %d", len(deps))
			}
			return newTestDevice(config.ID, types.TypeSensor), nil
		})

	dev, err := factory.CreateDevice(types.DeviceConfig{ID: "dev1", Type: "plain"})
	if err != nil {
		t.Fatalf("CreateDevice failed: %v", err)
	}
	if dev.ID() != "dev1" {
		t.Errorf("Expected device ID dev1, got %s", dev.ID())
	}
}

func TestCreateDevicesCollectsErrors(t *testing.T) {
	factory := NewFactory()
	factory.RegisterCreator("plain", nil,
		func(config types.DeviceConfig, deps types.Dependencies) (types.Device, error) {
			return newTestDevice(config.ID, types.TypeSensor), nil
		})

	configs := []types.DeviceConfig{
		{ID: "dev1", Type: "plain"},
		{ID: "dev2", Type: "unknown"},
		{ID: "dev3", Type: "plain"},
	}

	devices, errs := factory.CreateDevices(configs)
	if len(devices) != 2 {
		t.Errorf("Expected 2 devices, got %d", len(devices))
	}
	if len(errs) != 1 {
		t.Errorf("Expected 1 error, got %d", len(errs))
	}
}

func TestCreateAndRegisterDevicesSkipsDisabled(t *testing.T) {
	factory := NewFactory()
	registry := NewRegistry()
	factory.RegisterCreator("plain", nil,
		func(config types.DeviceConfig, deps types.Dependencies) (types.Device, error) {
			return newTestDevice(config.ID, types.TypeSensor), nil
		})

	configs := []types.DeviceConfig{
		{ID: "dev1", Type: "plain", Enabled: true},
		{ID: "dev2", Type: "plain", Enabled: false},
	}

	devices, errs := factory.CreateAndRegisterDevices(configs, registry)
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}
	if len(devices) != 1 {
		t.Fatalf("Expected 1 device, got %d", len(devices))
	}
	if _, err := registry.GetDevice("dev1"); err != nil {
		t.Errorf("Expected dev1 to be registered: %v", err)
	}
	if _, err := registry.GetDevice("dev2"); err == nil {
		t.Error("Expected disabled dev2 not to be registered")
	}
}

func TestLoadDeviceConfigs(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "device_configs")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configJSON := `{
		"id": "tank_level",
		"name": "Tank Level",
		"type": "ultrasonic",
		"enabled": true,
		"attributes": {
			"trigger_pin": "16",
			"echo_interrupt_pin": "18"
		}
	}`
	if err := os.WriteFile(filepath.Join(tempDir, "10_tank.json"), []byte(configJSON), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatalf("Failed to write non-config file: %v", err)
	}

	configs, err := LoadDeviceConfigs(tempDir)
	if err != nil {
		t.Fatalf("LoadDeviceConfigs failed: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("Expected 1 config, got %d", len(configs))
	}
	if configs[0].ID != "tank_level" {
		t.Errorf("Expected config ID tank_level, got %s", configs[0].ID)
	}
	if configs[0].Attributes["trigger_pin"] != "16" {
		t.Errorf("Expected trigger_pin 16, got %v", configs[0].Attributes["trigger_pin"])
	}
}

func TestSaveAndLoadDeviceConfig(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "device_config")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	config := &types.DeviceConfig{
		ID:      "dev1",
		Name:    "Device 1",
		Type:    "ultrasonic",
		Enabled: true,
		Attributes: map[string]interface{}{
			"trigger_pin": "D23",
		},
	}

	path := filepath.Join(tempDir, "dev1.json")
	if err := SaveDeviceConfig(config, path); err != nil {
		t.Fatalf("SaveDeviceConfig failed: %v", err)
	}

	loaded, err := LoadDeviceConfig(path)
	if err != nil {
		t.Fatalf("LoadDeviceConfig failed: %v", err)
	}
	if loaded.ID != config.ID {
		t.Errorf("Expected ID %s, got %s", config.ID, loaded.ID)
	}
	if loaded.Attributes["trigger_pin"] != "D23" {
		t.Errorf("Expected trigger_pin D23, got %v", loaded.Attributes["trigger_pin"])
	}
}
