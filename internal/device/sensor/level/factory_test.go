package level

import (
	"testing"

	"owipex_ultrasonic/internal/types"
)

func levelConfig(protocol string, metadata map[string]interface{}) types.DeviceConfig {
	return types.DeviceConfig{
		ID:       "tank_1",
		Name:     "Tank 1",
		Type:     "us_level",
		Protocol: protocol,
		Enabled:  true,
		Metadata: metadata,
	}
}

func TestCreateWithoutModbusParams(t *testing.T) {
	dev, err := CreateLevelSensor(levelConfig("modbus", nil), nil)
	if err != nil {
		t.Fatalf("CreateLevelSensor failed: %v", err)
	}
	defer dev.Close()

	status := dev.(*LevelSensor).Status()
	if status.Configured {
		t.Error("Expected sensor without modbus parameters to stay unconfigured")
	}
	if status.LastConfigError == "" {
		t.Error("Expected a recorded config error")
	}
}

func TestCreateWithUnknownProtocol(t *testing.T) {
	dev, err := CreateLevelSensor(levelConfig("profibus", nil), nil)
	if err != nil {
		t.Fatalf("CreateLevelSensor failed: %v", err)
	}
	defer dev.Close()

	if dev.(*LevelSensor).Status().Configured {
		t.Error("Expected sensor with unknown protocol to stay unconfigured")
	}
}

func TestCreateWithUnreachablePort(t *testing.T) {
	metadata := map[string]interface{}{
		"modbus": map[string]interface{}{
			"port":     "/dev/owipex-missing-port",
			"slave_id": 1.0,
		},
	}

	if _, err := CreateLevelSensor(levelConfig("modbus", metadata), nil); err == nil {
		t.Error("Expected error for an unreachable serial port")
	}
}
