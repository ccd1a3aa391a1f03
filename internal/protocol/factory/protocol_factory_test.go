package factory

import (
	"testing"

	"owipex_ultrasonic/internal/types"
)

func TestCreateProtocolHandlerUnknownType(t *testing.T) {
	if _, err := CreateProtocolHandler("profibus", nil); err == nil {
		t.Error("Expected error for unknown protocol type")
	}
}

func TestParseRegisterMap(t *testing.T) {
	registerMap := parseRegisterMap("air_distance", map[string]interface{}{
		"type":       "INPUT",
		"address":    10.0,
		"length":     2.0,
		"data_type":  "uint16",
		"byte_order": "big",
		"multiplier": 0.1,
		"offset":     5.0,
	})

	if registerMap.Name != "air_distance" {
		t.Errorf("Expected name air_distance, got %s", registerMap.Name)
	}
	if registerMap.Type != types.RegisterTypeInput {
		t.Errorf("Expected INPUT register, got %s", registerMap.Type)
	}
	if registerMap.Address != 10 || registerMap.Length != 2 {
		t.Errorf("Unexpected address/length %d/%d", registerMap.Address, registerMap.Length)
	}
	if registerMap.Multiplier != 0.1 {
		t.Errorf("Expected multiplier 0.1, got %v", registerMap.Multiplier)
	}
	if registerMap.Offset != 5.0 {
		t.Errorf("Expected offset 5, got %v", registerMap.Offset)
	}
}

func TestParseRegisterMapDefaults(t *testing.T) {
	registerMap := parseRegisterMap("air_distance", map[string]interface{}{})

	if registerMap.Type != types.RegisterTypeHolding {
		t.Errorf("Expected HOLDING default, got %s", registerMap.Type)
	}
	if registerMap.Multiplier != 1.0 {
		t.Errorf("Expected multiplier default 1.0, got %v", registerMap.Multiplier)
	}
}
