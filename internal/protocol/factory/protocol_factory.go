// Package factory enthält Funktionen zur Erstellung von Protokoll-Handlern.
package factory

import (
	"fmt"
	"time"

	"owipex_ultrasonic/internal/protocol/modbus"
	"owipex_ultrasonic/internal/types"
)

// CreateProtocolHandler erstellt einen Protokoll-Handler basierend auf der Konfiguration
func CreateProtocolHandler(protocolType string, config map[string]interface{}) (types.ProtocolHandler, error) {
	switch protocolType {
	case "modbus":
		return createModbusHandler(config)
	default:
		return nil, fmt.Errorf("unbekannter Protokolltyp: %s", protocolType)
	}
}

// createModbusHandler erstellt einen Modbus-Protokoll-Handler
func createModbusHandler(config map[string]interface{}) (types.ProtocolHandler, error) {
	// Standardwerte für RS485-Füllstandsmessumformer
	modbusConfig := modbus.ModbusConfig{
		Port:         "/dev/ttyUSB0",
		BaudRate:     9600,
		DataBits:     8,
		StopBits:     1,
		Parity:       "N",
		Timeout:      5 * time.Second,
		RegisterMaps: make(map[string]types.RegisterMap),
	}

	if slaveID, ok := config["slave_id"].(float64); ok {
		modbusConfig.SlaveID = byte(slaveID)
	}
	if port, ok := config["port"].(string); ok {
		modbusConfig.Port = port
	}
	if baudRate, ok := config["baud_rate"].(float64); ok {
		modbusConfig.BaudRate = int(baudRate)
	}
	if dataBits, ok := config["data_bits"].(float64); ok {
		modbusConfig.DataBits = int(dataBits)
	}
	if stopBits, ok := config["stop_bits"].(float64); ok {
		modbusConfig.StopBits = int(stopBits)
	}
	if parity, ok := config["parity"].(string); ok {
		modbusConfig.Parity = parity
	}
	if timeout, ok := config["timeout"].(float64); ok {
		modbusConfig.Timeout = time.Duration(timeout) * time.Millisecond
	}

	// Register-Maps aus der Konfiguration extrahieren
	if registerMaps, ok := config["register_maps"].(map[string]interface{}); ok {
		for name, regMapInterface := range registerMaps {
			regMap, ok := regMapInterface.(map[string]interface{})
			if !ok {
				continue
			}
			modbusConfig.RegisterMaps[name] = parseRegisterMap(name, regMap)
		}
	}

	return modbus.NewModbusClient(modbusConfig)
}

// parseRegisterMap wandelt eine Register-Definition aus der JSON-Konfiguration um
func parseRegisterMap(name string, regMap map[string]interface{}) types.RegisterMap {
	registerMap := types.RegisterMap{
		Name:       name,
		Type:       types.RegisterTypeHolding,
		Multiplier: 1.0,
	}

	if regType, ok := regMap["type"].(string); ok {
		switch regType {
		case "HOLDING", "holding":
			registerMap.Type = types.RegisterTypeHolding
		case "INPUT", "input":
			registerMap.Type = types.RegisterTypeInput
		case "COIL", "coil":
			registerMap.Type = types.RegisterTypeCoil
		case "DISCRETE", "discrete":
			registerMap.Type = types.RegisterTypeDiscrete
		}
	}
	if address, ok := regMap["address"].(float64); ok {
		registerMap.Address = uint16(address)
	}
	if length, ok := regMap["length"].(float64); ok {
		registerMap.Length = uint16(length)
	}
	if dataType, ok := regMap["data_type"].(string); ok {
		registerMap.DataType = dataType
	}
	if byteOrder, ok := regMap["byte_order"].(string); ok {
		registerMap.ByteOrder = byteOrder
	}
	if multiplier, ok := regMap["multiplier"].(float64); ok {
		registerMap.Multiplier = multiplier
	}
	if offset, ok := regMap["offset"].(float64); ok {
		registerMap.Offset = offset
	}

	return registerMap
}
