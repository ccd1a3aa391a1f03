package level

import (
	"fmt"

	"owipex_ultrasonic/internal/protocol/factory"
	"owipex_ultrasonic/internal/types"
)

// CreateLevelSensor erstellt einen Füllstand-Sensor aus einer Konfiguration
func CreateLevelSensor(config types.DeviceConfig, deps types.Dependencies) (types.Device, error) {
	levelSensor := NewLevelSensor(config.ID, config.Name)

	// Metadaten aus der Konfiguration übernehmen
	for key, value := range config.Metadata {
		levelSensor.SetMetadata(key, value)
	}

	// Protokoll-Handler konfigurieren
	if config.Protocol != "modbus" {
		levelSensor.SetConfigError(fmt.Errorf("unbekanntes Protokoll '%s' für Sensor '%s'", config.Protocol, config.ID))
		return levelSensor, nil
	}

	modbusConfig, ok := config.Metadata["modbus"].(map[string]interface{})
	if !ok {
		levelSensor.SetConfigError(fmt.Errorf("keine Modbus-Parameter für Sensor '%s' konfiguriert", config.ID))
		return levelSensor, nil
	}

	protocol, err := factory.CreateProtocolHandler("modbus", modbusConfig)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Erstellen des Protokoll-Handlers: %w", err)
	}
	levelSensor.SetProtocol(protocol)
	levelSensor.ClearConfigError()

	return levelSensor, nil
}
