package monitored

import (
	"owipex_ultrasonic/internal/device/sensor/ultrasonic"
	"owipex_ultrasonic/internal/types"
)

// ValidateConfig prüft die Pflicht-Attribute und gibt den Namen der
// Board-Abhängigkeit zurück, die vor der Erstellung aufgelöst werden muss.
func ValidateConfig(config types.DeviceConfig) ([]string, error) {
	if _, err := ultrasonic.ValidateConfig(config); err != nil {
		return nil, err
	}

	boardName, err := boardAttribute(config)
	if err != nil {
		return nil, err
	}

	return []string{boardName}, nil
}

// CreateMonitoredSensor erstellt einen überwachten Ultraschall-Sensor
// aus einer Konfiguration
func CreateMonitoredSensor(config types.DeviceConfig, deps types.Dependencies) (types.Device, error) {
	monitoredSensor := NewMonitoredSensor(config.ID, config.Name)

	// Metadaten aus der Konfiguration übernehmen
	for key, value := range config.Metadata {
		monitoredSensor.SetMetadata(key, value)
	}

	if err := monitoredSensor.ApplyConfig(config, deps); err != nil {
		return nil, err
	}

	return monitoredSensor, nil
}
