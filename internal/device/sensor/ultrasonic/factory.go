package ultrasonic

import (
	"owipex_ultrasonic/internal/types"
)

// ValidateConfig prüft, ob die Pflicht-Attribute der Konfiguration
// gesetzt sind. Der einfache Ultraschall-Sensor hat keine expliziten
// Abhängigkeiten.
func ValidateConfig(config types.DeviceConfig) ([]string, error) {
	if _, err := stringAttribute(config, AttrTriggerPin); err != nil {
		return nil, err
	}
	if _, err := stringAttribute(config, AttrEchoPin); err != nil {
		return nil, err
	}

	return nil, nil
}

// CreateUltrasonicSensor erstellt einen Ultraschall-Sensor aus einer Konfiguration
func CreateUltrasonicSensor(config types.DeviceConfig, deps types.Dependencies) (types.Device, error) {
	ultrasonicSensor := NewUltrasonicSensor(config.ID, config.Name)

	// Metadaten aus der Konfiguration übernehmen
	for key, value := range config.Metadata {
		ultrasonicSensor.SetMetadata(key, value)
	}

	if err := ultrasonicSensor.ApplyConfig(config, deps); err != nil {
		return nil, err
	}

	return ultrasonicSensor, nil
}
