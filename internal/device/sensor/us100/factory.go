package us100

import (
	"fmt"

	us100driver "owipex_ultrasonic/internal/driver/us100"
	"owipex_ultrasonic/internal/types"
)

// CreateUS100Sensor erstellt einen US-100 Sensor aus einer Konfiguration
func CreateUS100Sensor(config types.DeviceConfig, deps types.Dependencies) (types.Device, error) {
	us100Sensor := NewUS100Sensor(config.ID, config.Name)

	// Metadaten aus der Konfiguration übernehmen
	for key, value := range config.Metadata {
		us100Sensor.SetMetadata(key, value)
	}

	serialConfig := serialConfigFromMetadata(config.Metadata)
	if serialConfig.Device == "" {
		return nil, fmt.Errorf("kein serielles Gerät für Sensor '%s' konfiguriert", config.ID)
	}

	driver, err := us100driver.Open(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Öffnen der seriellen Schnittstelle: %w", err)
	}
	us100Sensor.SetDriver(driver)

	return us100Sensor, nil
}
