// Package us100 implementiert einen US-100 Ultraschall-Sensor an der seriellen Schnittstelle.
package us100

import (
	"context"
	"fmt"
	"sync"
	"time"

	"owipex_ultrasonic/internal/device/sensor"
	us100driver "owipex_ultrasonic/internal/driver/us100"
	"owipex_ultrasonic/internal/types"
)

// US100Sensor implementiert einen US-100 Abstandssensor im UART-Modus.
// Neben dem Abstand liefert der Sensor die Temperatur seines
// eingebauten Fühlers mit.
type US100Sensor struct {
	*sensor.BaseSensor

	driverMutex sync.RWMutex
	driver      *us100driver.US100
}

// NewUS100Sensor erstellt einen neuen US-100 Sensor
func NewUS100Sensor(id, name string) *US100Sensor {
	base := sensor.NewBaseSensor(id, name, types.ReadingTypeDistance, types.ReadingTypeTemperature)

	return &US100Sensor{
		BaseSensor: base,
	}
}

// SetDriver setzt den seriellen Treiber des Sensors
func (s *US100Sensor) SetDriver(driver *us100driver.US100) {
	s.driverMutex.Lock()
	old := s.driver
	s.driver = driver
	s.driverMutex.Unlock()

	if old != nil {
		old.Close()
	}

	if driver != nil {
		s.ClearConfigError()
	}
}

// Read liest den Abstand in Millimetern. Die Temperatur wird als
// Metadatum mitgeliefert; ein Temperatur-Fehler bricht die Messung
// nicht ab.
func (s *US100Sensor) Read(ctx context.Context) (types.Reading, error) {
	s.Heartbeat()

	driver := s.currentDriver()
	if driver == nil {
		return types.Reading{}, fmt.Errorf("kein serieller Treiber für Sensor %s konfiguriert", s.ID())
	}

	mm, err := driver.DistanceMillimeters(ctx)
	if err != nil {
		return types.Reading{}, fmt.Errorf("fehler beim Lesen des Abstands: %w", err)
	}

	rawValue := []byte{byte(mm >> 8), byte(mm)}
	reading := types.NewReading(types.ReadingTypeDistance, float64(mm), "mm", rawValue)
	reading.Metadata["distance_m"] = float64(mm) / 1000 // in Metern

	if temperature, err := driver.TemperatureCelsius(ctx); err == nil {
		reading.Metadata["temperature_c"] = float64(temperature)
	}

	return reading, nil
}

// ReadRaw liest den Abstand als Big-Endian-Millimeterwert
func (s *US100Sensor) ReadRaw(ctx context.Context) ([]byte, error) {
	driver := s.currentDriver()
	if driver == nil {
		return nil, fmt.Errorf("kein serieller Treiber für Sensor %s konfiguriert", s.ID())
	}

	mm, err := driver.DistanceMillimeters(ctx)
	if err != nil {
		return nil, err
	}

	return []byte{byte(mm >> 8), byte(mm)}, nil
}

// Close schließt die serielle Verbindung
func (s *US100Sensor) Close() error {
	s.driverMutex.Lock()
	driver := s.driver
	s.driver = nil
	s.driverMutex.Unlock()

	if driver != nil {
		return driver.Close()
	}
	return nil
}

func (s *US100Sensor) currentDriver() *us100driver.US100 {
	s.driverMutex.RLock()
	defer s.driverMutex.RUnlock()
	return s.driver
}

// serialConfigFromMetadata liest die seriellen Parameter aus der Konfiguration
func serialConfigFromMetadata(metadata map[string]interface{}) us100driver.Config {
	config := us100driver.Config{}

	serialValues, ok := metadata["serial"].(map[string]interface{})
	if !ok {
		return config
	}

	if device, ok := serialValues["device"].(string); ok {
		config.Device = device
	}
	if baud, ok := serialValues["baud_rate"].(float64); ok {
		config.Baud = int(baud)
	}
	if timeout, ok := serialValues["timeout"].(float64); ok {
		config.Timeout = time.Duration(timeout) * time.Millisecond
	}

	return config
}
