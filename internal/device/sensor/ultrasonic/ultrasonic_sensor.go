// Package ultrasonic implementiert einen HC-SR04 Ultraschall-Sensor zur Abstandsmessung.
package ultrasonic

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/device/sensor"
	"owipex_ultrasonic/internal/driver/hcsr04"
	"owipex_ultrasonic/internal/platform/board"
	"owipex_ultrasonic/internal/types"
)

// Konstanten für Ultraschall-Sensoren
const (
	// Attribut-Namen
	AttrTriggerPin = "trigger_pin"
	AttrEchoPin    = "echo_interrupt_pin"
	AttrTimeoutMS  = "timeout_ms"

	// DistanceUnavailable wird als Abstand geliefert, wenn keine gültige
	// Messung möglich war (Sensor nicht konfiguriert oder Messfehler).
	DistanceUnavailable = -1.0

	// DefaultTimeoutMS ist das Standard-Timeout für das Echo in Millisekunden
	DefaultTimeoutMS = 1000
)

// UltrasonicSensor implementiert einen HC-SR04 Ultraschall-Abstandssensor.
// Messfehler führen nie zu einem Fehler beim Lesen; stattdessen wird
// DistanceUnavailable mit Qualität BAD geliefert.
type UltrasonicSensor struct {
	*sensor.BaseSensor

	driverMutex sync.RWMutex
	driver      *hcsr04.HCSR04
	logger      *log.Logger
}

// NewUltrasonicSensor erstellt einen neuen Ultraschall-Sensor
func NewUltrasonicSensor(id, name string) *UltrasonicSensor {
	base := sensor.NewBaseSensor(id, name, types.ReadingTypeDistance)

	return &UltrasonicSensor{
		BaseSensor: base,
		logger:     log.New(os.Stdout, "[UltrasonicSensor] ", log.LstdFlags),
	}
}

// ApplyConfig wendet eine (neue) Konfiguration auf den Sensor an. Der
// einfache Ultraschall-Sensor verwendet immer das prozessweite
// Standard-Board.
func (s *UltrasonicSensor) ApplyConfig(config types.DeviceConfig, deps types.Dependencies) error {
	return s.ApplyConfigWithBoard(config, board.Default())
}

// ApplyConfigWithBoard wendet die Konfiguration mit einem expliziten
// Board an. Konfigurationsfehler werden protokolliert und über Status
// abfragbar gemacht, aber nicht zurückgegeben; der Sensor liefert dann
// DistanceUnavailable, bis eine gültige Konfiguration ankommt.
func (s *UltrasonicSensor) ApplyConfigWithBoard(config types.DeviceConfig, b *board.Board) error {
	driver, err := s.buildDriver(config, b)
	if err != nil {
		s.logger.Printf("WARNUNG: Konfiguration von Sensor %s fehlgeschlagen: %v", s.ID(), err)
		s.SetConfigError(err)
		s.swapDriver(nil)
		return nil
	}

	s.swapDriver(driver)
	s.SetMetadata("trigger_pin", string(driver.TriggerHandle()))
	s.SetMetadata("echo_pin", string(driver.EchoHandle()))
	s.SetMetadata("timeout_ms", driver.Timeout().Milliseconds())
	s.ClearConfigError()

	return nil
}

// buildDriver löst die Pin-Angaben auf und erstellt den Treiber
func (s *UltrasonicSensor) buildDriver(config types.DeviceConfig, b *board.Board) (*hcsr04.HCSR04, error) {
	if b == nil {
		return nil, fmt.Errorf("kein Board verfügbar")
	}

	triggerPin, err := stringAttribute(config, AttrTriggerPin)
	if err != nil {
		return nil, err
	}
	echoPin, err := stringAttribute(config, AttrEchoPin)
	if err != nil {
		return nil, err
	}

	trigger, err := b.Resolve(triggerPin)
	if err != nil {
		return nil, fmt.Errorf("trigger-Pin: %w", err)
	}
	echo, err := b.Resolve(echoPin)
	if err != nil {
		return nil, fmt.Errorf("echo-Pin: %w", err)
	}

	return hcsr04.New(b, trigger, echo, timeoutFromConfig(config))
}

// Read liest den Abstand und liefert ihn in Metern. Schlägt die Messung
// fehl, wird DistanceUnavailable mit Qualität BAD geliefert; ein Fehler
// wird nie zurückgegeben.
func (s *UltrasonicSensor) Read(ctx context.Context) (types.Reading, error) {
	s.Heartbeat()

	driver := s.currentDriver()
	if driver == nil {
		s.logger.Printf("WARNUNG: Sensor %s ist nicht konfiguriert, liefere %v", s.ID(), DistanceUnavailable)
		return unavailableReading(), nil
	}

	cm, err := driver.DistanceCentimeters(ctx)
	if err != nil {
		s.logger.Printf("WARNUNG: Messung von Sensor %s fehlgeschlagen: %v", s.ID(), err)
		return unavailableReading(), nil
	}

	// Zentimeter in Meter umrechnen
	reading := types.NewReading(types.ReadingTypeDistance, cm/100.0, "m", nil)
	reading.Metadata["distance_cm"] = cm

	return reading, nil
}

// ReadRaw liest den Abstand und liefert ihn als Big-Endian-Millimeterwert
func (s *UltrasonicSensor) ReadRaw(ctx context.Context) ([]byte, error) {
	driver := s.currentDriver()
	if driver == nil {
		return nil, fmt.Errorf("sensor %s ist nicht konfiguriert", s.ID())
	}

	cm, err := driver.DistanceCentimeters(ctx)
	if err != nil {
		return nil, err
	}

	mm := uint16(cm * 10)
	return []byte{byte(mm >> 8), byte(mm)}, nil
}

// Close gibt die GPIO-Pins frei
func (s *UltrasonicSensor) Close() error {
	s.driverMutex.Lock()
	driver := s.driver
	s.driver = nil
	s.driverMutex.Unlock()

	if driver != nil {
		return driver.Close()
	}
	return nil
}

// currentDriver gibt den aktuellen Treiber zurück (nil, wenn der Sensor
// nicht konfiguriert ist)
func (s *UltrasonicSensor) currentDriver() *hcsr04.HCSR04 {
	s.driverMutex.RLock()
	defer s.driverMutex.RUnlock()
	return s.driver
}

// swapDriver ersetzt den Treiber und schließt den alten
func (s *UltrasonicSensor) swapDriver(driver *hcsr04.HCSR04) {
	s.driverMutex.Lock()
	old := s.driver
	s.driver = driver
	s.driverMutex.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Printf("Fehler beim Schließen des alten Treibers: %v", err)
		}
	}
}

// unavailableReading erstellt das Ersatz-Reading für fehlgeschlagene Messungen
func unavailableReading() types.Reading {
	reading := types.NewReading(types.ReadingTypeDistance, DistanceUnavailable, "m", nil)
	reading.Quality = types.QualityBad
	return reading
}

// stringAttribute liest ein Pflicht-Attribut als nicht-leeren String
func stringAttribute(config types.DeviceConfig, key string) (string, error) {
	value, ok := config.Attributes[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", device.ErrMissingField, key)
	}

	str, ok := value.(string)
	if !ok || str == "" {
		return "", fmt.Errorf("%w: %s", device.ErrMissingField, key)
	}

	return str, nil
}

// timeoutFromConfig liest das Echo-Timeout aus der Konfiguration.
// Werte kleiner oder gleich null fallen auf den Standardwert zurück.
func timeoutFromConfig(config types.DeviceConfig) time.Duration {
	ms := float64(DefaultTimeoutMS)

	if raw, ok := config.Attributes[AttrTimeoutMS]; ok {
		switch value := raw.(type) {
		case float64:
			ms = value
		case int:
			ms = float64(value)
		}
	}

	if ms <= 0 {
		ms = DefaultTimeoutMS
	}

	return time.Duration(ms) * time.Millisecond
}
