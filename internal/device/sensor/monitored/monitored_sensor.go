// Package monitored implementiert einen HC-SR04 Ultraschall-Sensor mit
// expliziter Board-Abhängigkeit und Hintergrund-Poller.
package monitored

import (
	"fmt"
	"time"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/device/sensor/ultrasonic"
	"owipex_ultrasonic/internal/platform/board"
	"owipex_ultrasonic/internal/types"
)

// Konstanten für überwachte Ultraschall-Sensoren
const (
	// Attribut-Namen
	AttrBoard     = "board"
	AttrAutoStart = "auto_start"

	// DefaultPollInterval ist das Schlafintervall des Hintergrund-Pollers
	DefaultPollInterval = time.Second
)

// MonitoredSensor erweitert den Ultraschall-Sensor um eine explizite
// Board-Abhängigkeit und einen Hintergrund-Poller. Eine fehlende
// Board-Abhängigkeit ist ein fataler Konfigurationsfehler; alle anderen
// Konfigurationsfehler werden wie beim einfachen Sensor verschluckt und
// über Status gemeldet.
type MonitoredSensor struct {
	*ultrasonic.UltrasonicSensor
	poller *BackgroundPoller
}

// NewMonitoredSensor erstellt einen neuen überwachten Ultraschall-Sensor
func NewMonitoredSensor(id, name string) *MonitoredSensor {
	monitoredSensor := &MonitoredSensor{
		UltrasonicSensor: ultrasonic.NewUltrasonicSensor(id, name),
	}
	monitoredSensor.poller = NewBackgroundPoller(DefaultPollInterval, monitoredSensor.Heartbeat)

	return monitoredSensor
}

// Poller gibt den Hintergrund-Poller des Sensors zurück
func (s *MonitoredSensor) Poller() *BackgroundPoller {
	return s.poller
}

// ApplyConfig wendet die Konfiguration an. Nach erfolgreicher
// Konfiguration wird der Hintergrund-Poller gestartet, sofern
// auto_start nicht deaktiviert wurde.
func (s *MonitoredSensor) ApplyConfig(config types.DeviceConfig, deps types.Dependencies) error {
	boardName, err := boardAttribute(config)
	if err != nil {
		return err
	}

	dep, ok := deps[boardName]
	if !ok {
		return fmt.Errorf("%w: board %q", device.ErrMissingDependency, boardName)
	}

	b, ok := dep.(*board.Board)
	if !ok {
		return fmt.Errorf("%w: ressource %q ist kein Board", device.ErrMissingDependency, boardName)
	}

	if err := s.ApplyConfigWithBoard(config, b); err != nil {
		return err
	}

	if autoStartFromConfig(config) && s.Status().Configured {
		s.poller.Start()
	}

	return nil
}

// Close stoppt den Hintergrund-Poller und gibt die Pins frei
func (s *MonitoredSensor) Close() error {
	s.poller.Stop()
	return s.UltrasonicSensor.Close()
}

// boardAttribute liest den Namen der Board-Abhängigkeit aus der Konfiguration
func boardAttribute(config types.DeviceConfig) (string, error) {
	value, ok := config.Attributes[AttrBoard]
	if !ok {
		return "", fmt.Errorf("%w: %s", device.ErrMissingField, AttrBoard)
	}

	name, ok := value.(string)
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %s", device.ErrMissingField, AttrBoard)
	}

	return name, nil
}

// autoStartFromConfig liest das auto_start-Flag (Standard: true)
func autoStartFromConfig(config types.DeviceConfig) bool {
	if raw, ok := config.Attributes[AttrAutoStart]; ok {
		if value, ok := raw.(bool); ok {
			return value
		}
	}

	return true
}
