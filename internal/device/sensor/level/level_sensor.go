// Package level implementiert einen Ultraschall-Füllstandsmessumformer am RS485-Bus.
package level

import (
	"context"
	"fmt"
	"sync"

	"owipex_ultrasonic/internal/device/sensor"
	"owipex_ultrasonic/internal/types"
)

// Konstanten für Füllstand-Sensoren
const (
	// Register-Namen
	RegisterAirDistance = "air_distance"

	// Behälter-Konfiguration
	ConfigWidthMM             = "width_mm"
	ConfigLengthMM            = "length_mm"
	ConfigMaxVolumeM3         = "max_volume_m3"
	ConfigAirDistanceMaxLevel = "air_distance_max_level_mm"
	ConfigMaxWaterLevel       = "max_water_level_mm"
	ConfigNormalWaterLevel    = "normal_water_level_mm"

	// Default Register-Adresse
	DefaultRegisterAirDistance = uint16(0x0001)
)

// ContainerConfig enthält die Geometrie des überwachten Behälters.
// Alle Längen in Millimetern.
type ContainerConfig struct {
	WidthMM             float64
	LengthMM            float64
	MaxVolumeM3         float64
	AirDistanceMaxLevel float64
	MaxWaterLevel       float64
	NormalWaterLevel    float64
}

// WaterLevel berechnet den Wasserstand aus dem gemessenen Luftabstand
func (c ContainerConfig) WaterLevel(measuredAirDistance float64) float64 {
	waterLevel := c.AirDistanceMaxLevel - measuredAirDistance
	if waterLevel < 0 {
		waterLevel = 0
	}
	return waterLevel
}

// Volume berechnet das Wasservolumen in Kubikmetern
func (c ContainerConfig) Volume(waterLevel float64) float64 {
	volumeM3 := (waterLevel * c.WidthMM * c.LengthMM) / 1000000000 // mm³ zu m³
	if volumeM3 < 0 {
		volumeM3 = 0
	}
	return volumeM3
}

// VolumePercentage berechnet den Füllgrad in Prozent des maximalen Wasserstands
func (c ContainerConfig) VolumePercentage(waterLevel float64) float64 {
	if c.MaxWaterLevel == 0 {
		return 0
	}

	percentage := (waterLevel / c.MaxWaterLevel) * 100
	if percentage < 0 {
		percentage = 0
	} else if percentage > 100 {
		percentage = 100
	}
	return percentage
}

// LevelAboveNormal berechnet die Abweichung vom normalen Wasserstand
func (c ContainerConfig) LevelAboveNormal(waterLevel float64) float64 {
	return waterLevel - c.NormalWaterLevel
}

// LevelAlarm meldet, ob der Wasserstand die Alarmschwelle erreicht hat.
// Die Schwelle liegt bei 90% des maximalen Wasserstands.
func (c ContainerConfig) LevelAlarm(waterLevel float64) bool {
	if c.MaxWaterLevel == 0 {
		return false
	}
	return waterLevel >= c.MaxWaterLevel*0.9
}

// applyValues übernimmt bekannte Behälterparameter aus einer Map
func (c *ContainerConfig) applyValues(values map[string]interface{}) {
	if width, ok := values[ConfigWidthMM].(float64); ok {
		c.WidthMM = width
	}
	if length, ok := values[ConfigLengthMM].(float64); ok {
		c.LengthMM = length
	}
	if maxVolume, ok := values[ConfigMaxVolumeM3].(float64); ok {
		c.MaxVolumeM3 = maxVolume
	}
	if airDistanceMax, ok := values[ConfigAirDistanceMaxLevel].(float64); ok {
		c.AirDistanceMaxLevel = airDistanceMax
	}
	if maxWaterLevel, ok := values[ConfigMaxWaterLevel].(float64); ok {
		c.MaxWaterLevel = maxWaterLevel
	}
	if normalWaterLevel, ok := values[ConfigNormalWaterLevel].(float64); ok {
		c.NormalWaterLevel = normalWaterLevel
	}
}

// LevelSensor implementiert einen Ultraschall-Füllstandsmessumformer,
// der den Luftabstand über Modbus liefert
type LevelSensor struct {
	*sensor.BaseSensor

	containerMutex sync.RWMutex
	container      ContainerConfig
}

// NewLevelSensor erstellt einen neuen Füllstand-Sensor mit
// Standard-Behälterwerten
func NewLevelSensor(id, name string) *LevelSensor {
	base := sensor.NewBaseSensor(id, name, types.ReadingTypeLevel, types.ReadingTypeDistance)

	return &LevelSensor{
		BaseSensor: base,
		container: ContainerConfig{
			WidthMM:             2500, // 2,5 Meter
			LengthMM:            4000, // 4 Meter
			MaxVolumeM3:         15,   // 15 Kubikmeter
			AirDistanceMaxLevel: 5500, // 5,5 Meter
			MaxWaterLevel:       1500, // 1,5 Meter
			NormalWaterLevel:    800,  // 0,8 Meter
		},
	}
}

// Read liest den Luftabstand und berechnet daraus Wasserstand und Volumen
func (s *LevelSensor) Read(ctx context.Context) (types.Reading, error) {
	s.Heartbeat()

	protocol := s.GetProtocol()
	if protocol == nil {
		return types.Reading{}, fmt.Errorf("kein Protokoll-Handler konfiguriert")
	}

	container := s.currentContainer()

	rawData, err := s.readAirDistance(ctx, protocol)
	if err != nil {
		return types.Reading{}, err
	}

	if len(rawData) < 2 {
		return types.Reading{}, fmt.Errorf("ungültiges Datenformat für Luftabstand")
	}
	measuredAirDistance := float64(uint16(rawData[0])<<8 | uint16(rawData[1]))

	waterLevel := container.WaterLevel(measuredAirDistance)

	reading := types.NewReading(types.ReadingTypeLevel, waterLevel, "mm", rawData)
	reading.Metadata["measured_air_distance"] = measuredAirDistance
	reading.Metadata["distance_m"] = measuredAirDistance / 1000 // in Metern
	reading.Metadata["actual_volume"] = container.Volume(waterLevel)
	reading.Metadata["volume_percentage"] = container.VolumePercentage(waterLevel)
	reading.Metadata["level_above_normal"] = container.LevelAboveNormal(waterLevel)
	reading.Metadata["water_level_alarm"] = container.LevelAlarm(waterLevel)

	return reading, nil
}

// ReadRaw liest die Rohdaten des Luftabstands-Registers
func (s *LevelSensor) ReadRaw(ctx context.Context) ([]byte, error) {
	protocol := s.GetProtocol()
	if protocol == nil {
		return nil, fmt.Errorf("kein Protokoll-Handler konfiguriert")
	}

	return s.readAirDistance(ctx, protocol)
}

// Geometries beschreibt den überwachten Behälter als Quader. Der
// Messumformer sitzt mittig über dem Behälter.
func (s *LevelSensor) Geometries(ctx context.Context) ([]types.Geometry, error) {
	container := s.currentContainer()

	return []types.Geometry{{
		Label:      "container",
		Center:     [3]float64{0, 0, -container.AirDistanceMaxLevel / 2},
		Dimensions: [3]float64{container.WidthMM, container.LengthMM, container.AirDistanceMaxLevel},
	}}, nil
}

// SetCalibration übernimmt Behälterparameter aus der Kalibrierung
func (s *LevelSensor) SetCalibration(calibration map[string]interface{}) error {
	if err := s.BaseSensor.SetCalibration(calibration); err != nil {
		return err
	}

	s.containerMutex.Lock()
	defer s.containerMutex.Unlock()
	s.container.applyValues(calibration)

	return nil
}

// readAirDistance liest das Luftabstands-Register über den Protokoll-Handler
func (s *LevelSensor) readAirDistance(ctx context.Context, protocol types.ProtocolHandler) ([]byte, error) {
	registerConfig := protocol.GetRegisterConfig(RegisterAirDistance)
	if registerConfig.Address == 0 {
		// Fallback auf Standard-Adresse
		registerConfig.Address = DefaultRegisterAirDistance
		registerConfig.Length = 1
	}

	rawData, err := protocol.ReadRegister(ctx, registerConfig.Address, registerConfig.Length)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Lesen des Luftabstands: %w", err)
	}

	return rawData, nil
}

// currentContainer liefert die Behälter-Konfiguration inklusive der
// Werte aus den Sensor-Metadaten
func (s *LevelSensor) currentContainer() ContainerConfig {
	s.containerMutex.Lock()
	defer s.containerMutex.Unlock()

	if containerValues, ok := s.Metadata()["container_config"].(map[string]interface{}); ok {
		s.container.applyValues(containerValues)
	}

	return s.container
}
