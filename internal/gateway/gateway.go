// Package gateway exposes the latest sensor readings as a Modbus TCP
// server so existing SCADA tooling can poll the box without speaking
// the sensor protocols.
package gateway

import (
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/simonvetter/modbus"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/types"
)

// Register layout per mapped sensor, relative to index*RegistersPerDevice.
// Sensors are mapped in lexicographic device ID order:
//
//	+0  measured value in millimeters (ValueUnavailable when missing)
//	+1  age of the reading in seconds (capped, ValueUnavailable when none)
//	+2  reading quality (0 good, 1 uncertain, 2 bad, 3 no reading yet)
//	+3  configured flag (1 when the device driver is configured)
const (
	RegistersPerDevice = 4

	ValueUnavailable = 0xFFFF

	QualityGood      = 0
	QualityUncertain = 1
	QualityBad       = 2
	QualityNoReading = 3
)

// ReadingSource provides the most recent reading per device.
type ReadingSource interface {
	LatestReading(deviceID string) (types.Reading, bool)
}

// Server maps registered sensors onto Modbus registers.
type Server struct {
	registry *device.Registry
	source   ReadingSource
	unitID   uint8
	logger   *log.Logger

	server *modbus.ModbusServer
}

// NewServer creates a gateway over the given registry. Readings are
// taken from source, typically the sensor manager.
func NewServer(registry *device.Registry, source ReadingSource, unitID uint8) *Server {
	return &Server{
		registry: registry,
		source:   source,
		unitID:   unitID,
		logger:   log.New(os.Stdout, "[Gateway] ", log.LstdFlags),
	}
}

// Start listens on the given address, e.g. "0.0.0.0:1502".
func (s *Server) Start(listen string) error {
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        fmt.Sprintf("tcp://%s", listen),
		Timeout:    30 * time.Second,
		MaxClients: 5,
	}, s)
	if err != nil {
		return fmt.Errorf("failed to create modbus server: %w", err)
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start modbus server: %w", err)
	}

	s.server = server
	s.logger.Printf("Modbus gateway listening on %s (unit %d)", listen, s.unitID)
	return nil
}

// Stop shuts the gateway down and closes all client connections.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	s.logger.Println("Stopping Modbus gateway...")
	return s.server.Stop()
}

// HandleInputRegisters serves the register map described above.
func (s *Server) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	if req.UnitId != s.unitID {
		return nil, modbus.ErrIllegalFunction
	}

	return s.readRegisters(req.Addr, req.Quantity)
}

// HandleHoldingRegisters mirrors the input registers for clients that
// only poll holding registers. Writes are rejected.
func (s *Server) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.UnitId != s.unitID {
		return nil, modbus.ErrIllegalFunction
	}
	if req.IsWrite {
		return nil, modbus.ErrIllegalFunction
	}

	return s.readRegisters(req.Addr, req.Quantity)
}

// HandleCoils rejects coil access, the gateway is read-only.
func (s *Server) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

// HandleDiscreteInputs rejects discrete input access.
func (s *Server) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (s *Server) readRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	ids := s.sensorIDs()

	res := make([]uint16, 0, quantity)
	for reg := uint32(addr); reg < uint32(addr)+uint32(quantity); reg++ {
		index := int(reg / RegistersPerDevice)
		field := int(reg % RegistersPerDevice)
		if index >= len(ids) {
			return nil, modbus.ErrIllegalDataAddress
		}
		res = append(res, s.registerValue(ids[index], field))
	}
	return res, nil
}

// sensorIDs returns the mapped devices in stable order.
func (s *Server) sensorIDs() []string {
	sensors := s.registry.GetSensors()

	ids := make([]string, 0, len(sensors))
	for _, sensor := range sensors {
		ids = append(ids, sensor.ID())
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) registerValue(deviceID string, field int) uint16 {
	reading, ok := s.source.LatestReading(deviceID)

	switch field {
	case 0:
		if !ok {
			return ValueUnavailable
		}
		return valueMillimeters(reading)
	case 1:
		if !ok {
			return ValueUnavailable
		}
		seconds := (time.Now().UnixNano()/int64(time.Millisecond) - reading.Timestamp) / 1000
		if seconds < 0 {
			seconds = 0
		}
		if seconds >= ValueUnavailable {
			seconds = ValueUnavailable - 1
		}
		return uint16(seconds)
	case 2:
		if !ok {
			return QualityNoReading
		}
		switch reading.Quality {
		case types.QualityGood:
			return QualityGood
		case types.QualityUncertain:
			return QualityUncertain
		default:
			return QualityBad
		}
	default:
		return s.configuredFlag(deviceID)
	}
}

// valueMillimeters converts a reading to millimeters, clamped to the
// register range. Negative values are the drivers' unavailable sentinel.
func valueMillimeters(reading types.Reading) uint16 {
	value, ok := reading.Value.(float64)
	if !ok {
		return ValueUnavailable
	}

	switch reading.Unit {
	case "m":
		value *= 1000
	case "cm":
		value *= 10
	}

	if value < 0 {
		return ValueUnavailable
	}
	if value >= ValueUnavailable {
		return ValueUnavailable - 1
	}
	return uint16(value)
}

func (s *Server) configuredFlag(deviceID string) uint16 {
	dev, err := s.registry.GetDevice(deviceID)
	if err != nil {
		return 0
	}

	reporter, ok := dev.(types.StatusReporter)
	if !ok {
		return 1
	}
	if reporter.Status().Configured {
		return 1
	}
	return 0
}
