package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simonvetter/modbus"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/types"
)

type fakeSensor struct {
	id         string
	configured bool
}

func (f *fakeSensor) ID() string                       { return f.id }
func (f *fakeSensor) Name() string                     { return "Sensor " + f.id }
func (f *fakeSensor) Type() types.DeviceType           { return types.TypeSensor }
func (f *fakeSensor) Metadata() map[string]interface{} { return nil }
func (f *fakeSensor) IsEnabled() bool                  { return true }
func (f *fakeSensor) Enable(enabled bool)              {}
func (f *fakeSensor) Close() error                     { return nil }

func (f *fakeSensor) Read(ctx context.Context) (types.Reading, error) {
	return types.Reading{}, errors.New("not used")
}

func (f *fakeSensor) ReadRaw(ctx context.Context) ([]byte, error) { return nil, nil }

func (f *fakeSensor) AvailableReadings() []types.ReadingType {
	return []types.ReadingType{types.ReadingTypeDistance}
}

func (f *fakeSensor) GetCalibration() map[string]interface{} { return nil }

func (f *fakeSensor) SetCalibration(calibration map[string]interface{}) error { return nil }

func (f *fakeSensor) Status() types.DeviceStatus {
	return types.DeviceStatus{Configured: f.configured}
}

type fakeSource map[string]types.Reading

func (f fakeSource) LatestReading(deviceID string) (types.Reading, bool) {
	reading, ok := f[deviceID]
	return reading, ok
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

func reading(value float64, unit string, quality types.ReadingQuality, ageSeconds int64) types.Reading {
	return types.Reading{
		Type:      types.ReadingTypeDistance,
		Value:     value,
		Unit:      unit,
		Timestamp: nowMillis() - ageSeconds*1000,
		Quality:   quality,
	}
}

func newTestGateway(t *testing.T, source ReadingSource, sensors ...*fakeSensor) *Server {
	t.Helper()

	registry := device.NewRegistry()
	t.Cleanup(func() { registry.Close() })

	for _, s := range sensors {
		if err := registry.AddDevice(s); err != nil {
			t.Fatalf("Failed to add device: %v", err)
		}
	}

	return NewServer(registry, source, 1)
}

func TestInputRegistersLayout(t *testing.T) {
	source := fakeSource{
		"tank1": reading(1.25, "m", types.QualityGood, 5),
	}
	gw := newTestGateway(t, source,
		&fakeSensor{id: "tank1", configured: true},
		&fakeSensor{id: "tank2", configured: true},
	)

	res, err := gw.HandleInputRegisters(&modbus.InputRegistersRequest{
		UnitId:   1,
		Addr:     0,
		Quantity: 8,
	})
	if err != nil {
		t.Fatalf("Failed to read input registers: %v", err)
	}
	if len(res) != 8 {
		t.Fatalf("Expected 8 registers, got %d", len(res))
	}

	// tank1: 1.25 m -> 1250 mm, 5 seconds old, good, configured.
	if res[0] != 1250 {
		t.Errorf("Expected value register 1250, got %d", res[0])
	}
	if res[1] != 5 {
		t.Errorf("Expected age register 5, got %d", res[1])
	}
	if res[2] != QualityGood {
		t.Errorf("Expected quality register %d, got %d", QualityGood, res[2])
	}
	if res[3] != 1 {
		t.Errorf("Expected configured register 1, got %d", res[3])
	}

	// tank2 has no reading yet.
	if res[4] != ValueUnavailable {
		t.Errorf("Expected unavailable value register, got %d", res[4])
	}
	if res[5] != ValueUnavailable {
		t.Errorf("Expected unavailable age register, got %d", res[5])
	}
	if res[6] != QualityNoReading {
		t.Errorf("Expected no-reading quality, got %d", res[6])
	}
	if res[7] != 1 {
		t.Errorf("Expected configured register 1, got %d", res[7])
	}
}

func TestSentinelReadingMapsToUnavailable(t *testing.T) {
	source := fakeSource{
		"tank1": reading(-1.0, "m", types.QualityBad, 0),
	}
	gw := newTestGateway(t, source, &fakeSensor{id: "tank1", configured: true})

	res, err := gw.HandleInputRegisters(&modbus.InputRegistersRequest{
		UnitId:   1,
		Addr:     0,
		Quantity: 3,
	})
	if err != nil {
		t.Fatalf("Failed to read input registers: %v", err)
	}

	if res[0] != ValueUnavailable {
		t.Errorf("Expected unavailable value for sentinel reading, got %d", res[0])
	}
	if res[2] != QualityBad {
		t.Errorf("Expected bad quality, got %d", res[2])
	}
}

func TestValueClamping(t *testing.T) {
	source := fakeSource{
		"tank1": reading(70.0, "m", types.QualityGood, 0),
		"tank2": reading(500.0, "mm", types.QualityGood, 0),
	}
	gw := newTestGateway(t, source,
		&fakeSensor{id: "tank1", configured: true},
		&fakeSensor{id: "tank2", configured: true},
	)

	res, err := gw.HandleInputRegisters(&modbus.InputRegistersRequest{
		UnitId:   1,
		Addr:     0,
		Quantity: 5,
	})
	if err != nil {
		t.Fatalf("Failed to read input registers: %v", err)
	}

	if res[0] != ValueUnavailable-1 {
		t.Errorf("Expected clamped value %d, got %d", ValueUnavailable-1, res[0])
	}
	if res[4] != 500 {
		t.Errorf("Expected 500 mm unchanged, got %d", res[4])
	}
}

func TestUnconfiguredSensorFlag(t *testing.T) {
	gw := newTestGateway(t, fakeSource{}, &fakeSensor{id: "tank1", configured: false})

	res, err := gw.HandleInputRegisters(&modbus.InputRegistersRequest{
		UnitId:   1,
		Addr:     3,
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("Failed to read input registers: %v", err)
	}
	if res[0] != 0 {
		t.Errorf("Expected configured register 0, got %d", res[0])
	}
}

func TestAddressBeyondMapIsRejected(t *testing.T) {
	gw := newTestGateway(t, fakeSource{}, &fakeSensor{id: "tank1", configured: true})

	_, err := gw.HandleInputRegisters(&modbus.InputRegistersRequest{
		UnitId:   1,
		Addr:     2,
		Quantity: 4,
	})
	if !errors.Is(err, modbus.ErrIllegalDataAddress) {
		t.Errorf("Expected illegal data address, got %v", err)
	}
}

func TestWrongUnitIsRejected(t *testing.T) {
	gw := newTestGateway(t, fakeSource{}, &fakeSensor{id: "tank1", configured: true})

	_, err := gw.HandleInputRegisters(&modbus.InputRegistersRequest{
		UnitId:   9,
		Addr:     0,
		Quantity: 1,
	})
	if !errors.Is(err, modbus.ErrIllegalFunction) {
		t.Errorf("Expected illegal function for wrong unit, got %v", err)
	}
}

func TestHoldingRegistersMirrorInput(t *testing.T) {
	source := fakeSource{
		"tank1": reading(0.5, "m", types.QualityGood, 0),
	}
	gw := newTestGateway(t, source, &fakeSensor{id: "tank1", configured: true})

	res, err := gw.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		UnitId:   1,
		Addr:     0,
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("Failed to read holding registers: %v", err)
	}
	if res[0] != 500 {
		t.Errorf("Expected 500, got %d", res[0])
	}
}

func TestWritesAreRejected(t *testing.T) {
	gw := newTestGateway(t, fakeSource{}, &fakeSensor{id: "tank1", configured: true})

	_, err := gw.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		UnitId:   1,
		Addr:     0,
		Quantity: 1,
		IsWrite:  true,
		Args:     []uint16{1},
	})
	if !errors.Is(err, modbus.ErrIllegalFunction) {
		t.Errorf("Expected illegal function for write, got %v", err)
	}

	if _, err := gw.HandleCoils(&modbus.CoilsRequest{UnitId: 1}); !errors.Is(err, modbus.ErrIllegalFunction) {
		t.Errorf("Expected illegal function for coils, got %v", err)
	}
	if _, err := gw.HandleDiscreteInputs(&modbus.DiscreteInputsRequest{UnitId: 1}); !errors.Is(err, modbus.ErrIllegalFunction) {
		t.Errorf("Expected illegal function for discrete inputs, got %v", err)
	}
}
