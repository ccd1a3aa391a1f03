package manager

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/types"
)

// Default timings for the polling loop.
const (
	DefaultReadInterval = 15 * time.Second
	DefaultReadTimeout  = 5 * time.Second
	DefaultBusDebounce  = 500 * time.Millisecond
)

// SensorManager polls all registered sensors on their configured intervals
// and forwards the results to the telemetry channel. Reads for different
// sensors run concurrently, but access to the shared serial bus is
// serialized with a debounce between transactions.
type SensorManager struct {
	registry      *device.Registry
	telemetryChan chan map[string]interface{}
	logger        *log.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup

	scheduleMutex sync.Mutex
	intervals     map[string]time.Duration
	lastRead      map[string]time.Time
	inFlight      map[string]bool
	readInterval  time.Duration
	readTimeout   time.Duration

	busLock      sync.Mutex
	lastCommTime time.Time
	debounceTime time.Duration

	latestMutex sync.RWMutex
	latest      map[string]types.Reading
}

// NewSensorManager creates a manager for the given registry. Formatted
// readings are published to telemetryChan; pass nil to disable publishing.
func NewSensorManager(registry *device.Registry, telemetryChan chan map[string]interface{}) *SensorManager {
	return &SensorManager{
		registry:      registry,
		telemetryChan: telemetryChan,
		logger:        log.New(os.Stdout, "[SensorManager] ", log.LstdFlags),
		stopChan:      make(chan struct{}),
		intervals:     make(map[string]time.Duration),
		lastRead:      make(map[string]time.Time),
		inFlight:      make(map[string]bool),
		readInterval:  DefaultReadInterval,
		readTimeout:   DefaultReadTimeout,
		debounceTime:  DefaultBusDebounce,
		latest:        make(map[string]types.Reading),
	}
}

// SetDefaultInterval overrides the poll interval for sensors without an
// explicit per-sensor interval.
func (sm *SensorManager) SetDefaultInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}

	sm.scheduleMutex.Lock()
	sm.readInterval = interval
	sm.scheduleMutex.Unlock()
}

// SetReadInterval sets the poll interval for a single sensor.
func (sm *SensorManager) SetReadInterval(deviceID string, interval time.Duration) {
	if interval <= 0 {
		return
	}

	sm.scheduleMutex.Lock()
	sm.intervals[deviceID] = interval
	sm.scheduleMutex.Unlock()
}

// SetReadTimeout sets the per-read timeout.
func (sm *SensorManager) SetReadTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}

	sm.scheduleMutex.Lock()
	sm.readTimeout = timeout
	sm.scheduleMutex.Unlock()
}

// SetBusDebounce sets the quiet period between bus transactions.
func (sm *SensorManager) SetBusDebounce(debounce time.Duration) {
	sm.busLock.Lock()
	sm.debounceTime = debounce
	sm.busLock.Unlock()
}

// Start launches the polling loop.
func (sm *SensorManager) Start() {
	sm.logger.Println("Starting sensor manager...")

	sm.wg.Add(1)
	go sm.run()

	sm.logger.Println("Sensor manager started")
}

// Stop terminates the polling loop and waits for in-flight reads.
func (sm *SensorManager) Stop() {
	sm.logger.Println("Stopping sensor manager...")

	close(sm.stopChan)
	sm.wg.Wait()

	sm.logger.Println("Sensor manager stopped")
}

func (sm *SensorManager) run() {
	defer sm.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stopChan:
			return
		case <-ticker.C:
			sm.pollDue()
		}
	}
}

// pollDue starts a read for every enabled sensor whose interval has
// elapsed, one goroutine per sensor.
func (sm *SensorManager) pollDue() {
	for _, s := range sm.registry.GetSensors() {
		if !s.IsEnabled() {
			continue
		}
		if !sm.claim(s) {
			continue
		}

		sm.wg.Add(1)
		go sm.readSensor(s)
	}
}

// claim marks a sensor as in flight. It returns false when the sensor is
// not due yet or a previous read is still running.
func (sm *SensorManager) claim(s types.Sensor) bool {
	sm.scheduleMutex.Lock()
	defer sm.scheduleMutex.Unlock()

	if sm.inFlight[s.ID()] {
		return false
	}
	if time.Since(sm.lastRead[s.ID()]) < sm.intervalFor(s) {
		return false
	}

	sm.inFlight[s.ID()] = true
	return true
}

// intervalFor resolves the poll interval for a sensor. Explicit overrides
// win over the read_interval_seconds metadata entry. The caller must hold
// scheduleMutex.
func (sm *SensorManager) intervalFor(s types.Sensor) time.Duration {
	if interval, ok := sm.intervals[s.ID()]; ok {
		return interval
	}

	switch v := s.Metadata()["read_interval_seconds"].(type) {
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	}

	return sm.readInterval
}

// release records the read time and clears the in-flight marker.
func (sm *SensorManager) release(deviceID string) {
	sm.scheduleMutex.Lock()
	sm.lastRead[deviceID] = time.Now()
	sm.inFlight[deviceID] = false
	sm.scheduleMutex.Unlock()
}

func (sm *SensorManager) readSensor(s types.Sensor) {
	defer sm.wg.Done()
	defer sm.release(s.ID())

	sm.waitForBus()

	sm.scheduleMutex.Lock()
	timeout := sm.readTimeout
	sm.scheduleMutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reading, err := s.Read(ctx)
	if err != nil {
		sm.logger.Printf("Error reading sensor %s: %v", s.ID(), err)
		sm.publish(map[string]interface{}{
			fmt.Sprintf("%s_error", s.ID()): err.Error(),
		})
		return
	}

	sm.storeLatest(s.ID(), reading)
	sm.publish(sm.formatTelemetry(s, reading))
}

// ReadNow reads a sensor immediately, outside its regular schedule. The
// reading is stored and published like a scheduled one.
func (sm *SensorManager) ReadNow(ctx context.Context, deviceID string) (types.Reading, error) {
	dev, err := sm.registry.GetDevice(deviceID)
	if err != nil {
		return types.Reading{}, err
	}

	s, ok := dev.(types.Sensor)
	if !ok {
		return types.Reading{}, fmt.Errorf("device '%s' is not a readable sensor", deviceID)
	}

	sm.waitForBus()

	reading, err := s.Read(ctx)
	sm.release(deviceID)
	if err != nil {
		return types.Reading{}, fmt.Errorf("failed to read sensor '%s': %w", deviceID, err)
	}

	sm.storeLatest(deviceID, reading)
	sm.publish(sm.formatTelemetry(s, reading))

	return reading, nil
}

// waitForBus enforces a quiet period between transactions. The RS485
// sensors share one bus and need time between requests.
func (sm *SensorManager) waitForBus() {
	sm.busLock.Lock()
	defer sm.busLock.Unlock()

	if elapsed := time.Since(sm.lastCommTime); elapsed < sm.debounceTime {
		time.Sleep(sm.debounceTime - elapsed)
	}
	sm.lastCommTime = time.Now()
}

// publish forwards a payload to the telemetry channel without blocking
// the read goroutine.
func (sm *SensorManager) publish(payload map[string]interface{}) {
	if sm.telemetryChan == nil {
		return
	}

	select {
	case sm.telemetryChan <- payload:
	default:
		sm.logger.Println("Telemetry channel full, dropping payload")
	}
}

func (sm *SensorManager) storeLatest(deviceID string, reading types.Reading) {
	sm.latestMutex.Lock()
	sm.latest[deviceID] = reading
	sm.latestMutex.Unlock()
}

// LatestReading returns the most recent successful reading of a sensor.
func (sm *SensorManager) LatestReading(deviceID string) (types.Reading, bool) {
	sm.latestMutex.RLock()
	defer sm.latestMutex.RUnlock()

	reading, ok := sm.latest[deviceID]
	return reading, ok
}

// LatestReadings returns a copy of the most recent readings of all sensors.
func (sm *SensorManager) LatestReadings() map[string]types.Reading {
	sm.latestMutex.RLock()
	defer sm.latestMutex.RUnlock()

	readings := make(map[string]types.Reading, len(sm.latest))
	for id, reading := range sm.latest {
		readings[id] = reading
	}
	return readings
}

// formatTelemetry builds the two payload variants consumed by the
// telemetry client: a flat key/value map and a structured document.
func (sm *SensorManager) formatTelemetry(dev types.Device, reading types.Reading) map[string]interface{} {
	readingName := strings.ToLower(string(reading.Type))

	simplePayload := map[string]interface{}{
		fmt.Sprintf("%s_%s", dev.ID(), readingName): reading.Value,
	}
	for key, value := range reading.Metadata {
		simplePayload[fmt.Sprintf("%s_%s", dev.ID(), key)] = value
	}

	measurements := map[string]interface{}{
		readingName: reading.Value,
	}
	if reading.Unit != "" {
		measurements[readingName+"_unit"] = reading.Unit
	}
	for key, value := range reading.Metadata {
		measurements[key] = value
	}

	metadata := dev.Metadata()
	deviceType := string(dev.Type())
	if t, ok := metadata["device_type"].(string); ok {
		deviceType = t
	}

	info := map[string]interface{}{
		"name":      dev.Name(),
		"type":      deviceType,
		"device_id": dev.ID(),
	}
	if location, ok := metadata["location"].(string); ok {
		info["location"] = location
	}

	jsonPayload := map[string]interface{}{
		fmt.Sprintf("%s_data", dev.ID()): map[string]interface{}{
			"info":         info,
			"measurements": measurements,
			"quality":      string(reading.Quality),
			"timestamp":    reading.Timestamp,
			"status":       "active",
		},
	}

	return map[string]interface{}{
		"simple": simplePayload,
		"json":   jsonPayload,
	}
}
