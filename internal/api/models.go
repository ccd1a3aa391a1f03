// Package api exposes the device registry over a local HTTP interface.
// It serves live and cached readings, device status and control endpoints
// for the web dashboard and for field diagnostics.
package api

import (
	"owipex_ultrasonic/internal/types"
)

// ApiResponse is the envelope for all API responses.
type ApiResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// DeviceSummary describes a device in list responses. Type is the
// configured device type (e.g. "ultrasonic"), Category the coarse
// classification (e.g. "SENSOR").
type DeviceSummary struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	Type              string   `json:"type,omitempty"`
	Enabled           bool     `json:"enabled"`
	AvailableReadings []string `json:"available_readings,omitempty"`
}

// ReadingResponse is the JSON representation of a sensor reading.
type ReadingResponse struct {
	DeviceID  string                 `json:"device_id"`
	Type      string                 `json:"type"`
	Value     interface{}            `json:"value"`
	Unit      string                 `json:"unit,omitempty"`
	Quality   string                 `json:"quality"`
	Timestamp int64                  `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// CommandRequest is the body of a device command.
type CommandRequest struct {
	Type       string                 `json:"type" binding:"required"`
	Value      interface{}            `json:"value"`
	Parameters map[string]interface{} `json:"parameters"`
}

// EnableRequest is the body of an enable/disable request.
type EnableRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func newDeviceSummary(dev types.Device) DeviceSummary {
	summary := DeviceSummary{
		ID:       dev.ID(),
		Name:     dev.Name(),
		Category: string(dev.Type()),
		Enabled:  dev.IsEnabled(),
	}

	if t, ok := dev.Metadata()["device_type"].(string); ok {
		summary.Type = t
	}

	if readable, ok := dev.(types.ReadableDevice); ok {
		for _, readingType := range readable.AvailableReadings() {
			summary.AvailableReadings = append(summary.AvailableReadings, string(readingType))
		}
	}

	return summary
}

func newReadingResponse(deviceID string, reading types.Reading) ReadingResponse {
	return ReadingResponse{
		DeviceID:  deviceID,
		Type:      string(reading.Type),
		Value:     reading.Value,
		Unit:      reading.Unit,
		Quality:   string(reading.Quality),
		Timestamp: reading.Timestamp,
		Metadata:  reading.Metadata,
	}
}
