package api

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"owipex_ultrasonic/internal/types"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data: map[string]interface{}{
			"devices":        len(s.registry.GetAllDevices()),
			"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		},
	})
}

func (s *Server) handleListDevices(c *gin.Context) {
	devices := s.registry.GetAllDevices()

	summaries := make([]DeviceSummary, 0, len(devices))
	for _, dev := range devices {
		summaries = append(summaries, newDeviceSummary(dev))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })

	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data:   summaries,
	})
}

func (s *Server) handleGetDevice(c *gin.Context) {
	id := c.Param("id")

	dev, err := s.registry.GetDevice(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s not found", id),
		})
		return
	}

	data := map[string]interface{}{
		"device":   newDeviceSummary(dev),
		"metadata": dev.Metadata(),
	}
	if reporter, ok := dev.(types.StatusReporter); ok {
		data["status"] = reporter.Status()
	}

	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data:   data,
	})
}

func (s *Server) handleReadDevice(c *gin.Context) {
	id := c.Param("id")

	if _, err := s.registry.GetDevice(id); err != nil {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s not found", id),
		})
		return
	}

	reading, err := s.manager.ReadNow(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("failed to read device %s: %v", id, err),
		})
		return
	}

	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data:   newReadingResponse(id, reading),
	})
}

func (s *Server) handleLatestReading(c *gin.Context) {
	id := c.Param("id")

	if _, err := s.registry.GetDevice(id); err != nil {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s not found", id),
		})
		return
	}

	reading, ok := s.manager.LatestReading(id)
	if !ok {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("no reading available yet for device %s", id),
		})
		return
	}

	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data:   newReadingResponse(id, reading),
	})
}

func (s *Server) handleDeviceStatus(c *gin.Context) {
	id := c.Param("id")

	dev, err := s.registry.GetDevice(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s not found", id),
		})
		return
	}

	reporter, ok := dev.(types.StatusReporter)
	if !ok {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s does not report status", id),
		})
		return
	}

	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data:   reporter.Status(),
	})
}

func (s *Server) handleGeometries(c *gin.Context) {
	id := c.Param("id")

	dev, err := s.registry.GetDevice(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s not found", id),
		})
		return
	}

	localizable, ok := dev.(types.Localizable)
	if !ok {
		c.JSON(http.StatusBadRequest, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s does not provide geometry information", id),
		})
		return
	}

	geometries, err := localizable.Geometries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("failed to read geometries of device %s: %v", id, err),
		})
		return
	}

	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data:   geometries,
	})
}

func (s *Server) handleCommand(c *gin.Context) {
	id := c.Param("id")

	dev, err := s.registry.GetDevice(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s not found", id),
		})
		return
	}

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ApiResponse{
			Status: "error",
			Error:  "invalid command request: " + err.Error(),
		})
		return
	}

	writable, ok := dev.(types.WritableDevice)
	if !ok {
		c.JSON(http.StatusBadRequest, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s does not support commands", id),
		})
		return
	}

	command := types.Command{
		Type:       types.CommandType(req.Type),
		Value:      req.Value,
		Parameters: req.Parameters,
	}
	if err := writable.Write(c.Request.Context(), command); err != nil {
		c.JSON(http.StatusInternalServerError, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("command failed on device %s: %v", id, err),
		})
		return
	}

	c.JSON(http.StatusOK, ApiResponse{
		Status:  "success",
		Message: fmt.Sprintf("command %s sent to device %s", req.Type, id),
	})
}

func (s *Server) handleEnable(c *gin.Context) {
	id := c.Param("id")

	dev, err := s.registry.GetDevice(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("device %s not found", id),
		})
		return
	}

	var req EnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ApiResponse{
			Status: "error",
			Error:  "invalid enable request: " + err.Error(),
		})
		return
	}

	dev.Enable(*req.Enabled)
	s.registry.NotifyUpdated(id)

	state := "disabled"
	if *req.Enabled {
		state = "enabled"
	}

	c.JSON(http.StatusOK, ApiResponse{
		Status:  "success",
		Message: fmt.Sprintf("device %s %s", id, state),
	})
}
