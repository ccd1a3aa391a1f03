package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/manager"
)

// Server serves the HTTP API on top of the device registry and the
// sensor manager.
type Server struct {
	registry  *device.Registry
	manager   *manager.SensorManager
	logger    *log.Logger
	startTime time.Time

	httpServer *http.Server
}

// NewServer creates an API server. The manager is used for live reads
// and cached readings.
func NewServer(registry *device.Registry, sensorManager *manager.SensorManager) *Server {
	return &Server{
		registry:  registry,
		manager:   sensorManager,
		logger:    log.New(os.Stdout, "[API] ", log.LstdFlags),
		startTime: time.Now(),
	}
}

// Router builds the gin engine with middleware and all routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.SetupRoutes(r)
	return r
}

// SetupRoutes registers all API routes on the given engine.
func (s *Server) SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		api.GET("/devices", s.handleListDevices)
		api.GET("/devices/:id", s.handleGetDevice)
		api.GET("/devices/:id/reading", s.handleReadDevice)
		api.GET("/devices/:id/reading/latest", s.handleLatestReading)
		api.GET("/devices/:id/status", s.handleDeviceStatus)
		api.GET("/devices/:id/geometries", s.handleGeometries)
		api.POST("/devices/:id/command", s.handleCommand)
		api.POST("/devices/:id/enable", s.handleEnable)
	}
}

// Start runs the HTTP server in the background.
func (s *Server) Start(listen string) {
	s.httpServer = &http.Server{
		Addr:    listen,
		Handler: s.Router(),
	}

	go func() {
		s.logger.Printf("HTTP API listening on %s", listen)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("HTTP server error: %v", err)
		}
	}()
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Println("Stopping HTTP API...")
	return s.httpServer.Shutdown(ctx)
}
