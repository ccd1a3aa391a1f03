package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"owipex_ultrasonic/internal/api"
	"owipex_ultrasonic/internal/config"
	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/device/creator"
	"owipex_ultrasonic/internal/gateway"
	"owipex_ultrasonic/internal/manager"
	"owipex_ultrasonic/internal/platform/board"
	"owipex_ultrasonic/internal/telemetry"
)

// defaultConfigPath is relative to the binary's execution directory.
const defaultConfigPath = "config/app.json"

func main() {
	logger := log.New(os.Stdout, "[MainApp] ", log.LstdFlags)
	logger.Println("Starting Owipex Ultrasonic Service (Go Version)...")

	configPath := flag.String("config", defaultConfigPath, "Path to the application configuration file")
	flag.Parse()

	appCfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load application configuration from %s: %v", *configPath, err)
	}

	// GPIO setup. Development hosts without the Raspberry Pi header run
	// with the simulated driver so the rest of the service stays usable;
	// sensors then report echo timeouts instead of distances.
	var gpioBoard *board.Board
	if appCfg.GPIO.Disabled {
		logger.Println("GPIO disabled by configuration, using simulated pin driver")
		gpioBoard = board.NewBoard("local", board.NewFakeDriver())
	} else {
		driver, err := board.NewRPIODriver()
		if err != nil {
			logger.Fatalf("Failed to initialize GPIO via /dev/gpiomem: %v. Set gpio.disabled=true on hosts without the header.", err)
		}
		gpioBoard = board.NewBoard("local", driver)
	}
	board.SetDefault(gpioBoard)

	factory := device.NewFactory()
	creator.RegisterAllSensorTypes(factory)
	factory.RegisterResource(gpioBoard.Name(), gpioBoard)

	registry := device.NewRegistry()

	deviceConfigs, err := device.LoadDeviceConfigs(appCfg.DevicesDir)
	if err != nil {
		logger.Fatalf("Failed to load device configurations from %s: %v", appCfg.DevicesDir, err)
	}

	devices, createErrors := factory.CreateAndRegisterDevices(deviceConfigs, registry)
	for _, createErr := range createErrors {
		logger.Printf("Warning: %v", createErr)
	}
	logger.Printf("Registered %d device(s) from %s", len(devices), appCfg.DevicesDir)

	// Channel for SensorManager to hand readings to the ThingsBoard client
	dataToThingsBoardChan := make(chan map[string]interface{}, 100)

	sensorMgr := manager.NewSensorManager(registry, dataToThingsBoardChan)
	sensorMgr.SetDefaultInterval(time.Duration(appCfg.ReadIntervalSeconds) * time.Second)

	var tbClient *telemetry.Client
	if appCfg.ThingsBoard.Enabled && appCfg.ThingsBoard.AccessToken != "" {
		tbClient = telemetry.NewClient(appCfg.ThingsBoard, dataToThingsBoardChan)

		// Shared attributes steer the read scheduling at runtime.
		tbClient.SetAttributeCallback(func(attributes map[string]interface{}) {
			logger.Printf("Received shared attributes update: %v", attributes)

			if raw, ok := attributes["read_interval_seconds"]; ok {
				if seconds, ok := raw.(float64); ok && seconds > 0 {
					logger.Printf("Changing default read interval to %.0f seconds", seconds)
					sensorMgr.SetDefaultInterval(time.Duration(seconds * float64(time.Second)))
				}
			}

			if raw, ok := attributes["read_timeout_seconds"]; ok {
				if seconds, ok := raw.(float64); ok && seconds > 0 {
					logger.Printf("Changing read timeout to %.0f seconds", seconds)
					sensorMgr.SetReadTimeout(time.Duration(seconds * float64(time.Second)))
				}
			}
		})

		tbClient.SetRPCCallback(func(method string, params map[string]interface{}) (interface{}, error) {
			logger.Printf("Received RPC call: method=%s, params=%v", method, params)

			switch method {
			case "readNow":
				deviceID, ok := params["device"].(string)
				if !ok || deviceID == "" {
					return nil, fmt.Errorf("readNow requires a 'device' parameter")
				}
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				reading, err := sensorMgr.ReadNow(ctx, deviceID)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{
					"device":    deviceID,
					"value":     reading.Value,
					"unit":      reading.Unit,
					"timestamp": reading.Timestamp,
				}, nil
			case "setReadInterval":
				seconds, ok := params["seconds"].(float64)
				if !ok || seconds <= 0 {
					return nil, fmt.Errorf("setReadInterval requires a positive 'seconds' parameter")
				}
				interval := time.Duration(seconds * float64(time.Second))
				if deviceID, ok := params["device"].(string); ok && deviceID != "" {
					sensorMgr.SetReadInterval(deviceID, interval)
				} else {
					sensorMgr.SetDefaultInterval(interval)
				}
				return map[string]interface{}{"success": true}, nil
			default:
				return nil, fmt.Errorf("unknown RPC method: %s", method)
			}
		})

		if err := tbClient.Connect(); err != nil {
			logger.Printf("Warning: Failed to connect to ThingsBoard: %v. Check access token and server details in /etc/owipex/ultrasonic.env. Proceeding with application start, MQTT will attempt to reconnect.", err)
		}
	} else {
		logger.Println("ThingsBoard telemetry disabled (no access token configured)")
	}

	// Start services
	sensorMgr.Start()
	if tbClient != nil {
		tbClient.Start()
	}

	var apiServer *api.Server
	if appCfg.API.Enabled {
		apiServer = api.NewServer(registry, sensorMgr)
		apiServer.Start(appCfg.API.Listen)
	}

	var gatewayServer *gateway.Server
	if appCfg.Gateway.Enabled {
		gatewayServer = gateway.NewServer(registry, sensorMgr, appCfg.Gateway.UnitID)
		if err := gatewayServer.Start(appCfg.Gateway.Listen); err != nil {
			logger.Printf("Warning: Failed to start Modbus gateway on %s: %v", appCfg.Gateway.Listen, err)
			gatewayServer = nil
		}
	}

	logger.Println("Application started. Press Ctrl+C to exit.")

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Println("Shutdown signal received. Stopping services...")

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Printf("Warning: API shutdown: %v", err)
		}
		cancel()
	}
	if gatewayServer != nil {
		if err := gatewayServer.Stop(); err != nil {
			logger.Printf("Warning: Gateway shutdown: %v", err)
		}
	}
	if tbClient != nil {
		tbClient.Stop()
	}
	sensorMgr.Stop()
	registry.Close()
	if err := gpioBoard.Close(); err != nil {
		logger.Printf("Warning: GPIO shutdown: %v", err)
	}

	// Allow some time for graceful shutdown
	time.Sleep(2 * time.Second)
	logger.Println("Application shut down gracefully.")
}
