package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// GPIOConfig defines how the GPIO subsystem is initialized
type GPIOConfig struct {
	Disabled bool `json:"disabled"` // Skip GPIO init on machines without the memory-mapped interface
}

// ThingsBoardConfig defines the ThingsBoard MQTT connection parameters
type ThingsBoardConfig struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	AccessToken string `json:"access_token"`
}

// APIConfig defines the local HTTP API parameters
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
}

// GatewayConfig defines the Modbus TCP gateway parameters
type GatewayConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
	UnitID  uint8  `json:"unit_id"`
}

// AppConfig is the top-level configuration structure
type AppConfig struct {
	DevicesDir          string            `json:"devices_dir"`
	ReadIntervalSeconds int               `json:"read_interval_seconds"`
	GPIO                GPIOConfig        `json:"gpio_settings"`
	ThingsBoard         ThingsBoardConfig `json:"thingsboard_settings"`
	API                 APIConfig         `json:"api_settings"`
	Gateway             GatewayConfig     `json:"gateway_settings"`
	LogFilePath         string            `json:"log_file_path"`
}

// LoadAppConfig loads configuration from a JSON file and overrides with .env values
func LoadAppConfig(configFilePath string) (*AppConfig, error) {
	logger := log.New(os.Stdout, "[ConfigLoader] ", log.LstdFlags)

	// Default AppConfig
	appConfig := &AppConfig{
		DevicesDir:          "./config/devices",
		ReadIntervalSeconds: 15,
		ThingsBoard: ThingsBoardConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    1883,
		},
		API: APIConfig{
			Enabled: true,
			Listen:  ":8080",
		},
		Gateway: GatewayConfig{
			Enabled: false,
			Listen:  "0.0.0.0:1502",
			UnitID:  1,
		},
		LogFilePath: "/var/log/owipex/ultrasonic.log",
	}

	// Load from JSON config file if provided and exists
	if configFilePath != "" {
		data, err := ioutil.ReadFile(configFilePath)
		if err != nil {
			logger.Printf("Warning: Could not read JSON config file %s: %v. Using defaults and .env values.", configFilePath, err)
		} else {
			err = json.Unmarshal(data, appConfig)
			if err != nil {
				return nil, fmt.Errorf("error unmarshalling JSON config file %s: %w", configFilePath, err)
			}
			logger.Printf("Loaded configuration from JSON file: %s", configFilePath)
		}
	}

	// Override with .env file values
	envPath := "/etc/owipex/ultrasonic.env"
	if os.Getenv("ULTRASONIC_ENV_PATH") != "" {
		envPath = os.Getenv("ULTRASONIC_ENV_PATH")
	}

	err := godotenv.Load(envPath)
	if err != nil {
		logger.Printf("Warning: Could not load .env file from %s: %v. Using JSON or default values.", envPath, err)
	} else {
		logger.Printf("Successfully loaded .env file from %s", envPath)
	}

	if val := os.Getenv("DEVICES_DIR"); val != "" {
		appConfig.DevicesDir = val
		logger.Printf("ENV Override: DEVICES_DIR=%s", val)
	}
	if val := os.Getenv("READ_INTERVAL_SECONDS"); val != "" {
		interval, err := strconv.Atoi(val)
		if err != nil {
			logger.Printf("Warning: Could not parse READ_INTERVAL_SECONDS from env ('%s'): %v. Using value %d", val, err, appConfig.ReadIntervalSeconds)
		} else {
			appConfig.ReadIntervalSeconds = interval
			logger.Printf("ENV Override: READ_INTERVAL_SECONDS=%d", interval)
		}
	}
	if val := os.Getenv("GPIO_DISABLED"); val != "" {
		disabled, err := strconv.ParseBool(val)
		if err != nil {
			logger.Printf("Warning: Could not parse GPIO_DISABLED from env ('%s'): %v. Using value %t", val, err, appConfig.GPIO.Disabled)
		} else {
			appConfig.GPIO.Disabled = disabled
			logger.Printf("ENV Override: GPIO_DISABLED=%t", disabled)
		}
	}

	if val := os.Getenv("THINGSBOARD_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			logger.Printf("Warning: Could not parse THINGSBOARD_ENABLED from env ('%s'): %v. Using value %t", val, err, appConfig.ThingsBoard.Enabled)
		} else {
			appConfig.ThingsBoard.Enabled = enabled
			logger.Printf("ENV Override: THINGSBOARD_ENABLED=%t", enabled)
		}
	}
	if val := os.Getenv("THINGSBOARD_SERVER"); val != "" {
		appConfig.ThingsBoard.Host = val
		logger.Printf("ENV Override: THINGSBOARD_SERVER=%s", val)
	}
	if val := os.Getenv("THINGSBOARD_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			logger.Printf("Warning: Could not parse THINGSBOARD_PORT from env ('%s'): %v. Using value %d", val, err, appConfig.ThingsBoard.Port)
		} else {
			appConfig.ThingsBoard.Port = port
			logger.Printf("ENV Override: THINGSBOARD_PORT=%d", port)
		}
	}
	if val := os.Getenv("THINGSBOARD_ACCESS_TOKEN"); val != "" {
		appConfig.ThingsBoard.AccessToken = val
		logger.Printf("ENV Override: THINGSBOARD_ACCESS_TOKEN=(set)")
	}

	if val := os.Getenv("API_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			logger.Printf("Warning: Could not parse API_ENABLED from env ('%s'): %v. Using value %t", val, err, appConfig.API.Enabled)
		} else {
			appConfig.API.Enabled = enabled
			logger.Printf("ENV Override: API_ENABLED=%t", enabled)
		}
	}
	if val := os.Getenv("API_LISTEN"); val != "" {
		appConfig.API.Listen = val
		logger.Printf("ENV Override: API_LISTEN=%s", val)
	}

	if val := os.Getenv("GATEWAY_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			logger.Printf("Warning: Could not parse GATEWAY_ENABLED from env ('%s'): %v. Using value %t", val, err, appConfig.Gateway.Enabled)
		} else {
			appConfig.Gateway.Enabled = enabled
			logger.Printf("ENV Override: GATEWAY_ENABLED=%t", enabled)
		}
	}
	if val := os.Getenv("GATEWAY_LISTEN"); val != "" {
		appConfig.Gateway.Listen = val
		logger.Printf("ENV Override: GATEWAY_LISTEN=%s", val)
	}
	if val := os.Getenv("GATEWAY_UNIT_ID"); val != "" {
		unitID, err := strconv.Atoi(val)
		if err != nil || unitID < 0 || unitID > 255 {
			logger.Printf("Warning: Could not parse GATEWAY_UNIT_ID from env ('%s'): %v. Using value %d", val, err, appConfig.Gateway.UnitID)
		} else {
			appConfig.Gateway.UnitID = uint8(unitID)
			logger.Printf("ENV Override: GATEWAY_UNIT_ID=%d", unitID)
		}
	}

	logger.Printf("Final devices dir: %s", appConfig.DevicesDir)
	logger.Printf("Final ThingsBoard Config: host=%s port=%d enabled=%t", appConfig.ThingsBoard.Host, appConfig.ThingsBoard.Port, appConfig.ThingsBoard.Enabled)
	logger.Printf("Final API Config: %+v", appConfig.API)
	logger.Printf("Final Gateway Config: %+v", appConfig.Gateway)

	return appConfig, nil
}
