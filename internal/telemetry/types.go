// Package telemetry implementiert den MQTT-Client für die ThingsBoard
// IoT-Plattform. Er veröffentlicht Messwerte der Sensoren und nimmt
// Attribut-Updates sowie RPC-Anfragen der Plattform entgegen.
package telemetry

import (
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"owipex_ultrasonic/internal/config"
)

// Client ist die Hauptschnittstelle für die ThingsBoard-Kommunikation.
type Client struct {
	Logger *log.Logger
	Config config.ThingsBoardConfig

	mqttClient mqtt.Client
	stopChan   chan struct{}
	dataChan   <-chan map[string]interface{}

	// Lokale Caches
	sharedAttributes map[string]interface{}
	clientAttributes map[string]interface{}
	deviceInfo       map[string]interface{}

	// Verwaltung für asynchrone Anfragen
	pendingRequests map[string]chan interface{}
	nextRequestID   int64

	// Callback-Funktionen
	attributeCallback AttrUpdateCallback
	rpcCallback       RPCCallback

	*threadSafety
}

// threadSafety kapselt alle Mutex, die der Client verwendet
type threadSafety struct {
	AttributesMutex sync.RWMutex
	DeviceInfoMutex sync.RWMutex
	RequestIDMutex  sync.Mutex
}

// Callback-Typen für verschiedene Events
type AttrUpdateCallback func(map[string]interface{})
type RPCCallback func(string, map[string]interface{}) (interface{}, error)

// ClientOption ist ein Funktionstyp für das Options-Pattern des Clients
type ClientOption func(*Client)
