// Package device implementiert eine Factory für die Erstellung von Geräten
// und die Auflösung ihrer Abhängigkeiten.
package device

import (
	"fmt"
	"log"
	"os"
	"sync"

	"owipex_ultrasonic/internal/types"
)

// DeviceValidator prüft eine Konfiguration vor der Erstellung und gibt
// die Namen der impliziten Abhängigkeiten zurück, die der Gerätetyp
// aufgelöst haben möchte. Ein Validierungsfehler ist fatal für die
// Erstellung; es wird kein Gerät gebaut.
type DeviceValidator func(config types.DeviceConfig) ([]string, error)

// DeviceCreator erstellt ein Gerät aus einer Konfiguration und den
// aufgelösten Abhängigkeiten.
type DeviceCreator func(config types.DeviceConfig, deps types.Dependencies) (types.Device, error)

type factoryEntry struct {
	validate DeviceValidator
	create   DeviceCreator
}

// metadataSetter wird von Geräten implementiert, deren Metadaten die
// Factory nach der Erstellung ergänzen kann
type metadataSetter interface {
	SetMetadata(key string, value interface{})
}

// Factory erstellt Geräte basierend auf ihrer Konfiguration. Benannte
// Ressourcen (z.B. Boards) werden vor dem Laden registriert und den
// Geräten als Abhängigkeiten übergeben.
type Factory struct {
	entries   map[string]factoryEntry
	resources map[string]interface{}
	mutex     sync.RWMutex
	logger    *log.Logger
}

// NewFactory erstellt eine neue Gerätefabrik
func NewFactory() *Factory {
	return &Factory{
		entries:   make(map[string]factoryEntry),
		resources: make(map[string]interface{}),
		logger:    log.New(os.Stdout, "[DeviceFactory] ", log.LstdFlags),
	}
}

// RegisterCreator registriert Validator und Creator für einen Gerätetyp.
// Der Validator darf nil sein, wenn der Typ keine Abhängigkeiten kennt.
func (f *Factory) RegisterCreator(deviceType string, validate DeviceValidator, create DeviceCreator) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.entries[deviceType] = factoryEntry{validate: validate, create: create}
}

// RegisterResource stellt eine benannte Ressource für die
// Abhängigkeitsauflösung bereit.
func (f *Factory) RegisterResource(name string, resource interface{}) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.resources[name] = resource
}

// ResolveDependencies löst die angefragten Namen gegen die registrierten
// Ressourcen auf. Nicht vorhandene Namen fehlen in der Antwort; ob das
// fatal ist, entscheidet der jeweilige Gerätetyp.
func (f *Factory) ResolveDependencies(names []string) types.Dependencies {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	deps := make(types.Dependencies, len(names))
	for _, name := range names {
		if resource, ok := f.resources[name]; ok {
			deps[name] = resource
		} else {
			f.logger.Printf("Abhängigkeit %q ist nicht registriert", name)
		}
	}
	return deps
}

// CreateDevice validiert die Konfiguration, löst die Abhängigkeiten auf
// und erstellt das Gerät.
func (f *Factory) CreateDevice(config types.DeviceConfig) (types.Device, error) {
	f.mutex.RLock()
	entry, exists := f.entries[config.Type]
	f.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("kein Creator für Gerätetyp '%s' registriert", config.Type)
	}

	var depNames []string
	if entry.validate != nil {
		names, err := entry.validate(config)
		if err != nil {
			return nil, fmt.Errorf("ungültige Konfiguration für Gerät '%s': %w", config.ID, err)
		}
		depNames = names
	}

	dev, err := entry.create(config, f.ResolveDependencies(depNames))
	if err != nil {
		return nil, err
	}

	if decorated, ok := dev.(metadataSetter); ok {
		decorated.SetMetadata("device_type", config.Type)
		if config.Manufacturer != "" {
			decorated.SetMetadata("manufacturer", config.Manufacturer)
		}
		if config.Model != "" {
			decorated.SetMetadata("model", config.Model)
		}
	}

	return dev, nil
}

// CreateDevices erstellt mehrere Geräte aus einem Array von Konfigurationen
func (f *Factory) CreateDevices(configs []types.DeviceConfig) ([]types.Device, []error) {
	var devices []types.Device
	var errors []error

	for _, config := range configs {
		device, err := f.CreateDevice(config)
		if err != nil {
			errors = append(errors, fmt.Errorf("fehler beim Erstellen von Gerät '%s': %w", config.ID, err))
			continue
		}

		devices = append(devices, device)
	}

	return devices, errors
}

// CreateAndRegisterDevices erstellt Geräte und registriert sie in der Registry.
// Deaktivierte Geräte werden übersprungen.
func (f *Factory) CreateAndRegisterDevices(configs []types.DeviceConfig, registry *Registry) ([]types.Device, []error) {
	var devices []types.Device
	var errors []error

	for _, config := range configs {
		if !config.Enabled {
			f.logger.Printf("Überspringe deaktiviertes Gerät: %s (Typ: %s)", config.ID, config.Type)
			continue
		}

		device, err := f.CreateDevice(config)
		if err != nil {
			errors = append(errors, fmt.Errorf("fehler beim Erstellen von Gerät '%s': %w", config.ID, err))
			continue
		}

		if err := registry.AddDevice(device); err != nil {
			errors = append(errors, fmt.Errorf("fehler beim Registrieren von Gerät '%s': %w", config.ID, err))
			continue
		}

		devices = append(devices, device)
	}

	return devices, errors
}
