// Dieses Paket dient zum Testen der Ultraschall-Sensoren im Feld.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/device/creator"
	"owipex_ultrasonic/internal/modbus"
	"owipex_ultrasonic/internal/platform/board"
	"owipex_ultrasonic/internal/types"
)

func main() {
	// Kommandozeilenparameter definieren
	configDir := flag.String("config", "config/devices", "Pfad zum Gerätekonfigurationsverzeichnis")
	resolvePin := flag.String("resolve", "", "Löst eine Pin-Angabe in den kanonischen GPIO-Namen auf")
	listDevices := flag.Bool("list", false, "Lädt die Konfigurationen und listet die erstellten Geräte auf")
	deviceID := flag.String("device", "", "Liest den angegebenen Sensor in einer Schleife")
	count := flag.Int("count", 5, "Anzahl der Messungen für -device")
	interval := flag.Duration("interval", time.Second, "Pause zwischen den Messungen")
	useGPIO := flag.Bool("gpio", false, "Echte GPIO-Hardware verwenden statt des Simulations-Treibers")
	busURL := flag.String("bus", "", "Prüft einen Messumformer am RS485-Bus, z.B. rtu:///dev/ttyUSB0")
	slaveID := flag.Int("slave", 1, "Modbus Slave-ID für -bus")
	register := flag.Int("register", 0x0001, "Registeradresse für -bus")
	baudRate := flag.Int("baud", 9600, "Baudrate für -bus")
	flag.Parse()

	// Je nach Kommandozeilenparameter den entsprechenden Modus ausführen
	ran := false

	if *resolvePin != "" {
		ran = true
		fmt.Println("=== Pin-Auflösung ===")
		resolvePinName(*resolvePin)
	}

	if *listDevices {
		ran = true
		fmt.Println("=== Geräte aus Konfiguration ===")
		listConfiguredDevices(*configDir, *useGPIO)
	}

	if *deviceID != "" {
		ran = true
		fmt.Println("=== Sensor-Messung ===")
		readDeviceLoop(*configDir, *deviceID, *count, *interval, *useGPIO)
	}

	if *busURL != "" {
		ran = true
		fmt.Println("=== RS485-Bus-Prüfung ===")
		probeBus(*busURL, uint8(*slaveID), uint16(*register), uint(*baudRate))
	}

	// Wenn kein Modus ausgewählt wurde, Hilfe anzeigen
	if !ran {
		fmt.Println("Bitte wähle einen Modus aus:")
		fmt.Println("  -resolve <pin>: Löst eine Pin-Angabe auf (physisch, D<n>, GPIO<n> oder BCM-Nummer)")
		fmt.Println("  -list: Lädt die Gerätekonfigurationen und listet die erstellten Geräte auf")
		fmt.Println("  -device <id>: Liest den angegebenen Sensor in einer Schleife")
		fmt.Println("  -bus <url>: Liest das Abstandsregister eines Messumformers am RS485-Bus")
	}
}

// resolvePinName löst eine Pin-Angabe auf und gibt das Ergebnis aus
func resolvePinName(pin string) {
	handle, err := board.Resolve(pin)
	if err != nil {
		fmt.Printf("Fehler beim Auflösen von %q: %v\n", pin, err)
		os.Exit(1)
	}

	bcm, err := handle.BCM()
	if err != nil {
		fmt.Printf("Fehler beim Ermitteln der BCM-Nummer: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%q -> %s (BCM GPIO%d)\n", pin, handle, bcm)
}

// setupBoard erstellt das Board und registriert es als Standard.
// Ohne -gpio wird der Simulations-Treiber verwendet, damit das Werkzeug
// auch auf Entwicklungsrechnern ohne GPIO-Header läuft.
func setupBoard(useGPIO bool) *board.Board {
	var gpioBoard *board.Board
	if useGPIO {
		driver, err := board.NewRPIODriver()
		if err != nil {
			fmt.Printf("Fehler beim Initialisieren der GPIO-Hardware: %v\n", err)
			os.Exit(1)
		}
		gpioBoard = board.NewBoard("local", driver)
	} else {
		fmt.Println("Hinweis: Simulations-Treiber aktiv, Messungen liefern Echo-Timeouts (-gpio für echte Hardware)")
		gpioBoard = board.NewBoard("local", board.NewFakeDriver())
	}

	board.SetDefault(gpioBoard)
	return gpioBoard
}

// createDevices lädt die Konfigurationen und erstellt alle Geräte
func createDevices(configDir string, useGPIO bool) []types.Device {
	absConfigDir, err := filepath.Abs(configDir)
	if err != nil {
		fmt.Printf("Fehler beim Ermitteln des absoluten Pfads: %v\n", err)
		os.Exit(1)
	}

	gpioBoard := setupBoard(useGPIO)

	factory := device.NewFactory()
	creator.RegisterAllSensorTypes(factory)
	factory.RegisterResource(gpioBoard.Name(), gpioBoard)

	configs, err := device.LoadDeviceConfigs(absConfigDir)
	if err != nil {
		fmt.Printf("Fehler beim Laden der Konfigurationen: %v\n", err)
		os.Exit(1)
	}

	devices, errors := factory.CreateDevices(configs)
	for _, createErr := range errors {
		fmt.Printf("Warnung: %v\n", createErr)
	}

	return devices
}

// listConfiguredDevices gibt die erstellten Geräte aus
func listConfiguredDevices(configDir string, useGPIO bool) {
	devices := createDevices(configDir, useGPIO)

	fmt.Printf("Erfolgreich %d Gerät(e) erstellt:\n", len(devices))
	for i, dev := range devices {
		fmt.Printf("  %d. %s (ID: %s, Typ: %s)\n", i+1, dev.Name(), dev.ID(), dev.Type())
	}
}

// readDeviceLoop liest einen Sensor mehrfach und gibt die Messwerte aus
func readDeviceLoop(configDir, deviceID string, count int, interval time.Duration, useGPIO bool) {
	devices := createDevices(configDir, useGPIO)

	var sensor types.Sensor
	for _, dev := range devices {
		if dev.ID() != deviceID {
			continue
		}
		s, ok := dev.(types.Sensor)
		if !ok {
			fmt.Printf("Gerät '%s' ist kein lesbarer Sensor\n", deviceID)
			os.Exit(1)
		}
		sensor = s
	}
	if sensor == nil {
		fmt.Printf("Gerät '%s' nicht in %s gefunden\n", deviceID, configDir)
		os.Exit(1)
	}

	for i := 0; i < count; i++ {
		if i > 0 {
			time.Sleep(interval)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		reading, err := sensor.Read(ctx)
		cancel()

		if err != nil {
			fmt.Printf("  %d. Fehler: %v\n", i+1, err)
			continue
		}
		fmt.Printf("  %d. %v %s (Qualität: %s)\n", i+1, reading.Value, reading.Unit, reading.Quality)
	}
}

// probeBus liest das Abstandsregister eines Füllstandsmessumformers
func probeBus(busURL string, slaveID uint8, register uint16, baudRate uint) {
	client, err := modbus.NewClient(modbus.ClientConfig{
		URL:      busURL,
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   "N",
		StopBits: 1,
		Timeout:  300 * time.Millisecond,
	})
	if err != nil {
		fmt.Printf("Fehler beim Erstellen des Modbus-Clients: %v\n", err)
		os.Exit(1)
	}

	if err := client.Open(); err != nil {
		fmt.Printf("Fehler beim Öffnen des Busses: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	registers, err := client.ReadHoldingRegisters(slaveID, register, 1)
	if err != nil {
		fmt.Printf("Fehler beim Lesen von Register 0x%04X: %v\n", register, err)
		os.Exit(1)
	}

	airDistance := registers[0]
	fmt.Printf("Slave %d, Register 0x%04X: Luftabstand %d mm (%.3f m)\n", slaveID, register, airDistance, float64(airDistance)/1000)
}
