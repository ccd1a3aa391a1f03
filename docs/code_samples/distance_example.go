// Package distance zeigt die Verwendung der Board- und Treiber-Schnittstellen
// für eine HC-SR04 Abstandsmessung außerhalb des Dienstes.
package distance

import (
	"context"
	"fmt"
	"time"

	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/device/creator"
	"owipex_ultrasonic/internal/driver/hcsr04"
	"owipex_ultrasonic/internal/platform/board"
	"owipex_ultrasonic/internal/types"
)

// ExampleDirectDriver misst den Abstand direkt über den Treiber, ohne
// Factory und Registry. So lässt sich ein einzelner Sensor am
// schnellsten auf der Werkbank prüfen.
func ExampleDirectDriver() {
	// GPIO-Treiber öffnen (auf Entwicklungsrechnern stattdessen
	// board.NewFakeDriver() verwenden)
	driver, err := board.NewRPIODriver()
	if err != nil {
		fmt.Printf("Fehler beim Initialisieren der GPIO-Hardware: %v\n", err)
		return
	}

	gpioBoard := board.NewBoard("local", driver)
	defer gpioBoard.Close()

	// Pin-Angaben in beliebiger Notation auflösen: physische Position,
	// D<n>, GPIO<n> oder BCM-Nummer
	trigger, err := gpioBoard.Resolve("16")
	if err != nil {
		fmt.Printf("Fehler beim Auflösen des Trigger-Pins: %v\n", err)
		return
	}
	echo, err := gpioBoard.Resolve("GPIO24")
	if err != nil {
		fmt.Printf("Fehler beim Auflösen des Echo-Pins: %v\n", err)
		return
	}

	// Treiber mit 1 Sekunde Echo-Timeout erstellen
	sensor, err := hcsr04.New(gpioBoard, trigger, echo, time.Second)
	if err != nil {
		fmt.Printf("Fehler beim Öffnen des Sensors: %v\n", err)
		return
	}
	defer sensor.Close()

	// Mehrere Messungen im Abstand von einer Sekunde
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		centimeters, err := sensor.DistanceCentimeters(ctx)
		cancel()

		if err != nil {
			// Bei fehlendem Echo liefert der Treiber ErrEchoTimeout
			fmt.Printf("Messung %d fehlgeschlagen: %v\n", i+1, err)
		} else {
			fmt.Printf("Messung %d: %.1f cm\n", i+1, centimeters)
		}

		time.Sleep(time.Second)
	}
}

// ExampleViaFactory erstellt den Sensor über die Gerätefabrik, so wie
// es der Dienst beim Start tut. Der Sensor liefert dann Readings in
// Metern und meldet Konfigurationsfehler über seinen Status.
func ExampleViaFactory() {
	gpioBoard := board.NewBoard("local", board.NewFakeDriver())
	board.SetDefault(gpioBoard)

	factory := device.NewFactory()
	creator.RegisterAllSensorTypes(factory)
	factory.RegisterResource(gpioBoard.Name(), gpioBoard)

	config := types.DeviceConfig{
		ID:      "us_example",
		Name:    "Beispiel-Sensor",
		Type:    "ultrasonic",
		Enabled: true,
		Attributes: map[string]interface{}{
			"trigger_pin":        "16",
			"echo_interrupt_pin": "18",
		},
	}

	dev, err := factory.CreateDevice(config)
	if err != nil {
		fmt.Printf("Fehler beim Erstellen des Geräts: %v\n", err)
		return
	}

	sensor, ok := dev.(types.Sensor)
	if !ok {
		fmt.Println("Gerät ist kein Sensor")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reading, err := sensor.Read(ctx)
	if err != nil {
		fmt.Printf("Fehler beim Lesen: %v\n", err)
		return
	}

	// Ohne Echo meldet der Sensor den Sentinel-Wert -1.0
	fmt.Printf("Abstand: %v %s (Qualität: %s)\n", reading.Value, reading.Unit, reading.Quality)
}
