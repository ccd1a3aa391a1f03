// Package creator registriert die verfügbaren Gerätetypen in der Gerätefabrik.
package creator

import (
	"owipex_ultrasonic/internal/device"
	"owipex_ultrasonic/internal/device/sensor/level"
	"owipex_ultrasonic/internal/device/sensor/monitored"
	"owipex_ultrasonic/internal/device/sensor/ultrasonic"
	"owipex_ultrasonic/internal/device/sensor/us100"
)

// RegisterAllSensorTypes registriert alle verfügbaren Sensortypen in der Factory
func RegisterAllSensorTypes(factory *device.Factory) {
	// HC-SR04 Ultraschall-Sensor am GPIO-Header registrieren
	factory.RegisterCreator("ultrasonic", ultrasonic.ValidateConfig, ultrasonic.CreateUltrasonicSensor)

	// Überwachten Ultraschall-Sensor mit Board-Abhängigkeit registrieren
	factory.RegisterCreator("ultrasonic_monitored", monitored.ValidateConfig, monitored.CreateMonitoredSensor)

	// Füllstandsmessumformer am RS485-Bus registrieren
	factory.RegisterCreator("us_level", nil, level.CreateLevelSensor)

	// US-100 Sensor an der seriellen Schnittstelle registrieren
	factory.RegisterCreator("us100", nil, us100.CreateUS100Sensor)
}
