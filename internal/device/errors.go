// Package device implementiert die Geräteverwaltung: Registry, Factory
// und das Laden von Gerätekonfigurationen.
package device

import "errors"

// Gemeinsame Konfigurationsfehler der Gerätetypen. Die Factories der
// einzelnen Sensortypen umhüllen diese Fehler mit dem betroffenen Feld.
var (
	// ErrMissingField zeigt an, dass ein Pflichtfeld in der
	// Gerätekonfiguration fehlt oder den falschen Typ hat.
	ErrMissingField = errors.New("pflichtfeld fehlt oder hat den falschen Typ")

	// ErrMissingDependency zeigt an, dass eine referenzierte Abhängigkeit
	// (z.B. ein Board) nicht unter den aufgelösten Ressourcen ist.
	ErrMissingDependency = errors.New("abhängigkeit nicht gefunden")
)
