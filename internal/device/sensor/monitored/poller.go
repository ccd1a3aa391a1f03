package monitored

import (
	"sync"
	"time"
)

// BackgroundPoller ist eine stopp-bare Hintergrundschleife, die in
// festen Intervallen aufwacht und ein Lebenszeichen meldet. Jeder
// Sensor besitzt seinen eigenen Poller; die Instanzen teilen keinen
// Zustand untereinander.
type BackgroundPoller struct {
	mutex     sync.Mutex
	stopChan  chan struct{}
	waitGroup sync.WaitGroup
	interval  time.Duration
	onTick    func()
}

// NewBackgroundPoller erstellt einen neuen Poller. Das Intervall fällt
// bei Werten kleiner oder gleich null auf eine Sekunde zurück; onTick
// darf nil sein.
func NewBackgroundPoller(interval time.Duration, onTick func()) *BackgroundPoller {
	if interval <= 0 {
		interval = time.Second
	}

	return &BackgroundPoller{
		interval: interval,
		onTick:   onTick,
	}
}

// Start startet die Hintergrundschleife. Läuft bereits eine Schleife,
// passiert nichts.
func (p *BackgroundPoller) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.stopChan != nil {
		return
	}

	p.stopChan = make(chan struct{})
	p.waitGroup.Add(1)
	go p.run(p.stopChan)
}

// Stop beendet die Hintergrundschleife und wartet auf deren Ende.
// Mehrfache Aufrufe und Aufrufe ohne laufende Schleife sind unkritisch.
func (p *BackgroundPoller) Stop() {
	p.mutex.Lock()
	if p.stopChan == nil {
		p.mutex.Unlock()
		return
	}

	close(p.stopChan)
	p.stopChan = nil
	p.mutex.Unlock()

	p.waitGroup.Wait()
}

// IsRunning meldet, ob die Schleife gerade aktiv ist
func (p *BackgroundPoller) IsRunning() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.stopChan != nil
}

func (p *BackgroundPoller) run(stopChan chan struct{}) {
	defer p.waitGroup.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			if p.onTick != nil {
				p.onTick()
			}
		}
	}
}
