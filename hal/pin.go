package hal

import "sync"

// Level of a digital pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// RecordingPin is a DigitalOutput that remembers every level it was driven to.
type RecordingPin struct {
	mu      sync.Mutex
	history []Level
}

func (p *RecordingPin) SetHigh() error { p.set(High); return nil }

func (p *RecordingPin) SetLow() error { p.set(Low); return nil }

func (p *RecordingPin) set(l Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, l)
}

// Level returns the current level; a pin never driven is low.
func (p *RecordingPin) Level() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) == 0 {
		return Low
	}
	return p.history[len(p.history)-1]
}

// History returns a copy of every level set so far.
func (p *RecordingPin) History() []Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Level(nil), p.history...)
}

// Printer is the subset of *log.Logger used by LogPin.
type Printer interface {
	Printf(format string, args ...any)
}

// LogPin prints level changes, standing in for an LED on hosts without GPIO.
type LogPin struct {
	Name string
	Log  Printer
}

func (p LogPin) SetHigh() error {
	p.Log.Printf("[%s] on", p.Name)
	return nil
}

func (p LogPin) SetLow() error {
	p.Log.Printf("[%s] off", p.Name)
	return nil
}
