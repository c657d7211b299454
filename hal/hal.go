// Package hal defines the hardware capabilities the real-time layer depends
// on. Boards implement them; hal/simboard provides a deterministic software
// board for tests and hal/host a wall-clock board for desktop runs.
package hal

import "math"

// Never is the compare value that can never match the tick counter.
const Never uint64 = math.MaxUint64

// Clock is a free-running monotonic tick counter.
type Clock interface {
	// Now reads the current tick.
	Now() uint64
	// Reset writes zero to the tick counter.
	Reset()
	TicksPerSecond() uint64
}

// Timer is a Clock with a compare register that raises the timer interrupt
// once the tick counter reaches it.
type Timer interface {
	Clock
	SetCompare(tick uint64)
	EnableCompareInterrupt()
	DisableCompareInterrupt()
}

// CPU halts until the next interrupt. WaitForInterrupt may return early on
// unrelated interrupts; callers must re-check their wake condition.
type CPU interface {
	WaitForInterrupt()
}

// Source names an interrupt source.
type Source string

// TimerSource is the source raised by a compare match.
const TimerSource Source = "machine_timer"

// Priority of an interrupt source. Sources only fire when their priority is
// above the controller threshold.
type Priority int

// Handler runs in interrupt context. It must be short and must not block.
type Handler func()

// InterruptController routes external interrupt sources to handlers.
type InterruptController interface {
	Attach(src Source, h Handler)
	Enable(src Source)
	Disable(src Source)
	SetPriority(src Source, p Priority)
	SetThreshold(p Priority)
}

// DigitalOutput drives a single output pin.
type DigitalOutput interface {
	SetHigh() error
	SetLow() error
}
