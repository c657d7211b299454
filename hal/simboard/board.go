// Package simboard is a deterministic software board: a tick counter with a
// compare register, an interrupt controller and a schedule of external
// interrupts. Time only moves when the counter is read or the CPU halts, so
// tests that use it are exact and never sleep.
package simboard

import (
	"sort"

	"github.com/comalice/rtdevs/hal"
)

type stimulus struct {
	tick uint64
	src  hal.Source
}

// Board implements hal.Timer, hal.CPU and hal.InterruptController.
// Interrupt handlers run synchronously inside Now and WaitForInterrupt, which
// models a handler that always completes before the interrupted code resumes.
type Board struct {
	tick        uint64
	tps         uint64
	readStep    uint64
	wakeLatency uint64

	compare        uint64
	compareEnabled bool

	handlers  map[hal.Source]hal.Handler
	enabled   map[hal.Source]bool
	priority  map[hal.Source]hal.Priority
	threshold hal.Priority
	pending   []stimulus
	servicing bool

	// Counters.
	Halts           int
	TimerInterrupts int
	Delivered       int
}

// Option configures a Board.
type Option func(*Board)

// WithReadStep advances the tick counter by n after every read, modelling the
// cycles a busy loop spends between two reads.
func WithReadStep(n uint64) Option {
	return func(b *Board) { b.readStep = n }
}

// WithWakeLatency adds n ticks between an interrupt and the moment a halted
// CPU resumes.
func WithWakeLatency(n uint64) Option {
	return func(b *Board) { b.wakeLatency = n }
}

// New creates a board whose counter runs at tps ticks per second.
func New(tps uint64, opts ...Option) *Board {
	b := &Board{
		tps:      tps,
		compare:  hal.Never,
		handlers: make(map[hal.Source]hal.Handler),
		enabled:  make(map[hal.Source]bool),
		priority: make(map[hal.Source]hal.Priority),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Board) TicksPerSecond() uint64 { return b.tps }

// Now returns the current tick, then lets the counter run by the read step.
func (b *Board) Now() uint64 {
	b.service()
	t := b.tick
	b.tick += b.readStep
	return t
}

// Tick returns the counter without advancing it.
func (b *Board) Tick() uint64 { return b.tick }

func (b *Board) Reset() { b.tick = 0 }

// Advance moves the counter forward by n ticks and services interrupts.
func (b *Board) Advance(n uint64) {
	b.tick += n
	b.service()
}

func (b *Board) SetCompare(tick uint64) { b.compare = tick }

// Compare returns the compare register.
func (b *Board) Compare() uint64 { return b.compare }

func (b *Board) EnableCompareInterrupt() { b.compareEnabled = true }

func (b *Board) DisableCompareInterrupt() { b.compareEnabled = false }

// CompareInterruptEnabled reports whether a compare match would interrupt.
func (b *Board) CompareInterruptEnabled() bool { return b.compareEnabled }

func (b *Board) Attach(src hal.Source, h hal.Handler) { b.handlers[src] = h }

func (b *Board) Enable(src hal.Source) { b.enabled[src] = true }

func (b *Board) Disable(src hal.Source) { b.enabled[src] = false }

func (b *Board) SetPriority(src hal.Source, p hal.Priority) { b.priority[src] = p }

func (b *Board) SetThreshold(p hal.Priority) { b.threshold = p }

// Schedule asserts the external interrupt src when the counter reaches tick.
func (b *Board) Schedule(tick uint64, src hal.Source) {
	b.pending = append(b.pending, stimulus{tick: tick, src: src})
	sort.SliceStable(b.pending, func(i, j int) bool { return b.pending[i].tick < b.pending[j].tick })
}

// Pending returns the number of scheduled external interrupts not yet
// delivered.
func (b *Board) Pending() int { return len(b.pending) }

// WaitForInterrupt returns at once if an interrupt is pending. Otherwise it
// jumps the counter to the earliest compare match or deliverable external
// interrupt and services it. Halting with nothing that could ever wake the
// CPU panics.
func (b *Board) WaitForInterrupt() {
	b.Halts++
	if b.service() {
		return
	}
	wake, ok := b.nextWake()
	if !ok {
		panic("simboard: halted with no interrupt armed")
	}
	if wake > b.tick {
		b.tick = wake
	}
	b.tick += b.wakeLatency
	b.service()
}

func (b *Board) nextWake() (uint64, bool) {
	wake, ok := uint64(0), false
	if b.compareEnabled && b.compare != hal.Never {
		wake, ok = b.compare, true
	}
	for _, s := range b.pending {
		if !b.deliverable(s.src) {
			continue
		}
		if !ok || s.tick < wake {
			wake, ok = s.tick, true
		}
		break
	}
	return wake, ok
}

func (b *Board) deliverable(src hal.Source) bool {
	return b.enabled[src] && b.priority[src] > b.threshold
}

// service runs the handlers of every interrupt due at the current tick and
// reports whether any fired. The timer fires at most once per call, so a
// handler that does not rearm the compare register shows up as a repeated
// wake-up instead of a hang.
func (b *Board) service() bool {
	if b.servicing {
		return false
	}
	b.servicing = true
	defer func() { b.servicing = false }()

	fired := false
	if b.compareEnabled && b.tick >= b.compare {
		b.TimerInterrupts++
		fired = true
		if h := b.handlers[hal.TimerSource]; h != nil {
			h()
		}
	}
	kept := b.pending[:0]
	for _, s := range b.pending {
		if s.tick > b.tick || !b.deliverable(s.src) {
			kept = append(kept, s)
			continue
		}
		b.Delivered++
		fired = true
		if h := b.handlers[s.src]; h != nil {
			h()
		}
	}
	b.pending = kept
	return fired
}
