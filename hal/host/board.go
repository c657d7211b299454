// Package host is a board backed by the operating system clock. The tick
// counter is derived from a monotonic time.Time, the compare interrupt from a
// time.Timer, and external interrupts are raised from any goroutine with Raise.
//
// Handlers run on the goroutine that raised the interrupt (the timer
// goroutine or the caller of Raise) before the halted CPU is woken, so a
// handler always completes before WaitForInterrupt returns. Wake-ups are
// latched: an interrupt raised while the CPU is not halted makes the next
// WaitForInterrupt return immediately. Close releases a halted CPU for good,
// which lets a caller cancel a run that waits on the board.
package host

import (
	"sync"
	"time"

	"github.com/comalice/rtdevs/hal"
)

// Board implements hal.Timer, hal.CPU and hal.InterruptController.
type Board struct {
	tps uint64

	mu             sync.Mutex
	epoch          time.Time
	compare        uint64
	compareEnabled bool
	timer          *time.Timer
	handlers       map[hal.Source]hal.Handler
	enabled        map[hal.Source]bool
	priority       map[hal.Source]hal.Priority
	threshold      hal.Priority

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a board whose counter runs at tps ticks per second.
func New(tps uint64) *Board {
	return &Board{
		tps:      tps,
		epoch:    time.Now(),
		compare:  hal.Never,
		handlers: make(map[hal.Source]hal.Handler),
		enabled:  make(map[hal.Source]bool),
		priority: make(map[hal.Source]hal.Priority),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (b *Board) TicksPerSecond() uint64 { return b.tps }

func (b *Board) Now() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now()
}

func (b *Board) now() uint64 {
	return uint64(float64(time.Since(b.epoch)) * float64(b.tps) / float64(time.Second))
}

func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.epoch = time.Now()
	b.arm()
}

func (b *Board) SetCompare(tick uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compare = tick
	b.arm()
}

func (b *Board) EnableCompareInterrupt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compareEnabled = true
	b.arm()
}

func (b *Board) DisableCompareInterrupt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compareEnabled = false
	b.arm()
}

// arm (re)schedules the timer goroutine for the current compare value.
// Callers hold b.mu.
func (b *Board) arm() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if !b.compareEnabled || b.compare == hal.Never {
		return
	}
	var delay time.Duration
	if now := b.now(); b.compare > now {
		delay = time.Duration(float64(b.compare-now) * float64(time.Second) / float64(b.tps))
	}
	b.timer = time.AfterFunc(delay, b.timerInterrupt)
}

func (b *Board) timerInterrupt() {
	b.mu.Lock()
	due := b.compareEnabled && b.now() >= b.compare
	h := b.handlers[hal.TimerSource]
	if !due {
		// Fired a tick early after rounding; try again.
		b.arm()
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	if h != nil {
		h()
	}
	b.notify()
}

func (b *Board) Attach(src hal.Source, h hal.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[src] = h
}

func (b *Board) Enable(src hal.Source) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled[src] = true
}

func (b *Board) Disable(src hal.Source) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled[src] = false
}

func (b *Board) SetPriority(src hal.Source, p hal.Priority) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.priority[src] = p
}

func (b *Board) SetThreshold(p hal.Priority) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.threshold = p
}

// Raise asserts the external interrupt src. It reports whether the interrupt
// was delivered, i.e. the source is enabled and above the threshold.
func (b *Board) Raise(src hal.Source) bool {
	b.mu.Lock()
	ok := b.enabled[src] && b.priority[src] > b.threshold
	h := b.handlers[src]
	b.mu.Unlock()
	if !ok {
		return false
	}
	if h != nil {
		h()
	}
	b.notify()
	return true
}

func (b *Board) notify() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// WaitForInterrupt blocks until the next interrupt, or returns at once if one
// arrived since the previous call or the board is closed.
func (b *Board) WaitForInterrupt() {
	select {
	case <-b.wake:
	case <-b.done:
	}
}

// Close stops the compare timer and wakes the CPU. Every later
// WaitForInterrupt returns at once. Close is safe to call more than once.
func (b *Board) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.compareEnabled = false
		b.arm()
		b.mu.Unlock()
		close(b.done)
	})
}
