package realtime

import (
	"errors"
	"time"

	"github.com/comalice/rtdevs"
)

// DefaultDebounce is the minimum distance between two accepted presses.
const DefaultDebounce = time.Second

// InjectorConfig configures an Injector.
type InjectorConfig[T any] struct {
	// Port is the root input port that receives the injected values.
	Port string
	// Debounce drops events arriving within this window after the last
	// accepted one. Zero selects DefaultDebounce, negative disables it.
	Debounce time.Duration
	// Value builds the value injected for the seq-th accepted event, starting
	// at zero. Nil injects the zero value of T.
	Value  func(seq uint64) T
	Logger rtdevs.Logger
}

// InjectorStats counts what happened to raised events.
type InjectorStats struct {
	Accepted  uint64
	Debounced uint64
	Dropped   uint64
}

// Injector turns a Signal into values on a root input port. It implements
// EventSource and runs on the main loop only.
type Injector[T any] struct {
	sig      *Signal
	cfg      InjectorConfig[T]
	debounce uint64
	last     uint64
	stats    InjectorStats
}

var _ EventSource = (*Injector[int])(nil)

// NewInjector returns an injector reading sig, with the debounce window
// measured on a clock running at tps ticks per second.
func NewInjector[T any](sig *Signal, tps uint64, cfg InjectorConfig[T]) *Injector[T] {
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	var window uint64
	switch {
	case cfg.Debounce == 0:
		window = DurationToTicks(DefaultDebounce, tps)
	case cfg.Debounce > 0:
		window = DurationToTicks(cfg.Debounce, tps)
	}
	return &Injector[T]{sig: sig, cfg: cfg, debounce: window}
}

// Poll consumes a pending event, if any, and injects it into in.
func (j *Injector[T]) Poll(now uint64, in *rtdevs.Component) bool {
	if !j.sig.Take() {
		return false
	}
	if j.stats.Accepted > 0 && j.debounce > 0 && now-j.last <= j.debounce {
		j.stats.Debounced++
		return false
	}
	port, err := rtdevs.InPortOf[T](in, j.cfg.Port)
	if err != nil {
		j.stats.Dropped++
		j.cfg.Logger.Printf("inject: %v", err)
		return false
	}
	var v T
	if j.cfg.Value != nil {
		v = j.cfg.Value(j.stats.Accepted)
	}
	if err := port.AddValue(v); err != nil {
		j.stats.Dropped++
		if errors.Is(err, rtdevs.ErrCapacityExceeded) {
			j.cfg.Logger.Printf("input buffer full")
		} else {
			j.cfg.Logger.Printf("inject: %v", err)
		}
		return false
	}
	j.last = now
	j.stats.Accepted++
	return true
}

// Stats returns the counters.
func (j *Injector[T]) Stats() InjectorStats { return j.stats }
