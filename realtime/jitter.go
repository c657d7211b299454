package realtime

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal"
)

// ErrJitterExceeded is wrapped by every JitterError.
var ErrJitterExceeded = errors.New("jitter exceeded")

// JitterError reports a wake-up later than the configured bound.
type JitterError struct {
	Jitter   time.Duration
	Max      time.Duration
	Target   uint64
	Observed uint64
}

func (e *JitterError) Error() string {
	return fmt.Sprintf("jitter %v exceeds maximum %v (target tick %d, observed %d)",
		e.Jitter, e.Max, e.Target, e.Observed)
}

func (e *JitterError) Unwrap() error { return ErrJitterExceeded }

// JitterStats summarizes the overshoot of completed waits.
type JitterStats struct {
	Waits int
	Max   time.Duration
	Total time.Duration
}

// Mean returns the average jitter, or zero before the first wait.
func (s JitterStats) Mean() time.Duration {
	if s.Waits == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Waits)
}

// base holds what every tick-driven pacer shares.
type base struct {
	clock hal.Clock
	tb    Timebase
	max   time.Duration
	log   rtdevs.Logger

	mu    sync.Mutex
	stats JitterStats
}

func newBase(clock hal.Clock, cfg Config) base {
	cfg = cfg.withDefaults()
	clock.Reset()
	return base{
		clock: clock,
		tb:    Timebase{Start: cfg.Start, Scale: cfg.TimeScale, TicksPerSecond: clock.TicksPerSecond()},
		max:   cfg.MaxJitter,
		log:   cfg.Logger,
	}
}

// Timebase returns the mapping used by the pacer.
func (b *base) Timebase() Timebase { return b.tb }

// Stats returns the jitter observed so far.
func (b *base) Stats() JitterStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// check measures how late observed is with respect to target.
func (b *base) check(target, observed uint64) error {
	var jitter time.Duration
	if observed > target {
		jitter = TicksToDuration(observed-target, b.tb.TicksPerSecond)
	}
	b.mu.Lock()
	b.stats.Waits++
	b.stats.Total += jitter
	if jitter > b.stats.Max {
		b.stats.Max = jitter
	}
	b.mu.Unlock()

	b.log.Printf("jitter: %d us", jitter.Microseconds())
	if b.max > 0 && jitter > b.max {
		return &JitterError{Jitter: jitter, Max: b.max, Target: target, Observed: observed}
	}
	return nil
}
