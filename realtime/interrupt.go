package realtime

import (
	"context"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal"
)

// EventSource hands exogenous events to an Interruptible pacer. Poll is
// called on the main loop after every wake-up; it writes into the root input
// component and reports whether anything was injected.
type EventSource interface {
	Poll(now uint64, in *rtdevs.Component) bool
}

// Interruptible is a Sleeper that also returns when an event is injected.
type Interruptible struct {
	base
	timer  hal.Timer
	cpu    hal.CPU
	source EventSource
}

var _ rtdevs.Pacer = (*Interruptible)(nil)

// NewInterruptible resets timer and returns a pacer that halts until either
// the tick for the requested time or an injected event.
func NewInterruptible(timer hal.Timer, cpu hal.CPU, source EventSource, cfg Config) *Interruptible {
	return &Interruptible{base: newBase(timer, cfg), timer: timer, cpu: cpu, source: source}
}

// Wait returns t once its tick is reached, or the virtual time of the tick at
// which an event was injected into in, whichever comes first. An infinite t
// only returns on injection.
func (p *Interruptible) Wait(ctx context.Context, t float64, in *rtdevs.Component) (float64, error) {
	target := p.tb.Tick(t)
	defer p.timer.DisableCompareInterrupt()
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		now := p.timer.Now()
		injected := p.source.Poll(now, in)
		if now >= target {
			return t, p.check(target, now)
		}
		if injected {
			return p.tb.Time(now), nil
		}
		if target != hal.Never {
			p.timer.SetCompare(target)
			p.timer.EnableCompareInterrupt()
		}
		p.cpu.WaitForInterrupt()
	}
}
