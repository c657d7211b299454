package realtime

import (
	"context"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal"
)

// ctxCheckEvery is how many clock reads a busy loop does between two
// cancellation checks.
const ctxCheckEvery = 1024

// Poller waits by reading the clock in a tight loop.
type Poller struct {
	base
}

var _ rtdevs.Pacer = (*Poller)(nil)

// NewPoller resets clock and returns a busy-wait pacer on it.
func NewPoller(clock hal.Clock, cfg Config) *Poller {
	return &Poller{base: newBase(clock, cfg)}
}

// Wait spins until the tick for t is reached. The input component is never
// touched.
func (p *Poller) Wait(ctx context.Context, t float64, _ *rtdevs.Component) (float64, error) {
	target := p.tb.Tick(t)
	now := p.clock.Now()
	for i := 1; now < target; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		now = p.clock.Now()
	}
	return t, p.check(target, now)
}
