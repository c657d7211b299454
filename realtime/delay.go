package realtime

import (
	"context"
	"time"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal"
)

// wallClock is a nanosecond hal.Clock over the operating system's monotonic
// time.
type wallClock struct {
	epoch time.Time
}

func (c *wallClock) Now() uint64 { return uint64(time.Since(c.epoch)) }

func (c *wallClock) Reset() { c.epoch = time.Now() }

func (c *wallClock) TicksPerSecond() uint64 { return uint64(time.Second) }

// Delay waits with the operating system timer. Hosts only.
type Delay struct {
	base
}

var _ rtdevs.Pacer = (*Delay)(nil)

// NewDelay returns a pacer whose virtual start time is now.
func NewDelay(cfg Config) *Delay {
	return &Delay{base: newBase(&wallClock{}, cfg)}
}

func (d *Delay) Wait(ctx context.Context, t float64, _ *rtdevs.Component) (float64, error) {
	target := d.tb.Tick(t)
	now := d.clock.Now()
	if now < target {
		if target == hal.Never {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		timer := time.NewTimer(time.Duration(target - now))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
		}
		now = d.clock.Now()
	}
	return t, d.check(target, now)
}
