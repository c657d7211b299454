package realtime

import (
	"context"
	"errors"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal"
)

// ErrSleepForever is returned when a sleeping pacer is asked to wait for a
// time that maps to no tick and nothing else could wake it.
var ErrSleepForever = errors.New("realtime: wait for infinite time without an event source")

// Sleeper waits by arming the compare interrupt and halting the CPU.
type Sleeper struct {
	base
	timer hal.Timer
	cpu   hal.CPU
}

var _ rtdevs.Pacer = (*Sleeper)(nil)

// NewSleeper resets timer and returns a sleeping pacer. The timer interrupt
// handler must disarm the compare register; see InstallTimerHandler.
func NewSleeper(timer hal.Timer, cpu hal.CPU, cfg Config) *Sleeper {
	return &Sleeper{base: newBase(timer, cfg), timer: timer, cpu: cpu}
}

// Wait halts until the tick for t is reached. Wake-ups before the target are
// treated as spurious and the CPU is halted again.
func (s *Sleeper) Wait(ctx context.Context, t float64, _ *rtdevs.Component) (float64, error) {
	target := s.tb.Tick(t)
	now := s.timer.Now()
	if now < target && target == hal.Never {
		return 0, ErrSleepForever
	}
	defer s.timer.DisableCompareInterrupt()
	for now < target {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		s.timer.SetCompare(target)
		s.timer.EnableCompareInterrupt()
		s.cpu.WaitForInterrupt()
		now = s.timer.Now()
	}
	return t, s.check(target, now)
}
