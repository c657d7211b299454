package realtime

import (
	"math"
	"time"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal"
)

// Config configures a pacer.
type Config struct {
	// Start is the virtual time mapped to tick zero.
	Start float64
	// TimeScale is the number of physical seconds per virtual second
	// (default 1).
	TimeScale float64
	// MaxJitter is the largest tolerated overshoot. Zero disables the bound.
	MaxJitter time.Duration
	// Logger receives jitter reports and dropped events.
	Logger rtdevs.Logger
}

func (c Config) withDefaults() Config {
	if c.TimeScale <= 0 {
		c.TimeScale = 1
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
	return c
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Timebase converts between virtual time and ticks.
type Timebase struct {
	Start          float64
	Scale          float64
	TicksPerSecond uint64
}

// tickSlack is the relative error, a few ulps, below which a tick product is
// taken as the integer it denotes (2.1*1000 evaluates to 2100.0000000000002).
const tickSlack = 0x1p-50

// Tick returns the first tick at which virtual time t is reached, the
// ceiling of its physical time in ticks. Times before the start map to zero
// and times too far away (or infinite) map to hal.Never.
func (tb Timebase) Tick(t float64) uint64 {
	phys := (t - tb.Start) * tb.Scale
	if !(phys > 0) {
		return 0
	}
	ticks := phys * float64(tb.TicksPerSecond)
	if r := math.Round(ticks); math.Abs(ticks-r) <= r*tickSlack {
		ticks = r
	} else {
		ticks = math.Ceil(ticks)
	}
	if ticks >= float64(hal.Never) {
		return hal.Never
	}
	return uint64(ticks)
}

// Time returns the virtual time reached at tick.
func (tb Timebase) Time(tick uint64) float64 {
	return tb.Start + float64(tick)/float64(tb.TicksPerSecond)/tb.Scale
}

// TicksToDuration converts a tick count to wall-clock time.
func TicksToDuration(ticks, tps uint64) time.Duration {
	sec := ticks / tps
	rem := ticks % tps
	return time.Duration(sec)*time.Second + time.Duration(rem*uint64(time.Second)/tps)
}

// DurationToTicks converts wall-clock time to a tick count.
func DurationToTicks(d time.Duration, tps uint64) uint64 {
	if d <= 0 {
		return 0
	}
	sec := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return sec*tps + rem*tps/uint64(time.Second)
}
