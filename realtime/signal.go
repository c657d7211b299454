package realtime

import (
	"sync/atomic"

	"github.com/comalice/rtdevs/hal"
)

// Signal is the single flag shared between an interrupt handler and the main
// loop.
type Signal struct {
	flag atomic.Bool
}

// Raise marks an event as pending. Safe to call from interrupt context.
func (s *Signal) Raise() { s.flag.Store(true) }

// Take clears the flag and reports whether it was set. Each Raise is observed
// by at most one Take.
func (s *Signal) Take() bool { return s.flag.CompareAndSwap(true, false) }

// Pending reports whether an event is waiting without consuming it.
func (s *Signal) Pending() bool { return s.flag.Load() }

// InstallTimerHandler attaches the compare-match handler. It only pushes the
// compare register to hal.Never so the interrupt does not fire again.
func InstallTimerHandler(ic hal.InterruptController, timer hal.Timer) {
	ic.Attach(hal.TimerSource, func() { timer.SetCompare(hal.Never) })
}

// InstallSignal routes the external source src to sig at priority p and
// enables it.
func InstallSignal(ic hal.InterruptController, src hal.Source, p hal.Priority, sig *Signal) {
	ic.Attach(src, sig.Raise)
	ic.SetPriority(src, p)
	ic.Enable(src)
}
