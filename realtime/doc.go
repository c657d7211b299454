// Package realtime provides pacers that bind rtdevs virtual time to a
// physical tick counter.
//
// A pacer implements rtdevs.Pacer. The simulator asks it to wait until
// virtual time t; the pacer converts t to a target tick and returns once the
// clock has reached it, or earlier when an exogenous event was injected.
//
// # Strategies
//
//   - Poller: busy loop on the tick counter. Lowest jitter, full CPU load.
//   - Sleeper: programs the compare register and halts the CPU until the
//     timer interrupt. Low power; wakes spuriously on unrelated interrupts
//     and loops until the target tick is really reached.
//   - Interruptible: like Sleeper, but also wakes when an EventSource
//     reports an injected event, and then returns the current virtual time.
//   - Delay: sleeps with the operating system timer. For hosts only.
//
// Every strategy disables the compare interrupt before returning, so a stale
// match cannot fire during a later, unrelated wait.
//
// # Example Usage
//
//	board := simboard.New(32768)
//	realtime.InstallTimerHandler(board, board)
//	pacer := realtime.NewSleeper(board, board, realtime.Config{
//		MaxJitter: 7 * time.Millisecond,
//	})
//	err := sim.SimulateRT(ctx, 0, 15, pacer, nil)
//	if errors.Is(err, realtime.ErrJitterExceeded) {
//		log.Fatal(err)
//	}
//
// # Exogenous events
//
// Interrupt handlers and the main loop share exactly one Signal. The handler
// calls Raise and nothing else; the pacer consumes it through an Injector
// with a compare-and-swap, which observes each raised event once. The
// Injector drops presses that arrive within the debounce window of the
// previously accepted one and writes a new value into a root input port.
//
// # Jitter
//
// Jitter is the number of ticks between the target and the tick read after
// waking, converted to wall-clock time. It is reported through the logger and
// the pacer's Stats. If Config.MaxJitter is set and exceeded, Wait returns a
// *JitterError wrapping ErrJitterExceeded: the timing guarantee is broken and
// the caller is expected to terminate.
package realtime
