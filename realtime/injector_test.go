package realtime

import (
	"bytes"
	"context"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal/simboard"
)

func newRoot(t *testing.T, capacity int) (*rtdevs.Component, *rtdevs.Port[int]) {
	t.Helper()
	c := rtdevs.NewComponent("root")
	p := rtdevs.AddInPort[int](c, "in", capacity)
	return c, p
}

// TestSignal tests that every raise is taken exactly once
func TestSignal(t *testing.T) {
	var s Signal
	if s.Take() {
		t.Fatal("Take succeeded without Raise")
	}
	s.Raise()
	s.Raise()
	if !s.Pending() {
		t.Fatal("Expected pending signal")
	}
	if !s.Take() {
		t.Fatal("Take failed after Raise")
	}
	if s.Take() {
		t.Fatal("Second Take succeeded")
	}
}

// TestInjectorDebounce tests that presses within the window are dropped
func TestInjectorDebounce(t *testing.T) {
	in, port := newRoot(t, rtdevs.Unbounded)
	var sig Signal
	inj := NewInjector(&sig, 1000, InjectorConfig[int]{
		Port:  "in",
		Value: func(seq uint64) int { return int(seq) },
	})

	if inj.Poll(0, in) {
		t.Fatal("Poll injected without a raised signal")
	}

	presses := []struct {
		tick uint64
		want bool
	}{
		{0, true},
		{500, false},
		{1000, false},
		{1001, true},
		{1500, false},
	}
	for _, p := range presses {
		sig.Raise()
		if got := inj.Poll(p.tick, in); got != p.want {
			t.Errorf("Poll at tick %d = %v, want %v", p.tick, got, p.want)
		}
	}

	if got := port.Values(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Expected values [0 1], got %v", got)
	}
	if s := inj.Stats(); s.Accepted != 2 || s.Debounced != 3 || s.Dropped != 0 {
		t.Errorf("Unexpected stats %+v", s)
	}
}

// TestInjectorBufferFull tests that a full input port drops the event
func TestInjectorBufferFull(t *testing.T) {
	in, port := newRoot(t, 1)
	var buf bytes.Buffer
	var sig Signal
	inj := NewInjector(&sig, 1000, InjectorConfig[int]{
		Port:     "in",
		Debounce: -1,
		Logger:   log.New(&buf, "", 0),
	})

	sig.Raise()
	if !inj.Poll(10, in) {
		t.Fatal("First press not injected")
	}
	sig.Raise()
	if inj.Poll(20, in) {
		t.Fatal("Press injected into a full port")
	}
	if port.Len() != 1 {
		t.Errorf("Expected 1 value, got %d", port.Len())
	}
	if inj.Stats().Dropped != 1 {
		t.Errorf("Expected 1 dropped event, got %d", inj.Stats().Dropped)
	}
	if !strings.Contains(buf.String(), "input buffer full") {
		t.Errorf("Expected buffer full message, got %q", buf.String())
	}
}

// TestInjectorUnknownPort tests that a missing port is reported, not injected
func TestInjectorUnknownPort(t *testing.T) {
	in, _ := newRoot(t, 1)
	var sig Signal
	inj := NewInjector(&sig, 1000, InjectorConfig[int]{Port: "missing"})

	sig.Raise()
	if inj.Poll(0, in) {
		t.Fatal("Injected into a missing port")
	}
	if inj.Stats().Dropped != 1 {
		t.Errorf("Expected 1 dropped event, got %d", inj.Stats().Dropped)
	}
}

// TestInterruptibleEarlyReturn tests that an injected event ends the wait early
func TestInterruptibleEarlyReturn(t *testing.T) {
	board := simboard.New(1000)
	InstallTimerHandler(board, board)
	var sig Signal
	InstallSignal(board, "button", 1, &sig)
	board.Schedule(1500, "button")

	in, port := newRoot(t, 1)
	inj := NewInjector(&sig, 1000, InjectorConfig[int]{
		Port:  "in",
		Value: func(seq uint64) int { return int(seq) + 10 },
	})
	p := NewInterruptible(board, board, inj, Config{})

	got, err := p.Wait(context.Background(), 5, in)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got != 1.5 {
		t.Errorf("Wait returned %v, want 1.5", got)
	}
	if v, ok := port.Last(); !ok || v != 10 {
		t.Errorf("Expected injected value 10, got %v (%v)", v, ok)
	}
	if board.CompareInterruptEnabled() {
		t.Error("Compare interrupt still enabled after early return")
	}

	in.ClearPorts()
	got, err = p.Wait(context.Background(), 5, in)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got != 5 || board.Tick() != 5000 {
		t.Errorf("Returned %v at tick %d, want 5 at 5000", got, board.Tick())
	}
	if !port.IsEmpty() {
		t.Errorf("Unexpected injection %v", port.Values())
	}
}

// TestInterruptibleInfinite tests that an infinite wait ends on injection
func TestInterruptibleInfinite(t *testing.T) {
	board := simboard.New(1000)
	InstallTimerHandler(board, board)
	var sig Signal
	InstallSignal(board, "button", 1, &sig)
	board.Schedule(2000, "button")

	in, _ := newRoot(t, 1)
	inj := NewInjector(&sig, 1000, InjectorConfig[int]{Port: "in"})
	p := NewInterruptible(board, board, inj, Config{MaxJitter: time.Millisecond})

	got, err := p.Wait(context.Background(), math.Inf(1), in)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got != 2 {
		t.Errorf("Wait returned %v, want 2", got)
	}
}

// TestInterruptibleMaskedSource tests that a source below the threshold never wakes the pacer
func TestInterruptibleMaskedSource(t *testing.T) {
	board := simboard.New(1000)
	InstallTimerHandler(board, board)
	var sig Signal
	InstallSignal(board, "button", 1, &sig)
	board.SetThreshold(1)
	board.Schedule(500, "button")

	in, port := newRoot(t, 1)
	inj := NewInjector(&sig, 1000, InjectorConfig[int]{Port: "in"})
	p := NewInterruptible(board, board, inj, Config{})

	got, err := p.Wait(context.Background(), 1, in)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got != 1 || !port.IsEmpty() {
		t.Errorf("Returned %v with values %v, want 1 and none", got, port.Values())
	}
	if board.Pending() != 1 {
		t.Errorf("Expected masked stimulus to stay pending, got %d", board.Pending())
	}
}
