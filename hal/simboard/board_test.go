package simboard

import (
	"testing"

	"github.com/comalice/rtdevs/hal"
)

func disarmOnMatch(b *Board) {
	b.Attach(hal.TimerSource, func() { b.SetCompare(hal.Never) })
}

// TestCompareWake tests that a halt jumps to the compare match
func TestCompareWake(t *testing.T) {
	b := New(1000)
	disarmOnMatch(b)
	b.SetCompare(500)
	b.EnableCompareInterrupt()
	b.WaitForInterrupt()

	if b.Tick() != 500 {
		t.Errorf("Expected tick 500, got %d", b.Tick())
	}
	if b.TimerInterrupts != 1 || b.Halts != 1 {
		t.Errorf("Expected 1 timer interrupt and 1 halt, got %d and %d", b.TimerInterrupts, b.Halts)
	}
	if b.Compare() != hal.Never {
		t.Errorf("Handler did not disarm the compare register: %d", b.Compare())
	}
}

func TestWakeLatency(t *testing.T) {
	b := New(1000, WithWakeLatency(3))
	disarmOnMatch(b)
	b.SetCompare(500)
	b.EnableCompareInterrupt()
	b.WaitForInterrupt()
	if b.Tick() != 503 {
		t.Errorf("Expected tick 503, got %d", b.Tick())
	}
}

func TestReadStep(t *testing.T) {
	b := New(1000, WithReadStep(10))
	if now := b.Now(); now != 0 {
		t.Errorf("First read = %d, want 0", now)
	}
	if now := b.Now(); now != 10 {
		t.Errorf("Second read = %d, want 10", now)
	}
	b.Reset()
	if b.Tick() != 0 {
		t.Errorf("Reset left tick %d", b.Tick())
	}
}

// TestScheduledPriority tests that masked sources stay pending until the
// threshold drops
func TestScheduledPriority(t *testing.T) {
	b := New(1000)
	disarmOnMatch(b)
	pressed := 0
	b.Attach("button", func() { pressed++ })
	b.SetPriority("button", 1)
	b.Enable("button")
	b.SetThreshold(1)
	b.Schedule(200, "button")

	b.SetCompare(500)
	b.EnableCompareInterrupt()
	b.WaitForInterrupt()
	if b.Tick() != 500 || pressed != 0 || b.Pending() != 1 {
		t.Fatalf("Masked source delivered: tick %d, pressed %d, pending %d", b.Tick(), pressed, b.Pending())
	}

	b.SetThreshold(0)
	b.Now()
	if pressed != 1 || b.Pending() != 0 || b.Delivered != 1 {
		t.Errorf("Expected late delivery once unmasked, got pressed %d, pending %d", pressed, b.Pending())
	}
}

func TestScheduleOrder(t *testing.T) {
	b := New(1000)
	var got []uint64
	b.Attach("a", func() { got = append(got, b.Tick()) })
	b.SetPriority("a", 1)
	b.Enable("a")
	b.Schedule(300, "a")
	b.Schedule(100, "a")

	b.WaitForInterrupt()
	b.WaitForInterrupt()
	if len(got) != 2 || got[0] != 100 || got[1] != 300 {
		t.Errorf("Expected deliveries at 100 and 300, got %v", got)
	}
}

func TestHaltWithoutInterruptPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic when halting with nothing armed")
		}
	}()
	New(1000).WaitForInterrupt()
}
