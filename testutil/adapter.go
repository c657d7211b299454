package testutil

import (
	"context"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal/simboard"
	"github.com/comalice/rtdevs/internal/production"
	"github.com/comalice/rtdevs/realtime"
)

// RuntimeAdapter runs a model over a time interval and returns its trace.
// This allows running the same test suite in virtual and in paced time.
type RuntimeAdapter interface {
	Name() string
	Run(ctx context.Context, m rtdevs.Model, tStart, tStop float64) ([]rtdevs.Record, error)
}

// VirtualAdapter runs models as fast as possible.
type VirtualAdapter struct{}

func (VirtualAdapter) Name() string { return "Virtual" }

func (VirtualAdapter) Run(_ context.Context, m rtdevs.Model, tStart, tStop float64) ([]rtdevs.Record, error) {
	rec := &production.MemoryRecorder{}
	sim, err := rtdevs.NewSimulator(m, rtdevs.WithRecorder(rec))
	if err != nil {
		return nil, err
	}
	sim.SimulateVT(tStart, tStop)
	return rec.Records(), nil
}

// PacedAdapter runs models in real time on a simulated board, sleeping
// between events.
type PacedAdapter struct {
	TicksPerSecond uint64
	// Board is the board of the last run.
	Board *simboard.Board
}

// NewPacedAdapter creates a paced adapter with the given tick rate.
func NewPacedAdapter(tps uint64) *PacedAdapter {
	return &PacedAdapter{TicksPerSecond: tps}
}

func (a *PacedAdapter) Name() string { return "Paced" }

func (a *PacedAdapter) Run(ctx context.Context, m rtdevs.Model, tStart, tStop float64) ([]rtdevs.Record, error) {
	rec := &production.MemoryRecorder{}
	sim, err := rtdevs.NewSimulator(m, rtdevs.WithRecorder(rec))
	if err != nil {
		return nil, err
	}
	a.Board = simboard.New(a.TicksPerSecond)
	realtime.InstallTimerHandler(a.Board, a.Board)
	pacer := realtime.NewSleeper(a.Board, a.Board, realtime.Config{Start: tStart})
	if err := sim.SimulateRT(ctx, tStart, tStop, pacer, nil); err != nil {
		return nil, err
	}
	return rec.Records(), nil
}
