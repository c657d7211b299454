// Package production provides the trace sinks of a simulation run:
// in-memory and channel recorders, a YAML trace file, an SQLite store, and a
// Graphviz export of the model graph.
package production

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/comalice/rtdevs"
)

// MemoryRecorder keeps every record in memory.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []rtdevs.Record
}

func (m *MemoryRecorder) Record(_ context.Context, r rtdevs.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Values = slices.Clone(r.Values)
	m.records = append(m.records, r)
	return nil
}

// Records returns a copy of the trace.
func (m *MemoryRecorder) Records() []rtdevs.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

// Models returns the sorted names of every model that appears in the trace.
func (m *MemoryRecorder) Models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.records))
	for _, r := range m.records {
		names = append(names, r.Model)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// Filter returns the records of one model and kind, in order.
func (m *MemoryRecorder) Filter(model string, kind rtdevs.RecordKind) []rtdevs.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rtdevs.Record
	for _, r := range m.records {
		if r.Model == model && r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Tee sends every record to all recorders and joins their errors.
type Tee []rtdevs.Recorder

func (t Tee) Record(ctx context.Context, r rtdevs.Record) error {
	var errs []error
	for _, rec := range t {
		if err := rec.Record(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
