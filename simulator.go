package rtdevs

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// leaf tracks the schedule of one atomic model.
type leaf struct {
	model Atomic
	path  string
	tLast float64
	tNext float64
}

// Simulator runs a model tree. It is not safe for concurrent use: the whole
// step protocol runs on the calling goroutine, and only the Pacer may block.
type Simulator struct {
	root   Model
	leaves []*leaf
	// outward holds internal and external-output couplings ordered bottom-up,
	// inward holds external-input couplings ordered top-down.
	outward []Coupling
	inward  []Coupling
	ports   []AnyPort

	clock   float64
	stopped bool

	logger   Logger
	recorder Recorder
}

// NewSimulator validates root and flattens it into a list of atomic models
// and ordered couplings.
func NewSimulator(root Model, opts ...Option) (*Simulator, error) {
	if root == nil || root.Base() == nil {
		return nil, fmt.Errorf("%w: nil root", ErrInvalidModel)
	}
	if err := validateModel(root); err != nil {
		return nil, err
	}
	s := &Simulator{root: root, logger: discard}
	for _, opt := range opts {
		opt(s)
	}
	s.flatten(root, "")
	return s, nil
}

func (s *Simulator) flatten(m Model, prefix string) {
	c := m.Base()
	c.setLogger(s.logger)
	path := c.Name()
	if prefix != "" {
		path = prefix + "." + path
	}
	s.ports = append(s.ports, c.inPorts...)
	s.ports = append(s.ports, c.outPorts...)

	switch v := m.(type) {
	case Composite:
		cm := v.Composite()
		for _, cp := range cm.Couplings() {
			if cp.Kind == ExternalInput {
				s.inward = append(s.inward, cp)
			}
		}
		for _, child := range cm.Children() {
			s.flatten(child, path)
		}
		for _, cp := range cm.Couplings() {
			if cp.Kind != ExternalInput {
				s.outward = append(s.outward, cp)
			}
		}
	case Atomic:
		s.leaves = append(s.leaves, &leaf{model: v, path: path})
	}
}

// Root returns the simulated model.
func (s *Simulator) Root() Model { return s.root }

// Clock returns the current virtual time.
func (s *Simulator) Clock() float64 { return s.clock }

// Start sets every model's last event time to t and schedules its first
// internal event.
func (s *Simulator) Start(t float64) {
	s.clock = t
	for _, l := range s.leaves {
		l.tLast = t
		l.tNext = t + s.timeAdvance(l)
	}
	s.clearPorts()
	s.stopped = false
}

// NextTime returns the time of the next scheduled internal event, or
// Infinity if every model is passive.
func (s *Simulator) NextTime() float64 {
	next := Infinity
	for _, l := range s.leaves {
		if l.tNext < next {
			next = l.tNext
		}
	}
	return next
}

// Stop invokes the teardown hook of every model once.
func (s *Simulator) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.stopModel(s.root)
}

func (s *Simulator) stopModel(m Model) {
	if v, ok := m.(Composite); ok {
		for _, child := range v.Composite().Children() {
			s.stopModel(child)
		}
	}
	if st, ok := m.(Stopper); ok {
		st.Stop()
	}
}

// SimulateVT runs as fast as possible from tStart until the next event time
// reaches tStop. The clock ends at tStop, as after SimulateRT.
func (s *Simulator) SimulateVT(tStart, tStop float64) {
	s.Start(tStart)
	defer s.Stop()
	ctx := context.Background()
	for next := s.NextTime(); next < tStop; next = s.NextTime() {
		s.step(ctx, next, true, nil)
	}
	s.clock = math.Max(s.clock, tStop)
}

// SimulateRT runs from tStart to tStop, asking pacer to wait before every
// step. handler may be nil. The first error returned by the pacer ends the
// run and is returned, as does cancellation of ctx.
func (s *Simulator) SimulateRT(ctx context.Context, tStart, tStop float64, pacer Pacer, handler OutputHandler) error {
	if pacer == nil {
		return errors.New("simulate: nil pacer")
	}
	s.Start(tStart)
	defer s.Stop()

	in := s.root.Base()
	for s.clock < tStop {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := s.NextTime()
		target := math.Min(next, tStop)
		t, err := pacer.Wait(ctx, target, in)
		if err != nil {
			return err
		}
		// The clock never moves backwards nor past the requested time.
		t = math.Max(s.clock, math.Min(t, target))
		if t >= tStop {
			s.clock = tStop
			s.clearPorts()
			break
		}
		s.step(ctx, t, t >= next, handler)
	}
	return nil
}

// step runs one output, propagate, transition cycle at time t.
func (s *Simulator) step(ctx context.Context, t float64, imminent bool, handler OutputHandler) {
	s.clock = t
	if s.recorder != nil {
		s.recordPorts(ctx, t, s.root.Base().Name(), KindInput, s.root.Base().inPorts)
	}
	if imminent {
		s.lambda(ctx, t)
		s.propagate(s.outward)
		if handler != nil {
			handler(s.root.Base())
		}
	}
	s.propagate(s.inward)
	s.delta(ctx, t)
	s.clearPorts()
}

func (s *Simulator) lambda(ctx context.Context, t float64) {
	for _, l := range s.leaves {
		if l.tNext > t {
			continue
		}
		l.model.Lambda()
		if s.recorder != nil {
			s.recordPorts(ctx, t, l.path, KindOutput, l.model.Base().outPorts)
		}
	}
}

func (s *Simulator) propagate(couplings []Coupling) {
	for _, cp := range couplings {
		if cp.Src.IsEmpty() {
			continue
		}
		if err := cp.Src.propagate(cp.Dst); err != nil {
			s.logger.Printf("coupling %s -> %s: dropped value: %v", cp.Src.FullName(), cp.Dst.FullName(), err)
		}
	}
}

func (s *Simulator) delta(ctx context.Context, t float64) {
	for _, l := range s.leaves {
		imminent := l.tNext <= t
		hasInput := !l.model.Base().InputsEmpty()
		var kind RecordKind
		switch {
		case imminent && hasInput:
			kind = KindConfluent
			if c, ok := l.model.(Confluent); ok {
				c.DeltaConf(t - l.tLast)
			} else {
				l.model.DeltaInt()
				l.model.DeltaExt(0)
			}
		case imminent:
			kind = KindInternal
			l.model.DeltaInt()
		case hasInput:
			kind = KindExternal
			l.model.DeltaExt(t - l.tLast)
		default:
			continue
		}
		l.tLast = t
		l.tNext = t + s.timeAdvance(l)
		if s.recorder != nil {
			s.record(ctx, Record{Time: t, Model: l.path, Kind: kind, Sigma: l.tNext - t})
		}
	}
}

// timeAdvance queries ta and panics on a contract violation.
func (s *Simulator) timeAdvance(l *leaf) float64 {
	ta := l.model.TA()
	if math.IsNaN(ta) || ta < 0 {
		panic(fmt.Sprintf("rtdevs: model %s returned invalid time advance %v", l.path, ta))
	}
	return ta
}

func (s *Simulator) clearPorts() {
	for _, p := range s.ports {
		p.Clear()
	}
}

func (s *Simulator) recordPorts(ctx context.Context, t float64, model string, kind RecordKind, ports []AnyPort) {
	for _, p := range ports {
		if p.IsEmpty() {
			continue
		}
		s.record(ctx, Record{Time: t, Model: model, Kind: kind, Port: p.Name(), Values: p.Snapshot()})
	}
}

func (s *Simulator) record(ctx context.Context, r Record) {
	if err := s.recorder.Record(ctx, r); err != nil {
		s.logger.Printf("recorder: %v", err)
	}
}
