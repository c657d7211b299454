package rtdevs_test

import (
	"errors"
	"testing"

	. "github.com/comalice/rtdevs"
)

// emitter sends value at offset and then every period.
type emitter struct {
	*Component
	out    *Port[int]
	value  int
	sigma  float64
	period float64
}

func newEmitter(name string, value int, offset, period float64) *emitter {
	e := &emitter{Component: NewComponent(name), value: value, sigma: offset, period: period}
	e.out = AddOutPort[int](e.Component, "out", Unbounded)
	return e
}

func (e *emitter) Lambda() { e.out.AddValue(e.value) }
func (e *emitter) DeltaInt() { e.sigma = e.period }
func (e *emitter) DeltaExt(el float64) { e.sigma -= el }
func (e *emitter) TA() float64 { return e.sigma }

// sink is passive and remembers every value it receives.
type sink struct {
	*Component
	in       *Port[int]
	received []int
	elapsed  []float64
	stopped  int
}

func newSink(name string, capacity int) *sink {
	s := &sink{Component: NewComponent(name)}
	s.in = AddInPort[int](s.Component, "in", capacity)
	return s
}

func (s *sink) Lambda() {}
func (s *sink) DeltaInt() {}
func (s *sink) DeltaExt(e float64) {
	s.elapsed = append(s.elapsed, e)
	s.received = append(s.received, s.in.Values()...)
}
func (s *sink) TA() float64 { return Infinity }
func (s *sink) Stop() { s.stopped++ }

func TestBuilderCouplingKinds(t *testing.T) {
	src := newEmitter("src", 1, 0, Infinity)
	dst := newSink("dst", 1)
	c, err := NewBuilder("top").
		Ports(InPort[int]("in", 1), OutPort[int]("out", Unbounded)).
		Component(src).
		Component(dst).
		Couple("in", "dst.in").
		Couple("src.out", "dst.in").
		Couple("src.out", "out").
		Build()
	if err != nil {
		t.Fatal(err)
	}

	want := []CouplingKind{ExternalInput, Internal, ExternalOutput}
	got := c.Couplings()
	if len(got) != len(want) {
		t.Fatalf("expected %d couplings, got %d", len(want), len(got))
	}
	for i, cp := range got {
		if cp.Kind != want[i] {
			t.Errorf("coupling %s -> %s: kind %v, want %v", cp.From, cp.To, cp.Kind, want[i])
		}
	}
	if got[1].Src.FullName() != "src.out" || got[1].Dst.FullName() != "dst.in" {
		t.Errorf("unexpected endpoints %s -> %s", got[1].Src.FullName(), got[1].Dst.FullName())
	}
	if m, ok := c.Child("dst"); !ok || m != Model(dst) {
		t.Error("child lookup failed")
	}
}

func TestBuilderRejectsInvalidModels(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*Coupled, error)
		is    error
	}{
		{
			name: "unknown component",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Component(newSink("dst", 1)).
					Couple("ghost.out", "dst.in").
					Build()
			},
			is: ErrInvalidModel,
		},
		{
			name: "unknown port",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Component(newEmitter("src", 1, 0, 1)).
					Component(newSink("dst", 1)).
					Couple("src.out", "dst.missing").
					Build()
			},
			is: ErrInvalidModel,
		},
		{
			name: "type mismatch",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Ports(InPort[string]("in", 1)).
					Component(newSink("dst", 1)).
					Couple("in", "dst.in").
					Build()
			},
			is: ErrTypeMismatch,
		},
		{
			name: "wrong direction",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Component(newEmitter("src", 1, 0, 1)).
					Component(newSink("dst", 1)).
					Couple("dst.in", "src.out").
					Build()
			},
			is: ErrInvalidModel,
		},
		{
			name: "zero capacity",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Ports(InPort[int]("in", 0)).
					Build()
			},
			is: ErrInvalidModel,
		},
		{
			name: "zero capacity in child",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Component(newSink("dst", 0)).
					Build()
			},
			is: ErrInvalidModel,
		},
		{
			name: "duplicate component",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Component(newSink("dst", 1)).
					Component(newSink("dst", 1)).
					Build()
			},
			is: ErrInvalidModel,
		},
		{
			name: "duplicate coupling",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Component(newEmitter("src", 1, 0, 1)).
					Component(newSink("dst", 1)).
					Couple("src.out", "dst.in").
					Couple("src.out", "dst.in").
					Build()
			},
			is: ErrInvalidModel,
		},
		{
			name: "input straight to output",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Ports(InPort[int]("in", 1), OutPort[int]("out", 1)).
					Couple("in", "out").
					Build()
			},
			is: ErrInvalidModel,
		},
		{
			name: "duplicate port",
			build: func() (*Coupled, error) {
				return NewBuilder("top").
					Ports(InPort[int]("in", 1), OutPort[int]("in", 1)).
					Build()
			},
			is: ErrInvalidModel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestNestedCoupledValidation(t *testing.T) {
	inner, err := NewBuilder("inner").
		Ports(InPort[int]("in", 1)).
		Component(newSink("dst", 1)).
		Couple("in", "dst.in").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	outer, err := NewBuilder("outer").
		Component(newEmitter("src", 1, 0, 1)).
		Component(inner).
		Couple("src.out", "inner.in").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(outer.Children()) != 2 {
		t.Errorf("expected 2 children, got %d", len(outer.Children()))
	}
}
