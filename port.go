package rtdevs

import (
	"errors"
	"fmt"
	"reflect"
)

// Direction tells whether a port receives or emits values.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Unbounded is the capacity of a port whose bag never fills up.
const Unbounded = -1

var (
	// ErrCapacityExceeded is returned when a value is added to a full bag.
	ErrCapacityExceeded = errors.New("bag capacity exceeded")
	// ErrTypeMismatch is returned when values cross ports of different types.
	ErrTypeMismatch = errors.New("port type mismatch")
)

// CapacityError reports which port refused a value.
type CapacityError struct {
	Port     string
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("port %s: %v (capacity %d)", e.Port, ErrCapacityExceeded, e.Capacity)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// AnyPort is the type-erased view of a Port used by the simulator and by
// couplings. Only *Port[T] implements it.
type AnyPort interface {
	Name() string
	FullName() string
	Direction() Direction
	Type() reflect.Type
	Capacity() int
	Len() int
	IsEmpty() bool
	Clear()
	// Snapshot copies the current bag content.
	Snapshot() []any

	propagate(dst AnyPort) error
}

// Port is a named communication slot carrying a bag of values of type T.
// The bag holds the values produced during the current simulation step and
// is emptied when the step ends.
type Port[T any] struct {
	owner    *Component
	name     string
	dir      Direction
	capacity int
	bag      []T
}

func newPort[T any](owner *Component, name string, dir Direction, capacity int) *Port[T] {
	p := &Port[T]{owner: owner, name: name, dir: dir, capacity: capacity}
	if capacity > 0 {
		p.bag = make([]T, 0, capacity)
	}
	return p
}

func (p *Port[T]) Name() string { return p.name }

// FullName returns "component.port".
func (p *Port[T]) FullName() string {
	if p.owner == nil {
		return p.name
	}
	return p.owner.name + "." + p.name
}

func (p *Port[T]) Direction() Direction { return p.dir }

func (p *Port[T]) Type() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

func (p *Port[T]) Capacity() int { return p.capacity }

func (p *Port[T]) Len() int { return len(p.bag) }

func (p *Port[T]) IsEmpty() bool { return len(p.bag) == 0 }

func (p *Port[T]) Clear() { p.bag = p.bag[:0] }

// Values returns the bag content in insertion order. The slice is only valid
// until the bag is cleared.
func (p *Port[T]) Values() []T { return p.bag }

// Last returns the most recently added value.
func (p *Port[T]) Last() (T, bool) {
	if len(p.bag) == 0 {
		var zero T
		return zero, false
	}
	return p.bag[len(p.bag)-1], true
}

// AddValue appends v to the bag. A full bag keeps its content and returns a
// *CapacityError; the caller decides what to do with the refused value.
func (p *Port[T]) AddValue(v T) error {
	if p.capacity != Unbounded && len(p.bag) >= p.capacity {
		return &CapacityError{Port: p.FullName(), Capacity: p.capacity}
	}
	p.bag = append(p.bag, v)
	return nil
}

// AddValues appends vs in order and stops at the first refused value.
func (p *Port[T]) AddValues(vs ...T) error {
	for _, v := range vs {
		if err := p.AddValue(v); err != nil {
			return err
		}
	}
	return nil
}

func (p *Port[T]) Snapshot() []any {
	out := make([]any, len(p.bag))
	for i, v := range p.bag {
		out[i] = v
	}
	return out
}

// propagate appends every value of p to dst. Values refused by dst are
// dropped; the first refusal is returned.
func (p *Port[T]) propagate(dst AnyPort) error {
	d, ok := dst.(*Port[T])
	if !ok {
		return fmt.Errorf("%w: %s (%v) -> %s (%v)", ErrTypeMismatch, p.FullName(), p.Type(), dst.FullName(), dst.Type())
	}
	var first error
	for _, v := range p.bag {
		if err := d.AddValue(v); err != nil && first == nil {
			first = err
		}
	}
	return first
}
