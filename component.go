package rtdevs

import (
	"errors"
	"fmt"
	"math"
)

// Infinity is the time advance of a passive model.
var Infinity = math.Inf(1)

// ErrInvalidModel wraps every structural error found while validating a model.
var ErrInvalidModel = errors.New("invalid model")

// Model is anything that can be placed in a model tree.
type Model interface {
	Base() *Component
}

// Atomic is the contract of a leaf model.
//
// Lambda is only called right before DeltaInt and must not change state.
// DeltaExt receives the time elapsed since the last transition and must
// subtract it from its sigma before applying the input. TA returns sigma and
// must never be negative.
type Atomic interface {
	Model
	Lambda()
	DeltaInt()
	DeltaExt(e float64)
	TA() float64
}

// Confluent is implemented by atomic models that resolve simultaneous
// internal and external events themselves.
type Confluent interface {
	DeltaConf(e float64)
}

// Stopper is implemented by models that own external resources. Stop is
// called once when the simulation ends.
type Stopper interface {
	Stop()
}

// Component holds the name and ports shared by atomic and coupled models.
// Atomic models embed a *Component created with NewComponent.
type Component struct {
	name     string
	inPorts  []AnyPort
	outPorts []AnyPort
	byName   map[string]AnyPort
	errs     []error
	logger   Logger
}

// NewComponent creates a component without ports.
func NewComponent(name string) *Component {
	return &Component{
		name:   name,
		byName: make(map[string]AnyPort),
		logger: discard,
	}
}

// Base returns c itself, so that any type embedding *Component is a Model.
func (c *Component) Base() *Component { return c }

func (c *Component) Name() string { return c.name }

// InPorts returns the input ports in declaration order.
func (c *Component) InPorts() []AnyPort { return c.inPorts }

// OutPorts returns the output ports in declaration order.
func (c *Component) OutPorts() []AnyPort { return c.outPorts }

// Port looks a port up by name.
func (c *Component) Port(name string) (AnyPort, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// InputsEmpty reports whether every input bag is empty.
func (c *Component) InputsEmpty() bool {
	for _, p := range c.inPorts {
		if !p.IsEmpty() {
			return false
		}
	}
	return true
}

// OutputsEmpty reports whether every output bag is empty.
func (c *Component) OutputsEmpty() bool {
	for _, p := range c.outPorts {
		if !p.IsEmpty() {
			return false
		}
	}
	return true
}

// ClearPorts empties every bag of c.
func (c *Component) ClearPorts() {
	for _, p := range c.inPorts {
		p.Clear()
	}
	for _, p := range c.outPorts {
		p.Clear()
	}
}

// Logf writes a diagnostic line through the logger installed by the simulator.
func (c *Component) Logf(format string, args ...any) {
	c.logger.Printf(format, args...)
}

func (c *Component) setLogger(l Logger) {
	if l == nil {
		l = discard
	}
	c.logger = l
}

func (c *Component) addPort(p AnyPort) {
	switch {
	case p.Name() == "":
		c.errs = append(c.errs, fmt.Errorf("component %s: empty port name", c.name))
		return
	case p.Capacity() == 0 || p.Capacity() < Unbounded:
		c.errs = append(c.errs, fmt.Errorf("component %s: port %s has invalid capacity %d", c.name, p.Name(), p.Capacity()))
		return
	}
	if _, exists := c.byName[p.Name()]; exists {
		c.errs = append(c.errs, fmt.Errorf("component %s: duplicate port %s", c.name, p.Name()))
		return
	}
	c.byName[p.Name()] = p
	if p.Direction() == In {
		c.inPorts = append(c.inPorts, p)
	} else {
		c.outPorts = append(c.outPorts, p)
	}
}

// validate reports the first port declaration error.
func (c *Component) validate() error {
	if c.name == "" {
		return fmt.Errorf("%w: component without name", ErrInvalidModel)
	}
	if len(c.errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidModel, c.errs[0])
	}
	return nil
}

// AddInPort declares an input port of c. capacity is the maximum bag size,
// or Unbounded. Invalid declarations are reported when the model is
// validated.
func AddInPort[T any](c *Component, name string, capacity int) *Port[T] {
	p := newPort[T](c, name, In, capacity)
	c.addPort(p)
	return p
}

// AddOutPort declares an output port of c.
func AddOutPort[T any](c *Component, name string, capacity int) *Port[T] {
	p := newPort[T](c, name, Out, capacity)
	c.addPort(p)
	return p
}

// InPortOf returns the input port called name, typed as T.
func InPortOf[T any](c *Component, name string) (*Port[T], error) {
	return portOf[T](c, name, In)
}

// OutPortOf returns the output port called name, typed as T.
func OutPortOf[T any](c *Component, name string) (*Port[T], error) {
	return portOf[T](c, name, Out)
}

func portOf[T any](c *Component, name string, dir Direction) (*Port[T], error) {
	p, ok := c.byName[name]
	if !ok || p.Direction() != dir {
		return nil, fmt.Errorf("component %s has no %s port %q", c.name, dir, name)
	}
	typed, ok := p.(*Port[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s carries %v", ErrTypeMismatch, p.FullName(), p.Type())
	}
	return typed, nil
}
