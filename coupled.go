package rtdevs

import (
	"fmt"
	"strings"
)

// CouplingKind classifies a coupling by the hierarchy levels it connects.
type CouplingKind int

const (
	// ExternalInput connects an input port of the coupled model to an input
	// port of one of its children.
	ExternalInput CouplingKind = iota
	// Internal connects an output port of a child to an input port of a
	// sibling.
	Internal
	// ExternalOutput connects an output port of a child to an output port of
	// the coupled model.
	ExternalOutput
)

func (k CouplingKind) String() string {
	switch k {
	case ExternalInput:
		return "EIC"
	case Internal:
		return "IC"
	default:
		return "EOC"
	}
}

// Coupling is a resolved directed edge between two ports of the same type.
type Coupling struct {
	Kind CouplingKind
	// From and To name the endpoints as written when the coupling was added,
	// e.g. "generator.out_job" or "in_job" for a port of the coupled model.
	From, To string
	Src, Dst AnyPort
}

// Composite is implemented by coupled models. Types that embed *Coupled get
// it for free.
type Composite interface {
	Model
	Composite() *Coupled
}

// Coupled is a static network of child models and couplings. Its own ports
// are pass-through endpoints for the couplings of its children.
type Coupled struct {
	*Component
	children  []Model
	byName    map[string]Model
	specs     []couplingSpec
	couplings []Coupling
	resolved  bool
	errs      []error
}

type couplingSpec struct {
	from, to string
}

// NewCoupled creates an empty coupled model. Most callers should use
// NewBuilder instead.
func NewCoupled(name string) *Coupled {
	return &Coupled{
		Component: NewComponent(name),
		byName:    make(map[string]Model),
	}
}

func (c *Coupled) Composite() *Coupled { return c }

// AddComponent adds a child model. Child names must be unique.
func (c *Coupled) AddComponent(m Model) {
	c.resolved = false
	if m == nil || m.Base() == nil {
		c.errs = append(c.errs, fmt.Errorf("coupled %s: nil component", c.name))
		return
	}
	name := m.Base().Name()
	if _, exists := c.byName[name]; exists {
		c.errs = append(c.errs, fmt.Errorf("coupled %s: duplicate component %s", c.name, name))
		return
	}
	c.byName[name] = m
	c.children = append(c.children, m)
}

// AddCoupling records a coupling between two endpoints. An endpoint is either
// "child.port" or "port" for a port of c itself. Endpoints are resolved and
// checked by Validate.
func (c *Coupled) AddCoupling(from, to string) {
	c.resolved = false
	c.specs = append(c.specs, couplingSpec{from: from, to: to})
}

// Children returns the child models in insertion order.
func (c *Coupled) Children() []Model { return c.children }

// Child looks a child up by name.
func (c *Coupled) Child(name string) (Model, bool) {
	m, ok := c.byName[name]
	return m, ok
}

// Couplings returns the resolved couplings. It is empty until Validate
// succeeds.
func (c *Coupled) Couplings() []Coupling { return c.couplings }

// Validate resolves every coupling and checks the whole subtree: dangling
// endpoints, type mismatches, bad capacities, duplicate names and edges that
// do not respect the hierarchy are all rejected.
func (c *Coupled) Validate() error {
	if err := c.Component.validate(); err != nil {
		return err
	}
	if len(c.errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidModel, c.errs[0])
	}
	for _, child := range c.children {
		if err := validateModel(child); err != nil {
			return err
		}
	}
	if c.resolved {
		return nil
	}

	couplings := make([]Coupling, 0, len(c.specs))
	seen := make(map[[2]AnyPort]bool, len(c.specs))
	for _, spec := range c.specs {
		cp, err := c.resolve(spec)
		if err != nil {
			return fmt.Errorf("%w: coupled %s: %s -> %s: %w", ErrInvalidModel, c.name, spec.from, spec.to, err)
		}
		key := [2]AnyPort{cp.Src, cp.Dst}
		if seen[key] {
			return fmt.Errorf("%w: coupled %s: duplicate coupling %s -> %s", ErrInvalidModel, c.name, spec.from, spec.to)
		}
		seen[key] = true
		couplings = append(couplings, cp)
	}
	c.couplings = couplings
	c.resolved = true
	return nil
}

func (c *Coupled) resolve(spec couplingSpec) (Coupling, error) {
	srcOwner, srcPort := splitPath(spec.from)
	dstOwner, dstPort := splitPath(spec.to)

	cp := Coupling{From: spec.from, To: spec.to}
	var err error
	switch {
	case srcOwner == "" && dstOwner == "":
		return cp, fmt.Errorf("input port of %s cannot feed its own output directly", c.name)
	case srcOwner == "":
		cp.Kind = ExternalInput
		if cp.Src, err = c.endpoint(c.Component, srcPort, In); err != nil {
			return cp, err
		}
		if cp.Dst, err = c.childEndpoint(dstOwner, dstPort, In); err != nil {
			return cp, err
		}
	case dstOwner == "":
		cp.Kind = ExternalOutput
		if cp.Src, err = c.childEndpoint(srcOwner, srcPort, Out); err != nil {
			return cp, err
		}
		if cp.Dst, err = c.endpoint(c.Component, dstPort, Out); err != nil {
			return cp, err
		}
	default:
		if srcOwner == dstOwner {
			return cp, fmt.Errorf("component %s cannot be coupled to itself", srcOwner)
		}
		cp.Kind = Internal
		if cp.Src, err = c.childEndpoint(srcOwner, srcPort, Out); err != nil {
			return cp, err
		}
		if cp.Dst, err = c.childEndpoint(dstOwner, dstPort, In); err != nil {
			return cp, err
		}
	}
	if cp.Src.Type() != cp.Dst.Type() {
		return cp, fmt.Errorf("%w: %v -> %v", ErrTypeMismatch, cp.Src.Type(), cp.Dst.Type())
	}
	return cp, nil
}

func (c *Coupled) childEndpoint(child, port string, dir Direction) (AnyPort, error) {
	m, ok := c.byName[child]
	if !ok {
		return nil, fmt.Errorf("unknown component %q", child)
	}
	return c.endpoint(m.Base(), port, dir)
}

func (c *Coupled) endpoint(owner *Component, port string, dir Direction) (AnyPort, error) {
	p, ok := owner.Port(port)
	if !ok {
		return nil, fmt.Errorf("component %s has no port %q", owner.Name(), port)
	}
	if p.Direction() != dir {
		return nil, fmt.Errorf("port %s is an %s port, want %s", p.FullName(), p.Direction(), dir)
	}
	return p, nil
}

func validateModel(m Model) error {
	switch v := m.(type) {
	case Composite:
		return v.Composite().Validate()
	case Atomic:
		return v.Base().validate()
	default:
		return fmt.Errorf("%w: %s is neither atomic nor coupled", ErrInvalidModel, m.Base().Name())
	}
}

// splitPath splits "child.port" into ("child", "port") and "port" into
// ("", "port").
func splitPath(path string) (owner, port string) {
	idx := strings.LastIndex(path, ".")
	if idx == -1 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}
