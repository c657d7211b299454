package rtdevs

// Builder provides a fluent API for declaring a coupled model by port and
// component names. Nothing is checked until Build.
type Builder struct {
	c *Coupled
}

// PortSpec declares a port of the coupled model being built. Use In and Out
// to create one.
type PortSpec interface {
	declare(c *Component)
}

type portSpec[T any] struct {
	name     string
	dir      Direction
	capacity int
}

func (s portSpec[T]) declare(c *Component) {
	if s.dir == In {
		AddInPort[T](c, s.name, s.capacity)
	} else {
		AddOutPort[T](c, s.name, s.capacity)
	}
}

// InPort declares an input port carrying T.
func InPort[T any](name string, capacity int) PortSpec {
	return portSpec[T]{name: name, dir: In, capacity: capacity}
}

// OutPort declares an output port carrying T.
func OutPort[T any](name string, capacity int) PortSpec {
	return portSpec[T]{name: name, dir: Out, capacity: capacity}
}

// NewBuilder creates a builder for a coupled model called name.
func NewBuilder(name string) *Builder {
	return &Builder{c: NewCoupled(name)}
}

// Ports declares ports of the coupled model itself.
func (b *Builder) Ports(specs ...PortSpec) *Builder {
	for _, s := range specs {
		s.declare(b.c.Component)
	}
	return b
}

// Component adds a child model.
func (b *Builder) Component(m Model) *Builder {
	b.c.AddComponent(m)
	return b
}

// Couple adds a coupling from one endpoint to another. Endpoints use dot
// notation: "child.port" for a child port, "port" for a port of the model
// being built.
func (b *Builder) Couple(from, to string) *Builder {
	b.c.AddCoupling(from, to)
	return b
}

// Build validates the declaration and returns the coupled model.
func (b *Builder) Build() (*Coupled, error) {
	if err := b.c.Validate(); err != nil {
		return nil, err
	}
	return b.c, nil
}
