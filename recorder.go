package rtdevs

import "context"

// RecordKind tells what a trace record describes.
type RecordKind string

const (
	KindInput     RecordKind = "input"
	KindOutput    RecordKind = "output"
	KindInternal  RecordKind = "internal"
	KindExternal  RecordKind = "external"
	KindConfluent RecordKind = "confluent"
)

// Record is one entry of a simulation trace.
type Record struct {
	Time   float64    `json:"time" yaml:"time"`
	Model  string     `json:"model" yaml:"model"`
	Kind   RecordKind `json:"kind" yaml:"kind"`
	Port   string     `json:"port,omitempty" yaml:"port,omitempty"`
	Values []any      `json:"values,omitempty" yaml:"values,omitempty"`
	// Sigma is the time advance after a transition.
	Sigma float64 `json:"sigma" yaml:"sigma"`
}

// Recorder receives trace records as the simulation runs. Errors are logged
// and never stop the simulation.
type Recorder interface {
	Record(ctx context.Context, r Record) error
}

// Pacer blocks until the physical clock reaches virtual time t. It may write
// exogenous input into in and return earlier; the returned time is then used
// for the step instead of t.
type Pacer interface {
	Wait(ctx context.Context, t float64, in *Component) (float64, error)
}

// PacerFunc adapts a function to the Pacer interface.
type PacerFunc func(ctx context.Context, t float64, in *Component) (float64, error)

func (f PacerFunc) Wait(ctx context.Context, t float64, in *Component) (float64, error) {
	return f(ctx, t, in)
}

// OutputHandler is called in real-time runs after every output phase with
// the root model, whose output ports then hold the values it emitted.
type OutputHandler func(root *Component)
