package rtdevs

// Option applies configuration to a Simulator via the functional options
// pattern.
type Option func(*Simulator)

// WithLogger sets the diagnostic sink of the simulator and of every model it
// runs.
func WithLogger(l Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder attaches a trace recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Simulator) {
		s.recorder = r
	}
}
