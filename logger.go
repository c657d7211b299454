package rtdevs

import "log"

// Logger is the line-oriented diagnostic sink. *log.Logger satisfies it.
// Nothing written to it affects simulation results.
type Logger interface {
	Printf(format string, args ...any)
}

var _ Logger = (*log.Logger)(nil)

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

var discard Logger = discardLogger{}
