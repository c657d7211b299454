package models

import "github.com/comalice/rtdevs"

// Report is what a Transducer computes when its observation window closes.
type Report struct {
	Generated  int
	Processed  int
	Clock      float64
	Acceptance float64
	Throughput float64
}

// Transducer counts generated and processed jobs for an observation window,
// then reports and emits a stop signal once.
type Transducer struct {
	*rtdevs.Component
	InGenerator *rtdevs.Port[int]
	InProcessor *rtdevs.Port[int]
	OutStop     *rtdevs.Port[bool]

	sigma     float64
	clock     float64
	generated int
	processed int

	report   Report
	reported bool
}

// NewTransducer returns a transducer observing for obsTime.
func NewTransducer(name string, obsTime float64) *Transducer {
	t := &Transducer{Component: rtdevs.NewComponent(name), sigma: obsTime}
	t.InGenerator = rtdevs.AddInPort[int](t.Component, "in_generator", 1)
	t.InProcessor = rtdevs.AddInPort[int](t.Component, "in_processor", 1)
	t.OutStop = rtdevs.AddOutPort[bool](t.Component, "out_stop", 1)
	return t
}

func (t *Transducer) Lambda() {
	if err := t.OutStop.AddValue(true); err != nil {
		t.Logf("[%s] %v", t.Name(), err)
	}
}

func (t *Transducer) DeltaInt() {
	t.clock += t.sigma
	r := Report{Generated: t.generated, Processed: t.processed, Clock: t.clock}
	if t.processed > 0 {
		r.Acceptance = float64(t.processed) / float64(t.generated)
		r.Throughput = float64(t.processed) / t.clock
	}
	t.Logf("[%s] acceptance: %.2f, throughput: %.2f", t.Name(), r.Acceptance, r.Throughput)
	t.report, t.reported = r, true
	t.sigma = rtdevs.Infinity
}

func (t *Transducer) DeltaExt(e float64) {
	t.sigma -= e
	t.clock += e
	t.generated += t.InGenerator.Len()
	t.processed += t.InProcessor.Len()
}

func (t *Transducer) TA() float64 { return t.sigma }

// Report returns the report of the closed window, or false while the window
// is still open.
func (t *Transducer) Report() (Report, bool) { return t.report, t.reported }

// Generated returns the number of jobs seen on the generator port so far.
func (t *Transducer) Generated() int { return t.generated }

// Processed returns the number of jobs seen on the processor port so far.
func (t *Transducer) Processed() int { return t.processed }
