package models

import (
	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal"
)

// Processor holds at most one job for a fixed processing time. Jobs that
// arrive while it is busy are dropped.
type Processor struct {
	*rtdevs.Component
	InJob  *rtdevs.Port[int]
	OutJob *rtdevs.Port[int]

	time  float64
	sigma float64
	job   int
	busy  bool
	led   hal.DigitalOutput

	processed int
	dropped   int
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithBusyLED drives led high while a job is in progress. The LED is forced
// low when the simulation stops.
func WithBusyLED(led hal.DigitalOutput) ProcessorOption {
	return func(p *Processor) { p.led = led }
}

// NewProcessor returns an idle processor.
func NewProcessor(name string, processingTime float64, opts ...ProcessorOption) *Processor {
	p := &Processor{
		Component: rtdevs.NewComponent(name),
		time:      processingTime,
		sigma:     rtdevs.Infinity,
	}
	p.InJob = rtdevs.AddInPort[int](p.Component, "in_job", 1)
	p.OutJob = rtdevs.AddOutPort[int](p.Component, "out_job", rtdevs.Unbounded)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) Lambda() {
	if !p.busy {
		return
	}
	if err := p.OutJob.AddValue(p.job); err != nil {
		p.Logf("[%s] %v", p.Name(), err)
	}
}

func (p *Processor) DeltaInt() {
	p.sigma = rtdevs.Infinity
	if !p.busy {
		return
	}
	p.Logf("[%s] processed job %d", p.Name(), p.job)
	p.busy = false
	p.processed++
	p.setLED(false)
}

func (p *Processor) DeltaExt(e float64) {
	p.sigma -= e
	job, ok := p.InJob.Last()
	if !ok {
		return
	}
	if p.busy {
		p.Logf("[%s] received job %d (busy)", p.Name(), job)
		p.dropped++
		return
	}
	p.Logf("[%s] received job %d (idle)", p.Name(), job)
	p.job = job
	p.busy = true
	p.sigma = p.time
	p.setLED(true)
}

func (p *Processor) TA() float64 { return p.sigma }

// Stop forces the busy LED low.
func (p *Processor) Stop() { p.setLED(false) }

func (p *Processor) setLED(on bool) {
	if p.led == nil {
		return
	}
	var err error
	if on {
		err = p.led.SetHigh()
	} else {
		err = p.led.SetLow()
	}
	if err != nil {
		p.Logf("[%s] led: %v", p.Name(), err)
	}
}

// Busy reports whether a job is in progress.
func (p *Processor) Busy() bool { return p.busy }

// Processed returns the number of completed jobs.
func (p *Processor) Processed() int { return p.processed }

// Dropped returns the number of jobs refused while busy.
func (p *Processor) Dropped() int { return p.dropped }
