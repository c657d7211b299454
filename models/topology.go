package models

import (
	"fmt"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal"
)

// Params are the parameters shared by every topology.
type Params struct {
	Period          float64
	ProcessingTime  float64
	ObservationTime float64
	// BusyLED, if set, mirrors the processor's busy state.
	BusyLED hal.DigitalOutput
}

// DefaultParams returns the classic experiment: one job per second, 2.1
// seconds per job, 10 seconds of observation.
func DefaultParams() Params {
	return Params{Period: 1, ProcessingTime: 2.1, ObservationTime: 10}
}

func (p Params) processor() *Processor {
	var opts []ProcessorOption
	if p.BusyLED != nil {
		opts = append(opts, WithBusyLED(p.BusyLED))
	}
	return NewProcessor("processor", p.ProcessingTime, opts...)
}

// GPT wires a generator, a processor and a transducer as siblings.
type GPT struct {
	*rtdevs.Coupled
	Generator  *Generator
	Processor  *Processor
	Transducer *Transducer
}

func NewGPT(p Params) (*GPT, error) {
	m := &GPT{
		Generator:  NewGenerator("generator", p.Period),
		Processor:  p.processor(),
		Transducer: NewTransducer("transducer", p.ObservationTime),
	}
	c, err := rtdevs.NewBuilder("gpt").
		Component(m.Generator).
		Component(m.Processor).
		Component(m.Transducer).
		Couple("generator.out_job", "processor.in_job").
		Couple("processor.out_job", "transducer.in_processor").
		Couple("generator.out_job", "transducer.in_generator").
		Couple("transducer.out_stop", "generator.in_stop").
		Build()
	if err != nil {
		return nil, fmt.Errorf("gpt: %w", err)
	}
	m.Coupled = c
	return m, nil
}

// EF is the experimental frame: a generator and a transducer exposing the
// generated jobs and accepting processed ones.
type EF struct {
	*rtdevs.Coupled
	Generator  *Generator
	Transducer *Transducer
}

func NewEF(p Params) (*EF, error) {
	m := &EF{
		Generator:  NewGenerator("generator", p.Period),
		Transducer: NewTransducer("transducer", p.ObservationTime),
	}
	c, err := rtdevs.NewBuilder("ef").
		Ports(
			rtdevs.InPort[int]("in_processor", 1),
			rtdevs.OutPort[int]("out_generator", 1),
		).
		Component(m.Generator).
		Component(m.Transducer).
		Couple("in_processor", "transducer.in_processor").
		Couple("generator.out_job", "transducer.in_generator").
		Couple("transducer.out_stop", "generator.in_stop").
		Couple("generator.out_job", "out_generator").
		Build()
	if err != nil {
		return nil, fmt.Errorf("ef: %w", err)
	}
	m.Coupled = c
	return m, nil
}

// EFP couples an experimental frame to a processor. It behaves exactly like
// GPT with one more hierarchy level.
type EFP struct {
	*rtdevs.Coupled
	EF        *EF
	Processor *Processor
}

func NewEFP(p Params) (*EFP, error) {
	ef, err := NewEF(p)
	if err != nil {
		return nil, err
	}
	m := &EFP{EF: ef, Processor: p.processor()}
	c, err := rtdevs.NewBuilder("efp").
		Component(m.EF).
		Component(m.Processor).
		Couple("ef.out_generator", "processor.in_job").
		Couple("processor.out_job", "ef.in_processor").
		Build()
	if err != nil {
		return nil, fmt.Errorf("efp: %w", err)
	}
	m.Coupled = c
	return m, nil
}

// PT is a processor and a transducer fed from outside through in_job, for
// runs where jobs come from an exogenous source such as a button.
type PT struct {
	*rtdevs.Coupled
	Processor  *Processor
	Transducer *Transducer
}

func NewPT(p Params) (*PT, error) {
	m := &PT{
		Processor:  p.processor(),
		Transducer: NewTransducer("transducer", p.ObservationTime),
	}
	c, err := rtdevs.NewBuilder("pt").
		Ports(
			rtdevs.InPort[int]("in_job", 1),
			rtdevs.OutPort[int]("out_job", rtdevs.Unbounded),
			rtdevs.OutPort[bool]("out_stop", 1),
		).
		Component(m.Processor).
		Component(m.Transducer).
		Couple("in_job", "processor.in_job").
		Couple("in_job", "transducer.in_generator").
		Couple("processor.out_job", "transducer.in_processor").
		Couple("processor.out_job", "out_job").
		Couple("transducer.out_stop", "out_stop").
		Build()
	if err != nil {
		return nil, fmt.Errorf("pt: %w", err)
	}
	m.Coupled = c
	return m, nil
}

// Topology names accepted by New.
const (
	TopologyGPT = "gpt"
	TopologyEF  = "ef"
	TopologyEFP = "efp"
	TopologyPT  = "pt"
)

// New builds the topology called name.
func New(name string, p Params) (rtdevs.Model, error) {
	var (
		m   rtdevs.Model
		err error
	)
	switch name {
	case TopologyGPT:
		m, err = NewGPT(p)
	case TopologyEF:
		m, err = NewEF(p)
	case TopologyEFP:
		m, err = NewEFP(p)
	case TopologyPT:
		m, err = NewPT(p)
	default:
		return nil, fmt.Errorf("unknown topology %q", name)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
