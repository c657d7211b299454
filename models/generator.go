// Package models contains the reference atomic models and the coupled
// topologies built from them.
//
// A Generator emits numbered jobs at a fixed period, a Processor works on one
// job at a time and drops arrivals while busy, and a Transducer observes both
// for a fixed window, reports acceptance and throughput, then tells the
// generator to stop.
package models

import "github.com/comalice/rtdevs"

// Generator emits job n at time n*period until it receives true on its stop
// port.
type Generator struct {
	*rtdevs.Component
	InStop *rtdevs.Port[bool]
	OutJob *rtdevs.Port[int]

	period float64
	sigma  float64
	count  int
}

// NewGenerator returns a generator whose first job is emitted immediately.
func NewGenerator(name string, period float64) *Generator {
	g := &Generator{Component: rtdevs.NewComponent(name), period: period}
	g.InStop = rtdevs.AddInPort[bool](g.Component, "in_stop", 1)
	g.OutJob = rtdevs.AddOutPort[int](g.Component, "out_job", rtdevs.Unbounded)
	return g
}

func (g *Generator) Lambda() {
	g.Logf("[%s] sending job %d", g.Name(), g.count)
	if err := g.OutJob.AddValue(g.count); err != nil {
		g.Logf("[%s] %v", g.Name(), err)
	}
}

func (g *Generator) DeltaInt() {
	g.count++
	g.sigma = g.period
}

func (g *Generator) DeltaExt(e float64) {
	g.sigma -= e
	if stop, ok := g.InStop.Last(); ok {
		g.Logf("[%s] received stop: %v", g.Name(), stop)
		if stop {
			g.sigma = rtdevs.Infinity
		}
	}
}

func (g *Generator) TA() float64 { return g.sigma }

// Count returns the id of the next job to be emitted.
func (g *Generator) Count() int { return g.count }
