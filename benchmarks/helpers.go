// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/internal/production"
	"github.com/comalice/rtdevs/models"
)

// Relay forwards every job it receives after a fixed delay. Jobs arriving
// while one is held replace it.
type Relay struct {
	*rtdevs.Component
	In  *rtdevs.Port[int]
	Out *rtdevs.Port[int]

	delay float64
	sigma float64
	job   int
}

// NewRelay creates a passive relay.
func NewRelay(name string, delay float64) *Relay {
	r := &Relay{Component: rtdevs.NewComponent(name), delay: delay, sigma: rtdevs.Infinity}
	r.In = rtdevs.AddInPort[int](r.Component, "in", rtdevs.Unbounded)
	r.Out = rtdevs.AddOutPort[int](r.Component, "out", 1)
	return r
}

func (r *Relay) Lambda() { r.Out.AddValue(r.job) }

func (r *Relay) DeltaInt() { r.sigma = rtdevs.Infinity }

func (r *Relay) DeltaExt(e float64) {
	if job, ok := r.In.Last(); ok {
		r.job = job
		r.sigma = r.delay
		return
	}
	r.sigma -= e
}

func (r *Relay) TA() float64 { return r.sigma }

// GenChain creates a generator feeding n relays in series.
func GenChain(n int) *rtdevs.Coupled {
	if n < 1 {
		n = 1
	}
	b := rtdevs.NewBuilder(fmt.Sprintf("chain_%d", n)).Component(models.NewGenerator("gen", 1))
	prev := "gen.out_job"
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("r%d", i)
		b.Component(NewRelay(name, 0.5)).Couple(prev, name+".in")
		prev = name + ".out"
	}
	return mustBuild(b)
}

// GenFlat creates n independent generators with staggered periods.
func GenFlat(n int) *rtdevs.Coupled {
	if n < 1 {
		n = 1
	}
	b := rtdevs.NewBuilder(fmt.Sprintf("flat_%d", n))
	for i := 0; i < n; i++ {
		b.Component(models.NewGenerator(fmt.Sprintf("g%d", i), 1+float64(i%7)/8))
	}
	return mustBuild(b)
}

// GenDeep creates depth nested coupled models around one generator, each
// level forwarding the jobs through its own output port.
func GenDeep(depth int) *rtdevs.Coupled {
	if depth < 1 {
		depth = 1
	}
	var inner rtdevs.Model = models.NewGenerator("gen", 1)
	src := "gen.out_job"
	for i := 0; i < depth; i++ {
		name := fmt.Sprintf("c%d", i)
		inner = mustBuild(rtdevs.NewBuilder(name).
			Ports(rtdevs.OutPort[int]("out", rtdevs.Unbounded)).
			Component(inner).
			Couple(src, "out"))
		src = name + ".out"
	}
	return inner.(*rtdevs.Coupled)
}

func mustBuild(b *rtdevs.Builder) *rtdevs.Coupled {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

// GenTraceYAML runs the GPT experiment and returns its trace as YAML bytes.
func GenTraceYAML() []byte {
	m, err := models.NewGPT(models.DefaultParams())
	if err != nil {
		panic(err)
	}
	rec := &production.MemoryRecorder{}
	sim, err := rtdevs.NewSimulator(m, rtdevs.WithRecorder(rec))
	if err != nil {
		panic(err)
	}
	sim.SimulateVT(0, 15)
	data, err := yaml.Marshal(production.Trace{
		Run:     production.NewRunInfo("bench", models.TopologyGPT, "virtual"),
		Records: rec.Records(),
	})
	if err != nil {
		panic(err)
	}
	return data
}

// nopRecorder discards records.
type nopRecorder struct{}

func (nopRecorder) Record(context.Context, rtdevs.Record) error { return nil }
