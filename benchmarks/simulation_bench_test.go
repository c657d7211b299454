// Package benchmarks provides performance benchmarks for the simulator.
package benchmarks

import (
	"fmt"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/internal/production"
	"github.com/comalice/rtdevs/models"
)

func BenchmarkGPTVirtual(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m, err := models.NewGPT(models.DefaultParams())
		if err != nil {
			b.Fatal(err)
		}
		sim, err := rtdevs.NewSimulator(m)
		if err != nil {
			b.Fatal(err)
		}
		sim.SimulateVT(0, 15)
	}
}

func BenchmarkChain(b *testing.B) {
	for _, n := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("relays=%d", n), func(b *testing.B) {
			sim, err := rtdevs.NewSimulator(GenChain(n))
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				sim.SimulateVT(0, 100)
			}
		})
	}
}

func BenchmarkFlat(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("models=%d", n), func(b *testing.B) {
			sim, err := rtdevs.NewSimulator(GenFlat(n))
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				sim.SimulateVT(0, 10)
			}
		})
	}
}

func BenchmarkDeep(b *testing.B) {
	for _, depth := range []int{1, 5, 20} {
		b.Run(fmt.Sprintf("depth=%d", depth), func(b *testing.B) {
			sim, err := rtdevs.NewSimulator(GenDeep(depth))
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				sim.SimulateVT(0, 100)
			}
		})
	}
}

func BenchmarkRecorderOverhead(b *testing.B) {
	recorders := map[string]rtdevs.Recorder{
		"nop":    nopRecorder{},
		"memory": &production.MemoryRecorder{},
	}
	for name, rec := range recorders {
		b.Run(name, func(b *testing.B) {
			sim, err := rtdevs.NewSimulator(GenChain(10), rtdevs.WithRecorder(rec))
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sim.SimulateVT(0, 10)
			}
		})
	}
}

func BenchmarkTraceYAMLUnmarshal(b *testing.B) {
	data := GenTraceYAML()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var t production.Trace
		if err := yaml.Unmarshal(data, &t); err != nil {
			b.Fatal(err)
		}
	}
}
