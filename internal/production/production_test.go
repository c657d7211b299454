// Tests for trace recorders, the SQLite store and DOT export.
package production

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/models"
)

func runGPT(t *testing.T, rec rtdevs.Recorder) {
	t.Helper()
	m, err := models.NewGPT(models.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	sim, err := rtdevs.NewSimulator(m, rtdevs.WithRecorder(rec))
	if err != nil {
		t.Fatal(err)
	}
	sim.SimulateVT(0, 15)
}

func TestMemoryRecorder(t *testing.T) {
	mem := &MemoryRecorder{}
	runGPT(t, mem)

	jobs := mem.Filter("gpt.generator", rtdevs.KindOutput)
	if len(jobs) != 11 {
		t.Fatalf("Expected 11 generator outputs, got %d", len(jobs))
	}
	if jobs[3].Port != "out_job" || jobs[3].Values[0] != 3 {
		t.Errorf("Unexpected record %+v", jobs[3])
	}
	want := []string{"gpt.generator", "gpt.processor", "gpt.transducer"}
	if got := mem.Models(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Models() = %v, want %v", got, want)
	}
	stops := mem.Filter("gpt.transducer", rtdevs.KindConfluent)
	if len(stops) != 1 || !math.IsInf(stops[0].Sigma, 1) {
		t.Errorf("Expected one confluent transducer transition to passive, got %+v", stops)
	}
}

func TestChannelPublisher_Delivery(t *testing.T) {
	ch := make(chan PublishedRecord, 10)
	p := NewChannelPublisher("run-1", ch)

	rec := rtdevs.Record{Time: 1, Model: "gpt.generator", Kind: rtdevs.KindOutput}
	if err := p.Record(context.Background(), rec); err != nil {
		t.Errorf("Record failed: %v", err)
	}

	select {
	case got := <-ch:
		if got.Run != "run-1" || got.Record.Model != rec.Model {
			t.Errorf("Unexpected published record %+v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No record delivered")
	}
}

func TestChannelPublisher_BackpressureDrop(t *testing.T) {
	ch := make(chan PublishedRecord, 1)
	p := NewChannelPublisher("run", ch)
	ch <- PublishedRecord{} // Fill buffer

	if err := p.Record(context.Background(), rtdevs.Record{}); err != nil {
		t.Errorf("Record on full channel failed: %v", err)
	}
	if p.Dropped() != 1 {
		t.Errorf("Expected 1 dropped record, got %d", p.Dropped())
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

type failingRecorder struct{ err error }

func (f failingRecorder) Record(context.Context, rtdevs.Record) error { return f.err }

func TestTee(t *testing.T) {
	a, b := &MemoryRecorder{}, &MemoryRecorder{}
	boom := errors.New("boom")
	tee := Tee{a, failingRecorder{boom}, b}

	err := tee.Record(context.Background(), rtdevs.Record{Model: "m"})
	if !errors.Is(err, boom) {
		t.Errorf("Expected joined error, got %v", err)
	}
	if len(a.Records()) != 1 || len(b.Records()) != 1 {
		t.Error("Record not delivered to every recorder")
	}
}

func TestYAMLRecorder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "gpt.yaml")
	run := NewRunInfo("abc123", models.TopologyGPT, "virtual")
	rec, err := NewYAMLRecorder(path, run)
	if err != nil {
		t.Fatalf("NewYAMLRecorder failed: %v", err)
	}
	mem := &MemoryRecorder{}
	runGPT(t, Tee{rec, mem})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	trace, err := LoadTrace(path)
	if err != nil {
		t.Fatalf("LoadTrace failed: %v", err)
	}
	if trace.Run.ID != run.ID || trace.Run.Fingerprint != "abc123" {
		t.Errorf("Run metadata mismatch: %+v", trace.Run)
	}
	want := mem.Records()
	if len(trace.Records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(trace.Records))
	}
	for i := range want {
		got := trace.Records[i]
		if got.Time != want[i].Time || got.Model != want[i].Model || got.Kind != want[i].Kind ||
			fmt.Sprint(got.Values) != fmt.Sprint(want[i].Values) {
			t.Fatalf("Record %d mismatch: got %+v, want %+v", i, got, want[i])
		}
		if got.Sigma != want[i].Sigma && !(math.IsInf(got.Sigma, 1) && math.IsInf(want[i].Sigma, 1)) {
			t.Fatalf("Record %d sigma mismatch: got %v, want %v", i, got.Sigma, want[i].Sigma)
		}
	}
}

func TestLoadTraceNonExistent(t *testing.T) {
	_, err := LoadTrace(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist wrapped error, got %v", err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "traces.db"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	run := NewRunInfo("abc123", models.TopologyGPT, "virtual")
	rec, err := store.BeginRun(ctx, run)
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if rec.Run() != run.ID {
		t.Errorf("Recorder run %q, want %q", rec.Run(), run.ID)
	}
	mem := &MemoryRecorder{}
	runGPT(t, Tee{rec, mem})

	runs, err := store.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID || runs[0].Topology != "gpt" {
		t.Errorf("Unexpected runs %+v", runs)
	}

	got, err := store.Records(ctx, run.ID)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	want := mem.Records()
	if len(got) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Time != want[i].Time || got[i].Model != want[i].Model || got[i].Kind != want[i].Kind ||
			got[i].Port != want[i].Port || fmt.Sprint(got[i].Values) != fmt.Sprint(want[i].Values) {
			t.Fatalf("Record %d mismatch: got %+v, want %+v", i, got[i], want[i])
		}
		if got[i].Sigma != want[i].Sigma && !(math.IsInf(got[i].Sigma, 1) && math.IsInf(want[i].Sigma, 1)) {
			t.Fatalf("Record %d sigma mismatch: got %v, want %v", i, got[i].Sigma, want[i].Sigma)
		}
	}

	if _, err := store.BeginRun(ctx, run); err == nil {
		t.Error("Expected error when registering the same run twice")
	}
}

func TestExportDOT_GPT(t *testing.T) {
	m, err := models.NewGPT(models.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	dot := ExportDOT(m)

	if !strings.Contains(dot, `digraph "gpt" {`) {
		t.Error("Missing DOT header")
	}
	if !strings.Contains(dot, `subgraph "cluster_gpt" {`) {
		t.Error("Missing root cluster")
	}
	for _, node := range []string{`"gpt.generator" [label="generator"]`, `"gpt.processor"`, `"gpt.transducer"`} {
		if !strings.Contains(dot, node) {
			t.Errorf("Missing node %s", node)
		}
	}
	if !strings.Contains(dot, `"gpt.generator" -> "gpt.processor" [label="out_job -> in_job"]`) {
		t.Error("Missing internal coupling edge")
	}
	if !strings.Contains(dot, `"gpt.transducer" -> "gpt.generator" [label="out_stop -> in_stop"]`) {
		t.Error("Missing stop edge")
	}
}

func TestExportDOT_Hierarchy(t *testing.T) {
	m, err := models.NewEFP(models.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	dot := ExportDOT(m)

	if !strings.Contains(dot, `subgraph "cluster_efp.ef" {`) {
		t.Error("Missing nested cluster")
	}
	if !strings.Contains(dot, `"efp.ef.out_generator" [label="out_generator" shape=ellipse]`) {
		t.Error("Missing port node of nested model")
	}
	if !strings.Contains(dot, `"efp.ef.out_generator" -> "efp.processor"`) {
		t.Error("Missing edge from nested port")
	}
	if !strings.Contains(dot, `"efp.ef.generator" -> "efp.ef.out_generator"`) {
		t.Error("Missing external output edge")
	}
}
