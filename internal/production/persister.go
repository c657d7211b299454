package production

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/comalice/rtdevs"
)

// RunInfo identifies one simulation run.
type RunInfo struct {
	ID          string    `yaml:"id"`
	Fingerprint string    `yaml:"fingerprint"`
	Topology    string    `yaml:"topology"`
	Mode        string    `yaml:"mode"`
	Started     time.Time `yaml:"started"`
}

// NewRunInfo returns run metadata with a fresh random ID.
func NewRunInfo(fingerprint, topology, mode string) RunInfo {
	return RunInfo{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		Topology:    topology,
		Mode:        mode,
		Started:     time.Now().UTC(),
	}
}

// Trace is the content of a YAML trace file.
type Trace struct {
	Run     RunInfo         `yaml:"run"`
	Records []rtdevs.Record `yaml:"records"`
}

// YAMLRecorder buffers a run and writes it as one YAML document on Close.
type YAMLRecorder struct {
	path string

	mu    sync.Mutex
	trace Trace
}

// NewYAMLRecorder creates a recorder writing to path, creating its directory.
func NewYAMLRecorder(path string, run RunInfo) (*YAMLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return &YAMLRecorder{path: path, trace: Trace{Run: run}}, nil
}

func (y *YAMLRecorder) Record(_ context.Context, r rtdevs.Record) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.trace.Records = append(y.trace.Records, r)
	return nil
}

// Close writes the trace file.
func (y *YAMLRecorder) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	data, err := yaml.Marshal(y.trace)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	if err := os.WriteFile(y.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", y.path, err)
	}
	return nil
}

// LoadTrace reads a trace written by YAMLRecorder.
func LoadTrace(path string) (Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Trace{}, fmt.Errorf("trace %q: %w", path, os.ErrNotExist)
		}
		return Trace{}, fmt.Errorf("read %s: %w", path, err)
	}
	var t Trace
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Trace{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return t, nil
}
