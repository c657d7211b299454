package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/comalice/rtdevs"
	"github.com/comalice/rtdevs/hal"
	"github.com/comalice/rtdevs/hal/host"
	"github.com/comalice/rtdevs/hal/simboard"
	"github.com/comalice/rtdevs/internal/config"
	"github.com/comalice/rtdevs/internal/production"
	"github.com/comalice/rtdevs/models"
	"github.com/comalice/rtdevs/realtime"
)

const buttonSource hal.Source = "button"

// simOptions configure the simulated board.
var simOptions []simboard.Option

// board is what the pacers need from a target.
type board interface {
	hal.Timer
	hal.CPU
	hal.InterruptController
}

// run executes one experiment described by cfg and prints its report to out.
func run(ctx context.Context, cfg *config.Config, out io.Writer, verbose bool) error {
	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	params := cfg.Model.Params()
	if cfg.Model.BusyLED {
		params.BusyLED = hal.LogPin{Name: "busy", Log: logger}
	}
	m, err := models.New(cfg.Topology, params)
	if err != nil {
		return err
	}
	if cfg.Trace.DOT != "" {
		if err := writeFile(cfg.Trace.DOT, []byte(production.ExportDOT(m))); err != nil {
			return err
		}
	}

	info := production.NewRunInfo(cfg.Fingerprint(), cfg.Topology, cfg.Mode)
	rec, closeTrace, err := newRecorder(ctx, cfg.Trace, info, out, verbose)
	if err != nil {
		return err
	}
	logger.Printf("run %s: %s in %s time, config %s", info.ID, cfg.Topology, cfg.Mode, info.Fingerprint)

	opts := []rtdevs.Option{rtdevs.WithLogger(logger)}
	if rec != nil {
		opts = append(opts, rtdevs.WithRecorder(rec))
	}
	sim, err := rtdevs.NewSimulator(m, opts...)
	if err != nil {
		closeTrace()
		return err
	}

	if cfg.Mode == config.ModeVirtual {
		sim.SimulateVT(cfg.Start, cfg.Horizon)
	} else {
		err = runRealtime(ctx, cfg, sim, logger)
	}
	if cerr := closeTrace(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	printReport(out, m, sim.Clock())
	return nil
}

func runRealtime(ctx context.Context, cfg *config.Config, sim *rtdevs.Simulator, logger *log.Logger) error {
	b := newBoard(cfg, logger)
	if hb, ok := b.(*host.Board); ok {
		// A halted host CPU only wakes on an interrupt; cancellation is one.
		stop := context.AfterFunc(ctx, hb.Close)
		defer stop()
		defer hb.Close()
	}
	rcfg := realtime.Config{
		Start:     cfg.Start,
		TimeScale: cfg.Pacing.TimeScale,
		MaxJitter: cfg.Pacing.MaxJitter,
		Logger:    logger,
	}

	var inj *realtime.Injector[int]
	var pacer interface {
		rtdevs.Pacer
		Stats() realtime.JitterStats
	}
	switch cfg.Pacing.Strategy {
	case config.StrategyPoll:
		pacer = realtime.NewPoller(b, rcfg)
	case config.StrategySleep:
		realtime.InstallTimerHandler(b, b)
		pacer = realtime.NewSleeper(b, b, rcfg)
	case config.StrategyInterrupt:
		realtime.InstallTimerHandler(b, b)
		var sig realtime.Signal
		realtime.InstallSignal(b, buttonSource, hal.Priority(cfg.Button.Priority), &sig)
		inj = realtime.NewInjector(&sig, b.TicksPerSecond(), realtime.InjectorConfig[int]{
			Port:     "in_job",
			Debounce: cfg.Pacing.Debounce,
			Value:    func(seq uint64) int { return int(seq) },
			Logger:   logger,
		})
		pacer = realtime.NewInterruptible(b, b, inj, rcfg)
	case config.StrategyDelay:
		pacer = realtime.NewDelay(rcfg)
	default:
		return errors.Errorf("unknown strategy %q", cfg.Pacing.Strategy)
	}
	if len(cfg.Button.Presses) > 0 {
		if inj == nil {
			logger.Printf("button presses ignored by the %s strategy", cfg.Pacing.Strategy)
		} else {
			stop := pressButton(b, cfg.Button.Presses)
			defer stop()
		}
	}

	handler := outputHandler(hal.LogPin{Name: "output", Log: logger}, logger)
	err := sim.SimulateRT(ctx, cfg.Start, cfg.Horizon, pacer, handler)
	stats := pacer.Stats()
	logger.Printf("jitter: %d waits, max %v, mean %v", stats.Waits, stats.Max, stats.Mean())
	if inj != nil {
		s := inj.Stats()
		logger.Printf("button: %d accepted, %d debounced, %d dropped", s.Accepted, s.Debounced, s.Dropped)
	}
	return errors.Wrap(err, "realtime run")
}

// outputHandler logs every value leaving the root model and lights led.
func outputHandler(led hal.DigitalOutput, logger *log.Logger) rtdevs.OutputHandler {
	return func(root *rtdevs.Component) {
		if root.OutputsEmpty() {
			return
		}
		for _, p := range root.OutPorts() {
			if !p.IsEmpty() {
				logger.Printf("[%s] %v", p.FullName(), p.Snapshot())
			}
		}
		if err := led.SetHigh(); err != nil {
			logger.Printf("[output] led: %v", err)
		}
	}
}

func newBoard(cfg *config.Config, logger *log.Logger) board {
	if cfg.Board == config.BoardHost {
		return host.New(cfg.Pacing.TicksPerSecond)
	}
	logger.Printf("simulated board at %d ticks/s", cfg.Pacing.TicksPerSecond)
	var opts []simboard.Option
	if cfg.Pacing.Strategy == config.StrategyPoll {
		// A busy loop only sees time pass if reads cost ticks.
		opts = append(opts, simboard.WithReadStep(1))
	}
	return simboard.New(cfg.Pacing.TicksPerSecond, append(opts, simOptions...)...)
}

// pressButton raises the button source at each physical time in presses,
// given in seconds from the start of the run. The returned function cancels
// presses that have not happened yet.
func pressButton(b board, presses []float64) (stop func()) {
	switch b := b.(type) {
	case *simboard.Board:
		for _, p := range presses {
			b.Schedule(uint64(p*float64(b.TicksPerSecond())), buttonSource)
		}
		return func() {}
	case *host.Board:
		var timers []*time.Timer
		for _, p := range presses {
			d := time.Duration(p * float64(time.Second))
			timers = append(timers, time.AfterFunc(d, func() { b.Raise(buttonSource) }))
		}
		return func() {
			for _, t := range timers {
				t.Stop()
			}
		}
	}
	return func() {}
}

// newRecorder assembles the configured trace sinks. The returned function
// flushes and closes them.
func newRecorder(ctx context.Context, tc config.TraceConfig, info production.RunInfo, out io.Writer, verbose bool) (rtdevs.Recorder, func() error, error) {
	var tee production.Tee
	var closers []func() error
	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	if tc.SQLite != "" {
		store, err := production.OpenStore(tc.SQLite)
		if err != nil {
			return nil, nil, errors.Wrap(err, "trace store")
		}
		rec, err := store.BeginRun(ctx, info)
		if err != nil {
			store.Close()
			return nil, nil, errors.Wrap(err, "trace store")
		}
		tee = append(tee, rec)
		closers = append(closers, store.Close)
	}
	if tc.YAML != "" {
		rec, err := production.NewYAMLRecorder(tc.YAML, info)
		if err != nil {
			closeAll()
			return nil, nil, errors.Wrap(err, "trace file")
		}
		tee = append(tee, rec)
		closers = append(closers, rec.Close)
	}
	if verbose {
		ch := make(chan production.PublishedRecord, 256)
		pub := production.NewChannelPublisher(info.ID, ch)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range ch {
				fmt.Fprintf(out, "%9.3f %-10s %-24s %s %v\n", r.Record.Time, r.Record.Kind, r.Record.Model, r.Record.Port, r.Record.Values)
			}
		}()
		tee = append(tee, pub)
		closers = append(closers, func() error {
			err := pub.Close()
			wg.Wait()
			if n := pub.Dropped(); n > 0 {
				fmt.Fprintf(out, "%d trace records not printed\n", n)
			}
			return err
		})
	}

	if len(tee) == 0 {
		return nil, closeAll, nil
	}
	return tee, closeAll, nil
}

func newLogger(lc config.LogConfig) (*log.Logger, func() error, error) {
	flags := log.LstdFlags | log.Lmicroseconds
	switch lc.Output {
	case "", "stderr":
		return log.New(os.Stderr, lc.Prefix, flags), func() error { return nil }, nil
	case "stdout":
		return log.New(os.Stdout, lc.Prefix, flags), func() error { return nil }, nil
	case "discard":
		return log.New(io.Discard, lc.Prefix, flags), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(lc.Output), 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "log directory")
	}
	f, err := os.OpenFile(lc.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open log")
	}
	return log.New(f, lc.Prefix, flags), f.Close, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

// findTransducer returns the first transducer in the model tree.
func findTransducer(m rtdevs.Model) *models.Transducer {
	if t, ok := m.(*models.Transducer); ok {
		return t
	}
	if c, ok := m.(rtdevs.Composite); ok {
		for _, child := range c.Composite().Children() {
			if t := findTransducer(child); t != nil {
				return t
			}
		}
	}
	return nil
}

func printReport(out io.Writer, m rtdevs.Model, clock float64) {
	fmt.Fprintf(out, "simulation of %s ended at t=%g\n", m.Base().Name(), clock)
	t := findTransducer(m)
	if t == nil {
		return
	}
	r, ok := t.Report()
	if !ok {
		fmt.Fprintf(out, "observation window still open: %d generated, %d processed\n", t.Generated(), t.Processed())
		return
	}
	fmt.Fprintf(out, "generated:  %d\nprocessed:  %d\nacceptance: %.2f\nthroughput: %.2f\n",
		r.Generated, r.Processed, r.Acceptance, r.Throughput)
}
