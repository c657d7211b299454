// Command rtdevs runs one of the reference DEVS experiments in virtual time
// or paced against a board clock.
//
// Usage:
//
//	rtdevs [-config run.yaml] [-topology gpt] [-mode realtime] [-horizon 15] [-dot gpt.dot] [-v]
//
// Flags override the matching fields of the configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/comalice/rtdevs/internal/config"
	"github.com/comalice/rtdevs/realtime"
)

func main() {
	var (
		path     = flag.String("config", "", "path to a YAML run configuration")
		topology = flag.String("topology", "", "model topology: gpt, ef, efp or pt")
		mode     = flag.String("mode", "", "run mode: virtual or realtime")
		strategy = flag.String("strategy", "", "pacing strategy: poll, sleep, interrupt or delay")
		board    = flag.String("board", "", "board: sim or host")
		horizon  = flag.Float64("horizon", 0, "virtual time at which the run stops")
		dot      = flag.String("dot", "", "write the model graph in DOT format to this file")
		verbose  = flag.Bool("v", false, "print every trace record")
	)
	flag.Parse()

	cfg := config.Default()
	if *path != "" {
		var err error
		if cfg, err = config.Load(*path); err != nil {
			fmt.Fprintf(os.Stderr, "rtdevs: %v\n", err)
			os.Exit(2)
		}
	}
	if *topology != "" {
		cfg.Topology = *topology
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *strategy != "" {
		cfg.Pacing.Strategy = *strategy
	}
	if *board != "" {
		cfg.Board = *board
	}
	if *horizon > 0 {
		cfg.Horizon = *horizon
	}
	if *dot != "" {
		cfg.Trace.DOT = *dot
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "rtdevs: invalid config: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, *verbose); err != nil {
		stop()
		if errors.Is(err, realtime.ErrJitterExceeded) {
			fmt.Fprintf(os.Stderr, "rtdevs: deadline missed: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "rtdevs: %v\n", err)
		}
		os.Exit(1)
	}
}
