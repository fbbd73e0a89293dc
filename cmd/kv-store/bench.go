package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"kv-store/internal/addr"
	"kv-store/internal/bench"
	"kv-store/internal/client"
	"kv-store/internal/metrics"
)

type benchFlags struct {
	targets   []string
	requests  uint64
	duration  time.Duration
	keyRange  int
	valueSize int
}

func newBenchCmd(opts *options) *cobra.Command {
	var f benchFlags
	defaults := bench.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Generate Get/Set load against one or more nodes.",
		Example: `  kv-store bench --requests 10000
  kv-store bench --ip 127.0.0.1:4000 --ip 127.0.0.1:4001 --duration 30s --write-ratio 0.2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, opts, f)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&f.targets, "ip", "i", []string{addr.Default}, "node address to send requests to (repeatable)")
	flags.Duration("rpc-timeout", client.DefaultTimeout, "deadline for each call")
	flags.Int("workers", defaults.NumWorkers, "number of concurrent requests")
	flags.Float64("write-ratio", defaults.WriteRatio, "fraction of requests that are writes (0.0-1.0)")
	flags.Uint64Var(&f.requests, "requests", 0, "stop after this many requests")
	flags.DurationVar(&f.duration, "duration", 10*time.Second, "run for this long when --requests is not set")
	flags.IntVar(&f.keyRange, "key-range", defaults.KeyRange, "number of distinct keys")
	flags.IntVar(&f.valueSize, "value-size", defaults.ValueSize, "random bytes per value (hex encoded)")
	return cmd
}

func runBench(cmd *cobra.Command, opts *options, f benchFlags) error {
	cfg, err := opts.nodeConfig()
	if err != nil {
		return err
	}

	bc := bench.Config{
		NumWorkers: cfg.Workers,
		WriteRatio: opts.v.GetFloat64("write-ratio"),
		KeyRange:   f.keyRange,
		ValueSize:  f.valueSize,
	}
	if bc.WriteRatio < 0 || bc.WriteRatio > 1 {
		return errors.New("--write-ratio must be between 0 and 1")
	}

	var targets []bench.Target
	for _, t := range f.targets {
		a, err := addr.Parse(t)
		if err != nil {
			return err
		}
		c, err := client.Dial(a.String(), cfg.RPCTimeout)
		if err != nil {
			return err
		}
		defer c.Close()
		targets = append(targets, c)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g := bench.New(targets, bc)

	var snap *metrics.Snapshot
	if f.requests > 0 {
		snap = g.RunRequests(ctx, f.requests)
	} else {
		snap = g.RunFor(ctx, f.duration)
	}

	printReport(cmd.OutOrStdout(), f.targets, bc, snap)
	return nil
}

func printReport(out io.Writer, targets []string, bc bench.Config, snap *metrics.Snapshot) {
	fmt.Fprintln(out, "Load test report")
	fmt.Fprintln(out, "================")
	fmt.Fprintf(out, "Targets:      %v\n", targets)
	fmt.Fprintf(out, "Workers:      %d\n", bc.NumWorkers)
	fmt.Fprintf(out, "Write ratio:  %.0f%%\n", bc.WriteRatio*100)
	fmt.Fprintf(out, "Elapsed:      %v\n", snap.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Requests:     %d (ok: %d, failed: %d)\n",
		snap.TotalRequests, snap.SuccessRequests, snap.FailedRequests)
	fmt.Fprintf(out, "RPS:          %.1f\n", snap.OverallRPS)
	fmt.Fprintf(out, "Avg latency:  %v\n", snap.AverageLatency)
	fmt.Fprintf(out, "P99 latency:  %v\n", snap.P99Latency)
	fmt.Fprintf(out, "Error rate:   %.2f%%\n", snap.ErrorRate*100)
}
