package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"kv-store/internal/client"
	"kv-store/internal/cluster"
	"kv-store/internal/worker"
)

func newClusterCmd(opts *options) *cobra.Command {
	var (
		nodes    int
		host     string
		basePort int
	)

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Run several fully meshed nodes in one process.",
		Example: `  kv-store cluster --nodes 3
  kv-store cluster --nodes 5 --base-port 5000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if nodes < 1 {
				return errors.New("--nodes must be at least 1")
			}

			cfg, err := opts.nodeConfig()
			if err != nil {
				return err
			}

			c := cluster.NewWithConfig(cfg)
			if err := c.CreateNodes(nodes, host, basePort); err != nil {
				_ = c.StopAll()
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := c.StartAll(ctx); err != nil {
				_ = c.StopAll()
				return err
			}

			out := cmd.OutOrStdout()
			for _, a := range c.Addrs() {
				fmt.Fprintf(out, "Listening on %s...\n", a)
			}

			<-ctx.Done()
			fmt.Fprintln(out, "\nShutting down...")
			return c.StopAll()
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&nodes, "nodes", "n", 3, "number of nodes")
	flags.StringVar(&host, "host", "127.0.0.1", "IPv4 address the nodes listen on")
	flags.IntVar(&basePort, "base-port", 4000, "port of the first node; the others use the following ports")
	flags.Duration("rpc-timeout", client.DefaultTimeout, "deadline for each call to a peer")
	flags.Int("workers", worker.DefaultWorkers, "number of requests handled concurrently per node")
	return cmd
}
