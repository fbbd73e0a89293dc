package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"kv-store/internal/addr"
	"kv-store/internal/client"
	"kv-store/internal/logger"
	"kv-store/internal/server"
	"kv-store/internal/worker"
)

func newServerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server [PEER...]",
		Short: "Key-value store server.",
		Long: `Start a key-value store node.

Each PEER is the address of a running node. The new node registers with
every peer, merges the peer's key-value pairs into its own store, and
then forwards client writes to all of them.`,
		Example: `  kv-store server
  kv-store server --ip 127.0.0.1:4001 127.0.0.1:4000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringP("ip", "i", addr.Default, "set server IP address (IPv4 only!)")
	flags.Duration("rpc-timeout", client.DefaultTimeout, "deadline for each call to a peer")
	flags.Int("workers", worker.DefaultWorkers, "number of requests handled concurrently")
	flags.String("status-addr", "", "serve the HTTP status endpoint on this address (disabled when empty)")
	return cmd
}

func runServer(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := opts.nodeConfig()
	if err != nil {
		return err
	}

	if len(args) > 0 {
		cfg.Peers = args
	}
	if cfg.Peers, err = uniquePeers(cfg.Addr, cfg.Peers); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := server.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.Start(ctx); err != nil {
		_ = s.Stop()
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s...\n", s.Addr())
	if sa := s.StatusAddr(); sa != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Status endpoint on http://%s\n", sa)
	}

	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")

	done := make(chan error, 1)
	go func() { done <- s.Stop() }()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		return errors.New("timed out waiting for in-flight requests")
	}
}

// uniquePeers は自分自身と重複を除いたピアアドレスを返す
func uniquePeers(self string, peers []string) ([]string, error) {
	seen := map[string]bool{self: true}
	out := make([]string, 0, len(peers))

	for _, p := range peers {
		a, err := addr.Parse(p)
		if err != nil {
			return nil, err
		}
		p = a.String()
		if seen[p] {
			logger.Warn(self, "Skipping peer %s: self or duplicate", p)
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
