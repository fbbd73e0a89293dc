package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	"kv-store/internal/addr"
	"kv-store/internal/client"
	"kv-store/internal/logger"
)

// nothingToDo はクライアントに操作が指定されなかった場合のメッセージ
const nothingToDo = "nothing to do: use --get KEY, --set KEY=VALUE or --list"

type clientFlags struct {
	gets []string
	sets []string
	list bool
}

func newClientCmd(opts *options) *cobra.Command {
	var f clientFlags

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Send request(s) to a key-value store server.",
		Long: `Send requests to a key-value store node.

--get and --set may be repeated. Gets run first, then sets, then the
listing, each group in the order given.`,
		Example: `  kv-store client --set a=1 --set b=2
  kv-store client --ip 127.0.0.1:4001 --get a --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClient(cmd, opts, f)
		},
	}

	flags := cmd.Flags()
	flags.StringP("ip", "i", addr.Default, "set server IP address (IPv4 only!)")
	flags.Duration("rpc-timeout", client.DefaultTimeout, "deadline for each call")
	flags.StringArrayVarP(&f.gets, "get", "g", nil, "get value associated with key")
	flags.StringArrayVarP(&f.sets, "set", "s", nil, "set a key-value pair")
	flags.BoolVarP(&f.list, "list", "l", false, "get key-value pairs defined on server")
	return cmd
}

type pair struct {
	key, value string
}

func runClient(cmd *cobra.Command, opts *options, f clientFlags) error {
	out := cmd.OutOrStdout()

	if len(f.gets) == 0 && len(f.sets) == 0 && !f.list {
		fmt.Fprintln(out, nothingToDo)
		return nil
	}

	cfg, err := opts.nodeConfig()
	if err != nil {
		return err
	}
	target, err := addr.Parse(cfg.Addr)
	if err != nil {
		return err
	}

	// 通信の前に全ての引数を検証する
	for _, key := range f.gets {
		if !client.ValidToken(key) {
			return errors.Errorf("invalid --get: expected '--get KEY'; got '--get %s'", key)
		}
	}
	pairs := make([]pair, 0, len(f.sets))
	for _, kv := range f.sets {
		key, value, err := client.ParsePair(kv)
		if err != nil {
			return errors.Wrap(err, "invalid --set")
		}
		pairs = append(pairs, pair{key, value})
	}

	c, err := client.Dial(target.String(), cfg.RPCTimeout)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for _, key := range f.gets {
		if err := doGet(ctx, out, c, key); err != nil {
			return err
		}
	}
	for _, p := range pairs {
		if err := doSet(ctx, c, p.key, p.value); err != nil {
			return err
		}
	}
	if f.list {
		return doList(ctx, out, c)
	}
	return nil
}

func doGet(ctx context.Context, out io.Writer, c *client.Client, key string) error {
	logger.Debug("", "sending GET request to %s for key '%s'...", c.Addr(), key)

	value, defined, err := c.Get(ctx, key)
	if err != nil {
		return rpcError("could not get key", err)
	}
	if defined {
		fmt.Fprintf(out, "'%s'='%s'\n", key, value)
	} else {
		fmt.Fprintf(out, "'%s': undefined\n", key)
	}
	return nil
}

func doSet(ctx context.Context, c *client.Client, key, value string) error {
	logger.Debug("", "sending SET request to %s for key '%s'...", c.Addr(), key)

	if _, err := c.Set(ctx, key, value, true); err != nil {
		return rpcError("could not set key-value pair", err)
	}
	return nil
}

func doList(ctx context.Context, out io.Writer, c *client.Client) error {
	logger.Debug("", "sending LIST request to %s...", c.Addr())

	store, err := c.List(ctx)
	if err != nil {
		return rpcError("could not get key-value pairs", err)
	}

	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fmt.Fprintf(out, "Key-value pairs defined on %s:\n", c.Addr())
	for _, k := range keys {
		fmt.Fprintf(out, "  - '%s'='%s'\n", k, store[k])
	}
	fmt.Fprintln(out, "-- end of key-value dump --")
	return nil
}

// rpcError はgRPCのステータスコードとメッセージをそのまま含むエラーを返す
func rpcError(what string, err error) error {
	st := status.Convert(err)
	return errors.Errorf("%s: %s: %s", st.Code(), what, st.Message())
}
