package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"kv-store/internal/kvpb"
)

// DefaultTimeout は1回のRPCに適用するデフォルトの期限
const DefaultTimeout = time.Second

// Client は1ノードへのgRPCクライアント
type Client struct {
	addr    string
	timeout time.Duration
	conn    *grpc.ClientConn
	rpc     kvpb.NodeClient
}

// Dial は指定アドレスへのクライアントを作成する。
// 接続は最初の呼び出しまで確立されない。
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		addr:    addr,
		timeout: timeout,
		conn:    conn,
		rpc:     kvpb.NewNodeClient(conn),
	}, nil
}

// Addr は接続先アドレスを返す
func (c *Client) Addr() string {
	return c.addr
}

// withTimeout は呼び出しごとの期限付きコンテキストを返す
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Get はキーの値を取得する
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reply, err := c.rpc.Get(ctx, &kvpb.GetRequest{Key: key})
	if err != nil {
		return "", false, errors.Wrapf(err, "could not get key '%s' from %s", key, c.addr)
	}
	return reply.Value, reply.Defined, nil
}

// Set はキーに値を設定する。broadcastはクライアント起点の書き込みでtrue。
func (c *Client) Set(ctx context.Context, key, value string, broadcast bool) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reply, err := c.rpc.Set(ctx, &kvpb.SetRequest{Key: key, Value: value, Broadcast: broadcast})
	if err != nil {
		return "", errors.Wrapf(err, "could not set key '%s' on %s", key, c.addr)
	}
	return reply.Value, nil
}

// List はノードのストア全体を取得する
func (c *Client) List(ctx context.Context) (map[string]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reply, err := c.rpc.List(ctx, &kvpb.ListRequest{})
	if err != nil {
		return nil, errors.Wrapf(err, "could not list key-value pairs on %s", c.addr)
	}
	return orEmpty(reply.Store), nil
}

// RegisterWithPeer は自ノードのアドレスを相手に登録し、相手のスナップショットを受け取る
func (c *Client) RegisterWithPeer(ctx context.Context, self string) (map[string]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reply, err := c.rpc.RegisterWithPeer(ctx, &kvpb.RegisterRequest{IP: self})
	if err != nil {
		return nil, errors.Wrapf(err, "could not register with peer %s", c.addr)
	}
	return orEmpty(reply.Store), nil
}

// Close は接続を閉じる
func (c *Client) Close() error {
	return c.conn.Close()
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
