package replication

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	nodeaddr "kv-store/internal/addr"
	"kv-store/internal/client"
	"kv-store/internal/events"
	"kv-store/internal/logger"
	"kv-store/internal/metrics"
)

// Broadcaster はクライアント起点の書き込みをピアへ転送する
type Broadcaster interface {
	Broadcast(ctx context.Context, key, value string) error
}

// Peer はレプリケーションが使うリモートノードのRPC
type Peer interface {
	Set(ctx context.Context, key, value string, broadcast bool) (string, error)
	RegisterWithPeer(ctx context.Context, self string) (map[string]string, error)
}

// Dialer はピアアドレスから Peer を解決する
type Dialer interface {
	Peer(addr string) (Peer, error)
}

// PoolDialer は client.Pool からピアを取得する
type PoolDialer struct {
	Pool *client.Pool
}

// Peer は Dialer の実装
func (d PoolDialer) Peer(addr string) (Peer, error) {
	c, err := d.Pool.Get(addr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// State はレプリケーションが参照・更新するローカルノードの状態
type State interface {
	Addr() string
	Peers() []string
	AddPeer(addr string) bool
	HasPeer(addr string) bool
	Merge(snapshot map[string]string) int
	PeerCount() int
}

// BroadcastError はブロードキャストが停止した位置を表す
type BroadcastError struct {
	Key       string
	Peer      string   // 更新に失敗したピア
	Delivered []string // 失敗前に更新済みのピア
	Err       error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast of key '%s' failed at peer %s (%d peers updated before): %v",
		e.Key, e.Peer, len(e.Delivered), e.Err)
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// Cause は github.com/pkg/errors 向け
func (e *BroadcastError) Cause() error {
	return e.Err
}

// Option は Mesh の設定
type Option func(*Mesh)

// WithMetrics はピア呼び出しを m に記録する
func WithMetrics(m *metrics.Replication) Option {
	return func(mesh *Mesh) {
		mesh.metrics = m
	}
}

// WithEvents はレプリケーションイベントを bus に発行する
func WithEvents(bus *events.Bus) Option {
	return func(mesh *Mesh) {
		mesh.bus = bus
	}
}

// Mesh はフルメッシュの Broadcaster 兼ブートストラップ処理
type Mesh struct {
	state   State
	dialer  Dialer
	metrics *metrics.Replication
	bus     *events.Bus
}

var _ Broadcaster = (*Mesh)(nil)

// NewMesh は新しい Mesh を作成する
func NewMesh(state State, dialer Dialer, opts ...Option) *Mesh {
	m := &Mesh{
		state:  state,
		dialer: dialer,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.NewReplication(nil)
	}
	return m
}

// Broadcast は既知の全ピアへ key=value を非ブロードキャスト書き込みとして送る
func (m *Mesh) Broadcast(ctx context.Context, key, value string) error {
	self := m.state.Addr()
	peers := m.state.Peers()
	delivered := make([]string, 0, len(peers))

	for _, addr := range peers {
		logger.Debug(self, "updating peer '%s': '%s' = '%s'", addr, key, value)

		start := time.Now()
		err := m.update(ctx, addr, key, value)
		m.metrics.ObservePeerCall(metrics.OpBroadcast, time.Since(start), err)

		if err != nil {
			logger.Warn(self, "Failed to update peer %s: %v", addr, err)
			m.bus.Publish(events.NewBroadcastFailedEvent(self, addr, key, err))
			return &BroadcastError{Key: key, Peer: addr, Delivered: delivered, Err: err}
		}
		delivered = append(delivered, addr)
	}
	return nil
}

func (m *Mesh) update(ctx context.Context, addr, key, value string) error {
	p, err := m.dialer.Peer(addr)
	if err != nil {
		return err
	}
	_, err = p.Set(ctx, key, value, false)
	return err
}

// Bootstrap は設定された各ピアへ参加登録を行う
// 失敗は独立して扱い、全ピアを試した後にまとめて返す
func (m *Mesh) Bootstrap(ctx context.Context, peers []string) error {
	self := m.state.Addr()
	var errs error

	for _, raw := range peers {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		addr := canonical(raw)
		if addr == self || m.state.HasPeer(addr) {
			logger.Debug(self, "skipping peer %s", addr)
			continue
		}

		logger.Debug(self, "registering with peer %s...", addr)

		start := time.Now()
		snapshot, err := m.register(ctx, self, addr)
		m.metrics.ObservePeerCall(metrics.OpBootstrap, time.Since(start), err)

		m.addPeer(addr)

		if err != nil {
			logger.Error(self, "Failed to register with peer %s: %v", addr, err)
			m.bus.Publish(events.NewBootstrapFailedEvent(self, addr, err))
			errs = multierr.Append(errs, errors.Wrapf(err, "bootstrap with %s", addr))
			continue
		}

		n := m.state.Merge(snapshot)
		logger.Info(self, "Registered with peer %s (%d keys received)", addr, n)
		m.bus.Publish(events.NewBootstrapSucceededEvent(self, addr, n))
	}
	return errs
}

// canonical は解析可能なアドレスを正規形にする
func canonical(s string) string {
	a, err := nodeaddr.Parse(s)
	if err != nil {
		return s
	}
	return a.String()
}

func (m *Mesh) register(ctx context.Context, self, addr string) (map[string]string, error) {
	p, err := m.dialer.Peer(addr)
	if err != nil {
		return nil, err
	}
	return p.RegisterWithPeer(ctx, self)
}

// addPeer は addr を記録し、新規ピアなら通知する
func (m *Mesh) addPeer(addr string) {
	if !m.state.AddPeer(addr) {
		return
	}
	m.metrics.SetPeers(m.state.PeerCount())
	m.bus.Publish(events.NewPeerRegisteredEvent(m.state.Addr(), addr))
}
