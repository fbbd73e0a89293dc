package cluster

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"kv-store/internal/config"
	"kv-store/internal/logger"
	"kv-store/internal/server"
)

// Manager はクラスタ管理の基本操作を定義するインターフェース
type Manager interface {
	AddNode(s *server.Server) error
	RemoveNode(addr string) error
	GetNode(addr string) (*server.Server, bool)
	Nodes() []*server.Server
	StartAll(ctx context.Context) error
	StopAll() error
	Size() int
	RunningCount() int
}

// Ensure Cluster implements Manager
var _ Manager = (*Cluster)(nil)

// Cluster は複数のノードを管理する
type Cluster struct {
	mu       sync.RWMutex
	nodes    map[string]*server.Server
	order    []string
	template config.Config
}

// New はデフォルト設定の新しいクラスタを作成する
func New() *Cluster {
	return NewWithConfig(config.DefaultConfig())
}

// NewWithConfig はノード設定のひな形を指定してクラスタを作成する。
// Addr、Peers、StatusAddrはノードごとに上書きされる。
func NewWithConfig(template config.Config) *Cluster {
	return &Cluster{
		nodes:    make(map[string]*server.Server),
		template: template,
	}
}

// AddNode はクラスタにノードを追加する
func (c *Cluster) AddNode(s *server.Server) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := s.Addr()
	if _, exists := c.nodes[addr]; exists {
		return errors.Errorf("node %s already exists in cluster", addr)
	}

	c.nodes[addr] = s
	c.order = append(c.order, addr)
	logger.Info("", "Node %s added to cluster", addr)
	return nil
}

// RemoveNode はノードを停止してクラスタから削除する
func (c *Cluster) RemoveNode(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, exists := c.nodes[addr]
	if !exists {
		return errors.Errorf("node %s not found in cluster", addr)
	}

	_ = s.Stop()

	delete(c.nodes, addr)
	for i, a := range c.order {
		if a == addr {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	logger.Info("", "Node %s removed from cluster", addr)
	return nil
}

// GetNode はアドレスでノードを取得する
func (c *Cluster) GetNode(addr string) (*server.Server, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, exists := c.nodes[addr]
	return s, exists
}

// Nodes は全てのノードを作成順に返す
func (c *Cluster) Nodes() []*server.Server {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nodes := make([]*server.Server, 0, len(c.order))
	for _, addr := range c.order {
		nodes = append(nodes, c.nodes[addr])
	}
	return nodes
}

// Addrs は全てのノードのアドレスを作成順に返す
func (c *Cluster) Addrs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// StartAll は全てのノードを作成順に起動する。
// 各ノードはそれより前に作成された全ノードとハンドシェイクする。
func (c *Cluster) StartAll(ctx context.Context) error {
	nodes := c.Nodes()

	logger.Info("", "Starting all nodes in cluster (count: %d)", len(nodes))

	var errs error
	peers := make([]string, 0, len(nodes))
	for _, s := range nodes {
		if s.Running() {
			peers = append(peers, s.Addr())
			continue
		}
		if err := s.SetPeers(peers); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "node %s", s.Addr()))
			continue
		}
		if err := s.Start(ctx); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "node %s", s.Addr()))
			continue
		}
		peers = append(peers, s.Addr())
	}

	if errs != nil {
		logger.Error("", "Failed to start %d nodes", len(multierr.Errors(errs)))
		return errs
	}

	logger.Info("", "All nodes started successfully")
	return nil
}

// StopAll は全てのノードを並行して停止する
func (c *Cluster) StopAll() error {
	nodes := c.Nodes()

	logger.Info("", "Stopping all nodes in cluster (count: %d)", len(nodes))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	for _, s := range nodes {
		wg.Add(1)
		go func(s *server.Server) {
			defer wg.Done()
			if err := s.Stop(); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, errors.Wrapf(err, "node %s", s.Addr()))
				mu.Unlock()
			}
		}(s)
	}

	wg.Wait()

	if errs != nil {
		logger.Warn("", "Failed to stop %d nodes cleanly", len(multierr.Errors(errs)))
		return errs
	}

	logger.Info("", "All nodes stopped")
	return nil
}

// Size はクラスタ内のノード数を返す
func (c *Cluster) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// RunningCount は実行中のノード数を返す
func (c *Cluster) RunningCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, s := range c.nodes {
		if s.Running() {
			count++
		}
	}
	return count
}

// CreateNodes は連続したポートにノードを作成してクラスタに追加する。
// basePortが0の場合は各ノードに空きポートが割り当てられる。
func (c *Cluster) CreateNodes(count int, host string, basePort int) error {
	logger.Info("", "Creating %d nodes on %s from port %d", count, host, basePort)

	for i := range count {
		port := 0
		if basePort > 0 {
			port = basePort + i
		}

		cfg := c.template
		cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
		cfg.Peers = nil
		cfg.StatusAddr = ""

		s, err := server.New(cfg)
		if err != nil {
			return errors.Wrapf(err, "create node %d", i+1)
		}
		if err := c.AddNode(s); err != nil {
			_ = s.Stop()
			return err
		}
	}

	logger.Info("", "Created %d nodes successfully", count)
	return nil
}
