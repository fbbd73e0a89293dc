package server

import (
	"context"
	"net"
	"sync"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"kv-store/internal/api"
	"kv-store/internal/client"
	"kv-store/internal/config"
	"kv-store/internal/events"
	"kv-store/internal/kvpb"
	"kv-store/internal/logger"
	"kv-store/internal/metrics"
	"kv-store/internal/node"
	"kv-store/internal/replication"
	"kv-store/internal/service"
	"kv-store/internal/worker"
)

// ErrAlreadyStarted はStartが2回呼ばれた場合に返される
var ErrAlreadyStarted = errors.New("server already started")

// Server は1つのノードを構成するgRPCサーバー
type Server struct {
	config config.Config

	lis       net.Listener
	statusLis net.Listener

	node        *node.Node
	peers       *client.Pool
	mesh        *replication.Mesh
	workers     *worker.Pool
	grpc        *grpc.Server
	status      *api.Server
	registry    *prometheus.Registry
	requests    *metrics.Metrics
	replication *metrics.Replication
	bus         *events.Bus

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	serveErr error
}

// New は設定からサーバーを構築し、リスナーをバインドする
func New(cfg config.Config) (*Server, error) {
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = client.DefaultTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = worker.DefaultWorkers
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", cfg.Addr)
	}

	var statusLis net.Listener
	if cfg.StatusAddr != "" {
		statusLis, err = net.Listen("tcp", cfg.StatusAddr)
		if err != nil {
			_ = lis.Close()
			return nil, errors.Wrapf(err, "failed to listen on %s", cfg.StatusAddr)
		}
	}

	self := lis.Addr().String()
	s := &Server{
		config:    cfg,
		lis:       lis,
		statusLis: statusLis,
		node:      node.New(self),
		peers:     client.NewPool(cfg.RPCTimeout),
		workers:   worker.NewPool(cfg.Workers),
		registry:  prometheus.NewRegistry(),
		requests:  metrics.New(),
		bus:       events.NewBus(),
		done:      make(chan struct{}),
	}

	s.replication = metrics.NewReplication(s.registry)
	s.mesh = replication.NewMesh(s.node, replication.PoolDialer{Pool: s.peers},
		replication.WithMetrics(s.replication),
		replication.WithEvents(s.bus),
	)
	svc := service.New(s.node, s.mesh,
		service.WithMetrics(s.replication),
		service.WithEvents(s.bus),
	)

	grpcMetrics := grpc_prometheus.NewServerMetrics()
	grpcMetrics.EnableHandlingTimeHistogram()
	s.registry.MustRegister(
		grpcMetrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.grpc = grpc.NewServer(
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             2 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			grpcMetrics.UnaryServerInterceptor(),
			s.logUnary,
			s.workerUnary,
		),
	)
	kvpb.RegisterNodeServer(s.grpc, svc)
	reflection.Register(s.grpc)
	grpcMetrics.InitializeMetrics(s.grpc)

	if statusLis != nil {
		s.status = api.NewServer(api.Config{
			Addr:        cfg.StatusAddr,
			Node:        s.node,
			Requests:    s.requests,
			Replication: s.replication,
			Gatherer:    s.registry,
			Events:      s.bus,
		})
	}

	return s, nil
}

// SetPeers は起動時にハンドシェイクするピアを設定する
func (s *Server) SetPeers(peers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.config.Peers = append([]string(nil), peers...)
	return nil
}

// Running はサーバーが稼働中かどうかを返す
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// Start はブートストラップを実行してからリクエストの受け付けを開始する。
// 個々のピアとのハンドシェイク失敗はログに記録され、起動は継続する。
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	peers := s.config.Peers
	s.mu.Unlock()

	self := s.Addr()
	s.workers.Start(runCtx)

	if err := s.mesh.Bootstrap(runCtx, peers); err != nil {
		logger.Warn(self, "Bootstrap finished with %d failed peer(s)", len(multierr.Errors(err)))
	}

	go func() {
		defer close(s.done)
		if err := s.grpc.Serve(s.lis); err != nil {
			s.mu.Lock()
			s.serveErr = err
			s.mu.Unlock()
			logger.Error(self, "gRPC server stopped: %v", err)
		}
	}()

	if s.status != nil {
		go func() {
			if err := s.status.Serve(runCtx, s.statusLis); err != nil {
				logger.Error(self, "Status endpoint stopped: %v", err)
			}
		}()
	}

	logger.Info(self, "Node ready (peers: %d)", s.node.PeerCount())
	return nil
}

// Stop は処理中のリクエストの完了を待ってからサーバーを停止する
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	if !started {
		return multierr.Combine(s.lis.Close(), s.closeStatusListener(), s.peers.Close())
	}

	s.grpc.GracefulStop()
	s.cancel()
	s.workers.Stop()
	<-s.done

	s.mu.Lock()
	err := s.serveErr
	s.mu.Unlock()

	logger.Info(s.Addr(), "Node stopped")
	return multierr.Append(err, s.peers.Close())
}

func (s *Server) closeStatusListener() error {
	if s.statusLis == nil {
		return nil
	}
	return s.statusLis.Close()
}

// Addr はノードのアドレスを返す
func (s *Server) Addr() string {
	return s.node.Addr()
}

// StatusAddr はステータスエンドポイントのアドレスを返す。無効な場合は空文字列
func (s *Server) StatusAddr() string {
	if s.statusLis == nil {
		return ""
	}
	return s.statusLis.Addr().String()
}

// Node はノードの状態を返す
func (s *Server) Node() *node.Node {
	return s.node
}

// Registry はこのノードのPrometheusレジストリを返す
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Events はこのノードのイベントバスを返す
func (s *Server) Events() *events.Bus {
	return s.bus
}

// Requests はRPC処理のメトリクスを返す
func (s *Server) Requests() *metrics.Metrics {
	return s.requests
}

// Replication はレプリケーションのメトリクスを返す
func (s *Server) Replication() *metrics.Replication {
	return s.replication
}

// logUnary は各呼び出しのメソッド、所要時間、ステータスを記録する
func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	s.requests.Record(elapsed, err)
	logger.Debug(s.Addr(), "%s took %v: %s", info.FullMethod, elapsed, status.Code(err))
	return resp, err
}

// workerUnary はハンドラをワーカープール上で実行する
func (s *Server) workerUnary(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	runErr := s.workers.Run(ctx, func() {
		resp, err = handler(ctx, req)
	})
	switch {
	case runErr == nil:
		return resp, err
	case errors.Is(runErr, worker.ErrStopped):
		return nil, status.Error(codes.Unavailable, "node is shutting down")
	default:
		return nil, status.FromContextError(runErr).Err()
	}
}
