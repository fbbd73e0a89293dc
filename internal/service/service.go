package service

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"kv-store/internal/addr"
	"kv-store/internal/events"
	"kv-store/internal/kvpb"
	"kv-store/internal/logger"
	"kv-store/internal/metrics"
	"kv-store/internal/replication"
)

// State はサービスが操作するノードの状態
type State interface {
	Addr() string
	Get(key string) (string, bool)
	Set(key, value string)
	Snapshot() map[string]string
	AddPeer(addr string) bool
	PeerCount() int
}

// Option はServiceの設定関数
type Option func(*Service)

// WithMetrics は書き込みとピア数をmに記録する
func WithMetrics(m *metrics.Replication) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEvents は書き込みと登録のイベントをbusに発行する
func WithEvents(bus *events.Bus) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

// Service はkvpb.NodeServerの実装
type Service struct {
	state       State
	broadcaster replication.Broadcaster
	metrics     *metrics.Replication
	bus         *events.Bus
}

var _ kvpb.NodeServer = (*Service)(nil)

// New はstateを操作し、クライアントの書き込みをbで転送するServiceを作成する
func New(state State, b replication.Broadcaster, opts ...Option) *Service {
	s := &Service{
		state:       state,
		broadcaster: b,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewReplication(nil)
	}
	return s
}

// Get はキーの値と定義済みかどうかを返す
func (s *Service) Get(_ context.Context, in *kvpb.GetRequest) (*kvpb.GetReply, error) {
	value, ok := s.state.Get(in.Key)
	if !ok {
		logger.Debug(s.state.Addr(), "received GET request for key '%s': value = undefined", in.Key)
		return &kvpb.GetReply{Defined: false}, nil
	}
	logger.Debug(s.state.Addr(), "received GET request for key '%s': value = '%s'", in.Key, value)
	return &kvpb.GetReply{Value: value, Defined: true}, nil
}

// Set は書き込みを適用し、クライアントからの書き込みは全ピアに転送する
func (s *Service) Set(ctx context.Context, in *kvpb.SetRequest) (*kvpb.SetReply, error) {
	self := s.state.Addr()

	s.state.Set(in.Key, in.Value)
	s.metrics.ObserveWrite(in.Broadcast)

	if !in.Broadcast {
		logger.Debug(self, "received peer update for key '%s': new value = '%s'", in.Key, in.Value)
		s.bus.Publish(events.NewWriteAppliedEvent(self, in.Key, in.Value, events.OriginPeer))
		return &kvpb.SetReply{Value: in.Value}, nil
	}

	logger.Debug(self, "received SET request for key '%s': new value = '%s'", in.Key, in.Value)
	s.bus.Publish(events.NewWriteAppliedEvent(self, in.Key, in.Value, events.OriginClient))

	if err := s.broadcaster.Broadcast(ctx, in.Key, in.Value); err != nil {
		return nil, status.Errorf(codes.Unavailable, "key '%s' stored on %s but not fully replicated: %v", in.Key, self, err)
	}
	return &kvpb.SetReply{Value: in.Value}, nil
}

// List はストアのスナップショットを返す
func (s *Service) List(context.Context, *kvpb.ListRequest) (*kvpb.StoreReply, error) {
	logger.Debug(s.state.Addr(), "received LIST request")
	return &kvpb.StoreReply{Store: s.state.Snapshot()}, nil
}

// RegisterWithPeer は呼び出し元を正規化したアドレスでピアとして登録し、スナップショットを返す。
// 不正なアドレスは登録しないが、スナップショットは返す。
func (s *Service) RegisterWithPeer(_ context.Context, in *kvpb.RegisterRequest) (*kvpb.StoreReply, error) {
	self := s.state.Addr()
	logger.Debug(self, "received new peer registration: %s", in.IP)

	peer, err := addr.Parse(in.IP)
	if err != nil {
		logger.Warn(self, "Ignoring registration from invalid address %q", in.IP)
	} else if s.state.AddPeer(peer.String()) {
		s.metrics.SetPeers(s.state.PeerCount())
		s.bus.Publish(events.NewPeerRegisteredEvent(self, peer.String()))
	}

	return &kvpb.StoreReply{Store: s.state.Snapshot()}, nil
}
