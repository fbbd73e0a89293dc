package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"kv-store/internal/events"
	"kv-store/internal/logger"
	"kv-store/internal/metrics"
)

// statusInterval はWebSocketへのステータス配信間隔
const statusInterval = time.Second

// Source はAPIが参照するノードの状態
type Source interface {
	Addr() string
	Peers() []string
	Snapshot() map[string]string
	Size() int
	PeerCount() int
}

// Config はAPIサーバーの構成
type Config struct {
	Addr        string
	Node        Source
	Requests    *metrics.Metrics
	Replication *metrics.Replication
	Gatherer    prometheus.Gatherer
	Events      *events.Bus
}

// Server はAPIサーバー
type Server struct {
	config    Config
	startedAt time.Time

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(config Config) *Server {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		config:    config,
		startedAt: time.Now(),
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Methods(http.MethodGet).Subrouter()
	api.HandleFunc("/status", s.handleStatus)
	api.HandleFunc("/peers", s.handlePeers)
	api.HandleFunc("/store", s.handleStore)
	api.HandleFunc("/metrics", s.handleMetrics)

	r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return r
}

// Start はサーバーを開始し、ctxが終了するまでブロックする
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.Wrapf(err, "status endpoint listen on %s", s.config.Addr)
	}
	return s.Serve(ctx, lis)
}

// Serve はlisで受け付けを開始する
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// バックグラウンドでイベント配信
	go s.broadcastLoop(ctx)

	logger.Info(s.nodeAddr(), "Status endpoint listening on http://%s", lis.Addr())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.Serve(lis); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) nodeAddr() string {
	if s.config.Node == nil {
		return ""
	}
	return s.config.Node.Addr()
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Addr      string  `json:"addr"`
	Keys      int     `json:"keys"`
	Peers     int     `json:"peers"`
	UptimeSec float64 `json:"uptime_sec"`
}

func (s *Server) status() StatusResponse {
	n := s.config.Node
	return StatusResponse{
		Addr:      n.Addr(),
		Keys:      n.Size(),
		Peers:     n.PeerCount(),
		UptimeSec: time.Since(s.startedAt).Seconds(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.status())
}

// PeersResponse はピア一覧レスポンス
type PeersResponse struct {
	Addr  string   `json:"addr"`
	Peers []string `json:"peers"`
}

func (s *Server) handlePeers(w http.ResponseWriter, _ *http.Request) {
	peers := s.config.Node.Peers()
	if peers == nil {
		peers = []string{}
	}
	s.writeJSON(w, PeersResponse{Addr: s.config.Node.Addr(), Peers: peers})
}

func (s *Server) handleStore(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.config.Node.Snapshot())
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	Requests    *metrics.Snapshot            `json:"requests,omitempty"`
	Replication *metrics.ReplicationSnapshot `json:"replication,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	resp := MetricsResponse{}
	if s.config.Requests != nil {
		snap := s.config.Requests.Snapshot()
		resp.Requests = &snap
	}
	if s.config.Replication != nil {
		snap := s.config.Replication.Snapshot()
		resp.Replication = &snap
	}
	s.writeJSON(w, resp)
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

// ClientCount は接続中のWebSocketクライアント数を返す
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) broadcast(data any) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// Message はWebSocketで配信するメッセージ
type Message struct {
	Type   string          `json:"type"`
	Event  *events.Event   `json:"event,omitempty"`
	Status *StatusResponse `json:"status,omitempty"`
}

func (s *Server) broadcastLoop(ctx context.Context) {
	var sub <-chan events.Event
	if s.config.Events != nil {
		sub = s.config.Events.Subscribe()
		defer s.config.Events.Unsubscribe(sub)
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			s.broadcast(Message{Type: "event", Event: &ev})
		case <-ticker.C:
			if s.ClientCount() == 0 {
				continue
			}
			status := s.status()
			s.broadcast(Message{Type: "status", Status: &status})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(s.nodeAddr(), "Failed to encode JSON: %v", err)
	}
}
