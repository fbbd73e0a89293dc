package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Op はピアへの呼び出し種別
type Op string

const (
	OpBootstrap Op = "bootstrap"
	OpBroadcast Op = "broadcast"
)

// Replication はピア間レプリケーションのメトリクス。
// 集計値はプロセス内のMetricsとPrometheusの両方に記録される。
type Replication struct {
	Bootstrap *Metrics
	Broadcast *Metrics

	peerCalls   *prometheus.CounterVec
	peerLatency *prometheus.HistogramVec
	writes      *prometheus.CounterVec
	peers       prometheus.Gauge
}

// NewReplication は新しいレプリケーションメトリクスを作成し、regに登録する。
// regがnilの場合は登録しない。
func NewReplication(reg prometheus.Registerer) *Replication {
	r := &Replication{
		Bootstrap: New(),
		Broadcast: New(),
		peerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvstore",
			Subsystem: "replication",
			Name:      "peer_calls_total",
			Help:      "Outbound peer calls by operation and result.",
		}, []string{"op", "result"}),
		peerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kvstore",
			Subsystem: "replication",
			Name:      "peer_call_duration_seconds",
			Help:      "Latency of outbound peer calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"op"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvstore",
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Applied writes by origin (client or peer).",
		}, []string{"origin"}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvstore",
			Subsystem: "replication",
			Name:      "known_peers",
			Help:      "Number of peers in the registry.",
		}),
	}

	if reg != nil {
		reg.MustRegister(r.peerCalls, r.peerLatency, r.writes, r.peers)
	}
	return r
}

// ObservePeerCall はピアへの1回の呼び出し結果を記録する
func (r *Replication) ObservePeerCall(op Op, latency time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.peerCalls.WithLabelValues(string(op), result).Inc()
	r.peerLatency.WithLabelValues(string(op)).Observe(latency.Seconds())

	switch op {
	case OpBootstrap:
		r.Bootstrap.Record(latency, err)
	case OpBroadcast:
		r.Broadcast.Record(latency, err)
	}
}

// ObserveWrite は適用された書き込みを記録する
func (r *Replication) ObserveWrite(fromClient bool) {
	origin := "peer"
	if fromClient {
		origin = "client"
	}
	r.writes.WithLabelValues(origin).Inc()
}

// SetPeers は既知ピア数を記録する
func (r *Replication) SetPeers(n int) {
	r.peers.Set(float64(n))
}

// ReplicationSnapshot はレプリケーションメトリクスのスナップショット
type ReplicationSnapshot struct {
	Bootstrap Snapshot `json:"bootstrap"`
	Broadcast Snapshot `json:"broadcast"`
}

// Snapshot は現在のスナップショットを返す
func (r *Replication) Snapshot() ReplicationSnapshot {
	return ReplicationSnapshot{
		Bootstrap: r.Bootstrap.Snapshot(),
		Broadcast: r.Broadcast.Snapshot(),
	}
}
