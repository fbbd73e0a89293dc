package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics(t *testing.T) {
	m := New()

	assert.Zero(t, m.TotalRequests())
	assert.Zero(t, m.SuccessRequests())
	assert.Zero(t, m.AverageLatency())
	assert.Zero(t, m.P99Latency())
	assert.Zero(t, m.ErrorRate())
}

func TestMetricsRecord(t *testing.T) {
	m := New()

	m.Record(10*time.Millisecond, nil)
	m.Record(20*time.Millisecond, errors.New("boom"))
	m.RecordSuccess(30 * time.Millisecond)

	assert.EqualValues(t, 3, m.TotalRequests())
	assert.EqualValues(t, 2, m.SuccessRequests())
	assert.EqualValues(t, 1, m.FailedRequests())
	assert.Equal(t, 20*time.Millisecond, m.AverageLatency())
	assert.InDelta(t, 1.0/3.0, m.ErrorRate(), 1e-9)
}

func TestMetricsP99Latency(t *testing.T) {
	m := New()

	for i := 1; i <= 100; i++ {
		m.RecordSuccess(time.Duration(i) * time.Millisecond)
	}

	p99 := m.P99Latency()
	assert.GreaterOrEqual(t, p99, 99*time.Millisecond)
	assert.LessOrEqual(t, p99, 100*time.Millisecond)
}

func TestMetricsSampleLimit(t *testing.T) {
	m := NewWithConfig(Config{MaxLatencySamples: 10})

	for i := 1; i <= 100; i++ {
		m.RecordSuccess(time.Duration(i) * time.Millisecond)
	}

	// only the first 10 samples are kept
	assert.Equal(t, 10*time.Millisecond, m.P99Latency())
	assert.EqualValues(t, 100, m.TotalRequests())
}

func TestMetricsReset(t *testing.T) {
	m := New()

	m.RecordSuccess(10 * time.Millisecond)
	m.RecordSuccess(20 * time.Millisecond)

	m.Reset()

	assert.Zero(t, m.RPS(), "window metrics should be reset")
	assert.EqualValues(t, 2, m.TotalRequests(), "total should remain")
}

func TestMetricsConcurrent(t *testing.T) {
	m := New()
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.RecordSuccess(time.Millisecond)
			}
		}()
	}

	wg.Wait()

	assert.EqualValues(t, 10000, m.TotalRequests())
}

func TestMetricsSnapshot(t *testing.T) {
	m := New()

	m.RecordSuccess(10 * time.Millisecond)
	m.RecordFailure(20 * time.Millisecond)

	snap := m.Snapshot()

	assert.EqualValues(t, 2, snap.TotalRequests)
	assert.EqualValues(t, 1, snap.SuccessRequests)
	assert.EqualValues(t, 1, snap.FailedRequests)
	assert.Equal(t, 0.5, snap.ErrorRate)
}

func TestReplicationObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewReplication(reg)

	r.ObservePeerCall(OpBroadcast, time.Millisecond, nil)
	r.ObservePeerCall(OpBroadcast, time.Millisecond, errors.New("unreachable"))
	r.ObservePeerCall(OpBootstrap, time.Millisecond, nil)
	r.ObserveWrite(true)
	r.ObserveWrite(false)
	r.ObserveWrite(false)
	r.SetPeers(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.peerCalls.WithLabelValues("broadcast", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.peerCalls.WithLabelValues("broadcast", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.peerCalls.WithLabelValues("bootstrap", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.writes.WithLabelValues("client")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.writes.WithLabelValues("peer")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.peers))

	snap := r.Snapshot()
	assert.EqualValues(t, 2, snap.Broadcast.TotalRequests)
	assert.EqualValues(t, 1, snap.Broadcast.FailedRequests)
	assert.EqualValues(t, 1, snap.Bootstrap.TotalRequests)

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestReplicationWithoutRegistry(t *testing.T) {
	r := NewReplication(nil)
	assert.NotPanics(t, func() {
		r.ObservePeerCall(OpBootstrap, time.Millisecond, nil)
	})
}
