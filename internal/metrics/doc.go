// Package metrics provides request and replication metrics.
//
// Metrics collects statistics about request latency, success/failure rates,
// and throughput (RPS). It is thread-safe and optimized for high-concurrency
// scenarios. The load generator reports from it.
//
// Replication wraps two Metrics (bootstrap handshakes and broadcast calls)
// and mirrors every observation into Prometheus collectors, so a node can
// expose them on /metrics.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	// ... do work ...
//	m.Record(time.Since(start), err)
//
//	fmt.Printf("Total: %d, RPS: %.2f, P99: %v\n",
//	    m.TotalRequests(), m.RPS(), m.P99Latency())
//
// Replication metrics for one node:
//
//	reg := prometheus.NewRegistry()
//	r := metrics.NewReplication(reg)
//	r.ObservePeerCall(metrics.OpBroadcast, latency, err)
//
// # Configuration
//
// Use NewWithConfig for custom settings:
//
//	config := metrics.Config{
//	    MaxLatencySamples: 5000, // More samples for P99 accuracy
//	}
//	m := metrics.NewWithConfig(config)
//
// # Thread Safety
//
// All operations use atomic counters or locks and are safe for concurrent
// access.
package metrics
