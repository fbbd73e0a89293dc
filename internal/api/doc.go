// Package api serves an optional HTTP status endpoint for one node.
//
// Routes:
//
//	GET /api/status   node address, key and peer counts, uptime
//	GET /api/peers    peer addresses in registration order
//	GET /api/store    snapshot of the store
//	GET /api/metrics  request and replication statistics
//	GET /metrics      Prometheus exposition of the node's registry
//	GET /ws           websocket stream of replication events and periodic status
//
// The endpoint is read-only. Writes go through the gRPC service.
package api
