// Package server assembles and runs one kv-store node.
//
// New binds the gRPC listener (port 0 picks a free port) and wires the
// node state, the peer connection pool, the replication mesh and the
// node service. Start then runs the bootstrap handshake against the
// configured peers before serving, so the node joins the mesh with a
// merged snapshot before it accepts traffic.
//
// Every unary call passes through three interceptors, outermost first:
// go-grpc-prometheus server metrics, a Debug log line with method,
// duration and status code, and the worker pool that bounds how many
// calls are handled at once.
//
// Each Server owns its own Prometheus registry, so several nodes can run
// in one process.
package server
