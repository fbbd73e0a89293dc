// Package service implements the RPC-facing node service.
//
// Service answers Get, Set, List and RegisterWithPeer against the node's
// store and peer registry. It keeps no per-call or per-connection state.
//
// A Set with broadcast=true is a client write: it is applied locally and
// then handed to the Broadcaster before the call returns. If forwarding
// fails the local write stays applied and the caller receives an
// Unavailable status naming the peer that failed. A Set with
// broadcast=false is a replication update and is only applied locally,
// which keeps the full mesh from re-broadcasting forever.
package service
