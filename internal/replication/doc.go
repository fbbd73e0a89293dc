// Package replication propagates writes between nodes of a full mesh.
//
// Two algorithms live here:
//
//   - Bootstrap runs once at startup. For every configured peer that is not
//     this node and not yet known, it calls RegisterWithPeer, merges the
//     returned snapshot into the local store (later snapshots win on
//     conflicting keys) and records the peer. A failed handshake is logged,
//     the peer is still recorded, and the remaining peers are tried.
//
//   - Broadcast runs inside a client-originated Set, after the local write.
//     It forwards the write as a non-broadcast Set to every known peer, one
//     at a time in registration order. The first failure stops the sequence
//     and is returned as a *BroadcastError; peers before it keep the update,
//     peers after it never see it. Nothing is retried or rolled back.
//
// Node services depend only on the Broadcaster interface, so a different
// propagation scheme can replace Mesh without touching them.
package replication
