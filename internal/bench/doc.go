// Package bench generates Get/Set load against one or more nodes.
//
// Requests are issued from a worker pool; each one picks a random target,
// a key in key_0..key_{KeyRange-1} and, for writes, a random hex value of
// ValueSize bytes. Keys and values are plain tokens so they pass the
// client's validation. Writes are sent as client writes and therefore
// broadcast to the target's peers.
package bench
