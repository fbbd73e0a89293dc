// Package node holds the replicated state of a single key-value node.
//
// A Node owns two pieces of process-wide state: the key/value store and the
// registry of peer addresses. Both live behind one RWMutex and are reachable
// only through the methods of Node, which return copies rather than the
// underlying containers.
//
// # Basic Usage
//
//	n := node.New("127.0.0.1:4000")
//
//	// Store a value (always succeeds, overwrites any previous value)
//	n.Set("key", "value")
//
//	// Retrieve a value
//	if value, ok := n.Get("key"); ok {
//	    fmt.Println(value)
//	}
//
//	// Register a peer (self and duplicates are ignored)
//	n.AddPeer("127.0.0.1:4001")
//
// # Store
//
// A key is either absent or holds exactly one current value. There is no
// delete and no versioning. Merge applies a snapshot with the same
// overwrite rule as Set.
//
// # Peer Registry
//
// The registry never contains the node's own address and never holds the
// same address twice. It only grows: peers are never removed, even when
// they stop answering. Peers are returned in registration order.
package node
