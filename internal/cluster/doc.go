// Package cluster runs several kv-store nodes in one process.
//
// A Cluster owns a set of servers created on consecutive ports. StartAll
// starts them in creation order and has node i bootstrap against nodes
// 1..i-1, so that once every node is up each one knows all the others.
//
// # Basic Usage
//
//	c := cluster.New()
//
//	// Create nodes on 127.0.0.1:4000..4002
//	if err := c.CreateNodes(3, "127.0.0.1", 4000); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := c.StartAll(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.StopAll()
//
//	if s, ok := c.GetNode("127.0.0.1:4000"); ok {
//	    s.Node().Set("key", "value")
//	}
//
// A base port of 0 lets the operating system pick a free port per node,
// which is what the tests use.
//
// # Thread Safety
//
// All cluster operations are safe for concurrent use. Nodes are started
// one after another and stopped in parallel.
package cluster
