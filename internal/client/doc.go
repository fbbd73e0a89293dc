// Package client provides the gRPC client used to talk to a node.
//
// A Client targets one node address and applies a deadline to every call,
// so an unreachable node fails the call instead of hanging it. Errors keep
// the gRPC status of the remote call; use status.Code to inspect them.
//
// # Basic Usage
//
//	c, err := client.Dial("127.0.0.1:4000", time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	// Client-originated write, replicated to the node's peers
//	if _, err := c.Set(ctx, "key", "value", true); err != nil {
//	    log.Fatal(err)
//	}
//
//	value, defined, err := c.Get(ctx, "key")
//
// # Pool
//
// Pool keeps one Client per address and is what a node uses to reach its
// peers during bootstrap and broadcast:
//
//	pool := client.NewPool(time.Second)
//	defer pool.Close()
//	c, err := pool.Get("127.0.0.1:4001")
//
// # Validation
//
// Keys and values are tokens of letters, digits and underscores.
// ValidToken and ParsePair implement the checks the command line applies
// before any call is made.
package client
