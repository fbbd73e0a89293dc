// Package worker provides a fixed-size goroutine pool.
//
// A node serves every inbound RPC on one of a fixed number of workers
// (ten by default), and the load generator uses the same pool to bound its
// in-flight requests.
//
// # Basic Usage
//
//	pool := worker.NewPool(worker.DefaultWorkers)
//	pool.Start(ctx)
//	defer pool.Stop()
//
//	// Fire and forget
//	pool.Submit(func() {
//	    // do work
//	})
//
//	// Run on a worker and wait for completion
//	err := pool.Run(ctx, func() {
//	    // do work
//	})
//
// # Configuration
//
// Use NewPoolWithConfig for custom settings:
//
//	config := worker.PoolConfig{
//	    NumWorkers:  8,
//	    QueueFactor: 200, // Queue size = 8 * 200 = 1600
//	}
//	pool := worker.NewPoolWithConfig(config)
//
// # Graceful Shutdown
//
// Stop() waits for running jobs to complete before returning and drops
// jobs still waiting in the queue. Run returns ErrStopped for a job that
// was dropped.
package worker
