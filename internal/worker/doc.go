// Package worker provides a fixed-size goroutine pool with deterministic
// shutdown.
//
// A Pool owns exactly N workers and the producer side of one unbounded FIFO
// queue. Each worker loops: take the next job, run it, repeat. Shutdown puts
// one Terminate sentinel per worker at the back of the queue, so every job
// submitted before Shutdown began is still run, then waits for every worker
// goroutine to exit.
//
// # Basic Usage
//
//	pool, err := worker.NewPool(4)
//	if err != nil {
//	    return err
//	}
//	defer pool.Shutdown()
//
//	for i := 0; i < 100; i++ {
//	    if err := pool.Submit(func() {
//	        // do work
//	    }); err != nil {
//	        return err
//	    }
//	}
//
// # Nested Pools
//
// A job may build its own Pool, fan work out to it and shut it down before
// returning. The nested pool is fully independent; the outer worker running
// the job stays busy until the nested Shutdown returns.
//
// # Failure
//
// A job that panics ends its worker. The worker is not replaced, so the pool
// keeps running with one fewer worker. Shutdown still joins every worker and
// reports the panics as *WorkerPanicError values joined with errors.Join.
//
// # Observability
//
// WithLogger, WithEvents and WithRecorder attach the logger, a lifecycle
// event bus and a metrics recorder. They may be shared with nested pools.
package worker
