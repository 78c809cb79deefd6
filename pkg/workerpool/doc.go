// Package workerpool runs tasks on a fixed set of goroutines with a bounded
// queue, panic recovery and graceful shutdown.
//
// A pool is long-lived and shared. Callers that need to wait for their own
// batch of tasks, such as a fleet-wide report, use a Group:
//
//	g := pool.Group(ctx)
//	for i, m := range machines {
//	    i, m := i, m
//	    g.Go(func(ctx context.Context) error {
//	        results[i], err = compute(ctx, m)
//	        return err
//	    })
//	}
//	if err := g.Wait(); err != nil {
//	    return err
//	}
package workerpool
