package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Group is a batch of tasks on a shared pool that can be waited on
// independently of other submitters. The first error cancels the group
// context.
type Group struct {
	pool   *WorkerPool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

// Group starts a new batch bound to ctx
func (p *WorkerPool) Group(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{pool: p, ctx: ctx, cancel: cancel}
}

func (g *Group) fail(err error) {
	g.once.Do(func() {
		g.err = err
		g.cancel()
	})
}

// Go schedules fn. Tasks that start after the group has failed are not run.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1)

	run := func(context.Context) (err error) {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				err = &TaskError{Err: fmt.Errorf("panic: %v", r), Stack: string(debug.Stack())}
				g.fail(err)
			}
		}()
		if g.ctx.Err() != nil {
			return nil
		}
		if err = fn(g.ctx); err != nil {
			g.fail(err)
		}
		return err
	}

	// The task itself runs under Background so the pool never drops it
	// without calling run, which owns the wg accounting.
	if err := g.pool.submit(g.ctx, newTask(context.Background(), run), true); err != nil {
		g.wg.Done()
		g.fail(err)
	}
}

// Wait blocks until every scheduled task has returned and reports the first
// error.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel()
	return g.err
}
