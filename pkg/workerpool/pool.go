package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// WorkerPool manages a pool of workers
type WorkerPool struct {
	config  Config
	tasks   chan *Task
	wg      sync.WaitGroup // running workers
	pending sync.WaitGroup // submitted but unfinished tasks
	mu      sync.RWMutex   // guards closed against sends on a closed queue
	closed  bool
	once    sync.Once
	stats   *statsCollector
}

// NewWorkerPool creates a new worker pool with given configuration.
// Returns error if configuration is invalid.
func NewWorkerPool(config Config) (*WorkerPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &WorkerPool{
		config: config,
		tasks:  make(chan *Task, config.QueueSize),
		stats:  newStatsCollector(),
	}
	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		p.stats.workers.Add(1)
		go p.worker()
	}
	return p, nil
}

func (p *WorkerPool) worker() {
	defer func() {
		p.stats.workers.Add(-1)
		p.wg.Done()
	}()
	// Drains the queue until Stop closes it
	for task := range p.tasks {
		p.execute(task)
	}
}

// execute runs a single task with panic recovery
func (p *WorkerPool) execute(task *Task) {
	defer p.pending.Done()

	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{
				TaskID: task.ID,
				Err:    fmt.Errorf("panic: %v", r),
				Stack:  string(debug.Stack()),
			}
		}
		p.stats.recordCompletion(time.Since(start), err != nil)
		if err != nil && p.config.ErrorHandler != nil {
			p.config.ErrorHandler(err)
		}
	}()

	// Skip tasks whose context ended while queued
	if cerr := task.Ctx.Err(); cerr != nil {
		err = &TaskError{TaskID: task.ID, Err: cerr}
		return
	}

	if ferr := task.Fn(task.Ctx); ferr != nil {
		err = &TaskError{TaskID: task.ID, Err: ferr}
	}
}

// submit enqueues task, blocking until there is room, ctx ends or the pool
// closes. With wait false it fails fast with ErrQueueFull.
func (p *WorkerPool) submit(ctx context.Context, task *Task, wait bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.pending.Add(1)
	if !wait {
		select {
		case p.tasks <- task:
			return nil
		default:
			p.pending.Done()
			p.stats.rejectedTasks.Add(1)
			return ErrQueueFull
		}
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		p.pending.Done()
		p.stats.rejectedTasks.Add(1)
		return ctx.Err()
	}
}

// Submit submits a task to the pool.
// Blocks if queue is full until space is available.
func (p *WorkerPool) Submit(fn func() error) error {
	return p.submit(context.Background(), newTask(context.Background(), func(context.Context) error { return fn() }), true)
}

// SubmitWithContext submits a task that receives ctx. The task is skipped if
// ctx ends before a worker picks it up, and submission gives up when ctx ends
// while the queue is full.
func (p *WorkerPool) SubmitWithContext(ctx context.Context, fn func(ctx context.Context) error) error {
	return p.submit(ctx, newTask(ctx, fn), true)
}

// TrySubmit attempts to submit a task without blocking.
// Returns ErrQueueFull if queue is full.
func (p *WorkerPool) TrySubmit(fn func() error) error {
	return p.submit(context.Background(), newTask(context.Background(), func(context.Context) error { return fn() }), false)
}

// Stop stops accepting tasks, lets queued tasks finish and waits for the
// workers up to ShutdownTimeout.
func (p *WorkerPool) Stop() error {
	return p.StopWithContext(context.Background())
}

// StopWithContext is Stop bounded by ctx as well as ShutdownTimeout
func (p *WorkerPool) StopWithContext(ctx context.Context) error {
	var shutdownErr error

	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		timer := time.NewTimer(p.config.ShutdownTimeout)
		defer timer.Stop()

		select {
		case <-done:
		case <-ctx.Done():
			shutdownErr = fmt.Errorf("shutdown cancelled: %w", ctx.Err())
		case <-timer.C:
			shutdownErr = ErrForcedShutdown
		}
	})

	return shutdownErr
}

// IsClosed returns true if pool is closed.
func (p *WorkerPool) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Stats returns current pool statistics.
func (p *WorkerPool) Stats() Stats {
	return p.stats.snapshot(len(p.tasks))
}

// Wait blocks until all submitted tasks are completed.
func (p *WorkerPool) Wait() {
	p.pending.Wait()
}
