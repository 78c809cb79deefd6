package workerpool

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Task represents a unit of work
type Task struct {
	ID  string                          // Unique task identifier
	Fn  func(ctx context.Context) error // Task function
	Ctx context.Context                 // Task context for cancellation
}

var taskCounter atomic.Uint64

func generateTaskID() string {
	return fmt.Sprintf("task-%d", taskCounter.Add(1))
}

func newTask(ctx context.Context, fn func(ctx context.Context) error) *Task {
	return &Task{ID: generateTaskID(), Fn: fn, Ctx: ctx}
}
