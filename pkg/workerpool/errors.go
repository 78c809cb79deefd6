package workerpool

import (
	"errors"
	"fmt"
)

var (
	ErrPoolClosed     = errors.New("worker pool is closed")
	ErrQueueFull      = errors.New("task queue is full")
	ErrInvalidConfig  = errors.New("invalid pool configuration")
	ErrForcedShutdown = errors.New("workers still busy at shutdown deadline")
)

// TaskError is what a failed or panicking task reports to the error handler
// and to Group.Wait. Stack is set only for panics.
type TaskError struct {
	TaskID string
	Err    error
	Stack  string
}

// Panicked reports whether the task panicked rather than returning an error
func (e *TaskError) Panicked() bool { return e.Stack != "" }

func (e *TaskError) Error() string {
	id := e.TaskID
	if id == "" {
		id = "group task"
	} else {
		id = "task " + id
	}
	if e.Panicked() {
		return fmt.Sprintf("%s panicked: %v", id, e.Err)
	}
	return fmt.Sprintf("%s: %v", id, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
