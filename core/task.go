package core

import (
	"context"
	"time"
)

// Task is the unit of work (Closure)
type Task func(ctx context.Context)

// =============================================================================
// TaskRunner: Define task submission interface
// =============================================================================

// TaskRunner accepts tasks for later execution. Both methods report whether
// the task was accepted; a false return means the task will never run.
type TaskRunner interface {
	PostTask(task Task) bool
	PostDelayedTask(task Task, delay time.Duration) bool
}

// =============================================================================
// Context Helper
// =============================================================================
type eventLoopKeyType struct{}

var eventLoopKey eventLoopKeyType

// CurrentEventLoop returns the loop executing the task that owns ctx, or nil
// when ctx was not handed out by an EventLoop.
func CurrentEventLoop(ctx context.Context) *EventLoop {
	if v := ctx.Value(eventLoopKey); v != nil {
		return v.(*EventLoop)
	}
	return nil
}
