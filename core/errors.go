package core

import "errors"

var (
	// ErrLoopClosed is returned when the loop was shut down.
	ErrLoopClosed = errors.New("event loop is closed")

	// ErrLoopRunning is returned when Run already owns the loop.
	ErrLoopRunning = errors.New("event loop is already running")

	// ErrLoopBusy is returned by ProcessPendingTasks when another iteration
	// is in progress, including a reentrant call from inside a task.
	ErrLoopBusy = errors.New("event loop is processing tasks")
)
