package taskrelay

import (
	"github.com/Swind/go-task-relay/app"
	"github.com/Swind/go-task-relay/core"
	"github.com/Swind/go-task-relay/relay"
)

// Re-export commonly used types for convenience.
// This allows users to import only the taskrelay package for most use cases.

// Task is the unit of work run by an EventLoop (Closure)
type Task = core.Task

// EventLoop is the single-threaded host loop
type EventLoop = core.EventLoop

// EventLoopConfig configures an EventLoop
type EventLoopConfig = core.EventLoopConfig

// Logger is the structured logging interface used throughout the module
type Logger = core.Logger

// Application owns the object tree and the event loop of the process
type Application = app.Application

// Handle is the opaque task reference carried by the process relay
type Handle = relay.Handle

// Executor runs a delivered Handle on the loop goroutine
type Executor = relay.Executor[Handle]

// Future is work polled on the loop until it completes
type Future = relay.Future

// FutureFunc adapts a function to Future
type FutureFunc = relay.FutureFunc

// NewApplication creates the current application with default settings.
func NewApplication(name string) (*Application, error) {
	return app.New(app.Config{Name: name})
}

// Initialize creates the process relay on the current application.
func Initialize(executor Executor) error {
	return relay.Initialize(executor)
}

// Enqueue submits task to the process relay. False means it was not scheduled.
func Enqueue(task Handle) bool {
	return relay.Enqueue(task)
}

// Started reports whether the process relay exists.
func Started() bool {
	_, ok := relay.Instance()
	return ok
}

// Spawn polls future on the current application's loop until it completes.
func Spawn(future Future) error {
	return relay.Spawn(future)
}
