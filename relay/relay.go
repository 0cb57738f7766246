// Package relay hands work from any goroutine, or from a foreign runtime
// holding opaque handles, to the single-threaded event loop of the current
// app.Application.
//
// A Relay owns one executor. Enqueue posts a task to the loop and returns
// immediately; the loop later calls the executor with that task, on the loop
// goroutine, in the order Enqueue accepted the tasks. The relay never takes
// ownership of a task: it does not copy what a task refers to, free it, or
// retry it.
//
// Accepted tasks cannot be withdrawn. If the application is destroyed before
// the loop reaches them they are dropped silently and the executor is never
// called for them.
//
// The process-wide relay (Initialize, Instance, Enqueue) carries Handle
// values. New builds independent relays over any task type.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Swind/go-task-relay/app"
	"github.com/Swind/go-task-relay/core"
)

// DefaultName names relay objects in the application tree unless WithName
// is given.
const DefaultName = "task-relay"

// Executor runs one delivered task. It is always called on the loop goroutine.
type Executor[T any] func(ctx context.Context, task T)

// Call is the Executor for relays whose tasks are closures.
func Call(ctx context.Context, task func(ctx context.Context)) {
	task(ctx)
}

// Option configures a relay.
type Option func(*options)

type options struct {
	name   string
	logger core.Logger
}

// WithName sets the name of the relay object in the application tree.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger overrides the application logger.
func WithLogger(logger core.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Relay bridges task submission to an application's event loop.
type Relay[T any] struct {
	name     string
	app      *app.Application
	loop     *core.EventLoop
	object   *app.Object
	executor Executor[T]
	logger   core.Logger

	// onDetach runs once, when the relay leaves the application tree.
	onDetach func()
	detached atomic.Bool

	accepted atomic.Int64
	rejected atomic.Int64
	executed atomic.Int64
	skipped  atomic.Int64
}

// New creates a relay attached to application's root object. It lives until
// Close is called or the application is destroyed.
func New[T any](application *app.Application, executor Executor[T], opts ...Option) (*Relay[T], error) {
	r, err := newRelay(application, executor, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.attach(); err != nil {
		return nil, err
	}
	return r, nil
}

func newRelay[T any](application *app.Application, executor Executor[T], opts ...Option) (*Relay[T], error) {
	if application == nil || application.IsDestroyed() {
		return nil, ErrNoApplication
	}
	if executor == nil {
		return nil, ErrNilExecutor
	}

	o := options{name: DefaultName, logger: application.Logger()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Relay[T]{
		name:     o.name,
		app:      application,
		loop:     application.Loop(),
		executor: executor,
		logger:   o.logger,
	}
	r.object = app.NewObject(o.name, r)
	return r, nil
}

func (r *Relay[T]) attach() error {
	r.object.OnDestroy(r.detach)

	if err := r.app.Root().AddChild(r.object); err != nil {
		r.detach()
		if errors.Is(err, app.ErrObjectDestroyed) {
			return ErrNoApplication
		}
		return fmt.Errorf("attach relay %q: %w", r.name, err)
	}

	r.logger.Debug("relay attached",
		core.F("relay", r.name),
		core.F("object", r.object.ID()),
		core.F("loop", r.loop.Name()),
	)
	return nil
}

func (r *Relay[T]) detach() {
	if !r.detached.CompareAndSwap(false, true) {
		return
	}
	if r.onDetach != nil {
		r.onDetach()
	}
	r.logger.Debug("relay detached", core.F("relay", r.name), core.F("object", r.object.ID()))
}

// Enqueue hands task to the event loop and returns without waiting for it.
//
// False means the task was never scheduled: the relay is closed or the loop
// no longer accepts work. The caller still owns the task and nothing was done
// on its behalf. True means the loop accepted the task; it will run unless the
// application goes away first.
func (r *Relay[T]) Enqueue(task T) bool {
	if r == nil {
		return false
	}
	if r.detached.Load() {
		r.rejected.Add(1)
		return false
	}

	if !r.loop.PostTask(func(ctx context.Context) { r.execute(ctx, task) }) {
		r.rejected.Add(1)
		r.logger.Debug("relay enqueue rejected", core.F("relay", r.name), core.F("loop", r.loop.Name()))
		return false
	}
	r.accepted.Add(1)
	return true
}

// execute runs on the loop goroutine only.
func (r *Relay[T]) execute(ctx context.Context, task T) {
	if r.detached.Load() {
		r.skipped.Add(1)
		return
	}
	r.executed.Add(1)
	r.executor(ctx, task)
}

// Close detaches the relay from the application. Tasks it already handed to
// the loop become no-ops; later Enqueue calls return false.
func (r *Relay[T]) Close() {
	r.object.Destroy()
}

func (r *Relay[T]) Name() string                  { return r.name }
func (r *Relay[T]) Object() *app.Object           { return r.object }
func (r *Relay[T]) Application() *app.Application { return r.app }

// IsAttached reports whether the relay still accepts tasks.
func (r *Relay[T]) IsAttached() bool {
	return !r.detached.Load()
}

// Stats returns a snapshot of the relay counters.
func (r *Relay[T]) Stats() core.RelayStats {
	return core.RelayStats{
		Name:     r.name,
		Accepted: r.accepted.Load(),
		Rejected: r.rejected.Load(),
		Executed: r.executed.Load(),
		Skipped:  r.skipped.Load(),
		Attached: !r.detached.Load(),
	}
}
