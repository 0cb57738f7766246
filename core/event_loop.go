package core

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// EventLoop is a single-threaded, message-queue based host loop. Any goroutine
// may post tasks; tasks only ever run on the goroutine that drives the loop,
// one at a time, in the order they were accepted.
//
// The loop is driven in one of two ways:
//  1. Run (or Start, which calls Run on a dedicated goroutine) owns the loop
//     until Shutdown, Stop or context cancellation.
//  2. ProcessPendingTasks runs a single iteration on the calling goroutine,
//     for hosts that pump their own main loop.
//
// A posted task never runs inside PostTask, even when PostTask is called from
// a task on the loop itself; it waits for a later iteration.
//
// Shutdown discards tasks that have not started yet. They are counted but
// never run and nobody is notified.
type EventLoop struct {
	queue *TaskQueue
	wake  chan struct{}

	// Lifecycle control
	ctx          context.Context
	cancel       context.CancelFunc
	taskCtx      context.Context
	postMu       sync.RWMutex
	closed       atomic.Bool
	running      atomic.Bool
	dispatching  atomic.Bool
	shutdownChan chan struct{}
	shutdownOnce sync.Once

	// Counters
	executed   atomic.Int64
	panicked   atomic.Int64
	rejected   atomic.Int64
	discarded  atomic.Int64
	lastTaskAt atomic.Int64

	// Handlers
	logger              Logger
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler

	name string

	mu      sync.Mutex
	runDone chan struct{}
}

// NewEventLoop creates a loop that is ready to accept tasks but does not run
// them until it is driven by Run, Start or ProcessPendingTasks.
func NewEventLoop(config *EventLoopConfig) *EventLoop {
	cfg := config.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	l := &EventLoop{
		queue:               NewTaskQueue(),
		wake:                make(chan struct{}, 1),
		ctx:                 ctx,
		cancel:              cancel,
		shutdownChan:        make(chan struct{}),
		logger:              cfg.Logger,
		panicHandler:        cfg.PanicHandler,
		metrics:             cfg.Metrics,
		rejectedTaskHandler: cfg.RejectedTaskHandler,
		name:                cfg.Name,
	}
	l.taskCtx = context.WithValue(ctx, eventLoopKey, l)
	return l
}

// Name returns the name the loop was configured with
func (l *EventLoop) Name() string {
	return l.name
}

// PostTask queues task for a later iteration of the loop. It is safe to call
// from any goroutine and never blocks on the loop. It returns false, without
// queuing, once the loop has been shut down.
func (l *EventLoop) PostTask(task Task) bool {
	if task == nil {
		l.reject("nil_task")
		return false
	}

	l.postMu.RLock()
	if l.closed.Load() {
		l.postMu.RUnlock()
		l.reject("closed")
		return false
	}
	depth := l.queue.Push(task)
	l.postMu.RUnlock()

	l.metrics.RecordQueueDepth(l.Name(), depth)

	select {
	case l.wake <- struct{}{}:
	default:
		// A wakeup is already pending
	}
	return true
}

// PostDelayedTask posts task after delay. The timer does not hold the loop
// open: if the loop is closed when the timer fires, the post is rejected like
// any other post to a closed loop.
func (l *EventLoop) PostDelayedTask(task Task, delay time.Duration) bool {
	if task == nil || delay <= 0 || l.closed.Load() {
		// PostTask reports the rejection
		return l.PostTask(task)
	}

	time.AfterFunc(delay, func() {
		l.PostTask(task)
	})
	return true
}

func (l *EventLoop) reject(reason string) {
	l.rejected.Add(1)
	name := l.Name()
	l.metrics.RecordTaskRejected(name, reason)
	l.rejectedTaskHandler.HandleRejectedTask(name, reason)
}

// Run drives the loop on the calling goroutine until the loop is shut down
// or ctx is cancelled. Returning from Run always shuts the loop down.
//
// Run returns nil after Shutdown/Stop and ctx.Err() after cancellation.
func (l *EventLoop) Run(ctx context.Context) error {
	return l.run(ctx, nil)
}

// Start runs the loop on a dedicated goroutine and returns once that
// goroutine owns the loop.
func (l *EventLoop) Start() error {
	started := make(chan error, 1)
	go func() {
		if err := l.run(context.Background(), started); err != nil {
			l.logger.Warn("event loop exited", F("loop", l.Name()), F("error", err))
		}
	}()
	return <-started
}

func (l *EventLoop) run(ctx context.Context, started chan<- error) error {
	fail := func(err error) error {
		if started != nil {
			started <- err
		}
		return err
	}

	if l.closed.Load() {
		return fail(ErrLoopClosed)
	}
	if !l.running.CompareAndSwap(false, true) {
		return fail(ErrLoopRunning)
	}
	if l.dispatching.Load() {
		l.running.Store(false)
		return fail(ErrLoopBusy)
	}

	done := make(chan struct{})
	l.mu.Lock()
	l.runDone = done
	l.mu.Unlock()

	defer close(done)
	defer l.running.Store(false)
	defer l.Shutdown()

	if started != nil {
		started <- nil
	}

	l.logger.Debug("event loop started", F("loop", l.Name()))

	for {
		l.dispatch()

		select {
		case <-l.wake:
		case <-l.ctx.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ProcessPendingTasks runs one iteration of the loop on the calling goroutine:
// every task queued before the call runs, in order. Tasks posted while the
// iteration is in progress are left for the next one.
//
// It fails with ErrLoopRunning while Run owns the loop, with ErrLoopBusy when
// another iteration is already in progress (including a call from inside a
// task), and with ErrLoopClosed after shutdown.
func (l *EventLoop) ProcessPendingTasks() (int, error) {
	if l.closed.Load() {
		return 0, ErrLoopClosed
	}
	if l.running.Load() {
		return 0, ErrLoopRunning
	}
	if !l.dispatching.CompareAndSwap(false, true) {
		return 0, ErrLoopBusy
	}
	defer l.dispatching.Store(false)

	// Run may have claimed the loop between the first check and the CAS
	if l.running.Load() {
		return 0, ErrLoopRunning
	}

	select {
	case <-l.wake:
	default:
	}

	return l.dispatch(), nil
}

// dispatch executes the tasks that are queued right now and returns how many
// ran. It must only be called by the goroutine driving the loop.
func (l *EventLoop) dispatch() int {
	n := l.queue.Len()
	if n == 0 {
		return 0
	}
	batch := l.queue.PopUpTo(n)
	name := l.Name()
	l.metrics.RecordQueueDepth(name, l.queue.Len())

	ran := 0
	for i, task := range batch {
		if l.closed.Load() {
			// Shut down from inside a task: the rest of the batch is discarded
			l.discard(len(batch) - i)
			return ran
		}
		l.runTask(name, task)
		ran++
	}
	return ran
}

func (l *EventLoop) runTask(name string, task Task) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			l.panicked.Add(1)
			l.metrics.RecordTaskPanic(name, rec)
			l.panicHandler.HandlePanic(l.taskCtx, name, -1, rec, debug.Stack())
		}
		l.executed.Add(1)
		l.lastTaskAt.Store(time.Now().UnixNano())
		l.metrics.RecordTaskDuration(name, time.Since(start))
	}()

	task(l.taskCtx)
}

func (l *EventLoop) discard(n int) {
	if n <= 0 {
		return
	}
	l.discarded.Add(int64(n))
	name := l.Name()
	l.metrics.RecordTasksDiscarded(name, n)
	l.logger.Debug("pending tasks discarded", F("loop", name), F("count", n))
}

// Shutdown closes the loop. Tasks that have not started are discarded, new
// posts are rejected and WaitShutdown returns. It does not wait for a running
// task to finish, so it is safe to call from inside a task.
func (l *EventLoop) Shutdown() {
	l.shutdownOnce.Do(func() {
		l.postMu.Lock()
		l.closed.Store(true)
		n := l.queue.Clear()
		l.postMu.Unlock()

		l.cancel()
		l.discard(n)
		close(l.shutdownChan)

		l.logger.Debug("event loop shut down", F("loop", l.Name()))
	})
}

// Stop shuts the loop down and waits for Run to return. Calling Stop from a
// task on the loop would deadlock; use Shutdown there.
func (l *EventLoop) Stop() {
	l.Shutdown()

	l.mu.Lock()
	done := l.runDone
	l.mu.Unlock()

	if done != nil {
		<-done
	}
}

// IsClosed returns true once the loop has been shut down
func (l *EventLoop) IsClosed() bool {
	return l.closed.Load()
}

// IsRunning returns true while Run owns the loop
func (l *EventLoop) IsRunning() bool {
	return l.running.Load()
}

// Stats returns a snapshot of the loop counters.
func (l *EventLoop) Stats() LoopStats {
	stats := LoopStats{
		Name:      l.Name(),
		Pending:   l.queue.Len(),
		Executed:  l.executed.Load(),
		Panicked:  l.panicked.Load(),
		Rejected:  l.rejected.Load(),
		Discarded: l.discarded.Load(),
		Running:   l.running.Load(),
		Closed:    l.closed.Load(),
	}
	if ns := l.lastTaskAt.Load(); ns != 0 {
		stats.LastTaskAt = time.Unix(0, ns)
	}
	return stats
}

// =============================================================================
// Synchronization Methods
// =============================================================================

// WaitIdle blocks until all tasks posted before the call have run. It posts
// a barrier task, so the loop must be driven by someone else meanwhile.
//
// Returns ErrLoopClosed if the loop is closed before the barrier runs, or
// ctx.Err() on cancellation.
func (l *EventLoop) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})

	if !l.PostTask(func(context.Context) { close(done) }) {
		return ErrLoopClosed
	}

	select {
	case <-done:
		return nil
	case <-l.shutdownChan:
		select {
		case <-done:
			return nil
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FlushAsync posts a barrier task that calls callback on the loop once all
// prior tasks have run. It reports whether the barrier was accepted.
//
// Example:
//
//	loop.PostTask(task1)
//	loop.PostTask(task2)
//	loop.FlushAsync(func() {
//	    fmt.Println("task1 and task2 completed!")
//	})
func (l *EventLoop) FlushAsync(callback func()) bool {
	return l.PostTask(func(context.Context) {
		callback()
	})
}

// WaitShutdown blocks until the loop is shut down, either by an external
// caller or by a task running on the loop itself.
func (l *EventLoop) WaitShutdown(ctx context.Context) error {
	select {
	case <-l.shutdownChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ TaskRunner = (*EventLoop)(nil)
