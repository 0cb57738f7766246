// Package taskrelay lets any goroutine, or a foreign runtime holding opaque
// task handles, schedule work onto the single-threaded event loop of a host
// application.
//
// # Quick Start
//
// Create the application, register the process relay with one executor,
// then enqueue handles from anywhere:
//
//	application, err := taskrelay.NewApplication("main")
//	if err != nil {
//		return err
//	}
//	defer application.Destroy()
//
//	err = taskrelay.Initialize(func(ctx context.Context, task taskrelay.Handle) {
//		// Runs on the loop goroutine, in Enqueue order
//	})
//
//	ok := taskrelay.Enqueue(taskrelay.Handle(42))
//
//	application.Exec(ctx) // or application.ProcessEvents() from your own main loop
//
// # Key Concepts
//
// EventLoop: a single-threaded host loop (core package). Tasks posted from any
// goroutine run one at a time on the goroutine that drives the loop, in the
// order they were posted, and never inside the call that posted them.
//
// Application: the process-wide owner of the loop and of an object tree
// (app package). Destroying it shuts the loop down, discarding tasks that have
// not started, and destroys every object attached to it.
//
// Relay: the bridge itself (relay package). A relay is attached to the
// application's root object and holds one executor. Enqueue returns false if
// the task was never scheduled; true only means the loop accepted it. Tasks
// accepted before the application goes away are dropped without notice.
//
// # Ownership
//
// The relay never takes ownership of a task. A Handle is passed to the
// executor unchanged; whatever it refers to stays the caller's responsibility,
// including when Enqueue returns false or the task is dropped at shutdown.
package taskrelay
