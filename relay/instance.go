package relay

import (
	"sync/atomic"

	"github.com/Swind/go-task-relay/app"
	"github.com/Swind/go-task-relay/core"
)

// Handle is an opaque, pointer-sized task reference owned by the caller. The
// process relay passes it to its executor unchanged and never dereferences it.
type Handle uintptr

// instance holds the process relay. It only ever holds a fully built relay
// and is emptied when that relay leaves its application.
var instance atomic.Pointer[Relay[Handle]]

// Initialize creates the process relay on the current application.
//
// It fails with ErrNoApplication when no application exists and with
// ErrAlreadyInitialized while a process relay is alive; a second relay is
// never created. Once the owning application is destroyed the slot is free
// again for the next application.
func Initialize(executor Executor[Handle], opts ...Option) error {
	r, err := newRelay(app.Instance(), executor, opts...)
	if err != nil {
		return err
	}
	r.onDetach = func() { instance.CompareAndSwap(r, nil) }

	// Publish only a relay that is already part of the object tree
	if err := r.attach(); err != nil {
		return err
	}
	if !instance.CompareAndSwap(nil, r) {
		r.Close()
		r.logger.Warn("relay already initialized", core.F("relay", r.name))
		return ErrAlreadyInitialized
	}
	if r.detached.Load() {
		// The application went away between attach and publication
		instance.CompareAndSwap(r, nil)
		return ErrNoApplication
	}
	return nil
}

// Instance returns the process relay. It reports false when no application
// exists, when Initialize was never called, or when the relay's application
// has been destroyed. It never blocks.
func Instance() (*Relay[Handle], bool) {
	r := instance.Load()
	if r == nil || r.detached.Load() {
		return nil, false
	}
	if a := app.Instance(); a == nil || a != r.app {
		return nil, false
	}
	return r, true
}

// Enqueue submits task to the process relay. It returns false, doing nothing
// else, when there is no process relay; see Relay.Enqueue for the rest.
func Enqueue(task Handle) bool {
	r, ok := Instance()
	if !ok {
		return false
	}
	return r.Enqueue(task)
}
