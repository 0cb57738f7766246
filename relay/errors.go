package relay

import "errors"

var (
	// ErrNoApplication is returned when there is no live application to attach to.
	ErrNoApplication = errors.New("relay: no application")

	// ErrNilExecutor is returned when a relay is created without an executor.
	ErrNilExecutor = errors.New("relay: nil executor")

	// ErrAlreadyInitialized is returned by Initialize while the process relay exists.
	ErrAlreadyInitialized = errors.New("relay: already initialized")
)

var (
	// ErrNilFuture is returned when Spawn is called without a future.
	ErrNilFuture = errors.New("relay: nil future")

	// ErrRejected is returned when the event loop no longer accepts work.
	ErrRejected = errors.New("relay: task rejected")
)
