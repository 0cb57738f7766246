package core

import "time"

// LoopStats represents runtime observability state for an event loop.
type LoopStats struct {
	Name       string
	Pending    int
	Executed   int64
	Panicked   int64
	Rejected   int64
	Discarded  int64
	Running    bool
	Closed     bool
	LastTaskAt time.Time
}

// RelayStats represents runtime observability state for a task relay.
type RelayStats struct {
	Name     string
	Accepted int64
	Rejected int64
	Executed int64
	Attached bool

	// Skipped counts accepted tasks that reached the loop after the relay
	// was detached, so the executor was not called.
	Skipped int64
}
