package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
//
// Implementations should be thread-safe as they may be shared between loops.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context of the panicked task (CurrentEventLoop works on it)
	// - loopName: The name of the event loop where the panic occurred
	// - workerID: Always -1 for single-threaded loops
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, loopName string, workerID int, panicInfo any, stackTrace []byte)
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic value and stack at error level.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, loopName string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger("")
	}
	logger.Error("task panicked",
		F("loop", loopName),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting event loop metrics.
// Implementations can send metrics to monitoring systems (see observability/prometheus).
//
// Methods should be non-blocking and fast; they are called on the posting
// goroutine or on the loop goroutine.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(loopName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(loopName string, panicInfo any)

	// RecordQueueDepth records the number of tasks waiting in the loop queue.
	RecordQueueDepth(loopName string, depth int)

	// RecordTaskRejected records that a task was refused at post time.
	RecordTaskRejected(loopName string, reason string)

	// RecordTasksDiscarded records accepted tasks thrown away at shutdown.
	RecordTasksDiscarded(loopName string, count int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(loopName string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(loopName string, panicInfo any)             {}
func (m *NilMetrics) RecordQueueDepth(loopName string, depth int)                {}
func (m *NilMetrics) RecordTaskRejected(loopName string, reason string)          {}
func (m *NilMetrics) RecordTasksDiscarded(loopName string, count int)            {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when PostTask refuses a task, which happens
// once the loop has been shut down.
type RejectedTaskHandler interface {
	// HandleRejectedTask is called when a task is rejected.
	//
	// Parameters:
	// - loopName: The name of the event loop
	// - reason: Why the task was rejected (e.g., "closed")
	HandleRejectedTask(loopName string, reason string)
}

// LoggingRejectedTaskHandler logs rejected tasks at debug level.
type LoggingRejectedTaskHandler struct {
	Logger Logger
}

// HandleRejectedTask logs the rejected task.
func (h *LoggingRejectedTaskHandler) HandleRejectedTask(loopName string, reason string) {
	if h.Logger == nil {
		return
	}
	h.Logger.Debug("task rejected", F("loop", loopName), F("reason", reason))
}

// =============================================================================
// EventLoopConfig: Configuration for EventLoop
// =============================================================================

// EventLoopConfig holds configuration options for EventLoop.
// All handlers are optional; if not provided, default implementations will be used.
type EventLoopConfig struct {
	// Name labels the loop in logs and metrics. Defaults to "main".
	Name string

	// Logger receives lifecycle messages. Defaults to NoOpLogger.
	Logger Logger

	// PanicHandler is called when a task panics. Defaults to LoggingPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record loop metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a task is rejected. Defaults to LoggingRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler
}

// DefaultEventLoopConfig returns a config with default handlers.
func DefaultEventLoopConfig() *EventLoopConfig {
	logger := NewNoOpLogger()
	return &EventLoopConfig{
		Name:                "main",
		Logger:              logger,
		PanicHandler:        &LoggingPanicHandler{Logger: logger},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &LoggingRejectedTaskHandler{Logger: logger},
	}
}

// withDefaults fills every unset field and never returns nil.
func (c *EventLoopConfig) withDefaults() EventLoopConfig {
	out := EventLoopConfig{}
	if c != nil {
		out = *c
	}
	if out.Name == "" {
		out.Name = "main"
	}
	if out.Logger == nil {
		out.Logger = NewNoOpLogger()
	}
	if out.PanicHandler == nil {
		out.PanicHandler = &LoggingPanicHandler{Logger: out.Logger}
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	if out.RejectedTaskHandler == nil {
		out.RejectedTaskHandler = &LoggingRejectedTaskHandler{Logger: out.Logger}
	}
	return out
}
