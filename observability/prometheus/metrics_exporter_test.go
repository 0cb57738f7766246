package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-task-relay/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("taskrelay", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskDuration("loop-a", 250*time.Millisecond)
	exporter.RecordTaskPanic("loop-a", "panic")
	exporter.RecordQueueDepth("loop-a", 7)
	exporter.RecordTaskRejected("loop-a", "closed")
	exporter.RecordTasksDiscarded("loop-a", 3)
	exporter.RecordTasksDiscarded("loop-a", 0)

	panicTotal := testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("loop-a"))
	if panicTotal != 1 {
		t.Fatalf("panic total = %v, want 1", panicTotal)
	}

	queueDepth := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("loop-a"))
	if queueDepth != 7 {
		t.Fatalf("queue depth = %v, want 7", queueDepth)
	}

	rejected := testutil.ToFloat64(exporter.taskRejectedTotal.WithLabelValues("loop-a", "closed"))
	if rejected != 1 {
		t.Fatalf("rejected total = %v, want 1", rejected)
	}

	discarded := testutil.ToFloat64(exporter.taskDiscardedTotal.WithLabelValues("loop-a"))
	if discarded != 3 {
		t.Fatalf("discarded total = %v, want 3", discarded)
	}

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("loop-a"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("taskrelay", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("taskrelay", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordTaskPanic("loop-a", nil)
	second.RecordTaskPanic("loop-a", nil)

	got := testutil.ToFloat64(first.taskPanicTotal.WithLabelValues("loop-a"))
	if got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

func TestMetricsExporter_WiredIntoEventLoop(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	loop := core.NewEventLoop(&core.EventLoopConfig{Name: "ui", Metrics: exporter})
	loop.PostTask(func(ctx context.Context) {})
	loop.PostTask(func(ctx context.Context) { panic("boom") })

	if _, err := loop.ProcessPendingTasks(); err != nil {
		t.Fatalf("ProcessPendingTasks failed: %v", err)
	}

	loop.PostTask(func(ctx context.Context) {})
	loop.Shutdown()
	loop.PostTask(func(ctx context.Context) {})

	if got := testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("ui")); got != 1 {
		t.Fatalf("panic total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.taskDiscardedTotal.WithLabelValues("ui")); got != 1 {
		t.Fatalf("discarded total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.taskRejectedTotal.WithLabelValues("ui", "closed")); got != 1 {
		t.Fatalf("rejected total = %v, want 1", got)
	}
	count, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("ui"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("duration sample count = %d, want 2", count)
	}
}

func TestMetricsExporter_NilReceiver(t *testing.T) {
	var m *MetricsExporter
	m.RecordTaskDuration("loop", time.Second)
	m.RecordTaskPanic("loop", nil)
	m.RecordQueueDepth("loop", 1)
	m.RecordTaskRejected("loop", "closed")
	m.RecordTasksDiscarded("loop", 1)
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
