package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Swind/go-task-relay/app"
	"github.com/Swind/go-task-relay/core"
	"github.com/Swind/go-task-relay/internal/config"
	logruslog "github.com/Swind/go-task-relay/observability/logrus"
	obs "github.com/Swind/go-task-relay/observability/prometheus"
	"github.com/Swind/go-task-relay/relay"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Enqueue handles from producer goroutines and execute them on the loop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"TASKRELAY_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "tasks",
				Aliases: []string{"n"},
				Usage:   "handles enqueued by each producer",
			},
			&cli.IntFlag{
				Name:    "producers",
				Aliases: []string{"p"},
				Usage:   "number of producer goroutines",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address, e.g. :2112",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.IsSet("tasks") {
		cfg.Relay.Tasks = c.Int("tasks")
	}
	if c.IsSet("producers") {
		cfg.Relay.Producers = c.Int("producers")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	base, err := newLogrus(cfg.Log)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger := logruslog.New(base)

	reg := prom.NewRegistry()
	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer stop()
	}

	summary, err := runDemo(c.Context, cfg, logger, reg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run failed: %v", err), 1)
	}

	fmt.Fprintf(c.App.Writer, "accepted=%d executed=%d rejected=%d out_of_order=%d elapsed=%s\n",
		summary.Accepted, summary.Executed, summary.Rejected, summary.OutOfOrder, summary.Elapsed.Round(time.Microsecond))

	if cfg.Metrics.Addr != "" && cfg.Metrics.Linger > 0 {
		logger.Info("metrics endpoint lingering", core.F("addr", cfg.Metrics.Addr), core.F("for", cfg.Metrics.Linger))
		select {
		case <-time.After(cfg.Metrics.Linger):
		case <-c.Context.Done():
		}
	}
	return nil
}

// Summary reports what one demo run did.
type Summary struct {
	Accepted   int64
	Rejected   int64
	Executed   int64
	OutOfOrder int64
	Elapsed    time.Duration
}

// handleFor packs producer and sequence into an opaque handle.
func handleFor(producer, seq int) relay.Handle {
	return relay.Handle(uint64(producer)<<32 | uint64(uint32(seq)))
}

func splitHandle(h relay.Handle) (producer, seq int) {
	return int(uint64(h) >> 32), int(uint32(h))
}

func runDemo(ctx context.Context, cfg *config.Config, logger core.Logger, reg *prom.Registry) (Summary, error) {
	exporter, err := obs.NewMetricsExporter(cfg.Metrics.Namespace, reg, obs.ExporterOptions{})
	if err != nil {
		return Summary{}, fmt.Errorf("metrics exporter: %w", err)
	}
	poller, err := obs.NewSnapshotPoller(cfg.Metrics.Namespace, reg, cfg.Metrics.PollInterval)
	if err != nil {
		return Summary{}, fmt.Errorf("snapshot poller: %w", err)
	}

	application, err := app.New(app.Config{
		Name:   cfg.App.Name,
		Logger: logger,
		Loop:   &core.EventLoopConfig{Metrics: exporter},
	})
	if err != nil {
		return Summary{}, err
	}
	defer application.Destroy()

	// Only the loop goroutine touches next
	next := make([]int, cfg.Relay.Producers)
	var executed, outOfOrder atomic.Int64
	err = relay.Initialize(func(ctx context.Context, task relay.Handle) {
		producer, seq := splitHandle(task)
		if next[producer] != seq {
			outOfOrder.Add(1)
		}
		next[producer] = seq + 1
		executed.Add(1)
		logger.Debug("task executed", core.F("producer", producer), core.F("seq", seq))
	})
	if err != nil {
		return Summary{}, fmt.Errorf("initialize relay: %w", err)
	}

	r, _ := relay.Instance()
	poller.AddLoop(application.Loop().Name(), application.Loop())
	poller.AddRelay(r.Name(), r)
	poller.Start(ctx)
	defer poller.Stop()

	start := time.Now()
	if err := application.Loop().Start(); err != nil {
		return Summary{}, fmt.Errorf("start loop: %w", err)
	}

	var accepted, rejected atomic.Int64
	var wg sync.WaitGroup
	for p := 0; p < cfg.Relay.Producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := 0; s < cfg.Relay.Tasks; s++ {
				if relay.Enqueue(handleFor(p, s)) {
					accepted.Add(1)
				} else {
					rejected.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	drainCtx, cancel := context.WithTimeout(ctx, cfg.Relay.DrainTimeout)
	defer cancel()
	if err := application.Loop().WaitIdle(drainCtx); err != nil && !errors.Is(err, core.ErrLoopClosed) {
		return Summary{}, fmt.Errorf("drain loop: %w", err)
	}
	poller.Collect()

	summary := Summary{
		Accepted:   accepted.Load(),
		Rejected:   rejected.Load(),
		Executed:   executed.Load(),
		OutOfOrder: outOfOrder.Load(),
		Elapsed:    time.Since(start),
	}
	logger.Info("relay demo finished",
		core.F("accepted", summary.Accepted),
		core.F("executed", summary.Executed),
		core.F("rejected", summary.Rejected),
	)
	return summary, nil
}

func newLogrus(cfg config.LogConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	l := logrus.New()
	l.SetLevel(level)
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l, nil
}

func serveMetrics(addr string, reg *prom.Registry, logger core.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", core.F("addr", addr), core.F("error", err))
		}
	}()
	logger.Info("serving metrics", core.F("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
