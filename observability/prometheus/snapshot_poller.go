package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-task-relay/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// LoopSnapshotProvider provides current event loop stats snapshots.
type LoopSnapshotProvider interface {
	Stats() core.LoopStats
}

// RelaySnapshotProvider provides current relay stats snapshots.
type RelaySnapshotProvider interface {
	Stats() core.RelayStats
}

// SnapshotPoller periodically exports loop/relay Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	loopsMu sync.RWMutex
	loops   map[string]LoopSnapshotProvider

	relaysMu sync.RWMutex
	relays   map[string]RelaySnapshotProvider

	loopPending   *prom.GaugeVec
	loopExecuted  *prom.GaugeVec
	loopDiscarded *prom.GaugeVec
	loopRunning   *prom.GaugeVec
	loopClosed    *prom.GaugeVec

	relayAccepted *prom.GaugeVec
	relayRejected *prom.GaugeVec
	relayExecuted *prom.GaugeVec
	relaySkipped  *prom.GaugeVec
	relayAttached *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "taskrelay"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	p := &SnapshotPoller{
		interval:      interval,
		loops:         make(map[string]LoopSnapshotProvider),
		relays:        make(map[string]RelaySnapshotProvider),
		loopPending:   gauge("loop_pending", "Number of tasks waiting per loop.", "loop"),
		loopExecuted:  gauge("loop_executed", "Loop executed task count snapshot.", "loop"),
		loopDiscarded: gauge("loop_discarded", "Loop discarded task count snapshot.", "loop"),
		loopRunning:   gauge("loop_running", "Loop running state (1=running, 0=idle).", "loop"),
		loopClosed:    gauge("loop_closed", "Loop closed state (1=closed, 0=open).", "loop"),
		relayAccepted: gauge("relay_accepted", "Relay accepted task count snapshot.", "relay"),
		relayRejected: gauge("relay_rejected", "Relay rejected task count snapshot.", "relay"),
		relayExecuted: gauge("relay_executed", "Relay executed task count snapshot.", "relay"),
		relaySkipped:  gauge("relay_skipped", "Relay tasks skipped after detach.", "relay"),
		relayAttached: gauge("relay_attached", "Relay attached state (1=attached, 0=detached).", "relay"),
	}

	for _, g := range []**prom.GaugeVec{
		&p.loopPending, &p.loopExecuted, &p.loopDiscarded, &p.loopRunning, &p.loopClosed,
		&p.relayAccepted, &p.relayRejected, &p.relayExecuted, &p.relaySkipped, &p.relayAttached,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}

	return p, nil
}

// AddLoop adds or replaces a loop snapshot provider by name.
func (p *SnapshotPoller) AddLoop(name string, provider LoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "loop")
	p.loopsMu.Lock()
	p.loops[name] = provider
	p.loopsMu.Unlock()
}

// AddRelay adds or replaces a relay snapshot provider by name.
func (p *SnapshotPoller) AddRelay(name string, provider RelaySnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "relay")
	p.relaysMu.Lock()
	p.relays[name] = provider
	p.relaysMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.stateMu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

// Collect takes one snapshot immediately. The poll loop calls it on every tick.
func (p *SnapshotPoller) Collect() {
	if p == nil {
		return
	}
	p.collectOnce()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			// Final snapshot so short-lived processes export their end state
			p.collectOnce()
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.loopsMu.RLock()
	for name, provider := range p.loops {
		stats := provider.Stats()
		p.loopPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.loopExecuted.WithLabelValues(name).Set(float64(stats.Executed))
		p.loopDiscarded.WithLabelValues(name).Set(float64(stats.Discarded))
		p.loopRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
		p.loopClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
	}
	p.loopsMu.RUnlock()

	p.relaysMu.RLock()
	for name, provider := range p.relays {
		stats := provider.Stats()
		p.relayAccepted.WithLabelValues(name).Set(float64(stats.Accepted))
		p.relayRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.relayExecuted.WithLabelValues(name).Set(float64(stats.Executed))
		p.relaySkipped.WithLabelValues(name).Set(float64(stats.Skipped))
		p.relayAttached.WithLabelValues(name).Set(boolGauge(stats.Attached))
	}
	p.relaysMu.RUnlock()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
