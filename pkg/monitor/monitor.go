// Package monitor samples instance activity on a fixed interval and
// raises advisory alerts when activity grows abnormally. Alerts are
// informational; they never block or fail an operation.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InstanceSource reports live instance activity. *manager.Manager
// satisfies it.
type InstanceSource interface {
	ActiveCount() int
	TotalNodeCount() int
}

// PoolSource reports pooled spare counts. *pool.Pool satisfies it.
type PoolSource interface {
	TotalPooled() int
}

// AlertKind classifies a threshold breach.
type AlertKind string

const (
	AlertActiveGrowth   AlertKind = "active_growth"
	AlertLatencyCeiling AlertKind = "latency_ceiling"
	AlertMemoryCeiling  AlertKind = "memory_ceiling"
)

// Alert describes one advisory threshold breach.
type Alert struct {
	Kind      AlertKind
	Message   string
	Value     float64
	Threshold float64
	At        time.Time
}

// AlertFunc receives alerts on a dedicated goroutine per dispatch.
type AlertFunc func(Alert)

// Sample is one point of the bounded history window.
type Sample struct {
	At         time.Time
	Active     int
	Pooled     int
	NodeCount  int
	AvgLatency time.Duration
}

const (
	// DefaultInterval between samples.
	DefaultInterval = 5 * time.Second
	// DefaultWindow bounds the history length.
	DefaultWindow = 120
	// DefaultLatencyWindow bounds the rolling latency average.
	DefaultLatencyWindow = 64
	// DefaultLatencyCeiling flags slow instantiation.
	DefaultLatencyCeiling = 50 * time.Millisecond
	// DefaultMemoryCeiling flags runaway node counts.
	DefaultMemoryCeiling = 500_000
	// growthFloor suppresses doubling alerts at trivial scale.
	growthFloor = 16
)

// Monitor periodically samples an InstanceSource (and optionally a
// PoolSource), keeps a bounded history, evaluates threshold rules, and
// exports prometheus collectors.
type Monitor struct {
	source InstanceSource
	pool   PoolSource

	interval       time.Duration
	window         int
	latencyCeiling time.Duration
	memoryCeiling  int

	mu        sync.Mutex
	history   []Sample
	latencies []time.Duration
	latIdx    int
	callbacks []AlertFunc

	registeredWith prometheus.Registerer
	activeGauge    prometheus.Gauge
	pooledGauge    prometheus.Gauge
	nodeGauge      prometheus.Gauge
	latencyHist    prometheus.Histogram
	exhaustedCount prometheus.Counter

	logger *slog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithPool adds pooled spare counts to each sample.
func WithPool(p PoolSource) Option {
	return func(m *Monitor) { m.pool = p }
}

// WithInterval sets the sampling period.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithWindow bounds the history length in samples.
func WithWindow(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithLatencyCeiling sets the rolling-average latency alert threshold.
func WithLatencyCeiling(d time.Duration) Option {
	return func(m *Monitor) { m.latencyCeiling = d }
}

// WithMemoryCeiling sets the node-count alert threshold.
func WithMemoryCeiling(n int) Option {
	return func(m *Monitor) { m.memoryCeiling = n }
}

// WithRegisterer registers the collectors with reg instead of the
// default registry. Tests pass prometheus.NewRegistry().
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Monitor) { m.register(reg) }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// New creates a monitor over source. Collectors go to the default
// prometheus registry unless WithRegisterer overrides it.
func New(source InstanceSource, opts ...Option) *Monitor {
	m := &Monitor{
		source:         source,
		interval:       DefaultInterval,
		window:         DefaultWindow,
		latencyCeiling: DefaultLatencyCeiling,
		memoryCeiling:  DefaultMemoryCeiling,
		latencies:      make([]time.Duration, 0, DefaultLatencyWindow),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	m.activeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arbor_instances_active",
		Help: "Live scene instances currently tracked",
	})
	m.pooledGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arbor_instances_pooled",
		Help: "Spare instances resting in pools",
	})
	m.nodeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arbor_nodes_total",
		Help: "Total nodes across live instances",
	})
	m.latencyHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbor_instantiation_seconds",
		Help:    "Wall time of scene instantiations",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
	m.exhaustedCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbor_pool_exhaustions_total",
		Help: "Pool checkout misses on an empty queue",
	})

	registered := false
	for _, opt := range opts {
		opt(m)
		if m.registeredWith != nil {
			registered = true
		}
	}
	if !registered {
		m.register(prometheus.DefaultRegisterer)
	}
	return m
}

func (m *Monitor) register(reg prometheus.Registerer) {
	reg.MustRegister(m.activeGauge, m.pooledGauge, m.nodeGauge, m.latencyHist, m.exhaustedCount)
	m.registeredWith = reg
}

// OnAlert registers an advisory callback.
func (m *Monitor) OnAlert(fn AlertFunc) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, fn)
	m.mu.Unlock()
}

// ObserveInstantiation feeds one instantiation wall time into the
// rolling average and the histogram. Wire it to the manager's latency
// observer.
func (m *Monitor) ObserveInstantiation(d time.Duration) {
	m.latencyHist.Observe(d.Seconds())
	m.mu.Lock()
	if len(m.latencies) < DefaultLatencyWindow {
		m.latencies = append(m.latencies, d)
	} else {
		m.latencies[m.latIdx] = d
		m.latIdx = (m.latIdx + 1) % DefaultLatencyWindow
	}
	m.mu.Unlock()
}

// CountPoolExhaustion increments the exhaustion counter. Wire it to
// the pool's alert callback.
func (m *Monitor) CountPoolExhaustion() {
	m.exhaustedCount.Inc()
}

// Start samples on the configured interval until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sample()
			}
		}
	}()
}

// Sample takes one measurement, updates collectors, appends to the
// history window, and evaluates the threshold rules.
func (m *Monitor) Sample() Sample {
	s := Sample{
		At:         time.Now(),
		Active:     m.source.ActiveCount(),
		NodeCount:  m.source.TotalNodeCount(),
		AvgLatency: m.AvgLatency(),
	}
	if m.pool != nil {
		s.Pooled = m.pool.TotalPooled()
	}

	m.activeGauge.Set(float64(s.Active))
	m.pooledGauge.Set(float64(s.Pooled))
	m.nodeGauge.Set(float64(s.NodeCount))

	m.mu.Lock()
	m.history = append(m.history, s)
	if len(m.history) > m.window {
		m.history = m.history[len(m.history)-m.window:]
	}
	oldest := m.history[0]
	callbacks := append([]AlertFunc(nil), m.callbacks...)
	m.mu.Unlock()

	m.evaluate(s, oldest, callbacks)
	return s
}

func (m *Monitor) evaluate(s, oldest Sample, callbacks []AlertFunc) {
	var alerts []Alert
	if oldest.Active >= growthFloor && s.Active >= oldest.Active*2 {
		alerts = append(alerts, Alert{
			Kind:      AlertActiveGrowth,
			Message:   fmt.Sprintf("active instances doubled within the window: %d -> %d", oldest.Active, s.Active),
			Value:     float64(s.Active),
			Threshold: float64(oldest.Active * 2),
			At:        s.At,
		})
	}
	if m.latencyCeiling > 0 && s.AvgLatency > m.latencyCeiling {
		alerts = append(alerts, Alert{
			Kind:      AlertLatencyCeiling,
			Message:   fmt.Sprintf("average instantiation latency %s exceeds %s", s.AvgLatency, m.latencyCeiling),
			Value:     s.AvgLatency.Seconds(),
			Threshold: m.latencyCeiling.Seconds(),
			At:        s.At,
		})
	}
	if m.memoryCeiling > 0 && s.NodeCount > m.memoryCeiling {
		alerts = append(alerts, Alert{
			Kind:      AlertMemoryCeiling,
			Message:   fmt.Sprintf("total node count %d exceeds %d", s.NodeCount, m.memoryCeiling),
			Value:     float64(s.NodeCount),
			Threshold: float64(m.memoryCeiling),
			At:        s.At,
		})
	}
	for _, a := range alerts {
		m.logger.Warn("performance alert", "kind", string(a.Kind), "msg", a.Message)
		for _, cb := range callbacks {
			go cb(a)
		}
	}
}

// AvgLatency returns the rolling average instantiation latency.
func (m *Monitor) AvgLatency() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range m.latencies {
		sum += d
	}
	return sum / time.Duration(len(m.latencies))
}

// History returns a copy of the sample window, oldest first.
func (m *Monitor) History() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sample(nil), m.history...)
}

// Latest returns the most recent sample.
func (m *Monitor) Latest() (Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return Sample{}, false
	}
	return m.history[len(m.history)-1], true
}
