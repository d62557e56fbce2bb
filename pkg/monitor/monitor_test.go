package monitor_test

import (
	"sync"
	"testing"
	"time"

	"github.com/arbordev/arbor/pkg/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	active int
	nodes  int
}

func (f *fakeSource) ActiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeSource) TotalNodeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes
}

func (f *fakeSource) set(active, nodes int) {
	f.mu.Lock()
	f.active = active
	f.nodes = nodes
	f.mu.Unlock()
}

type fakePool struct{ pooled int }

func (f *fakePool) TotalPooled() int { return f.pooled }

func newMonitor(src *fakeSource, opts ...monitor.Option) *monitor.Monitor {
	opts = append([]monitor.Option{monitor.WithRegisterer(prometheus.NewRegistry())}, opts...)
	return monitor.New(src, opts...)
}

func TestSampleAndHistoryWindow(t *testing.T) {
	src := &fakeSource{}
	m := newMonitor(src, monitor.WithWindow(3), monitor.WithPool(&fakePool{pooled: 7}))

	for i := 1; i <= 5; i++ {
		src.set(i, i*10)
		m.Sample()
	}

	hist := m.History()
	require.Len(t, hist, 3, "history is bounded by the window")
	assert.Equal(t, 3, hist[0].Active)
	assert.Equal(t, 5, hist[2].Active)
	assert.Equal(t, 7, hist[2].Pooled)
	assert.Equal(t, 50, hist[2].NodeCount)

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, 5, latest.Active)
}

func TestRollingAvgLatency(t *testing.T) {
	m := newMonitor(&fakeSource{})

	m.ObserveInstantiation(10 * time.Millisecond)
	m.ObserveInstantiation(30 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, m.AvgLatency())
}

func TestActiveGrowthAlert(t *testing.T) {
	src := &fakeSource{}
	m := newMonitor(src, monitor.WithWindow(10))

	alerts := make(chan monitor.Alert, 4)
	m.OnAlert(func(a monitor.Alert) { alerts <- a })

	src.set(20, 100)
	m.Sample()
	src.set(25, 100)
	m.Sample()
	select {
	case a := <-alerts:
		t.Fatalf("unexpected alert before doubling: %v", a)
	case <-time.After(50 * time.Millisecond):
	}

	src.set(40, 100)
	m.Sample()
	select {
	case a := <-alerts:
		assert.Equal(t, monitor.AlertActiveGrowth, a.Kind)
		assert.Equal(t, float64(40), a.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an active-growth alert")
	}
}

func TestGrowthAlertSuppressedAtTrivialScale(t *testing.T) {
	src := &fakeSource{}
	m := newMonitor(src)

	alerts := make(chan monitor.Alert, 4)
	m.OnAlert(func(a monitor.Alert) { alerts <- a })

	src.set(1, 10)
	m.Sample()
	src.set(4, 10)
	m.Sample()
	select {
	case a := <-alerts:
		t.Fatalf("1 -> 4 instances must not alert: %v", a)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLatencyCeilingAlert(t *testing.T) {
	src := &fakeSource{}
	m := newMonitor(src, monitor.WithLatencyCeiling(5*time.Millisecond))

	alerts := make(chan monitor.Alert, 4)
	m.OnAlert(func(a monitor.Alert) { alerts <- a })

	m.ObserveInstantiation(20 * time.Millisecond)
	m.Sample()

	select {
	case a := <-alerts:
		assert.Equal(t, monitor.AlertLatencyCeiling, a.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a latency alert")
	}
}

func TestMemoryCeilingAlert(t *testing.T) {
	src := &fakeSource{}
	m := newMonitor(src, monitor.WithMemoryCeiling(100))

	alerts := make(chan monitor.Alert, 4)
	m.OnAlert(func(a monitor.Alert) { alerts <- a })

	src.set(1, 500)
	m.Sample()

	select {
	case a := <-alerts:
		assert.Equal(t, monitor.AlertMemoryCeiling, a.Kind)
		assert.Equal(t, float64(500), a.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a memory alert")
	}
}

func TestPrometheusCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeSource{}
	m := monitor.New(src, monitor.WithRegisterer(reg), monitor.WithPool(&fakePool{pooled: 3}))

	src.set(12, 240)
	m.Sample()
	m.ObserveInstantiation(2 * time.Millisecond)
	m.CountPoolExhaustion()
	m.CountPoolExhaustion()

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64, len(families))
	for _, f := range families {
		if len(f.GetMetric()) == 0 {
			continue
		}
		metric := f.GetMetric()[0]
		switch {
		case metric.GetGauge() != nil:
			values[f.GetName()] = metric.GetGauge().GetValue()
		case metric.GetCounter() != nil:
			values[f.GetName()] = metric.GetCounter().GetValue()
		case metric.GetHistogram() != nil:
			values[f.GetName()] = float64(metric.GetHistogram().GetSampleCount())
		}
	}

	assert.Equal(t, float64(12), values["arbor_instances_active"])
	assert.Equal(t, float64(3), values["arbor_instances_pooled"])
	assert.Equal(t, float64(240), values["arbor_nodes_total"])
	assert.Equal(t, float64(1), values["arbor_instantiation_seconds"], "one histogram observation")
	assert.Equal(t, float64(2), values["arbor_pool_exhaustions_total"])
}
