// Package manager coordinates instance lifecycles over a shared scene
// cache: creation (pooled, batched, or asynchronous), destruction,
// per-path tracking, and hot reload of every live instance of a scene.
package manager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/arbordev/arbor/pkg/instance"
	"github.com/arbordev/arbor/pkg/pool"
	"github.com/arbordev/arbor/pkg/scene"
)

// Callback observes instance lifecycle transitions.
type Callback func(*instance.Instance)

// Manager tracks every live instance by id and by source path. Node
// trees are mutated only on the owner goroutine: background work is
// restricted to template parsing, and completions wait in a queue
// until Drain runs them.
type Manager struct {
	cache *scene.Cache
	pool  *pool.Pool

	mu          sync.Mutex
	byID        map[string]*instance.Instance
	byPath      map[string]map[string]*instance.Instance // path -> id -> instance
	pathOf      map[string]string                        // id -> path at creation time
	completions []func()

	onCreated   Callback
	onDestroyed Callback
	onReloaded  Callback
	observe     func(time.Duration)

	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithPool enables instance recycling.
func WithPool(p *pool.Pool) Option {
	return func(m *Manager) { m.pool = p }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithCreatedCallback observes every successful creation.
func WithCreatedCallback(fn Callback) Option {
	return func(m *Manager) { m.onCreated = fn }
}

// WithDestroyedCallback observes every destruction.
func WithDestroyedCallback(fn Callback) Option {
	return func(m *Manager) { m.onDestroyed = fn }
}

// WithReloadedCallback observes every per-instance reload.
func WithReloadedCallback(fn Callback) Option {
	return func(m *Manager) { m.onReloaded = fn }
}

// WithLatencyObserver receives the wall time of each instantiation.
func WithLatencyObserver(fn func(time.Duration)) Option {
	return func(m *Manager) { m.observe = fn }
}

// New creates a manager over cache.
func New(cache *scene.Cache, opts ...Option) *Manager {
	m := &Manager{
		cache:  cache,
		byID:   make(map[string]*instance.Instance),
		byPath: make(map[string]map[string]*instance.Instance),
		pathOf: make(map[string]string),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Pool returns the configured pool, or nil.
func (m *Manager) Pool() *pool.Pool { return m.pool }

// CreateInstance creates (or, when usePool is set, recycles) an
// instance of the scene at path and tracks it.
func (m *Manager) CreateInstance(ctx context.Context, path, name string, usePool bool) (*instance.Instance, error) {
	start := time.Now()

	if usePool && m.pool != nil {
		if inst, ok := m.pool.Checkout(path); ok {
			if name != "" {
				inst.SetName(name)
			}
			m.track(inst)
			m.observeLatency(start)
			m.logger.Debug("instance recycled", "path", path, "id", inst.ID())
			m.fire(m.onCreated, inst)
			return inst, nil
		}
	}

	inst, err := instance.New(ctx, m.cache, path, name)
	if err != nil {
		return nil, err
	}
	inst.Activate()
	m.track(inst)
	m.observeLatency(start)
	m.logger.Debug("instance created", "path", path, "id", inst.ID())
	m.fire(m.onCreated, inst)
	return inst, nil
}

// DestroyInstance removes inst from tracking. With returnToPool set and
// a pool configured, the instance is reset and stored as a spare;
// otherwise (or when the pool is full) it is destroyed.
func (m *Manager) DestroyInstance(ctx context.Context, inst *instance.Instance, returnToPool bool) error {
	m.untrack(inst)

	if returnToPool && m.pool != nil {
		stored, err := m.pool.Return(ctx, inst)
		if err == nil && stored {
			m.fire(m.onDestroyed, inst)
			return nil
		}
		if err != nil {
			m.logger.Warn("pool return failed", "id", inst.ID(), "err", err)
		}
	}

	inst.Root().Detach()
	inst.MarkDestroyed()
	m.fire(m.onDestroyed, inst)
	return nil
}

// CreateRequest describes one entry of a batch creation.
type CreateRequest struct {
	Path    string
	Name    string
	UsePool bool
}

// BatchCreate creates one instance per request. Unique scene paths are
// loaded first so every clone of a path shares a single parse; results
// preserve request order. The first failure aborts the batch, leaving
// already created instances tracked.
func (m *Manager) BatchCreate(ctx context.Context, requests []CreateRequest) ([]*instance.Instance, error) {
	unique := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		unique[req.Path] = struct{}{}
	}
	paths := make([]string, 0, len(unique))
	for p := range unique {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := m.cache.Load(ctx, p); err != nil {
			return nil, fmt.Errorf("batch preload %s: %w", p, err)
		}
	}

	out := make([]*instance.Instance, 0, len(requests))
	for _, req := range requests {
		inst, err := m.CreateInstance(ctx, req.Path, req.Name, req.UsePool)
		if err != nil {
			return out, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// WarmPool pre-creates n spare instances of path. Untracked until
// checked out.
func (m *Manager) WarmPool(ctx context.Context, path string, n int) error {
	if m.pool == nil {
		return fmt.Errorf("no pool configured")
	}
	for i := 0; i < n; i++ {
		inst, err := instance.New(ctx, m.cache, path, "")
		if err != nil {
			return err
		}
		stored, err := m.pool.Return(ctx, inst)
		if err != nil {
			return err
		}
		if !stored {
			inst.MarkDestroyed()
			return nil // pool full, warm enough
		}
	}
	return nil
}

// ReloadScene invalidates the cached template for path and reloads
// every live instance of it. Instances that fail to reload keep their
// prior state; the first failure is returned after all reloads ran.
func (m *Manager) ReloadScene(ctx context.Context, path string) error {
	m.cache.Invalidate(path)

	var firstErr error
	for _, inst := range m.FindInstancesByScene(path) {
		if err := inst.Reload(ctx); err != nil {
			m.logger.Warn("instance reload failed", "id", inst.ID(), "path", path, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.fire(m.onReloaded, inst)
	}
	m.logger.Info("scene reloaded", "path", path)
	return firstErr
}

// CleanupAll destroys every tracked instance and clears the pool.
func (m *Manager) CleanupAll() {
	m.mu.Lock()
	all := make([]*instance.Instance, 0, len(m.byID))
	for _, inst := range m.byID {
		all = append(all, inst)
	}
	m.byID = make(map[string]*instance.Instance)
	m.byPath = make(map[string]map[string]*instance.Instance)
	m.pathOf = make(map[string]string)
	m.completions = nil
	m.mu.Unlock()

	for _, inst := range all {
		inst.Root().Detach()
		inst.MarkDestroyed()
		m.fire(m.onDestroyed, inst)
	}
	if m.pool != nil {
		m.pool.Clear()
	}
}

// InstanceByID returns the tracked instance with the given id.
func (m *Manager) InstanceByID(id string) (*instance.Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.byID[id]
	return inst, ok
}

// FindInstancesByScene returns every tracked instance of path, ordered
// by id for determinism.
func (m *Manager) FindInstancesByScene(path string) []*instance.Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.byPath[path]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(group))
	for id := range group {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*instance.Instance, 0, len(ids))
	for _, id := range ids {
		out = append(out, group[id])
	}
	return out
}

// ActiveCount returns the number of tracked instances.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// TotalNodeCount sums the node counts of all tracked instances. Serves
// as the memory proxy for monitoring.
func (m *Manager) TotalNodeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, inst := range m.byID {
		total += inst.NodeCount()
	}
	return total
}

func (m *Manager) track(inst *instance.Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := inst.SourcePath()
	m.byID[inst.ID()] = inst
	m.pathOf[inst.ID()] = path
	group, ok := m.byPath[path]
	if !ok {
		group = make(map[string]*instance.Instance)
		m.byPath[path] = group
	}
	group[inst.ID()] = inst
}

// untrack removes by the path recorded at creation time, so instances
// broken from their source scene afterwards still clean up fully.
func (m *Manager) untrack(inst *instance.Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, inst.ID())
	path := m.pathOf[inst.ID()]
	delete(m.pathOf, inst.ID())
	if group, ok := m.byPath[path]; ok {
		delete(group, inst.ID())
		if len(group) == 0 {
			delete(m.byPath, path)
		}
	}
}

func (m *Manager) fire(cb Callback, inst *instance.Instance) {
	if cb != nil {
		cb(inst)
	}
}

func (m *Manager) observeLatency(start time.Time) {
	if m.observe != nil {
		m.observe(time.Since(start))
	}
}
