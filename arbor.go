package arbor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/arbordev/arbor/internal/config"
	"github.com/arbordev/arbor/internal/logging"
	fileAdapter "github.com/arbordev/arbor/pkg/adapters/file"
	"github.com/arbordev/arbor/pkg/domain"
	"github.com/arbordev/arbor/pkg/instance"
	"github.com/arbordev/arbor/pkg/manager"
	"github.com/arbordev/arbor/pkg/monitor"
	"github.com/arbordev/arbor/pkg/pool"
	"github.com/arbordev/arbor/pkg/ports"
	"github.com/arbordev/arbor/pkg/scene"
	"github.com/arbordev/arbor/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
)

// Context is the high-level entry point for the Arbor library. It owns
// one project's scene cache, dependency graph, instance manager, pool,
// and performance monitor. Multiple isolated Contexts can coexist;
// there is no global state.
type Context struct {
	name     string
	loader   ports.ResourceLoader
	store    ports.MetadataStore
	registry *schema.Registry
	cfg      *config.Config
	logger   *slog.Logger
	promReg  prometheus.Registerer

	graph   *scene.DependencyGraph
	cache   *scene.Cache
	pool    *pool.Pool
	manager *manager.Manager
	monitor *monitor.Monitor
}

// Option defines a functional option for configuring the Context.
type Option func(*Context)

// WithLoader injects a custom ResourceLoader, bypassing the default
// filesystem adapter.
func WithLoader(l ports.ResourceLoader) Option {
	return func(c *Context) { c.loader = l }
}

// WithMetadataStore enables write-through of scanned scene metadata.
func WithMetadataStore(store ports.MetadataStore) Option {
	return func(c *Context) { c.store = store }
}

// WithRegistry sets the node-type registry used to materialize scenes.
func WithRegistry(reg *schema.Registry) Option {
	return func(c *Context) { c.registry = reg }
}

// WithConfig overrides the configuration loaded from the project dir.
func WithConfig(cfg *config.Config) Option {
	return func(c *Context) { c.cfg = cfg }
}

// WithLogger sets a custom structured logger for the context.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// WithRegisterer sends the monitor's collectors to reg instead of the
// default prometheus registry. Tests pass prometheus.NewRegistry().
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Context) { c.promReg = reg }
}

// New initializes a new Arbor Context.
// By default, it reads scene files from projectDir and tuning from an
// arbor.yaml inside it. If WithLoader is provided, projectDir can be
// empty and the filesystem is never touched.
func New(projectDir string, opts ...Option) (*Context, error) {
	c := &Context{}
	for _, opt := range opts {
		opt(c)
	}

	if c.loader == nil {
		if projectDir == "" {
			return nil, fmt.Errorf("projectDir is required when no custom loader is provided")
		}
		loader, err := fileAdapter.New(projectDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open project: %w", err)
		}
		c.loader = loader
		c.name = filepath.Base(loader.Root())
	} else if projectDir != "" {
		c.name = filepath.Base(projectDir)
	}

	if c.cfg == nil {
		cfg := config.Default()
		if projectDir != "" {
			loaded, err := config.Load(projectDir)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
		c.cfg = cfg
	}

	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.name != "" {
		c.logger = c.logger.With("project", c.name)
	}
	if c.promReg == nil {
		c.promReg = prometheus.DefaultRegisterer
	}

	c.graph = scene.NewDependencyGraph()

	cacheOpts := []scene.CacheOption{
		scene.WithMaxEntries(c.cfg.Cache.MaxEntries),
		scene.WithLogger(c.logger),
	}
	if c.registry != nil {
		cacheOpts = append(cacheOpts, scene.WithRegistry(c.registry))
	}
	if c.store != nil {
		cacheOpts = append(cacheOpts, scene.WithMetadataStore(c.store))
	}
	c.cache = scene.NewCache(c.loader, c.graph, cacheOpts...)

	c.pool = pool.New(
		pool.WithCapacity(c.cfg.Pool.Capacity),
		pool.WithMaxCapacity(c.cfg.Pool.MaxCapacity),
		pool.WithLowWater(c.cfg.Pool.LowWater),
		pool.WithLogger(c.logger),
		pool.WithAlertFunc(func(pool.ExhaustionAlert) {
			if c.monitor != nil {
				c.monitor.CountPoolExhaustion()
			}
		}),
	)

	c.manager = manager.New(c.cache,
		manager.WithPool(c.pool),
		manager.WithLogger(c.logger),
		manager.WithLatencyObserver(func(d time.Duration) {
			if c.monitor != nil {
				c.monitor.ObserveInstantiation(d)
			}
		}),
	)

	c.monitor = monitor.New(c.manager,
		monitor.WithPool(c.pool),
		monitor.WithInterval(c.cfg.Monitor.Interval.Std()),
		monitor.WithWindow(c.cfg.Monitor.Window),
		monitor.WithLatencyCeiling(c.cfg.Monitor.LatencyCeiling.Std()),
		monitor.WithMemoryCeiling(c.cfg.Monitor.MemoryCeiling),
		monitor.WithRegisterer(c.promReg),
		monitor.WithLogger(c.logger),
	)

	return c, nil
}

// Name returns the project name (the base of the project directory).
func (c *Context) Name() string { return c.name }

// Loader returns the underlying ResourceLoader.
func (c *Context) Loader() ports.ResourceLoader { return c.loader }

// Graph returns the scene dependency graph.
func (c *Context) Graph() *scene.DependencyGraph { return c.graph }

// Cache returns the scene template cache.
func (c *Context) Cache() *scene.Cache { return c.cache }

// Manager returns the instance manager.
func (c *Context) Manager() *manager.Manager { return c.manager }

// Monitor returns the performance monitor.
func (c *Context) Monitor() *monitor.Monitor { return c.monitor }

// LoadScene returns the cached template for path, parsing on first
// request.
func (c *Context) LoadScene(ctx context.Context, path string) (*scene.Scene, error) {
	return c.cache.Load(ctx, path)
}

// LoadMetadata returns dependency information for path without
// materializing its node tree.
func (c *Context) LoadMetadata(ctx context.Context, path string) (*domain.SceneMetadata, error) {
	return c.cache.LoadMetadata(ctx, path)
}

// Invalidate drops the cached template for path.
func (c *Context) Invalidate(path string) { c.cache.Invalidate(path) }

// CreateInstance creates (or recycles, when usePool is set) a live
// instance of the scene at path.
func (c *Context) CreateInstance(ctx context.Context, path, name string, usePool bool) (*instance.Instance, error) {
	return c.manager.CreateInstance(ctx, path, name, usePool)
}

// DestroyInstance removes inst, optionally returning it to the pool.
func (c *Context) DestroyInstance(ctx context.Context, inst *instance.Instance, returnToPool bool) error {
	return c.manager.DestroyInstance(ctx, inst, returnToPool)
}

// BatchCreate creates one instance per request, sharing template
// parses across requests of the same scene.
func (c *Context) BatchCreate(ctx context.Context, reqs []manager.CreateRequest) ([]*instance.Instance, error) {
	return c.manager.BatchCreate(ctx, reqs)
}

// CreateInstanceAsync parses in the background and queues the creation
// for the next Drain.
func (c *Context) CreateInstanceAsync(ctx context.Context, req manager.CreateRequest, callback func(*instance.Instance, error)) *manager.Handle {
	return c.manager.CreateInstanceAsync(ctx, req, callback)
}

// Drain runs queued async completions on the calling goroutine.
func (c *Context) Drain() int { return c.manager.Drain() }

// WarmPool pre-creates n spare instances of path.
func (c *Context) WarmPool(ctx context.Context, path string, n int) error {
	return c.manager.WarmPool(ctx, path, n)
}

// ReloadScene invalidates the template for path and reloads every live
// instance of it.
func (c *Context) ReloadScene(ctx context.Context, path string) error {
	return c.manager.ReloadScene(ctx, path)
}

// Dependents returns the scenes that directly reference path.
func (c *Context) Dependents(path string) []string { return c.graph.Dependents(path) }

// ImpactSet returns every scene transitively affected by a change to
// path.
func (c *Context) ImpactSet(path string) []string { return c.graph.ImpactSet(path) }

// OnAlert registers an advisory performance alert callback.
func (c *Context) OnAlert(fn monitor.AlertFunc) { c.monitor.OnAlert(fn) }

// StartMonitor begins periodic sampling until ctx is done.
func (c *Context) StartMonitor(ctx context.Context) { c.monitor.Start(ctx) }

// Stats reports a point-in-time view of the context.
type Stats struct {
	Project             string        `json:"project"`
	ActiveInstances     int           `json:"active_instances"`
	PooledInstances     int           `json:"pooled_instances"`
	TotalNodes          int           `json:"total_nodes"`
	CachedScenes        int           `json:"cached_scenes"`
	AvgInstantiation    time.Duration `json:"avg_instantiation_ns"`
	MissingDependencies int           `json:"missing_dependencies"`
}

// Stats returns current instance, pool, and cache counters.
func (c *Context) Stats() Stats {
	return Stats{
		Project:             c.name,
		ActiveInstances:     c.manager.ActiveCount(),
		PooledInstances:     c.pool.TotalPooled(),
		TotalNodes:          c.manager.TotalNodeCount(),
		CachedScenes:        c.cache.Len(),
		AvgInstantiation:    c.monitor.AvgLatency(),
		MissingDependencies: len(c.graph.Missing()),
	}
}

// Watch subscribes to backend changes: every changed scene file is
// invalidated immediately, and its live instances are reloaded on the
// next Drain so node trees are only mutated on the owner goroutine.
// The path is forwarded on the returned channel once the reload has
// run. Returns an error if the loader does not support watching.
func (c *Context) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := c.loader.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("current loader does not support watching")
	}
	events, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan string, 16)
	go func() {
		for path := range events {
			p := path
			c.cache.Invalidate(p)
			c.manager.Post(func() {
				if err := c.manager.ReloadScene(ctx, p); err != nil {
					c.logger.Warn("hot reload failed", "path", p, "err", err)
				}
				select {
				case out <- p:
				case <-ctx.Done():
				}
			})
		}
		// Queued behind any pending reloads, so no send follows it.
		c.manager.Post(func() { close(out) })
	}()
	return out, nil
}

// CleanupAll destroys every tracked instance and clears the pool.
func (c *Context) CleanupAll() { c.manager.CleanupAll() }
