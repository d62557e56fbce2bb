package scene

import (
	"container/list"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/arbordev/arbor/pkg/ports"
	"github.com/arbordev/arbor/pkg/schema"
)

// DefaultMaxEntries bounds the template cache when no limit is
// configured. Deliberately conservative; tune per project via config.
const DefaultMaxEntries = 128

// Cache parses scene files into templates on first request and serves
// them by path afterwards. Population is serialized per path: when many
// goroutines request the same unloaded path, one parses and the rest
// await the result. Populated templates are immutable and safe to read
// concurrently.
type Cache struct {
	loader   ports.ResourceLoader
	registry *schema.Registry
	graph    *DependencyGraph
	store    ports.MetadataStore // optional write-through
	logger   *slog.Logger

	maxEntries int

	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recently used
	meta    map[string]*domain.SceneMetadata
}

type entry struct {
	path  string
	ready chan struct{}
	scene *Scene
	err   error
	elem  *list.Element
	stale bool // invalidated while populating; drop on completion
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxEntries bounds the number of cached templates. Least recently
// used templates are evicted past the bound; metadata survives
// eviction.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithRegistry sets the node-type registry used to materialize records.
func WithRegistry(reg *schema.Registry) CacheOption {
	return func(c *Cache) { c.registry = reg }
}

// WithMetadataStore enables write-through of scanned metadata.
func WithMetadataStore(store ports.MetadataStore) CacheOption {
	return func(c *Cache) { c.store = store }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// NewCache creates a cache over the given loader, registering reference
// edges into graph as scenes are scanned.
func NewCache(loader ports.ResourceLoader, graph *DependencyGraph, opts ...CacheOption) *Cache {
	c := &Cache{
		loader:     loader,
		graph:      graph,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxEntries: DefaultMaxEntries,
		entries:    make(map[string]*entry),
		lru:        list.New(),
		meta:       make(map[string]*domain.SceneMetadata),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Graph returns the dependency graph the cache feeds.
func (c *Cache) Graph() *DependencyGraph { return c.graph }

// Exists reports whether the backing loader resolves the path.
func (c *Cache) Exists(path string) bool { return c.loader.FileExists(path) }

// Load returns the cached template for path, parsing it on first
// request. Reference edges are registered and transitively preflighted
// before the node tree is materialized, so a static cycle surfaces as
// CircularDependencyError with no tree built. Missing files fail with
// SourceNotFoundError, malformed ones with LoadError.
func (c *Cache) Load(ctx context.Context, path string) (*Scene, error) {
	c.mu.Lock()
	if e, ok := c.entries[path]; ok && !e.stale {
		c.lru.MoveToFront(e.elem)
		c.mu.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return e.scene, e.err
	}

	e := &entry{path: path, ready: make(chan struct{})}
	e.elem = c.lru.PushFront(e)
	c.entries[path] = e
	c.mu.Unlock()

	scene, err := c.populate(ctx, path)

	c.mu.Lock()
	if err != nil || e.stale {
		// Failed loads are not cached, and a population that was
		// invalidated mid-parse is discarded: the next request
		// reparses. Waiters on this entry still get the result. A
		// stale entry may already be shadowed by a fresh one, so only
		// drop the map slot when it is still ours.
		c.lru.Remove(e.elem)
		if c.entries[path] == e {
			delete(c.entries, path)
		}
	}
	e.scene, e.err = scene, err
	c.evictLocked()
	c.mu.Unlock()
	close(e.ready)

	return scene, err
}

func (c *Cache) populate(ctx context.Context, path string) (*Scene, error) {
	if !c.loader.FileExists(path) {
		return nil, &domain.SourceNotFoundError{Path: path}
	}
	raw, err := c.loader.ReadFile(path)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Reason: err}
	}

	// Metadata and graph registration first: a structural cycle must
	// be rejected before any node tree exists.
	meta, err := c.scanAndRegister(ctx, path, raw, make(map[string]struct{}))
	if err != nil {
		return nil, err
	}

	s, err := Parse(path, raw, c.registry)
	if err != nil {
		return nil, err
	}
	s.meta = meta
	c.logger.Debug("scene template loaded",
		"path", path,
		"nodes", s.NodeCount(),
		"refs", len(meta.References))
	return s, nil
}

// LoadMetadata returns dependency information for path without
// materializing the node tree.
func (c *Cache) LoadMetadata(ctx context.Context, path string) (*domain.SceneMetadata, error) {
	c.mu.Lock()
	if m, ok := c.meta[path]; ok {
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	if !c.loader.FileExists(path) {
		return nil, &domain.SourceNotFoundError{Path: path}
	}
	raw, err := c.loader.ReadFile(path)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Reason: err}
	}
	return c.scanAndRegister(ctx, path, raw, make(map[string]struct{}))
}

// scanAndRegister scans raw bytes, records edges in the dependency
// graph, and recursively preflights referenced scenes (metadata only).
// visited breaks recursion on diamonds; true cycles are rejected by the
// graph itself.
func (c *Cache) scanAndRegister(ctx context.Context, path string, raw []byte, visited map[string]struct{}) (*domain.SceneMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	visited[path] = struct{}{}

	meta, err := ScanMetadata(path, raw)
	if err != nil {
		return nil, err
	}
	meta.ModTime = c.loader.ModTime(path)

	if err := c.graph.ReplaceEdges(path, meta.References, c.loader.FileExists); err != nil {
		return nil, err
	}
	for _, miss := range c.graph.Missing() {
		if miss.From == path {
			c.logger.Warn("missing scene dependency", "from", miss.From, "to", miss.To)
		}
	}

	c.mu.Lock()
	c.meta[path] = meta
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(ctx, meta); err != nil {
			c.logger.Warn("metadata write-through failed", "path", path, "err", err)
		}
	}

	for _, ref := range meta.References {
		if _, ok := visited[ref]; ok {
			continue
		}
		if !c.loader.FileExists(ref) {
			continue // already recorded as missing
		}
		refRaw, err := c.loader.ReadFile(ref)
		if err != nil {
			c.logger.Warn("dependency scan failed", "path", ref, "err", err)
			continue
		}
		if _, err := c.scanAndRegister(ctx, ref, refRaw, visited); err != nil {
			var cyc *domain.CircularDependencyError
			if errors.As(err, &cyc) {
				return nil, cyc
			}
			// Malformed dependencies degrade; the direct load of that
			// file will report the precise failure.
			c.logger.Warn("dependency preflight failed", "path", ref, "err", err)
		}
	}
	return meta, nil
}

// Invalidate drops the template and metadata for path, forcing a
// reparse on next request. An in-flight load is left to finish but
// marked stale; its result is handed to current waiters and then
// discarded from the cache.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[path]; ok {
		select {
		case <-e.ready:
			c.lru.Remove(e.elem)
			delete(c.entries, path)
		default:
			e.stale = true
		}
	}
	delete(c.meta, path)
}

// Len returns the number of populated templates.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictLocked() {
	for len(c.entries) > c.maxEntries {
		back := c.lru.Back()
		if back == nil {
			return
		}
		victim := back.Value.(*entry)
		select {
		case <-victim.ready:
		default:
			return // never evict an in-flight population
		}
		c.lru.Remove(back)
		delete(c.entries, victim.path)
		c.logger.Debug("scene template evicted", "path", victim.path)
	}
}

