// Package pool recycles scene instances per source path so hot spawn
// paths skip template cloning. Spares are kept reset: override-free,
// parentless, connections severed.
package pool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/arbordev/arbor/pkg/instance"
)

const (
	// DefaultCapacity is the per-path spare bound before growth.
	DefaultCapacity = 16
	// DefaultMaxCapacity bounds growth; doubling never exceeds it.
	DefaultMaxCapacity = 256
	// DefaultLowWater is the spare count Trim reduces each queue to.
	DefaultLowWater = 2
	// DefaultGrowthThreshold is how many consecutive exhaustion misses
	// on one path trigger a capacity doubling.
	DefaultGrowthThreshold = 3
)

// ExhaustionAlert reports that a checkout missed because the pool for
// Path was empty. Advisory only; a miss is not an error, the caller
// creates a fresh instance instead.
type ExhaustionAlert struct {
	Path   string
	Misses int
	OldCap int
	NewCap int // == OldCap when no growth happened
}

func (a ExhaustionAlert) String() string {
	return fmt.Sprintf("pool exhausted for %s (misses=%d cap=%d->%d)", a.Path, a.Misses, a.OldCap, a.NewCap)
}

// AlertFunc receives exhaustion alerts. It runs on the caller's
// goroutine and must not block.
type AlertFunc func(ExhaustionAlert)

type queue struct {
	spares   []*instance.Instance // LIFO, push/pop at the tail
	capacity int
	misses   int
}

// Pool keeps reset instances keyed by source scene path.
type Pool struct {
	mu     sync.Mutex
	queues map[string]*queue

	capacity        int
	maxCapacity     int
	lowWater        int
	growthThreshold int

	onAlert AlertFunc
	logger  *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithCapacity sets the initial per-path spare bound.
func WithCapacity(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// WithMaxCapacity bounds capacity growth.
func WithMaxCapacity(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxCapacity = n
		}
	}
}

// WithLowWater sets the spare count Trim reduces each queue to.
func WithLowWater(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.lowWater = n
		}
	}
}

// WithGrowthThreshold sets how many consecutive misses double a
// queue's capacity.
func WithGrowthThreshold(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.growthThreshold = n
		}
	}
}

// WithAlertFunc registers the exhaustion callback.
func WithAlertFunc(fn AlertFunc) Option {
	return func(p *Pool) { p.onAlert = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// New creates an empty pool.
func New(opts ...Option) *Pool {
	p := &Pool{
		queues:          make(map[string]*queue),
		capacity:        DefaultCapacity,
		maxCapacity:     DefaultMaxCapacity,
		lowWater:        DefaultLowWater,
		growthThreshold: DefaultGrowthThreshold,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxCapacity < p.capacity {
		p.maxCapacity = p.capacity
	}
	return p
}

// Checkout pops a spare instance for path. A miss returns (nil, false):
// the caller creates a fresh instance. Repeated misses on one path
// double its capacity up to the max and raise an ExhaustionAlert.
func (p *Pool) Checkout(path string) (*instance.Instance, bool) {
	p.mu.Lock()
	q := p.queue(path)
	if n := len(q.spares); n > 0 {
		inst := q.spares[n-1]
		q.spares[n-1] = nil
		q.spares = q.spares[:n-1]
		q.misses = 0
		p.mu.Unlock()
		inst.Activate()
		return inst, true
	}

	q.misses++
	alert := ExhaustionAlert{Path: path, Misses: q.misses, OldCap: q.capacity, NewCap: q.capacity}
	if q.misses >= p.growthThreshold && q.capacity < p.maxCapacity {
		q.capacity *= 2
		if q.capacity > p.maxCapacity {
			q.capacity = p.maxCapacity
		}
		q.misses = 0
		alert.NewCap = q.capacity
	}
	onAlert := p.onAlert
	p.mu.Unlock()

	if alert.NewCap != alert.OldCap {
		p.logger.Info("pool capacity grown", "path", path, "capacity", alert.NewCap)
	}
	if onAlert != nil {
		onAlert(alert)
	}
	return nil, false
}

// Return resets inst and stores it as a spare for its source path.
// Reports false when the queue is full or the instance cannot be
// reset; the caller destroys it then.
func (p *Pool) Return(ctx context.Context, inst *instance.Instance) (bool, error) {
	if inst.State() == instance.StateDestroyed {
		return false, fmt.Errorf("cannot pool a destroyed instance %q", inst.Name())
	}
	path := inst.SourcePath()
	if path == "" {
		return false, fmt.Errorf("cannot pool instance %q without a source scene", inst.Name())
	}
	if err := inst.Reset(ctx); err != nil {
		return false, err
	}

	p.mu.Lock()
	q := p.queue(path)
	if len(q.spares) >= q.capacity {
		p.mu.Unlock()
		return false, nil
	}
	inst.MarkPooled(true)
	q.spares = append(q.spares, inst)
	p.mu.Unlock()
	return true, nil
}

// Trim reduces every queue to the low-water mark, destroying the
// evicted spares. Returns the number destroyed.
func (p *Pool) Trim() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	trimmed := 0
	for path, q := range p.queues {
		for len(q.spares) > p.lowWater {
			n := len(q.spares)
			q.spares[n-1].MarkDestroyed()
			q.spares[n-1] = nil
			q.spares = q.spares[:n-1]
			trimmed++
		}
		if len(q.spares) == 0 && q.capacity == p.capacity {
			delete(p.queues, path)
		}
	}
	if trimmed > 0 {
		p.logger.Debug("pool trimmed", "destroyed", trimmed)
	}
	return trimmed
}

// Size returns the spare count for path.
func (p *Pool) Size(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if q, ok := p.queues[path]; ok {
		return len(q.spares)
	}
	return 0
}

// Capacity returns the current spare bound for path.
func (p *Pool) Capacity(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if q, ok := p.queues[path]; ok {
		return q.capacity
	}
	return p.capacity
}

// TotalPooled returns the spare count across all paths.
func (p *Pool) TotalPooled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, q := range p.queues {
		total += len(q.spares)
	}
	return total
}

// Clear destroys every spare and drops all queues.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, q := range p.queues {
		for _, inst := range q.spares {
			inst.MarkDestroyed()
		}
	}
	p.queues = make(map[string]*queue)
}

func (p *Pool) queue(path string) *queue {
	q, ok := p.queues[path]
	if !ok {
		q = &queue{capacity: p.capacity}
		p.queues[path] = q
	}
	return q
}
