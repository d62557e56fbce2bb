package manager

import (
	"context"
	"sync/atomic"

	"github.com/arbordev/arbor/pkg/instance"
)

const (
	asyncPending int32 = iota
	asyncParsed
	asyncCanceled
)

// Handle controls one pending asynchronous creation. Cancel prevents
// the completion from running; it is a no-op once the background parse
// has finished and the completion is queued.
type Handle struct {
	state atomic.Int32
}

// Cancel requests cancellation. Reports whether the request arrived in
// time to take effect.
func (h *Handle) Cancel() bool {
	return h.state.CompareAndSwap(asyncPending, asyncCanceled)
}

// CreateInstanceAsync parses the template for req.Path on a background
// goroutine, then queues a completion that clones the instance and
// invokes callback. Node trees are never touched off the owner
// goroutine: the completion waits until Drain runs it.
func (m *Manager) CreateInstanceAsync(ctx context.Context, req CreateRequest, callback func(*instance.Instance, error)) *Handle {
	h := &Handle{}
	go func() {
		_, err := m.cache.Load(ctx, req.Path)

		if !h.state.CompareAndSwap(asyncPending, asyncParsed) {
			return // canceled while parsing
		}

		m.enqueue(func() {
			if err != nil {
				callback(nil, err)
				return
			}
			inst, cerr := m.CreateInstance(ctx, req.Path, req.Name, req.UsePool)
			callback(inst, cerr)
		})
	}()
	return h
}

// Post queues fn to run during the next Drain. Background goroutines
// use it to marshal tree mutations onto the owner goroutine.
func (m *Manager) Post(fn func()) {
	m.enqueue(fn)
}

// Drain runs every queued completion on the calling goroutine and
// returns how many ran. The owner loop calls this once per tick.
func (m *Manager) Drain() int {
	m.mu.Lock()
	pending := m.completions
	m.completions = nil
	m.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// PendingCompletions returns the queued completion count.
func (m *Manager) PendingCompletions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completions)
}

func (m *Manager) enqueue(fn func()) {
	m.mu.Lock()
	m.completions = append(m.completions, fn)
	m.mu.Unlock()
}
