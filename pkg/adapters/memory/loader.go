// Package memory provides a map-backed ResourceLoader, used by tests
// and by hosts that embed scene data.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Loader implements ports.ResourceLoader over an in-memory map.
type Loader struct {
	mu      sync.RWMutex
	files   map[string][]byte
	stamps  map[string]time.Time
	watches []chan string
}

// NewLoader creates a loader with the provided raw file contents.
func NewLoader(files map[string]string) *Loader {
	l := &Loader{
		files:  make(map[string][]byte, len(files)),
		stamps: make(map[string]time.Time, len(files)),
	}
	now := time.Now()
	for k, v := range files {
		l.files[k] = []byte(v)
		l.stamps[k] = now
	}
	return l
}

// NewFromDocs creates a loader from JSON-serializable documents. This
// handles serialization automatically, improving DX for tests.
func NewFromDocs(docs map[string]any) (*Loader, error) {
	files := make(map[string]string, len(docs))
	for path, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal scene %s: %w", path, err)
		}
		files[path] = string(raw)
	}
	return NewLoader(files), nil
}

// ReadFile returns the stored bytes for path.
func (l *Loader) ReadFile(path string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	content, ok := l.files[path]
	if !ok {
		return nil, fmt.Errorf("scene file not found: %s: %w", path, os.ErrNotExist)
	}
	return content, nil
}

// FileExists reports whether path is stored.
func (l *Loader) FileExists(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.files[path]
	return ok
}

// ModTime returns the write stamp of path, or the zero time.
func (l *Loader) ModTime(path string) time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stamps[path]
}

// Put stores or replaces a file and notifies watchers, emulating an
// on-disk edit.
func (l *Loader) Put(path, content string) {
	l.mu.Lock()
	l.files[path] = []byte(content)
	l.stamps[path] = time.Now()
	watches := append([]chan string(nil), l.watches...)
	l.mu.Unlock()

	for _, ch := range watches {
		select {
		case ch <- path:
		default: // never block a writer on a slow watcher
		}
	}
}

// Delete removes a file.
func (l *Loader) Delete(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.files, path)
	delete(l.stamps, path)
}

// Watch implements ports.Watchable. The channel closes when ctx ends.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)
	l.mu.Lock()
	l.watches = append(l.watches, ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		for i, w := range l.watches {
			if w == ch {
				l.watches = append(l.watches[:i], l.watches[i+1:]...)
				break
			}
		}
		l.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
