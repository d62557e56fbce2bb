package ports

import (
	"context"
	"time"
)

// ResourceLoader defines how the core retrieves scene file contents.
// Paths are project-relative and stable; they double as cache keys and
// dependency-graph node identities.
type ResourceLoader interface {
	// ReadFile returns the raw bytes of a scene file.
	ReadFile(path string) ([]byte, error)

	// FileExists reports whether the path resolves without reading it.
	FileExists(path string) bool

	// ModTime returns the last-modified stamp, or the zero time when
	// the backend has no such notion.
	ModTime(path string) time.Time
}

// Watchable is implemented by loaders that can notify about backend
// changes. The channel carries the project-relative path that changed;
// consumers typically invalidate the cache entry and reload instances.
type Watchable interface {
	Watch(ctx context.Context) (<-chan string, error)
}
