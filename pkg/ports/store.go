package ports

import (
	"context"

	"github.com/arbordev/arbor/pkg/domain"
)

// MetadataStore persists scanned scene metadata so preflight data can
// be shared across processes (editor sessions, CI validation).
type MetadataStore interface {
	// Save persists metadata keyed by its scene path.
	Save(ctx context.Context, meta *domain.SceneMetadata) error

	// Load retrieves metadata for a scene path. Returns
	// domain.ErrMetadataNotFound when no entry exists.
	Load(ctx context.Context, path string) (*domain.SceneMetadata, error)

	// Delete removes the entry for a scene path.
	Delete(ctx context.Context, path string) error

	// List returns every scene path with stored metadata.
	List(ctx context.Context) ([]string, error)
}
