package ports

import (
	"context"
	"testing"
	"time"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunMetadataStoreContract verifies that a MetadataStore implementation
// adheres to the interface contract.
func RunMetadataStoreContract(t *testing.T, store MetadataStore) {
	ctx := context.Background()
	path := "contract/Enemy-" + time.Now().Format("20060102150405") + ".scene"

	t.Run("Save and Load", func(t *testing.T) {
		meta := &domain.SceneMetadata{
			Path:       path,
			References: []string{"weapons/Gun.scene"},
			Complexity: 12,
		}

		require.NoError(t, store.Save(ctx, meta))

		loaded, err := store.Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, meta.Path, loaded.Path)
		assert.Equal(t, meta.References, loaded.References)
		assert.Equal(t, meta.Complexity, loaded.Complexity)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+path)
		assert.ErrorIs(t, err, domain.ErrMetadataNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &domain.SceneMetadata{Path: path}))
		require.NoError(t, store.Delete(ctx, path))

		_, err := store.Load(ctx, path)
		assert.ErrorIs(t, err, domain.ErrMetadataNotFound)
	})

	t.Run("List", func(t *testing.T) {
		p1 := path + "-1"
		p2 := path + "-2"
		_ = store.Save(ctx, &domain.SceneMetadata{Path: p1})
		_ = store.Save(ctx, &domain.SceneMetadata{Path: p2})
		defer func() {
			_ = store.Delete(ctx, p1)
			_ = store.Delete(ctx, p2)
		}()

		paths, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, paths, p1)
		assert.Contains(t, paths, p2)
	})
}
