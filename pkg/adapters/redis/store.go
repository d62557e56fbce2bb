// Package redis implements ports.MetadataStore over a Redis backend so
// scanned scene metadata survives process restarts and can be shared
// between editor sessions and CI validation runs.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arbordev/arbor/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.MetadataStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for metadata entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for metadata entries.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "arbor:scene:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(path string) string {
	return s.prefix + path
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the metadata to Redis, keyed by scene path.
func (s *Store) Save(ctx context.Context, meta *domain.SceneMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(meta.Path), data, s.ttl)

	// Index score = expiry time; entries without a TTL get a far-future
	// score so the lazy prune in List never drops them.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: meta.Path,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves metadata for a scene path.
func (s *Store) Load(ctx context.Context, path string) (*domain.SceneMetadata, error) {
	val, err := s.client.Get(ctx, s.key(path)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrMetadataNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var meta domain.SceneMetadata
	if err := json.Unmarshal([]byte(val), &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// Delete removes the entry for a scene path.
func (s *Store) Delete(ctx context.Context, path string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(path))
	pipe.ZRem(ctx, s.indexKey(), path)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns every scene path with stored metadata, lazily pruning
// expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired metadata: %w", err)
	}

	paths, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	return paths, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
