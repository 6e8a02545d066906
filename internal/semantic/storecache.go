package semantic

import (
	"context"

	"github.com/sirupsen/logrus"
)

// VectorStore persists embedding vectors by key. The pattern store
// implements it, so team deployments on a shared database also share the
// embedding cache.
type VectorStore interface {
	SaveEmbedding(ctx context.Context, key string, vector []float32) error
	GetEmbedding(ctx context.Context, key string) ([]float32, error)
}

// StoreCache wraps an Embedder with a VectorStore-backed read-through
// cache. Same contract as Cache, but the vectors live next to the learned
// patterns instead of in a local bbolt file.
type StoreCache struct {
	store    VectorStore
	embedder Embedder
	logger   *logrus.Logger
}

func NewStoreCache(store VectorStore, embedder Embedder, logger *logrus.Logger) *StoreCache {
	return &StoreCache{store: store, embedder: embedder, logger: logger}
}

func (c *StoreCache) Model() string { return c.embedder.Model() }

// Embed returns the stored vector when present, otherwise embeds and
// stores. Store write failures are logged and ignored; the vector is still
// returned.
func (c *StoreCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := string(cacheKey(c.embedder.Model(), text))

	if cached, err := c.store.GetEmbedding(ctx, key); err == nil && len(cached) > 0 {
		return cached, nil
	}

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.store.SaveEmbedding(ctx, key, vec); err != nil {
		c.logger.WithField("error", err).Debug("embedding store write failed")
	}
	return vec, nil
}

var _ Embedder = (*StoreCache)(nil)
