package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var embeddingsBucket = []byte("embeddings")

// Cache wraps an Embedder with an on-disk bbolt cache keyed by a hash of
// model and text, so repeated predictions over the same file content never
// re-embed.
type Cache struct {
	db       *bolt.DB
	embedder Embedder
	logger   *logrus.Logger
}

// NewCache opens (creating if needed) the cache file at path.
func NewCache(path string, embedder Embedder, logger *logrus.Logger) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(embeddingsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}

	return &Cache{db: db, embedder: embedder, logger: logger}, nil
}

func (c *Cache) Model() string { return c.embedder.Model() }

// Embed returns the cached vector when present, otherwise embeds and
// stores. Cache write failures are logged and ignored; the vector is still
// returned.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.embedder.Model(), text)

	var cached []float32
	c.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(embeddingsBucket).Get(key); data != nil {
			json.Unmarshal(data, &cached)
		}
		return nil
	})
	if cached != nil {
		return cached, nil
	}

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(vec)
	if err == nil {
		err = c.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(embeddingsBucket).Put(key, data)
		})
	}
	if err != nil {
		c.logger.WithField("error", err).Debug("embedding cache write failed")
	}
	return vec, nil
}

func cacheKey(model, text string) []byte {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return []byte(hex.EncodeToString(sum[:]))
}

// Close flushes and closes the cache file.
func (c *Cache) Close() error {
	return c.db.Close()
}

var _ Embedder = (*Cache)(nil)
