package semantic

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitintel/gitintel-go/internal/store"
)

func TestStoreCacheReadsThrough(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	st, err := store.NewSQLiteStore(":memory:", logger)
	require.NoError(t, err)
	defer st.Close()

	counter := &countingEmbedder{inner: NewTokenEmbedder()}
	cache := NewStoreCache(st, counter, logger)

	ctx := context.Background()
	first, err := cache.Embed(ctx, "def login(): pass")
	require.NoError(t, err)
	second, err := cache.Embed(ctx, "def login(): pass")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, counter.calls)

	// Different text misses the cache.
	_, err = cache.Embed(ctx, "def logout(): pass")
	require.NoError(t, err)
	assert.Equal(t, 2, counter.calls)

	assert.Equal(t, counter.Model(), cache.Model())
}
