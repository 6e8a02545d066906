package semantic

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitintel/gitintel-go/internal/models"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("func Login(user *User) error { return check_auth(user) }")
	assert.Contains(t, tokens, "func")
	assert.Contains(t, tokens, "login")
	assert.Contains(t, tokens, "check_auth")
	assert.NotContains(t, tokens, "{")
}

func TestTokenEmbedderSimilarity(t *testing.T) {
	e := NewTokenEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "def login(user): return authenticate(user)")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "def login(user): return authenticate(user)")
	require.NoError(t, err)
	c, err := e.Embed(ctx, "SELECT id FROM orders WHERE total > 100")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, Cosine(a, b), 1e-6)
	assert.Less(t, Cosine(a, c), Cosine(a, b))
}

func TestCosineEdgeCases(t *testing.T) {
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestCacheAvoidsReEmbedding(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	counter := &countingEmbedder{inner: NewTokenEmbedder()}
	cache, err := NewCache(filepath.Join(t.TempDir(), "semantic.db"), counter, logger)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	first, err := cache.Embed(ctx, "some file content")
	require.NoError(t, err)
	second, err := cache.Embed(ctx, "some file content")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, counter.calls)

	_, err = cache.Embed(ctx, "different content")
	require.NoError(t, err)
	assert.Equal(t, 2, counter.calls)
}

type countingEmbedder struct {
	inner Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Model() string { return c.inner.Model() }

func TestChangeSimilarityUsesFetchedContent(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	fetch := func(_ context.Context, _ string) (string, string, error) {
		return "func handler() { serve() }", "func handler() { serve() log() }", nil
	}
	cs := NewChangeSimilarity(NewTokenEmbedder(), fetch, logger)

	sim, err := cs.Similarity(context.Background(), "src/h.go",
		models.FileChangeSummary{}, models.FileChangeSummary{})
	require.NoError(t, err)
	assert.Greater(t, sim, 0.5)
	assert.LessOrEqual(t, sim, 1.0)
}
