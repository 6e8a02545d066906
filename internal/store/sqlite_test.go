package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitintel/gitintel-go/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	s, err := NewSQLiteStore(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFilePatternRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetFilePattern(ctx, "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)

	p := &models.FilePattern{
		FilePath:            "src/auth.py",
		PathHash:            "deadbeef",
		ConflictFrequency:   2,
		ResolutionStrategy:  "manual",
		StrategySuccessRate: 0.8,
		LastSeen:            time.Now().UTC(),
	}
	require.NoError(t, s.UpsertFilePattern(ctx, p))

	got, err := s.GetFilePattern(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ConflictFrequency)
	assert.Equal(t, "src/auth.py", got.FilePath)

	// Upsert replaces, not duplicates.
	p.ConflictFrequency = 3
	require.NoError(t, s.UpsertFilePattern(ctx, p))

	n, err := s.CountFilePatterns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = s.GetFilePattern(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ConflictFrequency)
}

func TestAuthorPatternFrequentFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.AuthorPattern{
		AuthorEmail:     "alice@example.com",
		TotalMerges:     4,
		ConflictsCaused: 1,
		ConflictRate:    0.25,
		FrequentFiles:   []string{"src/auth.py", "src/api.py"},
		LastUpdated:     time.Now().UTC(),
	}
	require.NoError(t, s.UpsertAuthorPattern(ctx, p))

	got, err := s.GetAuthorPattern(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/auth.py", "src/api.py"}, got.FrequentFiles)
	assert.InDelta(t, 0.25, got.ConflictRate, 1e-9)
}

func TestPredictionValidationResolvesMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, prob := range []float64{0.4, 0.7} {
		rec := &models.PredictionRecord{
			ID:           uuid.New().String(),
			RepoPath:     "/repo",
			TargetBranch: "main",
			SourceBranch: "feature",
			FilePath:     "src/auth.py",
			Probability:  prob,
			Confidence:   0.6,
			Method:       "heuristic",
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.SavePrediction(ctx, rec))
	}

	first, err := s.LatestUnvalidatedPrediction(ctx, "/repo", "src/auth.py")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, first.Probability, 1e-9)

	require.NoError(t, s.ResolvePrediction(ctx, first.ID, true, 0.7, 240))

	// Already-resolved rows stay resolved.
	assert.ErrorIs(t, s.ResolvePrediction(ctx, first.ID, true, 0.7, 240), ErrNotFound)

	second, err := s.LatestUnvalidatedPrediction(ctx, "/repo", "src/auth.py")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, second.Probability, 1e-9)
	require.NoError(t, s.ResolvePrediction(ctx, second.ID, false, 0.6, 0))

	_, err = s.LatestUnvalidatedPrediction(ctx, "/repo", "src/auth.py")
	assert.ErrorIs(t, err, ErrNotFound)

	total, avgAcc, err := s.PredictionStats(ctx, "/repo")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.InDelta(t, 0.65, avgAcc, 1e-9)
}

func TestRecommendationOutcomeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.RecommendationRecord{
		ID:                  uuid.New().String(),
		RepoPath:            "/repo",
		SourceBranch:        "feature",
		TargetBranch:        "main",
		RecommendedStrategy: "squash",
		Confidence:          0.8,
		SuccessProbability:  0.85,
		EstimatedConflicts:  1,
		CreatedAt:           time.Now().UTC(),
	}
	require.NoError(t, s.SaveRecommendation(ctx, rec))

	open, err := s.LatestOpenRecommendation(ctx, "/repo", "feature", "main")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, open.ID)

	require.NoError(t, s.CompleteRecommendation(ctx, open.ID, "squash", true, 0, 6, 1.0))

	_, err = s.LatestOpenRecommendation(ctx, "/repo", "feature", "main")
	assert.ErrorIs(t, err, ErrNotFound)

	total, successful, avgAcc, err := s.RecommendationStats(ctx, "/repo")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, successful)
	assert.InDelta(t, 1.0, avgAcc, 1e-9)

	perf, err := s.StrategyPerformance(ctx, "/repo")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, perf["squash"], 1e-9)
}

func TestOperationStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ops := []models.Operation{
		{OperationType: "merge", ConflictOccurred: true, ResolutionSec: 300},
		{OperationType: "merge", ConflictOccurred: false},
		{OperationType: "merge", ConflictOccurred: true, ResolutionSec: 100},
		{OperationType: "commit", ConflictOccurred: false},
	}
	for i := range ops {
		ops[i].ID = uuid.New().String()
		ops[i].RepoPath = "/repo"
		ops[i].Timestamp = time.Now().UTC()
		require.NoError(t, s.AppendOperation(ctx, &ops[i]))
	}

	total, conflictRate, avgRes, err := s.OperationStats(ctx, "/repo")
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.InDelta(t, 0.5, conflictRate, 1e-9)
	// Average resolution counts conflicted operations only.
	assert.InDelta(t, 200, avgRes, 1e-9)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vec := []float32{0.1, 0.2, 0.3}
	require.NoError(t, s.SaveEmbedding(ctx, "src/auth.py", vec))

	got, err := s.GetEmbedding(ctx, "src/auth.py")
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = s.GetEmbedding(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
