package features

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitintel/gitintel-go/internal/models"
	"github.com/gitintel/gitintel-go/internal/store"
)

func TestLineOverlapJaccard(t *testing.T) {
	tests := []struct {
		name   string
		target []models.LineRange
		source []models.LineRange
		want   float64
	}{
		{
			name:   "partial overlap",
			target: []models.LineRange{{Start: 10, End: 20}},
			source: []models.LineRange{{Start: 15, End: 25}},
			want:   6.0 / 16.0,
		},
		{
			name:   "disjoint",
			target: []models.LineRange{{Start: 10, End: 20}},
			source: []models.LineRange{{Start: 30, End: 40}},
			want:   0.0,
		},
		{
			name:   "identical",
			target: []models.LineRange{{Start: 5, End: 9}},
			source: []models.LineRange{{Start: 5, End: 9}},
			want:   1.0,
		},
		{
			name:   "empty target",
			target: nil,
			source: []models.LineRange{{Start: 1, End: 3}},
			want:   0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, LineOverlap(tt.target, tt.source), 1e-9)
		})
	}
}

func TestLineOverlapSymmetric(t *testing.T) {
	a := []models.LineRange{{Start: 10, End: 20}, {Start: 50, End: 55}}
	b := []models.LineRange{{Start: 18, End: 30}}
	assert.InDelta(t, LineOverlap(a, b), LineOverlap(b, a), 1e-9)
}

func TestTemporalDistanceBuckets(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		gap  time.Duration
		want float64
	}{
		{"within the hour", 30 * time.Minute, 0.9},
		{"same day", 10 * time.Hour, 0.7},
		{"same week", 3 * 24 * time.Hour, 0.5},
		{"stale", 30 * 24 * time.Hour, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TemporalDistance(base, base.Add(tt.gap)), 1e-9)
			// Order of the two sides must not matter.
			assert.InDelta(t, tt.want, TemporalDistance(base.Add(tt.gap), base), 1e-9)
		})
	}
}

func TestTemporalDistanceMissingTimestamp(t *testing.T) {
	assert.InDelta(t, 0.5, TemporalDistance(time.Time{}, time.Now()), 1e-9)
	assert.InDelta(t, 0.5, TemporalDistance(time.Now(), time.Time{}), 1e-9)
}

func TestChangeComplexity(t *testing.T) {
	mod := models.FileChangeSummary{ChangeType: models.ChangeModified, LinesChanged: 30}
	add := models.FileChangeSummary{ChangeType: models.ChangeAdded, LinesChanged: 30}

	plain := ChangeComplexity(mod, mod)
	structural := ChangeComplexity(mod, add)
	assert.Greater(t, structural, plain)

	// Volume component saturates at 100 total changed lines.
	huge := models.FileChangeSummary{ChangeType: models.ChangeModified, LinesChanged: 5000}
	assert.InDelta(t, ChangeComplexity(huge, mod), ChangeComplexity(huge, huge), 1e-9)

	// Always within range.
	assert.LessOrEqual(t, ChangeComplexity(add, add), 1.0)
	assert.GreaterOrEqual(t, ChangeComplexity(models.FileChangeSummary{}, models.FileChangeSummary{}), 0.0)
}

func newExtractorWithStore(t *testing.T) (*Extractor, store.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	st, err := store.NewSQLiteStore(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewExtractor(st, nil, logger), st
}

func TestExtractWithNoHistoryUsesNeutralDefaults(t *testing.T) {
	e, _ := newExtractorWithStore(t)

	pair := models.FileChangePair{
		Target: models.FileChangeSummary{
			ChangeType:   models.ChangeModified,
			LinesChanged: 12,
			LineRanges:   []models.LineRange{{Start: 10, End: 20}},
		},
		Source: models.FileChangeSummary{
			ChangeType:   models.ChangeModified,
			LinesChanged: 8,
			LineRanges:   []models.LineRange{{Start: 15, End: 25}},
		},
		Authors: []string{"nobody@example.com"},
	}

	f := e.Extract(context.Background(), "src/auth.py", pair, models.RepoContext{FileSize: 2048})

	assert.Equal(t, ".py", f.FileExtension)
	assert.InDelta(t, 6.0/16.0, f.OverlapRatio, 1e-9)
	assert.Zero(t, f.AuthorConflictHistory)
	assert.Zero(t, f.FileConflictHistory)
	assert.InDelta(t, 0.5, f.TemporalDistance, 1e-9) // missing timestamps
	assert.InDelta(t, 0.5, f.SemanticSimilarity, 1e-9)
}

func TestExtractReadsLearnedPatterns(t *testing.T) {
	e, st := newExtractorWithStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertAuthorPattern(ctx, &models.AuthorPattern{
		AuthorEmail:  "alice@example.com",
		ConflictRate: 0.6,
		LastUpdated:  time.Now().UTC(),
	}))
	require.NoError(t, st.UpsertFilePattern(ctx, &models.FilePattern{
		FilePath:          "src/auth.py",
		PathHash:          store.PathHash("src/auth.py"),
		ConflictFrequency: 5,
		LastSeen:          time.Now().UTC(),
	}))

	pair := models.FileChangePair{
		Authors: []string{"alice@example.com", "unknown@example.com"},
	}
	f := e.Extract(ctx, "src/auth.py", pair, models.RepoContext{})

	// Mean over both authors, unknown contributing zero.
	assert.InDelta(t, 0.3, f.AuthorConflictHistory, 1e-9)
	assert.InDelta(t, 0.5, f.FileConflictHistory, 1e-9)
}

func TestFileHistoryFallsBackToChurn(t *testing.T) {
	e, st := newExtractorWithStore(t)
	ctx := context.Background()

	// No learned pattern yet: recent change frequency stands in.
	f := e.Extract(ctx, "src/auth.py", models.FileChangePair{}, models.RepoContext{RecentChanges: 5})
	assert.InDelta(t, 0.5, f.FileConflictHistory, 1e-9)

	// Saturates at ten changes, same as learned conflicts.
	f = e.Extract(ctx, "src/auth.py", models.FileChangePair{}, models.RepoContext{RecentChanges: 40})
	assert.InDelta(t, 1.0, f.FileConflictHistory, 1e-9)

	// A learned pattern takes precedence over raw churn.
	require.NoError(t, st.UpsertFilePattern(ctx, &models.FilePattern{
		FilePath:          "src/auth.py",
		PathHash:          store.PathHash("src/auth.py"),
		ConflictFrequency: 2,
		LastSeen:          time.Now().UTC(),
	}))
	f = e.Extract(ctx, "src/auth.py", models.FileChangePair{}, models.RepoContext{RecentChanges: 40})
	assert.InDelta(t, 0.2, f.FileConflictHistory, 1e-9)
}
