package predict

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitintel/gitintel-go/internal/config"
	"github.com/gitintel/gitintel-go/internal/features"
	"github.com/gitintel/gitintel-go/internal/models"
	"github.com/gitintel/gitintel-go/internal/store"
)

func newTestPredictor(t *testing.T) (*Predictor, store.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	st, err := store.NewSQLiteStore(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	extractor := features.NewExtractor(st, nil, logger)
	return NewPredictor(extractor, st, cfg, false, logger), st
}

func overlappingPair(ts time.Time) models.FileChangePair {
	return models.FileChangePair{
		Target: models.FileChangeSummary{
			ChangeType:   models.ChangeModified,
			LinesChanged: 11,
			LineRanges:   []models.LineRange{{Start: 10, End: 20}},
			Timestamp:    ts,
		},
		Source: models.FileChangeSummary{
			ChangeType:   models.ChangeModified,
			LinesChanged: 11,
			LineRanges:   []models.LineRange{{Start: 15, End: 25}},
			Timestamp:    ts.Add(30 * time.Minute),
		},
	}
}

func disjointPair(ts time.Time) models.FileChangePair {
	p := overlappingPair(ts)
	p.Source.LineRanges = []models.LineRange{{Start: 30, End: 40}}
	return p
}

func TestPredictRangeInvariants(t *testing.T) {
	p, _ := newTestPredictor(t)
	ctx := context.Background()

	pred, err := p.Predict(ctx, "src/auth.py", overlappingPair(time.Now()), models.RepoContext{
		RepoPath: "/repo", TargetBranch: "main", SourceBranch: "feature",
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, pred.ConflictProbability, 0.0)
	assert.LessOrEqual(t, pred.ConflictProbability, 0.98)
	assert.GreaterOrEqual(t, pred.ConfidenceScore, 0.5)
	assert.LessOrEqual(t, pred.ConfidenceScore, 0.98)
	assert.GreaterOrEqual(t, pred.EstimatedResolutionSec, 60)
	assert.LessOrEqual(t, pred.EstimatedResolutionSec, 3600)
	assert.NotEmpty(t, pred.ResolutionSuggestion)
	assert.Contains(t, pred.PredictionMethods, "statistical_features")
	assert.Contains(t, pred.PredictionMethods, "line_overlap_analysis")
}

func TestOverlappingRangesScoreHigherThanDisjoint(t *testing.T) {
	p, _ := newTestPredictor(t)
	ctx := context.Background()
	ts := time.Now()

	overlapping, err := p.Predict(ctx, "src/auth.py", overlappingPair(ts), models.RepoContext{RepoPath: "/repo"})
	require.NoError(t, err)
	disjoint, err := p.Predict(ctx, "src/auth.py", disjointPair(ts), models.RepoContext{RepoPath: "/repo"})
	require.NoError(t, err)

	assert.Greater(t, overlapping.ConflictProbability, disjoint.ConflictProbability)
	assert.Greater(t, overlapping.ConflictProbability, 0.0)
}

func TestFileTypeMultiplierOrdersFormats(t *testing.T) {
	p, _ := newTestPredictor(t)
	ctx := context.Background()
	ts := time.Now()

	code, err := p.Predict(ctx, "src/auth.py", overlappingPair(ts), models.RepoContext{RepoPath: "/repo"})
	require.NoError(t, err)
	prose, err := p.Predict(ctx, "README.md", overlappingPair(ts), models.RepoContext{RepoPath: "/repo"})
	require.NoError(t, err)

	assert.Greater(t, code.ConflictProbability, prose.ConflictProbability)
}

func TestProbabilityMonotonicInOverlap(t *testing.T) {
	p, _ := newTestPredictor(t)

	// Every other feature held fixed; only the overlap ratio moves.
	base := models.ConflictFeatures{
		FileExtension:         ".py",
		OverlapRatio:          0.2,
		AuthorConflictHistory: 0.3,
		FileConflictHistory:   0.4,
		ChangeComplexity:      0.5,
		TemporalDistance:      0.7,
		SemanticSimilarity:    0.5,
	}
	higher := base
	higher.OverlapRatio = 0.8

	assert.Greater(t, p.probability(higher), p.probability(base))

	// The increase is exactly the overlap weight times the delta.
	want := p.weights.Overlap * (higher.OverlapRatio - base.OverlapRatio) * 1.1
	assert.InDelta(t, want, p.probability(higher)-p.probability(base), 1e-9)
}

func TestPredictionsArePersisted(t *testing.T) {
	p, st := newTestPredictor(t)
	ctx := context.Background()

	_, err := p.Predict(ctx, "src/auth.py", overlappingPair(time.Now()), models.RepoContext{
		RepoPath: "/repo", TargetBranch: "main", SourceBranch: "feature",
	})
	require.NoError(t, err)

	rec, err := st.LatestUnvalidatedPrediction(ctx, "/repo", "src/auth.py")
	require.NoError(t, err)
	assert.Equal(t, "main", rec.TargetBranch)
	assert.NotEmpty(t, rec.FeaturesJSON)
}

func TestAffectedRanges(t *testing.T) {
	tests := []struct {
		name   string
		target []models.LineRange
		source []models.LineRange
		want   []models.LineRange
	}{
		{
			name:   "overlapping merge",
			target: []models.LineRange{{Start: 10, End: 20}},
			source: []models.LineRange{{Start: 15, End: 25}},
			want:   []models.LineRange{{Start: 10, End: 25}},
		},
		{
			name:   "adjacent merge",
			target: []models.LineRange{{Start: 1, End: 5}},
			source: []models.LineRange{{Start: 6, End: 9}},
			want:   []models.LineRange{{Start: 1, End: 9}},
		},
		{
			name:   "disjoint stay separate",
			target: []models.LineRange{{Start: 1, End: 5}},
			source: []models.LineRange{{Start: 50, End: 60}},
			want:   []models.LineRange{{Start: 1, End: 5}, {Start: 50, End: 60}},
		},
		{
			name: "no ranges default",
			want: []models.LineRange{{Start: 1, End: 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AffectedRanges(tt.target, tt.source))
		})
	}
}

func TestAffectedRangesCappedAtFive(t *testing.T) {
	var target []models.LineRange
	for i := 0; i < 10; i++ {
		target = append(target, models.LineRange{Start: i * 100, End: i*100 + 5})
	}
	assert.Len(t, AffectedRanges(target, nil), 5)
}

func TestResolutionTimeScaling(t *testing.T) {
	low := ResolutionTime(models.ConflictFeatures{}, 0.2)
	high := ResolutionTime(models.ConflictFeatures{ChangeComplexity: 0.9, FileSize: 60000, FileExtension: ".cpp"}, 0.9)

	assert.GreaterOrEqual(t, low, 60)
	assert.Greater(t, high, low)
	assert.LessOrEqual(t, high, 3600)
}

func TestPredictBatchSortedAndResilient(t *testing.T) {
	p, _ := newTestPredictor(t)
	ctx := context.Background()
	ts := time.Now()

	inputs := []BatchInput{
		{FilePath: "README.md", Pair: disjointPair(ts), RepoCtx: models.RepoContext{RepoPath: "/repo"}},
		{FilePath: "src/auth.py", Pair: overlappingPair(ts), RepoCtx: models.RepoContext{RepoPath: "/repo"}},
		{FilePath: "src/api.py", Pair: overlappingPair(ts), RepoCtx: models.RepoContext{RepoPath: "/repo"}},
	}

	results := p.PredictBatch(ctx, inputs)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].ConflictProbability, results[i].ConflictProbability)
	}
	// Equal probabilities tie-break on path for determinism.
	assert.Equal(t, "src/api.py", results[0].FilePath)
	assert.Equal(t, "src/auth.py", results[1].FilePath)
}

func TestPredictBatchRecoversPanics(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	// A predictor with no extractor panics inside the worker; the batch
	// must drop the file and return, not crash.
	p := &Predictor{logger: logger}
	results := p.PredictBatch(context.Background(), []BatchInput{{FilePath: "src/a.py"}})
	assert.Empty(t, results)
}
