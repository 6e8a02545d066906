package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitintel/gitintel-go/internal/config"
	enginerr "github.com/gitintel/gitintel-go/internal/errors"
	"github.com/gitintel/gitintel-go/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// initTestRepo builds a repository where main and feature both edit app.py
// from a common base, plus an "old" branch frozen at the base commit.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	write := func(name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	if err := exec.Command("git", "version").Run(); err != nil {
		t.Skip("git not available")
	}

	run("init")
	run("config", "user.email", "alice@example.com")
	run("config", "user.name", "Alice")
	run("checkout", "-b", "main")

	write("app.py", "def main():\n    a = 1\n    b = 2\n    c = 3\n    return a + b + c\n")
	run("add", ".")
	run("commit", "-m", "feat: initial app")
	run("branch", "old")

	run("checkout", "-b", "feature")
	write("app.py", "def main():\n    a = 10\n    b = 2\n    c = 3\n    return a + b + c\n")
	write("feature.py", "def feature():\n    pass\n")
	run("add", ".")
	run("commit", "-m", "feat: bump a")

	run("checkout", "main")
	write("app.py", "def main():\n    a = 1\n    b = 20\n    c = 3\n    return a + b + c\n")
	run("add", ".")
	run("commit", "-m", "fix: bump b")

	return dir
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := initTestRepo(t)
	state := t.TempDir()

	cfg := config.Default()
	cfg.RepoPath = dir
	cfg.Storage.LocalPath = filepath.Join(state, "patterns.db")
	cfg.Embedding.Provider = "token"
	cfg.Embedding.CachePath = filepath.Join(state, "semantic.db")
	// Keep every scored file in the output so assertions are deterministic.
	cfg.Thresholds.FilterCutoff = 0.0

	e, err := New(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestPredictConflicts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	report, err := e.PredictConflicts(ctx, "main", "feature")
	require.NoError(t, err)

	assert.Equal(t, "main", report.TargetBranch)
	assert.Equal(t, "feature", report.SourceBranch)
	// Only app.py changed on both sides of the merge base.
	assert.Equal(t, 1, report.FilesAnalyzed)
	require.Len(t, report.Predictions, 1)

	p := report.Predictions[0]
	assert.Equal(t, "app.py", p.FilePath)
	assert.Greater(t, p.ConflictProbability, 0.0)
	assert.LessOrEqual(t, p.ConflictProbability, 0.98)
	assert.GreaterOrEqual(t, p.ConfidenceScore, 0.5)
	assert.NotEmpty(t, p.PredictionMethods)
	assert.NotEmpty(t, p.AffectedLineRanges)
}

func TestPredictConflictsDefaultBranches(t *testing.T) {
	e := newTestEngine(t)

	report, err := e.PredictConflicts(context.Background(), "", "")
	require.NoError(t, err)

	assert.Equal(t, "main", report.TargetBranch)
	assert.Equal(t, "feature", report.SourceBranch)
}

func TestPredictConflictsSameBranch(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.PredictConflicts(context.Background(), "main", "main")
	require.Error(t, err)
	assert.True(t, enginerr.IsInput(err))
}

func TestSuggestMergeStrategyAndOutcome(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.SuggestMergeStrategy(ctx, "feature", "main")
	require.NoError(t, err)

	assert.NotEqual(t, models.StrategyUpToDate, rec.Primary.Strategy)
	assert.Greater(t, rec.Primary.ConfidenceScore, 0.0)
	assert.Len(t, rec.Alternatives, 2)
	assert.NotEmpty(t, rec.MergeMessage)
	assert.NotEmpty(t, rec.PreMergeChecklist)
	assert.NotEmpty(t, rec.RollbackPlan)

	// The recommendation was persisted; an outcome closes the loop.
	require.NoError(t, e.RecordOutcome(ctx, "feature", "main",
		string(rec.Primary.Strategy), true, 0, 5, nil))

	m, err := e.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalRecommendations)
	assert.Equal(t, 1, m.SuccessfulMerges)
	assert.InDelta(t, 1.0, m.RecommendationAccuracy, 1e-9)
	assert.Equal(t, 1, m.TotalOperations)
}

func TestSuggestMergeStrategyUpToDate(t *testing.T) {
	e := newTestEngine(t)

	rec, err := e.SuggestMergeStrategy(context.Background(), "old", "main")
	require.NoError(t, err)

	assert.Equal(t, models.StrategyUpToDate, rec.Primary.Strategy)
	assert.InDelta(t, 1.0, rec.Primary.ConfidenceScore, 1e-9)
	assert.InDelta(t, 1.0, rec.Primary.SuccessProbability, 1e-9)
	assert.Equal(t, models.RiskLow, rec.RiskLevel)
	assert.Zero(t, rec.EstimatedConflicts)

	// Up-to-date results are not persisted, so there is nothing to record.
	m, err := e.Metrics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, m.TotalRecommendations)
}

func TestReviewCodeQuality(t *testing.T) {
	e := newTestEngine(t)

	score := e.ReviewCodeQuality(context.Background(), "HEAD")
	require.NotNil(t, score)
	assert.Greater(t, score.OverallScore, 0.0)
	assert.LessOrEqual(t, score.OverallScore, 1.0)
}

func TestValidatePredictionRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	report, err := e.PredictConflicts(ctx, "main", "feature")
	require.NoError(t, err)
	require.Len(t, report.Predictions, 1)

	require.NoError(t, e.ValidatePrediction(ctx, "app.py", true, 300))

	m, err := e.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalPredictions)
	assert.InDelta(t, report.Predictions[0].ConflictProbability, m.PredictionAccuracy, 1e-9)
}
