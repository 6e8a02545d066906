package store

import (
	"context"
	"errors"

	"github.com/gitintel/gitintel-go/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store persists learned patterns, predictions, recommendations and the
// operations log. Implementations: SQLite (local default) and Postgres
// (team-shared).
type Store interface {
	// File pattern aggregates, keyed by path hash.
	UpsertFilePattern(ctx context.Context, p *models.FilePattern) error
	GetFilePattern(ctx context.Context, pathHash string) (*models.FilePattern, error)
	CountFilePatterns(ctx context.Context) (int, error)

	// Author pattern aggregates, keyed by email.
	UpsertAuthorPattern(ctx context.Context, p *models.AuthorPattern) error
	GetAuthorPattern(ctx context.Context, email string) (*models.AuthorPattern, error)
	CountAuthorPatterns(ctx context.Context) (int, error)

	// Prediction records. Validation resolves the most recent row for the
	// file that has not been validated yet.
	SavePrediction(ctx context.Context, rec *models.PredictionRecord) error
	LatestUnvalidatedPrediction(ctx context.Context, repoPath, filePath string) (*models.PredictionRecord, error)
	ResolvePrediction(ctx context.Context, id string, actualConflict bool, accuracy float64, resolutionSec int) error
	PredictionStats(ctx context.Context, repoPath string) (total int, avgAccuracy float64, err error)

	// Recommendation records. Outcomes resolve the most recent open row for
	// the branch pair; two rapid outcomes resolve two distinct rows.
	SaveRecommendation(ctx context.Context, rec *models.RecommendationRecord) error
	LatestOpenRecommendation(ctx context.Context, repoPath, sourceBranch, targetBranch string) (*models.RecommendationRecord, error)
	CompleteRecommendation(ctx context.Context, id, strategyUsed string, success bool, conflicts, minutes int, accuracy float64) error
	RecommendationStats(ctx context.Context, repoPath string) (total, successful int, avgAccuracy float64, err error)
	StrategyPerformance(ctx context.Context, repoPath string) (map[string]float64, error)

	// Append-only operations log.
	AppendOperation(ctx context.Context, op *models.Operation) error
	OperationStats(ctx context.Context, repoPath string) (total int, conflictRate, avgResolutionSec float64, err error)

	// Embedding vectors for the semantic similarity feature.
	SaveEmbedding(ctx context.Context, key string, vector []float32) error
	GetEmbedding(ctx context.Context, key string) ([]float32, error)

	Close() error
}
