package engine

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gitintel/gitintel-go/internal/advisor"
	"github.com/gitintel/gitintel-go/internal/config"
	enginerr "github.com/gitintel/gitintel-go/internal/errors"
	"github.com/gitintel/gitintel-go/internal/features"
	"github.com/gitintel/gitintel-go/internal/git"
	"github.com/gitintel/gitintel-go/internal/learner"
	"github.com/gitintel/gitintel-go/internal/models"
	"github.com/gitintel/gitintel-go/internal/predict"
	"github.com/gitintel/gitintel-go/internal/review"
	"github.com/gitintel/gitintel-go/internal/semantic"
	"github.com/gitintel/gitintel-go/internal/store"
)

// recentChangeWindowDays is the churn window feeding the file-history
// signal before any conflicts have been learned for a file.
const recentChangeWindowDays = 30

// PredictionReport is the aggregate output of a conflict prediction run.
type PredictionReport struct {
	TargetBranch  string                       `json:"target_branch"`
	SourceBranch  string                       `json:"source_branch"`
	FilesAnalyzed int                          `json:"files_analyzed"`
	HighRiskFiles int                          `json:"high_risk_files"`
	Predictions   []*models.ConflictPrediction `json:"predictions"`
}

// Engine is the façade over prediction, strategy advice, review and
// learning. All state lives behind it: the pattern store, the embedding
// cache and the repository handle are opened in New and released in Close.
type Engine struct {
	cfg      *config.Config
	repo     *git.Repository
	store    store.Store
	advisor  *advisor.Advisor
	learner  *learner.Learner
	reviewer *review.Reviewer
	embedder semantic.Embedder
	semCache *semantic.Cache
	logger   *logrus.Logger

	bootstrapOnce sync.Once
}

// New opens the repository and the pattern store and wires the components.
func New(cfg *config.Config, logger *logrus.Logger) (*Engine, error) {
	repo, err := git.Open(cfg.RepoPath, cfg.History.GitRateLimit, logger)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg, logger)
	if err != nil {
		return nil, enginerr.CollaboratorError(err, "open pattern store")
	}

	e := &Engine{
		cfg:      cfg,
		repo:     repo,
		store:    st,
		advisor:  advisor.New(repo, st, logger),
		learner:  learner.New(repo, st, logger),
		reviewer: review.New(repo, logger),
		logger:   logger,
	}

	if err := e.initEmbedder(); err != nil {
		st.Close()
		return nil, err
	}
	return e, nil
}

// initEmbedder wires the optional semantic provider. No provider means the
// semantic feature stays at its neutral default.
func (e *Engine) initEmbedder() error {
	var base semantic.Embedder
	switch e.cfg.Embedding.Provider {
	case "":
		return nil
	case "token":
		base = semantic.NewTokenEmbedder()
	case "openai":
		emb, err := semantic.NewOpenAIEmbedder(e.cfg.Embedding.OpenAIKey, e.cfg.Embedding.Model)
		if err != nil {
			return err
		}
		base = emb
	default:
		return enginerr.InputError("unknown embedding provider %q", e.cfg.Embedding.Provider)
	}

	// Shared databases share the embedding cache too; local setups keep a
	// separate bbolt file so the sqlite store stays small.
	if e.cfg.Storage.Type == "postgres" {
		e.embedder = semantic.NewStoreCache(e.store, base, e.logger)
		return nil
	}

	cache, err := semantic.NewCache(e.cfg.Embedding.CachePath, base, e.logger)
	if err != nil {
		e.logger.WithField("error", err).Warn("embedding cache unavailable, embedding uncached")
		e.embedder = base
		return nil
	}
	e.semCache = cache
	e.embedder = cache
	return nil
}

// ensurePatterns bootstraps the pattern store from repository history the
// first time the engine needs learned signals.
func (e *Engine) ensurePatterns(ctx context.Context) {
	e.bootstrapOnce.Do(func() {
		n, err := e.store.CountAuthorPatterns(ctx)
		if err != nil || n > 0 {
			return
		}
		branch, err := e.repo.ActiveBranch(ctx)
		if err != nil {
			return
		}
		if err := e.learner.LearnFromHistory(ctx, branch, e.cfg.History.MaxCommits); err != nil {
			e.logger.WithField("error", err).Warn("history bootstrap failed, starting with empty patterns")
		}
	})
}

// resolveBranches fills in defaults: the active branch as target, the most
// recently committed other branch as source.
func (e *Engine) resolveBranches(ctx context.Context, targetBranch, sourceBranch string) (string, string, error) {
	if targetBranch == "" {
		active, err := e.repo.ActiveBranch(ctx)
		if err != nil {
			return "", "", err
		}
		targetBranch = active
	}
	if sourceBranch == "" {
		candidate, err := e.advisor.MergeCandidate(ctx, targetBranch)
		if err != nil {
			return "", "", err
		}
		sourceBranch = candidate
	}
	if sourceBranch == targetBranch {
		return "", "", enginerr.InputError(
			"source and target are the same branch (%s)", targetBranch)
	}
	return targetBranch, sourceBranch, nil
}

// PredictConflicts predicts per-file merge conflicts between two branches.
// Files at or below the configured probability cutoff are dropped; output
// is sorted by descending probability.
func (e *Engine) PredictConflicts(ctx context.Context, targetBranch, sourceBranch string) (*PredictionReport, error) {
	e.ensurePatterns(ctx)

	targetBranch, sourceBranch, err := e.resolveBranches(ctx, targetBranch, sourceBranch)
	if err != nil {
		return nil, err
	}

	base, err := e.repo.MergeBase(ctx, targetBranch, sourceBranch)
	if err != nil {
		return nil, err
	}

	targetChanges, err := e.repo.ChangedFiles(ctx, base, targetBranch)
	if err != nil {
		return nil, err
	}
	sourceChanges, err := e.repo.ChangedFiles(ctx, base, sourceBranch)
	if err != nil {
		return nil, err
	}

	totalCommits, _ := e.repo.RevListCount(ctx, targetBranch)

	similarity := e.similarityFor(targetBranch, sourceBranch)
	extractor := features.NewExtractor(e.store, similarity, e.logger)
	predictor := predict.NewPredictor(extractor, e.store, e.cfg, similarity != nil, e.logger)

	var inputs []predict.BatchInput
	for path, targetSummary := range targetChanges {
		sourceSummary, ok := sourceChanges[path]
		if !ok {
			continue
		}
		authors, err := e.repo.FileAuthors(ctx, targetBranch+".."+sourceBranch, path)
		if err != nil {
			authors = nil
		}
		recent, err := e.repo.ChangeFrequency(ctx, sourceBranch, path, recentChangeWindowDays)
		if err != nil {
			recent = 0
		}
		inputs = append(inputs, predict.BatchInput{
			FilePath: path,
			Pair: models.FileChangePair{
				Target:  targetSummary,
				Source:  sourceSummary,
				Authors: authors,
			},
			RepoCtx: models.RepoContext{
				RepoPath:      e.repo.Path(),
				TargetBranch:  targetBranch,
				SourceBranch:  sourceBranch,
				FileSize:      e.repo.FileSize(ctx, sourceBranch, path),
				TotalCommits:  totalCommits,
				RecentChanges: recent,
			},
		})
	}

	all := predictor.PredictBatch(ctx, inputs)

	report := &PredictionReport{
		TargetBranch:  targetBranch,
		SourceBranch:  sourceBranch,
		FilesAnalyzed: len(inputs),
	}
	for _, p := range all {
		if p.ConflictProbability <= e.cfg.Thresholds.FilterCutoff {
			continue
		}
		if p.ConflictProbability > e.cfg.Thresholds.HighRisk {
			report.HighRiskFiles++
		}
		report.Predictions = append(report.Predictions, p)
	}

	e.logger.WithFields(logrus.Fields{
		"target":    targetBranch,
		"source":    sourceBranch,
		"analyzed":  report.FilesAnalyzed,
		"predicted": len(report.Predictions),
		"high_risk": report.HighRiskFiles,
	}).Info("conflict prediction complete")

	return report, nil
}

// similarityFor builds the per-request semantic provider, reading both
// sides' content from the two branch heads.
func (e *Engine) similarityFor(targetBranch, sourceBranch string) features.Similarity {
	if e.embedder == nil {
		return nil
	}
	fetch := func(ctx context.Context, filePath string) (string, string, error) {
		targetContent, err := e.repo.ShowFile(ctx, targetBranch, filePath)
		if err != nil {
			return "", "", err
		}
		sourceContent, err := e.repo.ShowFile(ctx, sourceBranch, filePath)
		if err != nil {
			return "", "", err
		}
		return targetContent, sourceContent, nil
	}
	return semantic.NewChangeSimilarity(e.embedder, fetch, e.logger)
}

// SuggestMergeStrategy analyzes divergence, folds predicted conflicts into
// the analysis, and recommends how to merge.
func (e *Engine) SuggestMergeStrategy(ctx context.Context, sourceBranch, targetBranch string) (*models.MergeRecommendation, error) {
	e.ensurePatterns(ctx)

	targetBranch, sourceBranch, err := e.resolveBranches(ctx, targetBranch, sourceBranch)
	if err != nil {
		return nil, err
	}

	analysis, err := e.advisor.Analyze(ctx, sourceBranch, targetBranch)
	if err != nil {
		return nil, err
	}

	if analysis.CommitsAhead > 0 {
		report, err := e.PredictConflicts(ctx, targetBranch, sourceBranch)
		if err != nil {
			// Prediction is an enhancement here; advice still works without it.
			e.logger.WithField("error", err).Warn("conflict prediction unavailable for strategy analysis")
		} else {
			analysis.ConflictCount = len(report.Predictions)
		}
	}

	return e.advisor.Suggest(ctx, sourceBranch, targetBranch, analysis)
}

// ReviewCodeQuality reviews the files changed by a commit (HEAD when ref
// is empty). It degrades internally and never fails.
func (e *Engine) ReviewCodeQuality(ctx context.Context, ref string) *models.CodeReviewScore {
	return e.reviewer.ReviewCommit(ctx, ref)
}

// RecordOutcome feeds an actual merge result back into the learner.
func (e *Engine) RecordOutcome(ctx context.Context, sourceBranch, targetBranch, strategyUsed string, success bool, actualConflicts, mergeTimeMinutes int, conflictedFiles []string) error {
	return e.learner.RecordOutcome(ctx, sourceBranch, targetBranch, strategyUsed, success, actualConflicts, mergeTimeMinutes, conflictedFiles)
}

// ValidatePrediction grades the most recent prediction for a file against
// what actually happened.
func (e *Engine) ValidatePrediction(ctx context.Context, filePath string, actualConflict bool, resolutionSec int) error {
	return e.learner.ValidatePrediction(ctx, filePath, actualConflict, resolutionSec)
}

// LearnFromHistory explicitly (re)builds patterns from merge history. ref
// defaults to the active branch, maxCommits to the configured scan limit.
func (e *Engine) LearnFromHistory(ctx context.Context, ref string, maxCommits int) error {
	if ref == "" {
		active, err := e.repo.ActiveBranch(ctx)
		if err != nil {
			return err
		}
		ref = active
	}
	if maxCommits <= 0 {
		maxCommits = e.cfg.History.MaxCommits
	}
	return e.learner.LearnFromHistory(ctx, ref, maxCommits)
}

// Metrics aggregates the store's learning statistics.
func (e *Engine) Metrics(ctx context.Context) (*models.EngineMetrics, error) {
	repoPath := e.repo.Path()

	totalPredictions, predictionAccuracy, err := e.store.PredictionStats(ctx, repoPath)
	if err != nil {
		return nil, enginerr.CollaboratorError(err, "prediction stats")
	}
	totalOps, conflictRate, avgResolution, err := e.store.OperationStats(ctx, repoPath)
	if err != nil {
		return nil, enginerr.CollaboratorError(err, "operation stats")
	}
	totalRecs, successful, recAccuracy, err := e.store.RecommendationStats(ctx, repoPath)
	if err != nil {
		return nil, enginerr.CollaboratorError(err, "recommendation stats")
	}
	filePatterns, err := e.store.CountFilePatterns(ctx)
	if err != nil {
		return nil, enginerr.CollaboratorError(err, "count file patterns")
	}
	authorPatterns, err := e.store.CountAuthorPatterns(ctx)
	if err != nil {
		return nil, enginerr.CollaboratorError(err, "count author patterns")
	}
	strategyPerf, err := e.store.StrategyPerformance(ctx, repoPath)
	if err != nil {
		return nil, enginerr.CollaboratorError(err, "strategy performance")
	}

	return &models.EngineMetrics{
		PredictionAccuracy:     predictionAccuracy,
		TotalPredictions:       totalPredictions,
		TotalOperations:        totalOps,
		ConflictRate:           conflictRate,
		AvgResolutionSec:       avgResolution,
		LearnedFilePatterns:    filePatterns,
		LearnedAuthorPatterns:  authorPatterns,
		TotalRecommendations:   totalRecs,
		SuccessfulMerges:       successful,
		RecommendationAccuracy: recAccuracy,
		StrategyPerformance:    strategyPerf,
	}, nil
}

// Close releases the store and the embedding cache.
func (e *Engine) Close() error {
	var firstErr error
	if e.semCache != nil {
		if err := e.semCache.Close(); err != nil {
			firstErr = err
		}
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
