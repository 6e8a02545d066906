package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gitintel/gitintel-go/internal/config"
	"github.com/gitintel/gitintel-go/internal/features"
	"github.com/gitintel/gitintel-go/internal/models"
	"github.com/gitintel/gitintel-go/internal/store"
)

// fileTypeMultipliers adjusts the raw probability by how conflict-prone a
// file format tends to be. Code conflicts more than prose; lockfile-ish
// formats less than code.
var fileTypeMultipliers = map[string]float64{
	".py":   1.1,
	".js":   1.1,
	".java": 1.0,
	".cpp":  1.2,
	".c":    1.2,
	".h":    1.2,
	".json": 0.8,
	".md":   0.6,
	".txt":  0.5,
	".yml":  0.7,
	".yaml": 0.7,
}

// compiledExtensions take longer to resolve: conflicts there tend to span
// declarations and headers.
var compiledExtensions = map[string]bool{
	".cpp": true, ".c": true, ".h": true, ".java": true,
}

const (
	baseResolutionSec = 180
	minResolutionSec  = 60
	maxResolutionSec  = 3600

	maxAffectedRanges = 5
)

// Predictor scores a single file's conflict likelihood from its extracted
// features and persists each prediction for later validation.
type Predictor struct {
	extractor *features.Extractor
	store     store.Store
	weights   config.WeightsConfig
	limits    config.ThresholdsConfig
	semantic  bool
	logger    *logrus.Logger
}

func NewPredictor(extractor *features.Extractor, st store.Store, cfg *config.Config, semanticEnabled bool, logger *logrus.Logger) *Predictor {
	return &Predictor{
		extractor: extractor,
		store:     st,
		weights:   cfg.Weights,
		limits:    cfg.Thresholds,
		semantic:  semanticEnabled,
		logger:    logger,
	}
}

// Predict scores one file. The returned prediction is always usable; the
// error reports a failed persistence write, which callers may log and
// ignore.
func (p *Predictor) Predict(ctx context.Context, filePath string, pair models.FileChangePair, repoCtx models.RepoContext) (*models.ConflictPrediction, error) {
	f := p.extractor.Extract(ctx, filePath, pair, repoCtx)

	probability := p.probability(f)
	confidence := p.confidence(ctx, f)

	pred := &models.ConflictPrediction{
		FilePath:               filePath,
		ConflictProbability:    probability,
		ConfidenceScore:        confidence,
		PredictionMethods:      p.methods(f),
		ResolutionSuggestion:   p.suggestion(ctx, f, probability),
		AffectedLineRanges:     AffectedRanges(pair.Target.LineRanges, pair.Source.LineRanges),
		EstimatedResolutionSec: ResolutionTime(f, probability),
	}

	if err := p.persist(ctx, pred, f, repoCtx); err != nil {
		return pred, err
	}
	return pred, nil
}

// probability is the weighted linear combination of feature scores, scaled
// by file type and capped below certainty.
func (p *Predictor) probability(f models.ConflictFeatures) float64 {
	base := f.OverlapRatio*p.weights.Overlap +
		f.AuthorConflictHistory*p.weights.AuthorHistory +
		f.FileConflictHistory*p.weights.FileHistory +
		f.ChangeComplexity*p.weights.Complexity +
		f.TemporalDistance*p.weights.Temporal +
		f.SemanticSimilarity*p.weights.Semantic

	multiplier, ok := fileTypeMultipliers[f.FileExtension]
	if !ok {
		multiplier = 1.0
	}
	return math.Min(p.limits.MaxProbability, base*multiplier)
}

// confidence averages whatever reliability signals are available: learned
// strategy success for the file, how decisive the overlap signal is, and a
// fixed boost when the semantic provider is active.
func (p *Predictor) confidence(ctx context.Context, f models.ConflictFeatures) float64 {
	var factors []float64

	if pattern, err := p.store.GetFilePattern(ctx, store.PathHash(f.FilePath)); err == nil {
		factors = append(factors, pattern.StrategySuccessRate)
	}

	// Extreme overlap values (clearly overlapping or clearly disjoint) are
	// more trustworthy than mid-range ones.
	factors = append(factors, 1.0-math.Abs(0.5-f.OverlapRatio))

	if p.semantic {
		factors = append(factors, 0.9)
	}

	sum := 0.0
	for _, v := range factors {
		sum += v
	}
	confidence := sum / float64(len(factors))
	return math.Max(p.limits.MinConfidence, math.Min(p.limits.MaxConfidence, confidence))
}

func (p *Predictor) methods(f models.ConflictFeatures) []string {
	methods := []string{"statistical_features"}
	if f.OverlapRatio > 0 {
		methods = append(methods, "line_overlap_analysis")
	}
	if f.AuthorConflictHistory > 0 {
		methods = append(methods, "author_pattern_matching")
	}
	if p.semantic {
		methods = append(methods, "semantic_embedding")
	}
	return methods
}

// suggestion assembles human-readable resolution advice from the feature
// signals and any previously successful strategy for the file.
func (p *Predictor) suggestion(ctx context.Context, f models.ConflictFeatures, probability float64) string {
	var parts []string

	if probability > 0.8 {
		parts = append(parts, "High conflict probability detected.")
		if f.OverlapRatio > 0.6 {
			parts = append(parts, "Significant line overlap - consider manual merge with careful review.")
		}
		if f.AuthorConflictHistory > 0.5 {
			parts = append(parts, "Author has history of conflicts - coordinate directly.")
		}
	}

	switch f.FileExtension {
	case ".py", ".js", ".java", ".go", ".c", ".cpp", ".h":
		parts = append(parts, "Code file - run tests after resolution.")
	case ".json", ".yml", ".yaml":
		parts = append(parts, "Configuration file - validate syntax after merge.")
	}

	if f.ChangeComplexity > 0.7 {
		parts = append(parts, "Complex changes detected - consider splitting into smaller commits.")
	}

	if pattern, err := p.store.GetFilePattern(ctx, store.PathHash(f.FilePath)); err == nil {
		if pattern.ResolutionStrategy != "" && pattern.StrategySuccessRate > 0.8 {
			parts = append(parts, fmt.Sprintf("Previously successful strategy: %s", pattern.ResolutionStrategy))
		}
	}

	if len(parts) == 0 {
		if probability > 0.5 {
			return "Review changes carefully and test thoroughly after merge."
		}
		return "Low conflict probability - standard merge process recommended."
	}
	return strings.Join(parts, " ")
}

func (p *Predictor) persist(ctx context.Context, pred *models.ConflictPrediction, f models.ConflictFeatures, repoCtx models.RepoContext) error {
	featuresJSON, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return p.store.SavePrediction(ctx, &models.PredictionRecord{
		ID:           uuid.New().String(),
		RepoPath:     repoCtx.RepoPath,
		TargetBranch: repoCtx.TargetBranch,
		SourceBranch: repoCtx.SourceBranch,
		FilePath:     pred.FilePath,
		Probability:  pred.ConflictProbability,
		Confidence:   pred.ConfidenceScore,
		Method:       pred.Method(),
		FeaturesJSON: string(featuresJSON),
		CreatedAt:    time.Now().UTC(),
	})
}

// AffectedRanges unions both sides' changed ranges, merging overlapping or
// adjacent ones, and returns at most five. Callers with no range data get a
// head-of-file default so downstream display always has something to show.
func AffectedRanges(target, source []models.LineRange) []models.LineRange {
	all := make([]models.LineRange, 0, len(target)+len(source))
	all = append(all, target...)
	all = append(all, source...)
	if len(all) == 0 {
		return []models.LineRange{{Start: 1, End: 10}}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End < all[j].End
	})

	merged := []models.LineRange{all[0]}
	for _, r := range all[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
		} else {
			merged = append(merged, r)
		}
	}

	if len(merged) > maxAffectedRanges {
		merged = merged[:maxAffectedRanges]
	}
	return merged
}

// ResolutionTime estimates conflict resolution effort in seconds, bounded
// to [1 minute, 1 hour].
func ResolutionTime(f models.ConflictFeatures, probability float64) int {
	t := float64(baseResolutionSec)

	switch {
	case probability > 0.8:
		t *= 2.5
	case probability > 0.6:
		t *= 2.0
	case probability > 0.4:
		t *= 1.5
	}

	switch {
	case f.ChangeComplexity > 0.7:
		t *= 1.8
	case f.ChangeComplexity > 0.4:
		t *= 1.3
	}

	switch {
	case f.FileSize > 50000:
		t *= 2.0
	case f.FileSize > 10000:
		t *= 1.5
	}

	if compiledExtensions[f.FileExtension] {
		t *= 1.4
	}

	return int(math.Min(maxResolutionSec, math.Max(minResolutionSec, t)))
}
