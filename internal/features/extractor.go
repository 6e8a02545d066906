package features

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gitintel/gitintel-go/internal/models"
	"github.com/gitintel/gitintel-go/internal/store"
)

// Similarity scores how semantically close the two sides of a change are,
// in [0,1]. Implementations live in internal/semantic.
type Similarity interface {
	Similarity(ctx context.Context, filePath string, target, source models.FileChangeSummary) (float64, error)
}

// Neutral defaults used when a sub-signal cannot be computed. Missing data
// is "no signal", never a failure.
const (
	neutralTemporal = 0.5
	neutralSemantic = 0.5
)

// Extractor turns a pair of change summaries into the fixed-shape feature
// record the predictor consumes.
type Extractor struct {
	store    store.Store
	semantic Similarity
	logger   *logrus.Logger
}

// NewExtractor builds an extractor. semantic may be nil, in which case the
// semantic signal stays at its neutral default.
func NewExtractor(st store.Store, semantic Similarity, logger *logrus.Logger) *Extractor {
	return &Extractor{store: st, semantic: semantic, logger: logger}
}

// Extract never fails: each sub-signal degrades to its neutral default on
// error, so one broken collaborator cannot sink the whole prediction.
func (e *Extractor) Extract(ctx context.Context, filePath string, pair models.FileChangePair, repoCtx models.RepoContext) models.ConflictFeatures {
	f := models.ConflictFeatures{
		FilePath:           filePath,
		FileExtension:      strings.ToLower(filepath.Ext(filePath)),
		FileSize:           repoCtx.FileSize,
		LinesChangedTarget: pair.Target.LinesChanged,
		LinesChangedSource: pair.Source.LinesChanged,
		SemanticSimilarity: neutralSemantic,
	}

	f.OverlapRatio = LineOverlap(pair.Target.LineRanges, pair.Source.LineRanges)
	f.AuthorConflictHistory = e.authorHistory(ctx, pair.Authors)
	f.FileConflictHistory = e.fileHistory(ctx, filePath, repoCtx.RecentChanges)
	f.ChangeComplexity = ChangeComplexity(pair.Target, pair.Source)
	f.TemporalDistance = TemporalDistance(pair.Target.Timestamp, pair.Source.Timestamp)

	if e.semantic != nil {
		sim, err := e.semantic.Similarity(ctx, filePath, pair.Target, pair.Source)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"file":  filePath,
				"error": err,
			}).Debug("semantic similarity unavailable, using neutral default")
		} else {
			f.SemanticSimilarity = clamp01(sim)
		}
	}
	return f
}

// authorHistory averages the learned conflict rate of every author who
// touched the file on the source branch. Unknown authors count as zero.
func (e *Extractor) authorHistory(ctx context.Context, authors []string) float64 {
	if len(authors) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, email := range authors {
		p, err := e.store.GetAuthorPattern(ctx, email)
		if err != nil {
			continue
		}
		sum += p.ConflictRate
	}
	return clamp01(sum / float64(len(authors)))
}

// fileHistory scales the file's learned conflict frequency so that ten or
// more past conflicts saturate the signal. Before any conflicts have been
// learned for the file, its recent change frequency stands in on the same
// scale: heavily churned files conflict more.
func (e *Extractor) fileHistory(ctx context.Context, filePath string, recentChanges int) float64 {
	p, err := e.store.GetFilePattern(ctx, store.PathHash(filePath))
	if err != nil {
		return math.Min(1.0, float64(recentChanges)/10.0)
	}
	return math.Min(1.0, float64(p.ConflictFrequency)/10.0)
}

// LineOverlap is the Jaccard index of the two sides' changed line sets.
func LineOverlap(target, source []models.LineRange) float64 {
	if len(target) == 0 || len(source) == 0 {
		return 0.0
	}

	targetLines := lineSet(target)
	sourceLines := lineSet(source)
	if len(targetLines) == 0 || len(sourceLines) == 0 {
		return 0.0
	}

	intersection := 0
	union := len(sourceLines)
	for line := range targetLines {
		if _, ok := sourceLines[line]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func lineSet(ranges []models.LineRange) map[int]struct{} {
	size := 0
	for _, r := range ranges {
		size += r.Lines()
	}
	lines := make(map[int]struct{}, size)
	for _, r := range ranges {
		for i := r.Start; i <= r.End; i++ {
			lines[i] = struct{}{}
		}
	}
	return lines
}

// ChangeComplexity blends churn volume, change type and affected function
// count into one [0,1] score. Additions and deletions weigh heavier than
// plain modifications.
func ChangeComplexity(target, source models.FileChangeSummary) float64 {
	volume := math.Min(1.0, float64(target.LinesChanged+source.LinesChanged)/100.0)

	typeScore := 0.0
	if isStructural(target.ChangeType) || isStructural(source.ChangeType) {
		typeScore = 0.3
	}

	functions := math.Min(0.4, float64(target.FunctionsAffected+source.FunctionsAffected)/10.0)

	return math.Min(1.0, (volume+typeScore+functions)/3.0)
}

func isStructural(t models.ChangeType) bool {
	return t == models.ChangeAdded || t == models.ChangeDeleted
}

// TemporalDistance maps how close in time the two sides were written to a
// conflict-likelihood factor. Nearly simultaneous edits conflict most.
func TemporalDistance(targetTime, sourceTime time.Time) float64 {
	if targetTime.IsZero() || sourceTime.IsZero() {
		return neutralTemporal
	}

	hours := math.Abs(targetTime.Sub(sourceTime).Hours())
	switch {
	case hours < 1:
		return 0.9
	case hours < 24:
		return 0.7
	case hours < 168:
		return 0.5
	default:
		return 0.2
	}
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
