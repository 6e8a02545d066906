package learner

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	enginerr "github.com/gitintel/gitintel-go/internal/errors"
	"github.com/gitintel/gitintel-go/internal/git"
	"github.com/gitintel/gitintel-go/internal/models"
	"github.com/gitintel/gitintel-go/internal/store"
)

// conflictIndicators flag merge commits whose messages suggest a resolved
// conflict when learning from raw history.
var conflictIndicators = []string{"conflict", "resolve", "fix merge", "merge fix"}

// maxFrequentFiles bounds the per-author frequent-file list.
const maxFrequentFiles = 10

// Learner closes the loop: it grades past recommendations and predictions
// against what actually happened and folds the results back into the
// pattern store.
type Learner struct {
	repo   *git.Repository
	store  store.Store
	logger *logrus.Logger
}

func New(repo *git.Repository, st store.Store, logger *logrus.Logger) *Learner {
	return &Learner{repo: repo, store: st, logger: logger}
}

// RecordOutcome resolves the most recent open recommendation for the
// branch pair. Accuracy is 1.0 when the merge succeeded with the
// recommended strategy, 0.5 when it succeeded with a different one, and
// 0.0 on failure. Files that actually conflicted feed the per-file
// patterns.
func (l *Learner) RecordOutcome(ctx context.Context, sourceBranch, targetBranch, strategyUsed string, success bool, actualConflicts, mergeTimeMinutes int, conflictedFiles []string) error {
	rec, err := l.store.LatestOpenRecommendation(ctx, l.repo.Path(), sourceBranch, targetBranch)
	if err != nil {
		return enginerr.Wrapf(err, enginerr.KindData,
			"no open recommendation for %s -> %s", sourceBranch, targetBranch)
	}

	accuracy := 0.0
	if success {
		if rec.RecommendedStrategy == strategyUsed {
			accuracy = 1.0
		} else {
			accuracy = 0.5
		}
	}

	if err := l.store.CompleteRecommendation(ctx, rec.ID, strategyUsed, success, actualConflicts, mergeTimeMinutes, accuracy); err != nil {
		return enginerr.Wrap(err, enginerr.KindCollaborator, "complete recommendation")
	}

	for _, file := range conflictedFiles {
		l.bumpFilePattern(ctx, file, strategyUsed, success)
	}

	op := &models.Operation{
		ID:               uuid.New().String(),
		RepoPath:         l.repo.Path(),
		OperationType:    "merge",
		BranchName:       sourceBranch,
		ConflictOccurred: actualConflicts > 0,
		ResolutionSec:    mergeTimeMinutes * 60,
		Timestamp:        time.Now().UTC(),
	}
	if err := l.store.AppendOperation(ctx, op); err != nil {
		l.logger.WithField("error", err).Debug("could not append operation row")
	}

	l.logger.WithFields(logrus.Fields{
		"source":   sourceBranch,
		"target":   targetBranch,
		"strategy": strategyUsed,
		"success":  success,
		"accuracy": accuracy,
	}).Info("merge outcome recorded")
	return nil
}

// ValidatePrediction grades the most recent unvalidated prediction for the
// file. Probabilistic accuracy: the predicted probability itself when a
// conflict happened, its complement when it did not.
func (l *Learner) ValidatePrediction(ctx context.Context, filePath string, actualConflict bool, resolutionSec int) error {
	rec, err := l.store.LatestUnvalidatedPrediction(ctx, l.repo.Path(), filePath)
	if err != nil {
		return enginerr.Wrapf(err, enginerr.KindData,
			"no unvalidated prediction for %s", filePath)
	}

	accuracy := rec.Probability
	if !actualConflict {
		accuracy = 1.0 - rec.Probability
	}

	if err := l.store.ResolvePrediction(ctx, rec.ID, actualConflict, accuracy, resolutionSec); err != nil {
		return enginerr.Wrap(err, enginerr.KindCollaborator, "resolve prediction")
	}

	if actualConflict {
		l.bumpFilePattern(ctx, filePath, "", false)
	}

	l.logger.WithFields(logrus.Fields{
		"file":     filePath,
		"conflict": actualConflict,
		"accuracy": accuracy,
	}).Debug("prediction validated")
	return nil
}

// bumpFilePattern increments a file's learned conflict frequency and, when
// a strategy was used, refreshes the per-file strategy success rate with an
// incremental average.
func (l *Learner) bumpFilePattern(ctx context.Context, filePath, strategy string, success bool) {
	hash := store.PathHash(filePath)

	p, err := l.store.GetFilePattern(ctx, hash)
	if err != nil {
		p = &models.FilePattern{FilePath: filePath, PathHash: hash}
	}

	p.ConflictFrequency++
	if strategy != "" {
		outcome := 0.0
		if success {
			outcome = 1.0
		}
		if p.ResolutionStrategy == strategy {
			n := float64(p.ConflictFrequency)
			p.StrategySuccessRate = (p.StrategySuccessRate*(n-1) + outcome) / n
		} else {
			p.ResolutionStrategy = strategy
			p.StrategySuccessRate = outcome
		}
	}
	p.LastSeen = time.Now().UTC()

	if err := l.store.UpsertFilePattern(ctx, p); err != nil {
		l.logger.WithFields(logrus.Fields{
			"file":  filePath,
			"error": err,
		}).Debug("could not update file pattern")
	}
}

// LearnFromHistory bootstraps patterns from the repository's merge history:
// per-author merge counts and conflict rates, plus conflict frequency for
// files touched by conflicted merges.
func (l *Learner) LearnFromHistory(ctx context.Context, ref string, maxCommits int) error {
	merges, err := l.repo.MergeCommits(ctx, ref, maxCommits)
	if err != nil {
		return enginerr.Wrap(err, enginerr.KindCollaborator, "walk merge history")
	}

	type authorStats struct {
		merges    int
		conflicts int
		files     map[string]int
	}
	authors := make(map[string]*authorStats)
	fileConflicts := make(map[string]int)

	for _, m := range merges {
		st, ok := authors[m.AuthorEmail]
		if !ok {
			st = &authorStats{files: make(map[string]int)}
			authors[m.AuthorEmail] = st
		}
		st.merges++

		conflicted := hasConflictIndicator(m.Message)
		if conflicted {
			st.conflicts++
		}
		for _, f := range m.Files {
			st.files[f.Path]++
			if conflicted {
				fileConflicts[f.Path]++
			}
		}
	}

	now := time.Now().UTC()
	for email, st := range authors {
		pattern := &models.AuthorPattern{
			AuthorEmail:     email,
			TotalMerges:     st.merges,
			ConflictsCaused: st.conflicts,
			FrequentFiles:   topFiles(st.files, maxFrequentFiles),
			LastUpdated:     now,
		}
		if st.merges > 0 {
			pattern.ConflictRate = float64(st.conflicts) / float64(st.merges)
		}
		if err := l.store.UpsertAuthorPattern(ctx, pattern); err != nil {
			l.logger.WithFields(logrus.Fields{
				"author": email,
				"error":  err,
			}).Debug("could not store author pattern")
		}
	}

	for path, count := range fileConflicts {
		hash := store.PathHash(path)
		p, err := l.store.GetFilePattern(ctx, hash)
		if err != nil {
			p = &models.FilePattern{FilePath: path, PathHash: hash}
		}
		if count > p.ConflictFrequency {
			p.ConflictFrequency = count
		}
		p.LastSeen = now
		if err := l.store.UpsertFilePattern(ctx, p); err != nil {
			l.logger.WithFields(logrus.Fields{
				"file":  path,
				"error": err,
			}).Debug("could not store file pattern")
		}
	}

	l.logger.WithFields(logrus.Fields{
		"merges":  len(merges),
		"authors": len(authors),
		"files":   len(fileConflicts),
	}).Info("patterns learned from history")
	return nil
}

func hasConflictIndicator(message string) bool {
	msg := strings.ToLower(message)
	for _, ind := range conflictIndicators {
		if strings.Contains(msg, ind) {
			return true
		}
	}
	return false
}

// topFiles returns the n most frequently touched paths, ties broken by
// path for determinism.
func topFiles(counts map[string]int, n int) []string {
	paths := make([]string, 0, len(counts))
	for p := range counts {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		if counts[paths[i]] != counts[paths[j]] {
			return counts[paths[i]] > counts[paths[j]]
		}
		return paths[i] < paths[j]
	})
	if len(paths) > n {
		paths = paths[:n]
	}
	return paths
}
