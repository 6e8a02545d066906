package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gitintel/gitintel-go/internal/git"
	"github.com/gitintel/gitintel-go/internal/models"
	"github.com/gitintel/gitintel-go/internal/store"
)

// conventionalTypes are the commit prefixes the merge message generator
// recognizes, checked as "type:" or "type(".
var conventionalTypes = []string{"feat", "fix", "docs", "style", "refactor", "test", "chore"}

// Advisor analyzes branch divergence and recommends a merge strategy.
type Advisor struct {
	repo   *git.Repository
	store  store.Store
	logger *logrus.Logger
}

func New(repo *git.Repository, st store.Store, logger *logrus.Logger) *Advisor {
	return &Advisor{repo: repo, store: st, logger: logger}
}

// Analyze measures how far source has diverged from target. ConflictCount
// starts at zero; the caller folds predicted conflicts in before asking for
// a recommendation.
func (a *Advisor) Analyze(ctx context.Context, sourceBranch, targetBranch string) (*models.MergeAnalysis, error) {
	base, err := a.repo.MergeBase(ctx, targetBranch, sourceBranch)
	if err != nil {
		return nil, err
	}

	ahead, err := a.repo.RevListCount(ctx, targetBranch+".."+sourceBranch)
	if err != nil {
		return nil, err
	}
	behind, err := a.repo.RevListCount(ctx, sourceBranch+".."+targetBranch)
	if err != nil {
		return nil, err
	}

	analysis := &models.MergeAnalysis{
		CommitsAhead:  ahead,
		CommitsBehind: behind,
	}

	if ahead > 0 {
		changed, err := a.repo.ChangedFiles(ctx, base, sourceBranch)
		if err != nil {
			return nil, err
		}
		analysis.FilesChanged = len(changed)

		added, deleted, err := a.repo.DiffStat(ctx, base, sourceBranch)
		if err != nil {
			return nil, err
		}
		analysis.LinesAdded = added
		analysis.LinesDeleted = deleted

		authors, err := a.repo.Authors(ctx, targetBranch+".."+sourceBranch)
		if err != nil {
			return nil, err
		}
		analysis.AuthorsInvolved = authors
	}

	// Divergence age: how long ago the branches forked.
	if baseCommit, err := a.repo.Commit(ctx, base); err == nil && !baseCommit.Timestamp.IsZero() {
		analysis.BranchAgeDays = time.Since(baseCommit.Timestamp).Hours() / 24.0
	}

	return analysis, nil
}

// Suggest produces the full recommendation for a branch pair whose
// divergence has already been analyzed. The recommendation is persisted so
// a later recorded outcome can grade it.
func (a *Advisor) Suggest(ctx context.Context, sourceBranch, targetBranch string, analysis *models.MergeAnalysis) (*models.MergeRecommendation, error) {
	if analysis.CommitsAhead == 0 {
		return upToDateRecommendation(sourceBranch, targetBranch), nil
	}

	strategies := evaluateStrategies(analysis)
	primary := strategies[0]
	alternatives := strategies[1:3]

	rec := &models.MergeRecommendation{
		Primary:            primary,
		Alternatives:       alternatives,
		MergeMessage:       a.MergeMessage(ctx, sourceBranch, targetBranch, analysis),
		PreMergeChecklist:  preMergeChecklist(analysis, primary),
		PostMergeChecklist: postMergeChecklist(analysis, primary),
		RiskLevel:          assessRisk(analysis, primary),
		EstimatedConflicts: analysis.ConflictCount,
		RollbackPlan:       rollbackPlan(primary.Strategy),
	}

	record := &models.RecommendationRecord{
		ID:                  uuid.New().String(),
		RepoPath:            a.repo.Path(),
		SourceBranch:        sourceBranch,
		TargetBranch:        targetBranch,
		RecommendedStrategy: string(primary.Strategy),
		Confidence:          primary.ConfidenceScore,
		SuccessProbability:  primary.SuccessProbability,
		EstimatedConflicts:  analysis.ConflictCount,
		CreatedAt:           time.Now().UTC(),
	}
	if err := a.store.SaveRecommendation(ctx, record); err != nil {
		a.logger.WithField("error", err).Warn("could not persist recommendation")
	}

	a.logger.WithFields(logrus.Fields{
		"source":     sourceBranch,
		"target":     targetBranch,
		"strategy":   primary.Strategy,
		"confidence": primary.ConfidenceScore,
		"risk":       rec.RiskLevel,
	}).Info("merge strategy recommended")

	return rec, nil
}

// upToDateRecommendation covers the zero-divergence case: nothing to merge,
// full confidence, no risk.
func upToDateRecommendation(sourceBranch, targetBranch string) *models.MergeRecommendation {
	return &models.MergeRecommendation{
		Primary: models.MergeStrategyScore{
			Strategy:           models.StrategyUpToDate,
			ConfidenceScore:    1.0,
			SuccessProbability: 1.0,
			Pros:               []string{"Branches are already in sync"},
		},
		MergeMessage:       fmt.Sprintf("%s is already up to date with %s", targetBranch, sourceBranch),
		PreMergeChecklist:  []string{"Nothing to merge"},
		PostMergeChecklist: []string{},
		RiskLevel:          models.RiskLow,
		EstimatedConflicts: 0,
		RollbackPlan:       "No rollback needed - no changes applied",
	}
}

// MergeCandidate picks the branch to merge when the caller did not name
// one: the most recently committed local branch other than the target,
// falling back to the target itself when the repo has nothing else.
func (a *Advisor) MergeCandidate(ctx context.Context, targetBranch string) (string, error) {
	branches, err := a.repo.Branches(ctx)
	if err != nil {
		return "", err
	}
	for _, b := range branches {
		if b.Name != targetBranch {
			return b.Name, nil
		}
	}
	return targetBranch, nil
}

// MergeMessage builds a merge commit message from the source branch's
// pending commits. A plurality of conventional-commit prefixes among them
// carries over to the message; a single-commit merge echoes that commit.
func (a *Advisor) MergeMessage(ctx context.Context, sourceBranch, targetBranch string, analysis *models.MergeAnalysis) string {
	fallback := fmt.Sprintf("Merge %s into %s", sourceBranch, targetBranch)

	commits, err := a.repo.Log(ctx, targetBranch+".."+sourceBranch, 10)
	if err != nil || len(commits) == 0 {
		return fallback
	}

	typeCounts := make(map[string]int)
	for _, c := range commits {
		msg := strings.ToLower(c.Message)
		for _, ct := range conventionalTypes {
			if strings.HasPrefix(msg, ct+":") || strings.HasPrefix(msg, ct+"(") {
				typeCounts[ct]++
				break
			}
		}
	}

	prefix := ""
	best, bestCount := "", 0
	for _, ct := range conventionalTypes {
		if typeCounts[ct] > bestCount {
			best, bestCount = ct, typeCounts[ct]
		}
	}
	if bestCount > 1 {
		prefix = best + ": "
	}

	if analysis.CommitsAhead == 1 {
		return fmt.Sprintf("%sMerge %s: %s", prefix, sourceBranch, commits[0].Message)
	}

	summary := []string{fmt.Sprintf("%d commits", analysis.CommitsAhead)}
	if analysis.FilesChanged > 5 {
		summary = append(summary, fmt.Sprintf("%d files", analysis.FilesChanged))
	}
	if len(analysis.AuthorsInvolved) > 1 {
		summary = append(summary, fmt.Sprintf("%d contributors", len(analysis.AuthorsInvolved)))
	}
	return fmt.Sprintf("%sMerge %s (%s) into %s", prefix, sourceBranch, strings.Join(summary, ", "), targetBranch)
}
