package advisor

import (
	"math"
	"sort"

	"github.com/gitintel/gitintel-go/internal/models"
)

// evaluateStrategies scores every candidate strategy against the analysis
// and returns them sorted by confidence, highest first. The sort is stable,
// so ties resolve in evaluation order and the recommendation stays
// deterministic for identical inputs.
func evaluateStrategies(analysis *models.MergeAnalysis) []models.MergeStrategyScore {
	strategies := []models.MergeStrategyScore{
		evaluateFastForward(analysis),
		evaluateNoFF(analysis),
		evaluateSquash(analysis),
		evaluateRebase(analysis),
	}
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].ConfidenceScore > strategies[j].ConfidenceScore
	})
	return strategies
}

// evaluateFastForward: only viable when the target has not moved and no
// conflicts are predicted.
func evaluateFastForward(a *models.MergeAnalysis) models.MergeStrategyScore {
	var confidence, successProb float64
	var timeEst int

	switch {
	case a.CommitsBehind == 0 && !a.HasConflicts():
		confidence, successProb, timeEst = 0.95, 0.98, 1
	case a.CommitsBehind > 0:
		confidence, successProb, timeEst = 0.0, 0.0, 0
	default:
		confidence, successProb, timeEst = 0.3, 0.5, 5
	}

	s := models.MergeStrategyScore{
		Strategy:             models.StrategyFastForward,
		ConfidenceScore:      confidence,
		SuccessProbability:   successProb,
		EstimatedTimeMinutes: timeEst,
		Prerequisites: []string{
			"Target branch must be ancestor of source branch",
			"No conflicts present",
		},
	}
	if confidence > 0.5 {
		s.Pros = []string{"Clean linear history", "No merge commit created", "Simple and fast"}
		s.Cons = []string{"Only works when target is ancestor of source", "Loses merge context"}
		s.CommandSequence = []string{
			"git checkout <target>",
			"git merge --ff-only <source>",
		}
	} else {
		s.Cons = []string{"Not applicable for current branch state"}
	}
	return s
}

func evaluateNoFF(a *models.MergeAnalysis) models.MergeStrategyScore {
	confidence := 0.8

	switch {
	case a.ConflictCount > 5:
		confidence -= 0.3
	case a.ConflictCount > 0:
		confidence -= 0.1
	}
	switch {
	case a.CommitsAhead > 20:
		confidence -= 0.2
	case a.CommitsAhead > 10:
		confidence -= 0.1
	}

	successProb := clampProb(confidence - float64(a.ConflictCount)*0.05)
	timeEst := 5 + a.ConflictCount*10 + int(float64(a.CommitsAhead)*0.5)

	prereq := "No major prerequisites"
	if a.HasConflicts() {
		prereq = "Resolve any conflicts first"
	}

	return models.MergeStrategyScore{
		Strategy:             models.StrategyNoFF,
		ConfidenceScore:      confidence,
		SuccessProbability:   successProb,
		EstimatedTimeMinutes: timeEst,
		Pros: []string{
			"Preserves feature branch history",
			"Clear merge point in history",
			"Good for feature branches",
		},
		Cons:          []string{"Creates additional merge commit", "More complex history"},
		Prerequisites: []string{prereq},
		CommandSequence: []string{
			"git checkout <target>",
			"git merge --no-ff <source>",
		},
	}
}

func evaluateSquash(a *models.MergeAnalysis) models.MergeStrategyScore {
	confidence := 0.7

	// Squash shines when the branch is many small commits.
	if a.CommitsAhead > 5 {
		confidence += 0.2
	}
	if a.CommitsAhead > 15 {
		confidence += 0.1
	}
	if a.ConflictCount > 3 {
		confidence -= 0.3
	}

	successProb := clampProb(confidence - float64(a.ConflictCount)*0.08)
	timeEst := 8 + a.ConflictCount*12 + int(float64(a.FilesChanged)*0.5)

	return models.MergeStrategyScore{
		Strategy:             models.StrategySquash,
		ConfidenceScore:      confidence,
		SuccessProbability:   successProb,
		EstimatedTimeMinutes: timeEst,
		Pros: []string{
			"Clean linear history",
			"Combines multiple commits into one",
			"Good for feature branches with many commits",
		},
		Cons: []string{"Loses individual commit history", "Requires manual commit message"},
		Prerequisites: []string{
			"Review all commits to be squashed",
			"Prepare comprehensive commit message",
		},
		CommandSequence: []string{
			"git checkout <target>",
			"git merge --squash <source>",
			"git commit",
		},
	}
}

func evaluateRebase(a *models.MergeAnalysis) models.MergeStrategyScore {
	confidence := 0.6

	switch {
	case a.ConflictCount == 0:
		confidence += 0.3
	case a.ConflictCount > 5:
		confidence -= 0.4
	default:
		confidence -= 0.2
	}
	switch {
	case a.BranchAgeDays > 30:
		confidence -= 0.1
	case a.BranchAgeDays > 7:
		confidence -= 0.05
	}

	successProb := clampProb(confidence - float64(a.ConflictCount)*0.1)
	timeEst := 10 + a.ConflictCount*15 + int(float64(a.CommitsAhead)*1.5)

	return models.MergeStrategyScore{
		Strategy:             models.StrategyRebase,
		ConfidenceScore:      confidence,
		SuccessProbability:   successProb,
		EstimatedTimeMinutes: timeEst,
		Pros: []string{
			"Linear history without merge commits",
			"Clean project history",
			"Easy to follow changes",
		},
		Cons: []string{
			"Rewrites commit history",
			"Can be complex with conflicts",
			"May require force push",
		},
		Prerequisites: []string{
			"Ensure no one else is working on the branch",
			"Be prepared to resolve conflicts iteratively",
			"Backup branch before rebasing",
		},
		CommandSequence: []string{
			"git checkout <source>",
			"git rebase <target>",
			"git rebase --continue",
			"git checkout <target>",
			"git merge <source>",
		},
	}
}

// assessRisk totals risk points from conflict volume, branch size, strategy
// choice and branch age.
func assessRisk(a *models.MergeAnalysis, primary models.MergeStrategyScore) models.RiskLevel {
	points := 0

	switch {
	case a.ConflictCount > 10:
		points += 3
	case a.ConflictCount > 5:
		points += 2
	case a.ConflictCount > 0:
		points++
	}

	switch {
	case a.CommitsAhead > 50:
		points += 3
	case a.CommitsAhead > 20:
		points += 2
	case a.CommitsAhead > 10:
		points++
	}

	switch {
	case a.FilesChanged > 50:
		points += 2
	case a.FilesChanged > 20:
		points++
	}

	if primary.Strategy == models.StrategyRebase {
		points++
	} else if primary.ConfidenceScore < 0.6 {
		points++
	}

	if a.BranchAgeDays > 30 {
		points++
	}

	switch {
	case points >= 6:
		return models.RiskHigh
	case points >= 3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func rollbackPlan(strategy models.StrategyType) string {
	plans := map[models.StrategyType]string{
		models.StrategyFastForward: "git reset --hard HEAD~1 (if fast-forward merge)",
		models.StrategyNoFF:        "git reset --hard HEAD~1 (removes merge commit)",
		models.StrategySquash:      "git reset --hard HEAD~1 (removes squashed commit)",
		models.StrategyRebase:      "git reset --hard ORIG_HEAD (if rebase fails) or git reflog to find previous state",
	}
	base, ok := plans[strategy]
	if !ok {
		base = "git reset --hard HEAD~1"
	}
	return base + ". Always verify with 'git log' before executing rollback. " +
		"Consider creating a backup branch before merge for safety."
}

func clampProb(p float64) float64 {
	return math.Max(0.1, math.Min(0.95, p))
}
