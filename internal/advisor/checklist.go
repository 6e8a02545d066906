package advisor

import "github.com/gitintel/gitintel-go/internal/models"

// preMergeChecklist lists the verification steps worth doing before this
// particular merge, tuned to the analysis and the chosen strategy.
func preMergeChecklist(a *models.MergeAnalysis, strategy models.MergeStrategyScore) []string {
	checklist := []string{
		"Review all changes in the source branch",
		"Ensure all tests pass on source branch",
	}

	if a.HasConflicts() {
		checklist = append(checklist,
			"Review predicted conflicts and prepare resolution strategy",
			"Ensure you have time to resolve conflicts properly")
	}

	switch strategy.Strategy {
	case models.StrategyRebase:
		checklist = append(checklist,
			"Create backup branch before rebasing",
			"Confirm no one else is working on this branch")
	case models.StrategySquash:
		checklist = append(checklist,
			"Prepare comprehensive commit message for squashed commits",
			"Review individual commits to ensure nothing important is lost")
	}

	if a.BranchAgeDays > 7 {
		checklist = append(checklist, "Verify branch is still relevant and up to date")
	}
	if a.CommitsAhead > 10 {
		checklist = append(checklist, "Consider if commits should be split into multiple PRs")
	}
	if len(a.AuthorsInvolved) > 1 {
		checklist = append(checklist, "Coordinate with other contributors if needed")
	}
	return checklist
}

func postMergeChecklist(a *models.MergeAnalysis, strategy models.MergeStrategyScore) []string {
	checklist := []string{
		"Verify merge completed successfully",
		"Run full test suite to ensure nothing is broken",
		"Check that all expected changes are present",
	}

	switch strategy.Strategy {
	case models.StrategyRebase:
		checklist = append(checklist,
			"Verify commit history looks correct",
			"Delete backup branch if merge was successful")
	case models.StrategySquash:
		checklist = append(checklist, "Verify squashed commit message is accurate")
	}

	if a.FilesChanged > 10 {
		checklist = append(checklist, "Consider impact on deployment and staging")
	}
	if a.CommitsAhead > 5 {
		checklist = append(checklist,
			"Update relevant documentation",
			"Update changelog if applicable")
	}

	checklist = append(checklist,
		"Delete feature branch if no longer needed",
		"Update issue tracking if applicable")
	return checklist
}
