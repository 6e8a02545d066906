package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/gitintel/gitintel-go/internal/models"
)

// WriteRecommendation renders a merge strategy recommendation.
func WriteRecommendation(w io.Writer, rec *models.MergeRecommendation, v Verbosity) error {
	switch v {
	case VerbosityJSON:
		return WriteJSON(w, rec)
	case VerbosityQuiet:
		fmt.Fprintf(w, "%s merge (%s risk, %.0f%% confidence)\n",
			rec.Primary.Strategy, rec.RiskLevel, rec.Primary.ConfidenceScore*100)
		return nil
	}

	fmt.Fprintf(w, "🔀 Merge Strategy\n")
	fmt.Fprintf(w, "Recommended: %s (%.0f%% confidence, %.0f%% success probability)\n",
		rec.Primary.Strategy, rec.Primary.ConfidenceScore*100, rec.Primary.SuccessProbability*100)
	fmt.Fprintf(w, "Risk level: %s\n", rec.RiskLevel)
	if rec.EstimatedConflicts > 0 {
		fmt.Fprintf(w, "Estimated conflicts: %d\n", rec.EstimatedConflicts)
	}
	fmt.Fprintf(w, "\n")

	writeStrategy(w, rec.Primary)

	if len(rec.Alternatives) > 0 {
		fmt.Fprintf(w, "Alternatives:\n")
		for _, alt := range rec.Alternatives {
			fmt.Fprintf(w, "- %s (%.0f%% confidence)\n", alt.Strategy, alt.ConfidenceScore*100)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(rec.PreMergeChecklist) > 0 {
		fmt.Fprintf(w, "Before merging:\n")
		for _, item := range rec.PreMergeChecklist {
			fmt.Fprintf(w, "- %s\n", item)
		}
		fmt.Fprintf(w, "\n")
	}

	if rec.MergeMessage != "" {
		fmt.Fprintf(w, "Suggested message: %s\n", rec.MergeMessage)
	}
	fmt.Fprintf(w, "Rollback: %s\n", rec.RollbackPlan)
	return nil
}

func writeStrategy(w io.Writer, s models.MergeStrategyScore) {
	if len(s.CommandSequence) > 0 {
		fmt.Fprintf(w, "Commands:\n")
		for _, cmd := range s.CommandSequence {
			fmt.Fprintf(w, "  $ %s\n", cmd)
		}
		fmt.Fprintf(w, "\n")
	}
	if len(s.Pros) > 0 {
		fmt.Fprintf(w, "Pros: %s\n", strings.Join(s.Pros, "; "))
	}
	if len(s.Cons) > 0 {
		fmt.Fprintf(w, "Cons: %s\n", strings.Join(s.Cons, "; "))
	}
	if s.EstimatedTimeMinutes > 0 {
		fmt.Fprintf(w, "Estimated time: %d minutes\n", s.EstimatedTimeMinutes)
	}
	fmt.Fprintf(w, "\n")
}

// WriteReview renders a code quality review.
func WriteReview(w io.Writer, score *models.CodeReviewScore, v Verbosity) error {
	switch v {
	case VerbosityJSON:
		return WriteJSON(w, score)
	case VerbosityQuiet:
		fmt.Fprintf(w, "quality %.0f%%, %d issues\n",
			score.OverallScore*100, len(score.PotentialIssues))
		return nil
	}

	fmt.Fprintf(w, "📋 Code Quality Review\n")
	fmt.Fprintf(w, "Overall: %.0f%%\n", score.OverallScore*100)
	fmt.Fprintf(w, "Complexity: %.0f%%  Maintainability: %.0f%%\n\n",
		score.ComplexityScore*100, score.MaintainabilityScore*100)

	if len(score.PotentialIssues) > 0 {
		fmt.Fprintf(w, "Issues:\n")
		for i, issue := range score.PotentialIssues {
			fmt.Fprintf(w, "%d. %s\n", i+1, issue)
		}
		fmt.Fprintf(w, "\n")
	}
	if len(score.SuggestedImprovements) > 0 {
		fmt.Fprintf(w, "Suggestions:\n")
		for _, s := range score.SuggestedImprovements {
			fmt.Fprintf(w, "- %s\n", s)
		}
	}
	return nil
}

// WriteMetrics renders engine learning statistics.
func WriteMetrics(w io.Writer, m *models.EngineMetrics, v Verbosity) error {
	if v == VerbosityJSON {
		return WriteJSON(w, m)
	}

	fmt.Fprintf(w, "📊 Engine Metrics\n")
	fmt.Fprintf(w, "Predictions validated: %d (accuracy %.0f%%)\n",
		m.TotalPredictions, m.PredictionAccuracy*100)
	fmt.Fprintf(w, "Recommendations graded: %d (%d successful, accuracy %.0f%%)\n",
		m.TotalRecommendations, m.SuccessfulMerges, m.RecommendationAccuracy*100)
	fmt.Fprintf(w, "Operations logged: %d (conflict rate %.0f%%, avg resolution %s)\n",
		m.TotalOperations, m.ConflictRate*100, formatDuration(int(m.AvgResolutionSec)))
	fmt.Fprintf(w, "Learned patterns: %d files, %d authors\n",
		m.LearnedFilePatterns, m.LearnedAuthorPatterns)

	if len(m.StrategyPerformance) > 0 {
		fmt.Fprintf(w, "\nStrategy success rates:\n")
		for _, strategy := range []string{"fast-forward", "no-ff", "squash", "rebase"} {
			if rate, ok := m.StrategyPerformance[strategy]; ok {
				fmt.Fprintf(w, "- %-13s %.0f%%\n", strategy, rate*100)
			}
		}
	}
	return nil
}
