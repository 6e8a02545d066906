package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gitintel/gitintel-go/internal/engine"
)

// WritePredictions renders a conflict prediction report.
func WritePredictions(w io.Writer, report *engine.PredictionReport, v Verbosity) error {
	switch v {
	case VerbosityJSON:
		return WriteJSON(w, report)
	case VerbosityQuiet:
		return writePredictionsQuiet(w, report)
	default:
		return writePredictionsStandard(w, report)
	}
}

func writePredictionsQuiet(w io.Writer, report *engine.PredictionReport) error {
	if len(report.Predictions) == 0 {
		fmt.Fprintf(w, "✅ no conflicts predicted (%d files analyzed)\n", report.FilesAnalyzed)
		return nil
	}
	fmt.Fprintf(w, "⚠️  %d files at risk of conflict, %d high risk\n",
		len(report.Predictions), report.HighRiskFiles)
	fmt.Fprintf(w, "Run 'gintel predict' for details\n")
	return nil
}

func writePredictionsStandard(w io.Writer, report *engine.PredictionReport) error {
	fmt.Fprintf(w, "🔍 Conflict Prediction\n")
	fmt.Fprintf(w, "Merging: %s -> %s\n", report.SourceBranch, report.TargetBranch)
	fmt.Fprintf(w, "Files analyzed: %d\n\n", report.FilesAnalyzed)

	if len(report.Predictions) == 0 {
		fmt.Fprintf(w, "No files above the conflict threshold.\n")
		return nil
	}

	for i, p := range report.Predictions {
		fmt.Fprintf(w, "%d. %s %s\n", i+1, riskEmoji(p.ConflictProbability), p.FilePath)
		fmt.Fprintf(w, "   probability %.0f%%, confidence %.0f%%\n",
			p.ConflictProbability*100, p.ConfidenceScore*100)
		if len(p.AffectedLineRanges) > 0 {
			ranges := make([]string, 0, len(p.AffectedLineRanges))
			for _, r := range p.AffectedLineRanges {
				ranges = append(ranges, fmt.Sprintf("%d-%d", r.Start, r.End))
			}
			fmt.Fprintf(w, "   lines %s\n", strings.Join(ranges, ", "))
		}
		fmt.Fprintf(w, "   est. resolution %s\n", formatDuration(p.EstimatedResolutionSec))
		if p.ResolutionSuggestion != "" {
			fmt.Fprintf(w, "   %s\n", p.ResolutionSuggestion)
		}
		fmt.Fprintf(w, "\n")
	}

	if report.HighRiskFiles > 0 {
		fmt.Fprintf(w, "%d high-risk files. Consider merging in smaller batches.\n",
			report.HighRiskFiles)
	}
	return nil
}

func riskEmoji(probability float64) string {
	switch {
	case probability > 0.7:
		return "🔴"
	case probability > 0.4:
		return "⚠️ "
	default:
		return "ℹ️ "
	}
}

func formatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
