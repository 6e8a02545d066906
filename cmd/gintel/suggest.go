package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitintel/gitintel-go/internal/output"
)

var (
	suggestTarget string
	suggestSource string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Recommend a merge strategy for a branch pair",
	Long: `Suggest measures how far the source branch has diverged from the target,
folds in predicted conflicts, and scores fast-forward, no-ff, squash and
rebase against each other. The winning strategy comes with commands, a
checklist and a rollback plan.`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringVarP(&suggestTarget, "target", "t", "", "branch being merged into (default: current branch)")
	suggestCmd.Flags().StringVarP(&suggestSource, "source", "s", "", "branch being merged (default: most recent other branch)")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	rec, err := eng.SuggestMergeStrategy(ctx, suggestSource, suggestTarget)
	if err != nil {
		return err
	}
	return output.WriteRecommendation(os.Stdout, rec, verbosity())
}
