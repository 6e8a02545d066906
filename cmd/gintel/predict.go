package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitintel/gitintel-go/internal/output"
)

var (
	predictTarget string
	predictSource string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict which files will conflict in a pending merge",
	Long: `Predict analyzes both sides of a pending merge against their common
ancestor and scores each overlapping file's conflict likelihood. The target
branch defaults to the checked-out branch; the source defaults to the most
recently committed other branch.`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&predictTarget, "target", "t", "", "branch being merged into (default: current branch)")
	predictCmd.Flags().StringVarP(&predictSource, "source", "s", "", "branch being merged (default: most recent other branch)")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	report, err := eng.PredictConflicts(ctx, predictTarget, predictSource)
	if err != nil {
		return err
	}
	return output.WritePredictions(os.Stdout, report, verbosity())
}
