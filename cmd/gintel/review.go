package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitintel/gitintel-go/internal/output"
)

var reviewCmd = &cobra.Command{
	Use:   "review [ref]",
	Short: "Score the code quality of a commit's changed files",
	Long: `Review runs lightweight lexical heuristics (complexity, documentation,
test presence, style consistency, risky calls) over the files a commit
changed. Defaults to HEAD.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	score := eng.ReviewCodeQuality(ctx, ref)
	return output.WriteReview(os.Stdout, score, verbosity())
}
