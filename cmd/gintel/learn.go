package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	learnBranch     string
	learnMaxCommits int
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Build conflict patterns from the repository's merge history",
	Long: `Learn walks past merge commits and derives per-author and per-file
conflict patterns from them. The engine also does this automatically the
first time it runs against an empty pattern store; run it explicitly to
refresh patterns after a large import or history rewrite.`,
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().StringVarP(&learnBranch, "branch", "b", "", "branch to walk (default: current branch)")
	learnCmd.Flags().IntVar(&learnMaxCommits, "max-commits", 0, "history scan limit (default: from config)")
}

func runLearn(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.LearnFromHistory(ctx, learnBranch, learnMaxCommits); err != nil {
		return err
	}

	fmt.Println("✅ Patterns learned from merge history")
	return nil
}
