package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	recordTarget    string
	recordSource    string
	recordStrategy  string
	recordSuccess   bool
	recordConflicts int
	recordMinutes   int
	recordFiles     []string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the outcome of a completed merge",
	Long: `Record grades the most recent open recommendation for the branch pair
against what actually happened and feeds conflicted files back into the
learned patterns. Run it after finishing (or aborting) a merge that
'gintel suggest' advised on.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordTarget, "target", "t", "", "branch that was merged into")
	recordCmd.Flags().StringVarP(&recordSource, "source", "s", "", "branch that was merged")
	recordCmd.Flags().StringVar(&recordStrategy, "strategy", "", "strategy actually used (fast-forward, no-ff, squash, rebase)")
	recordCmd.Flags().BoolVar(&recordSuccess, "success", true, "whether the merge completed successfully")
	recordCmd.Flags().IntVar(&recordConflicts, "conflicts", 0, "number of conflicts encountered")
	recordCmd.Flags().IntVar(&recordMinutes, "minutes", 0, "minutes spent completing the merge")
	recordCmd.Flags().StringSliceVar(&recordFiles, "files", nil, "files that conflicted (comma separated)")

	recordCmd.MarkFlagRequired("source")
	recordCmd.MarkFlagRequired("target")
	recordCmd.MarkFlagRequired("strategy")
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	err = eng.RecordOutcome(ctx, recordSource, recordTarget, recordStrategy,
		recordSuccess, recordConflicts, recordMinutes, recordFiles)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Outcome recorded for %s -> %s (%s)\n", recordSource, recordTarget, recordStrategy)
	return nil
}
