package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	validateConflict   bool
	validateResolution int
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a past conflict prediction for a file",
	Long: `Validate grades the most recent unvalidated prediction for a file:
accuracy is the predicted probability when a conflict actually happened,
its complement when it did not.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateConflict, "conflict", false, "a conflict actually occurred in this file")
	validateCmd.Flags().IntVar(&validateResolution, "resolution-seconds", 0, "seconds spent resolving the conflict")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.ValidatePrediction(ctx, args[0], validateConflict, validateResolution); err != nil {
		return err
	}

	fmt.Printf("✅ Prediction validated for %s\n", args[0])
	return nil
}
