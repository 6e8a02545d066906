package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitintel/gitintel-go/internal/output"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show learning statistics for this repository",
	Long: `Metrics reports how well past predictions and recommendations have held
up: validated prediction accuracy, recommendation success rate, operation
conflict rate and the size of the learned pattern store.`,
	RunE: runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	m, err := eng.Metrics(ctx)
	if err != nil {
		return err
	}
	return output.WriteMetrics(os.Stdout, m, verbosity())
}
