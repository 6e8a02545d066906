package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitintel/gitintel-go/internal/config"
	"github.com/gitintel/gitintel-go/internal/engine"
	"github.com/gitintel/gitintel-go/internal/output"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile  string
	repoPath string
	verbose  bool
	jsonOut  bool
	quietOut bool
	logger   *logrus.Logger
	cfg      *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gintel",
	Short: "GitIntel - merge conflict prediction and strategy advice from git history",
	Long: `GitIntel analyzes your repository's history to predict which files will
conflict in a pending merge, recommends a merge strategy, and learns from
recorded outcomes to improve over time.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize logger
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.WarnLevel)
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		if repoPath != "" {
			cfg.RepoPath = repoPath
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .gitintel/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&repoPath, "repo", "r", "", "repository path (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVarP(&quietOut, "quiet", "q", false, "one-line summary output")

	// Set custom version template
	rootCmd.SetVersionTemplate(`GitIntel {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	// Add subcommands
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(metricsCmd)
}

// newEngine opens an engine for the configured repository. Callers must
// Close it.
func newEngine() (*engine.Engine, error) {
	return engine.New(cfg, logger)
}

// verbosity resolves the output level from flags and environment.
func verbosity() output.Verbosity {
	if jsonOut {
		return output.VerbosityJSON
	}
	if quietOut {
		return output.VerbosityQuiet
	}
	return output.DefaultVerbosity()
}
