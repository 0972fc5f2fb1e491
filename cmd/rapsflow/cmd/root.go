// Package cmd implements the rapsflow CLI.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raps-stack/rapsflow/internal/config"
	"github.com/raps-stack/rapsflow/internal/logging"
	"github.com/raps-stack/rapsflow/internal/workflow"
)

// timeUnit is the rounding applied to durations in human output.
const timeUnit = 10 * time.Millisecond

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	verbose bool
	workDir string
)

var rootCmd = &cobra.Command{
	Use:   "rapsflow",
	Short: "Declarative workflow runner for the raps CLI",
	Long: `rapsflow executes declarative workflow definitions against the raps
platform-services CLI. Each workflow is an ordered list of steps; every
cloud resource a step creates is tracked, and a cleanup phase tears
tracked resources down in reverse order after every run, whether it
succeeded, failed, or was aborted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "C", "", "working directory (default: current)")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("rapsflow {{.Version}}\n")
}

// getWorkDir returns the effective working directory.
func getWorkDir() (string, error) {
	if workDir != "" {
		return workDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return dir, nil
}

// setup loads config and builds the logger and workflow loader for the
// effective working directory.
func setup() (*config.Config, *slog.Logger, io.Closer, *workflow.Loader, error) {
	dir, err := getWorkDir()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, closer, err := logging.NewFromConfig(cfg, dir)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("setting up logging: %w", err)
	}

	loader := workflow.NewLoader(cfg.WorkflowsDir(dir))
	return cfg, logger, closer, loader, nil
}
