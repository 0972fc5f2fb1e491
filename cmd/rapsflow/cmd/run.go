package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raps-stack/rapsflow/internal/engine"
	"github.com/raps-stack/rapsflow/internal/errors"
	"github.com/raps-stack/rapsflow/internal/raps"
	"github.com/raps-stack/rapsflow/internal/resource"
	"github.com/raps-stack/rapsflow/internal/types"
)

var (
	runVars      []string
	runSkipCheck bool
	runTimeout   time.Duration
	runQuiet     bool
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-id>",
	Short: "Execute a workflow",
	Long: `Execute a workflow by ID from the workflows directory.

Steps run in declared order. The first step to exhaust its retry budget
halts the run; tracked resources are then cleaned up in reverse creation
order. Ctrl-C aborts the step phase but cleanup still runs.

Examples:
  rapsflow run bucket-lifecycle
  rapsflow run bucket-lifecycle --var region=EMEA --var model_file=part.rvt`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "run variable as key=value (repeatable)")
	runCmd.Flags().BoolVar(&runSkipCheck, "skip-checks", false, "skip prerequisite checks")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-step timeout (overrides config)")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "log events instead of printing progress")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, closer, loader, err := setup()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	def, err := loader.Load(args[0])
	if err != nil {
		return err
	}

	vars, err := parseVars(runVars)
	if err != nil {
		return err
	}
	if runTimeout > 0 {
		cfg.Raps.StepTimeout = runTimeout
	}

	dir, err := getWorkDir()
	if err != nil {
		return err
	}

	invoker := raps.NewInvoker(cfg.Raps.Binary, logger)
	if !runSkipCheck {
		if err := checkPrerequisites(def, invoker, dir); err != nil {
			return err
		}
	}

	// Ctrl-C aborts the step phase; cleanup still runs on a detached
	// context inside the engine.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := engine.NewReporter(cfg.Engine.EventBuffer)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if runQuiet {
			engine.LogEvents(logger, reporter.Events())
		} else {
			printEvents(reporter.Events())
		}
	}()

	eng := engine.New(cfg, invoker, resource.NewTracker(), logger,
		engine.WithReporter(reporter),
		engine.WithWorkDir(dir))
	run, runErr := eng.Run(ctx, def, vars)

	reporter.Close()
	wg.Wait()

	printRunSummary(run)

	if runErr != nil {
		return fmt.Errorf("run %s: %w", run.Status, runErr)
	}
	return nil
}

// checkPrerequisites verifies what the run needs up front: the raps binary
// on PATH and every required asset file present. Relative asset paths are
// resolved against the effective working directory so -C behaves the same
// as launching from that directory.
func checkPrerequisites(def *types.WorkflowDefinition, invoker *raps.Invoker, dir string) error {
	if err := invoker.CheckBinary(); err != nil {
		return err
	}
	for _, asset := range def.Metadata.RequiredAssets {
		path := asset
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return errors.PrerequisiteNotMet("", "required asset "+asset+" not found")
		}
	}
	return nil
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// printEvents streams run progress to stdout as it happens.
func printEvents(events <-chan engine.Event) {
	for ev := range events {
		switch ev.Kind {
		case engine.EventRunStarted:
			fmt.Printf("Run %s started (workflow %s)\n", ev.RunID, ev.WorkflowID)
		case engine.EventStepStarted:
			fmt.Printf("  -> %s\n", ev.StepID)
		case engine.EventStepCompleted:
			if ev.Step == nil {
				continue
			}
			switch ev.Step.Status {
			case types.StepSucceeded:
				fmt.Printf("  ok %s (%s, %d attempt(s))\n", ev.StepID, ev.Step.Duration.Round(timeUnit), ev.Step.Attempts)
			case types.StepSkipped:
				fmt.Printf("  -- %s skipped: %s\n", ev.StepID, ev.Step.ErrorDetail)
			default:
				fmt.Printf("  FAIL %s (%s): %s\n", ev.StepID, ev.Step.Status, ev.Step.ErrorDetail)
			}
		case engine.EventResourceTracked:
			if ev.Resource != nil {
				fmt.Printf("     tracked %s %q\n", ev.Resource.Kind, ev.Resource.Identifier)
			}
		case engine.EventCleanupStarted:
			fmt.Println("Cleaning up...")
		case engine.EventCleanupResult:
			if ev.Cleanup == nil {
				continue
			}
			if ev.Cleanup.Status == types.CleanupSucceeded {
				fmt.Printf("  cleaned %s %q\n", ev.Cleanup.Kind, ev.Cleanup.Identifier)
			} else {
				fmt.Printf("  CLEANUP FAILED %s %q: %s\n", ev.Cleanup.Kind, ev.Cleanup.Identifier, ev.Cleanup.Detail)
			}
		}
	}
}

func printRunSummary(run *types.Run) {
	fmt.Printf("\nRun %s: %s in %s\n", run.ID, run.Status, run.Duration().Round(timeUnit))
	if !run.CleanupComplete {
		fmt.Fprintln(os.Stderr, "WARNING: cleanup incomplete, some resources may remain. Check the cleanup results above.")
	}
}
