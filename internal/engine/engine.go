package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/raps-stack/rapsflow/internal/config"
	"github.com/raps-stack/rapsflow/internal/errors"
	"github.com/raps-stack/rapsflow/internal/logging"
	"github.com/raps-stack/rapsflow/internal/raps"
	"github.com/raps-stack/rapsflow/internal/resource"
	"github.com/raps-stack/rapsflow/internal/types"
)

// CommandInvoker runs one external command to completion.
// Satisfied by raps.Invoker; faked in tests.
type CommandInvoker interface {
	Invoke(ctx context.Context, args []string, timeout time.Duration) (raps.CommandResult, error)
}

// Engine executes workflow definitions: steps in declared order, halting
// on the first exhausted failure, then a cleanup phase that always runs.
type Engine struct {
	invoker  CommandInvoker
	tracker  *resource.Tracker
	reporter *Reporter
	logger   *slog.Logger

	stepTimeout    time.Duration
	cleanupTimeout time.Duration
	retryDefault   int
	cleanupWorkers int
	workDir        string

	ctxOpts []ContextOption
}

// Option customizes an Engine.
type Option func(*Engine)

// WithReporter attaches an event reporter.
func WithReporter(r *Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithContextOptions forwards options to each run's execution context.
// Used in tests to pin the UUID source and clock.
func WithContextOptions(opts ...ContextOption) Option {
	return func(e *Engine) { e.ctxOpts = opts }
}

// WithWorkDir sets the directory that relative required-asset paths are
// resolved against. Defaults to the process working directory.
func WithWorkDir(dir string) Option {
	return func(e *Engine) { e.workDir = dir }
}

// New creates an Engine from configuration.
func New(cfg *config.Config, invoker CommandInvoker, tracker *resource.Tracker, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.NewDefault()
	}
	e := &Engine{
		invoker:        invoker,
		tracker:        tracker,
		logger:         logger,
		stepTimeout:    cfg.Raps.StepTimeout,
		cleanupTimeout: cfg.Raps.CleanupTimeout,
		retryDefault:   cfg.Engine.RetryAttempts,
		cleanupWorkers: cfg.Engine.CleanupWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one workflow definition with the given run variables. Steps
// run strictly in declared order; the first step to exhaust its retry
// budget halts the walk. Whatever the outcome, the cleanup phase then
// tears down every tracked resource in reverse creation order. Cleanup
// runs on a detached context so an abort mid-run still gets its teardown.
//
// The returned Run is always non-nil and terminal. The error reflects the
// step phase: nil on success, the halting step's failure otherwise.
// Cleanup failures never appear in the error; they are reported through
// Run.CleanupComplete and the cleanup results.
func (e *Engine) Run(ctx context.Context, def *types.WorkflowDefinition, vars map[string]string) (*types.Run, error) {
	execCtx := NewExecutionContext(def.Metadata.ID, vars, e.ctxOpts...)
	run := types.NewRun(execCtx.RunID, def.Metadata.ID, execCtx.StartedAt)
	if err := run.Start(); err != nil {
		return run, err
	}

	logger := logging.WithWorkflow(logging.WithRun(e.logger, run.ID), def.Metadata.ID)
	logger.Info("run started", "steps", len(def.Steps))
	e.reporter.Emit(Event{Kind: EventRunStarted, RunID: run.ID, WorkflowID: def.Metadata.ID, Run: run})

	outcome, stepErr := e.runSteps(ctx, def, execCtx, run, logger)

	if err := run.StartCleanup(outcome); err != nil {
		return run, err
	}
	e.reporter.Emit(Event{Kind: EventCleanupStarted, RunID: run.ID, WorkflowID: def.Metadata.ID, Run: run})

	// Abort cancels the step phase, never the teardown.
	complete, results := e.runCleanup(context.WithoutCancel(ctx), def, execCtx, run, logger)
	run.FinishCleanup(complete, results)

	logger.Info("run finished",
		"status", run.Status,
		"cleanup_complete", run.CleanupComplete,
		"duration", run.Duration())
	e.reporter.Emit(Event{Kind: EventRunCompleted, RunID: run.ID, WorkflowID: def.Metadata.ID, Run: run})

	return run, stepErr
}

// runSteps walks the step sequence and returns the step-phase outcome.
func (e *Engine) runSteps(ctx context.Context, def *types.WorkflowDefinition, execCtx *ExecutionContext, run *types.Run, logger *slog.Logger) (types.RunStatus, error) {
	statuses := make(map[string]types.StepStatus, len(def.Steps))

	for i := range def.Steps {
		step := &def.Steps[i]

		if ctx.Err() != nil {
			logger.Warn("run aborted", "before_step", step.ID)
			return types.RunAborted, ctx.Err()
		}

		if reason := e.skipReason(step, statuses); reason != "" {
			res := types.StepResult{
				StepID:      step.ID,
				Status:      types.StepSkipped,
				ErrorDetail: reason,
				StartedAt:   time.Now(),
			}
			run.RecordStep(res)
			statuses[step.ID] = types.StepSkipped
			logger.Info("step skipped", "step", step.ID, "reason", reason)
			e.reporter.Emit(Event{Kind: EventStepCompleted, RunID: run.ID, WorkflowID: def.Metadata.ID, StepID: step.ID, Step: &res})
			continue
		}

		e.reporter.Emit(Event{Kind: EventStepStarted, RunID: run.ID, WorkflowID: def.Metadata.ID, StepID: step.ID})
		res, stepErr := e.runStep(ctx, step, execCtx, run, logger)
		run.RecordStep(res)
		statuses[step.ID] = res.Status
		e.reporter.Emit(Event{Kind: EventStepCompleted, RunID: run.ID, WorkflowID: def.Metadata.ID, StepID: step.ID, Step: &res})

		if res.Status.Failure() {
			if ctx.Err() != nil {
				return types.RunAborted, stepErr
			}
			logger.Error("step failed, halting run", "step", step.ID, "attempts", res.Attempts)
			return types.RunFailed, stepErr
		}
	}

	return types.RunCompleted, nil
}

// skipReason returns a non-empty reason when the step's declared
// prerequisites are not met. Skips never halt the run.
func (e *Engine) skipReason(step *types.StepDefinition, statuses map[string]types.StepStatus) string {
	for _, dep := range step.Requires {
		if statuses[dep] != types.StepSucceeded {
			return "required step " + dep + " did not succeed"
		}
	}
	for _, asset := range step.RequiredAssets {
		if _, err := os.Stat(resolveAssetPath(e.workDir, asset)); err != nil {
			return "required asset " + asset + " not found"
		}
	}
	return ""
}

// resolveAssetPath anchors a relative asset path to the configured work
// directory so a run behaves the same regardless of where it is launched.
func resolveAssetPath(workDir, asset string) string {
	if workDir == "" || filepath.IsAbs(asset) {
		return asset
	}
	return filepath.Join(workDir, asset)
}

// runStep resolves the step's params once, then invokes the command up to
// the retry budget with the identical arguments. Re-resolving between
// attempts would mint a new {uuid} and orphan the first attempt's
// resource, so resolution happens exactly once.
func (e *Engine) runStep(ctx context.Context, step *types.StepDefinition, execCtx *ExecutionContext, run *types.Run, logger *slog.Logger) (types.StepResult, error) {
	logger = logging.WithStep(logger, step.ID)
	started := time.Now()
	res := types.StepResult{StepID: step.ID, StartedAt: started}

	resolved, err := ResolveStepParams(execCtx, step.ID, step.Command.Params)
	if err != nil {
		res.Status = types.StepFailed
		res.ErrorDetail = err.Error()
		res.ExitCode = -1
		res.Duration = time.Since(started)
		return res, err
	}

	args, err := raps.BuildArgs(step.Command, resolved)
	if err != nil {
		res.Status = types.StepFailed
		res.ErrorDetail = err.Error()
		res.ExitCode = -1
		res.Duration = time.Since(started)
		return res, err
	}

	entry, _ := raps.Lookup(step.Command)
	budget := step.Retry.Budget(e.retryDefault)

	var last raps.CommandResult
	var invokeErr error
	for attempt := 1; attempt <= budget; attempt++ {
		res.Attempts = attempt
		if attempt > 1 {
			logger.Warn("retrying step", "attempt", attempt, "budget", budget)
		}

		last, invokeErr = e.invoker.Invoke(ctx, args, e.stepTimeout)
		if invokeErr != nil {
			res.Status = types.StepFailed
			res.ErrorDetail = invokeErr.Error()
			res.ExitCode = -1
			res.Duration = time.Since(started)
			return res, invokeErr
		}
		if last.Success() {
			break
		}
		if last.Interrupted {
			// Abort is not a failure to burn retries on.
			break
		}
	}

	res.Output = strings.TrimSuffix(last.Stdout, "\n")
	res.ErrorDetail = strings.TrimSuffix(last.Stderr, "\n")
	res.ExitCode = last.ExitCode
	res.Duration = time.Since(started)

	switch {
	case last.Success():
		res.Status = types.StepSucceeded
	case last.TimedOut:
		res.Status = types.StepTimedOut
		return res, errors.CommandTimedOut(step.ID, e.stepTimeout)
	default:
		res.Status = types.StepFailed
		return res, errors.CommandFailed(step.ID, last.ExitCode, res.ErrorDetail)
	}

	e.captureOutputs(step, execCtx, last)

	if entry.Creates != nil {
		if identifier := resolved[entry.Creates.IdentifierParam]; identifier != "" {
			tracked := e.tracker.Record(run.ID, step.ID, entry.Creates.Kind, identifier)
			logger.Info("resource tracked", "kind", tracked.Kind, "identifier", tracked.Identifier)
			e.reporter.Emit(Event{Kind: EventResourceTracked, RunID: run.ID, WorkflowID: execCtx.WorkflowID, StepID: step.ID, Resource: &tracked})
		}
	}

	return res, nil
}

// captureOutputs records the step's declared outputs into the execution
// context for later steps to reference as {step-id.name}.
func (e *Engine) captureOutputs(step *types.StepDefinition, execCtx *ExecutionContext, result raps.CommandResult) {
	for name, src := range step.Outputs {
		switch src.Source {
		case "stdout":
			execCtx.SetOutput(step.ID, name, strings.TrimSuffix(result.Stdout, "\n"))
		case "stderr":
			execCtx.SetOutput(step.ID, name, strings.TrimSuffix(result.Stderr, "\n"))
		case "exit_code":
			execCtx.SetOutput(step.ID, name, strconv.Itoa(result.ExitCode))
		}
	}
}
