package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/raps-stack/rapsflow/internal/errors"
	"github.com/raps-stack/rapsflow/internal/raps"
	"github.com/raps-stack/rapsflow/internal/types"
)

// cleanupJob pairs one cleanup command with the tracked resource it tears
// down. res is nil for global commands.
type cleanupJob struct {
	index int
	def   types.CleanupDefinition
	res   *types.TrackedResource
}

// runCleanup tears down the run's tracked resources in reverse creation
// order, then runs global cleanup commands once each in declared order.
// Each command gets one attempt under the cleanup timeout. Failures are
// recorded and reported but never stop the pass or change the run's
// status. Returns true when every attempted cleanup succeeded.
func (e *Engine) runCleanup(ctx context.Context, def *types.WorkflowDefinition, execCtx *ExecutionContext, run *types.Run, logger *slog.Logger) (bool, []types.CleanupResult) {
	jobs := e.cleanupJobs(def, run.ID)
	if len(jobs) == 0 {
		return true, nil
	}

	results := make([]types.CleanupResult, len(jobs))

	workers := e.cleanupWorkers
	if workers < 1 {
		workers = 1
	}

	// Jobs are dispatched in teardown order; with the default single
	// worker the ordering is strict.
	jobCh := make(chan cleanupJob)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				results[job.index] = e.runCleanupJob(ctx, job, execCtx, run, logger)
			}
		}()
	}
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()

	complete := true
	for _, res := range results {
		if res.Status == types.CleanupFailed {
			complete = false
		}
	}
	return complete, results
}

// cleanupJobs builds the ordered teardown worklist: one job per tracked
// resource, newest first, matched to the first cleanup command declaring
// its kind, then every kind-less command once globally.
func (e *Engine) cleanupJobs(def *types.WorkflowDefinition, runID string) []cleanupJob {
	resources := e.tracker.List(runID)

	var jobs []cleanupJob
	for i := len(resources) - 1; i >= 0; i-- {
		res := resources[i]
		for _, cd := range def.Cleanup {
			entry, err := raps.Lookup(cd.Command)
			if err != nil || entry.CleansUp != res.Kind {
				continue
			}
			jobs = append(jobs, cleanupJob{index: len(jobs), def: cd, res: &res})
			break
		}
	}

	for _, cd := range def.Cleanup {
		entry, err := raps.Lookup(cd.Command)
		if err != nil {
			continue
		}
		if entry.CleansUp == "" {
			jobs = append(jobs, cleanupJob{index: len(jobs), def: cd})
		}
	}

	return jobs
}

// runCleanupJob executes one cleanup command. No retry; the pass moves on
// whatever happens here.
func (e *Engine) runCleanupJob(ctx context.Context, job cleanupJob, execCtx *ExecutionContext, run *types.Run, logger *slog.Logger) types.CleanupResult {
	started := time.Now()
	result := types.CleanupResult{Status: types.CleanupFailed}
	if job.res != nil {
		result.ResourceID = job.res.ID
		result.Kind = job.res.Kind
		result.Identifier = job.res.Identifier
	}

	defer func() {
		result.Duration = time.Since(started)
		if result.Status == types.CleanupFailed {
			logger.Warn("cleanup failed",
				"command", job.def.Command.Key(),
				"error", errors.CleanupFailed(string(result.Kind), result.Identifier, result.Detail))
		}
		e.reporter.Emit(Event{Kind: EventCleanupResult, RunID: run.ID, WorkflowID: execCtx.WorkflowID, Cleanup: &result})
	}()

	resolved, err := ResolveCleanupParams(execCtx, job.res, job.def.Command.Params)
	if err != nil {
		result.Detail = err.Error()
		return result
	}

	args, err := raps.BuildArgs(job.def.Command, resolved)
	if err != nil {
		result.Detail = err.Error()
		return result
	}

	cmdRes, err := e.invoker.Invoke(ctx, args, e.cleanupTimeout)
	switch {
	case err != nil:
		result.Detail = err.Error()
	case cmdRes.TimedOut:
		result.Detail = "timed out after " + e.cleanupTimeout.String()
	case !cmdRes.Success():
		result.Detail = cmdRes.Stderr
	default:
		result.Status = types.CleanupSucceeded
		if job.res != nil {
			e.tracker.Release(job.res.ID)
		}
	}

	return result
}
