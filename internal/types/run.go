package types

import (
	"fmt"
	"time"
)

// RunStatus represents the lifecycle state of one workflow run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"     // Created but not started
	RunRunning    RunStatus = "running"     // Walking the step sequence
	RunCleaningUp RunStatus = "cleaning_up" // Tearing down tracked resources
	RunCompleted  RunStatus = "completed"   // All steps succeeded
	RunFailed     RunStatus = "failed"      // A step exhausted its retry budget
	RunAborted    RunStatus = "aborted"     // External cancellation mid-run
)

// Valid returns true if this is a recognized run status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunCleaningUp, RunCompleted, RunFailed, RunAborted:
		return true
	}
	return false
}

// IsTerminal returns true if this status is final.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunAborted
}

// Run tracks one execution of a workflow definition through the two-phase
// state machine: the step phase, then the cleanup phase that always follows.
type Run struct {
	ID         string    `yaml:"id"`
	WorkflowID string    `yaml:"workflow_id"`
	Status     RunStatus `yaml:"status"`
	StartedAt  time.Time `yaml:"started_at"`
	DoneAt     *time.Time `yaml:"done_at,omitempty"`

	// PriorStatus records the step-phase outcome while cleanup runs;
	// FinishCleanup restores it as the terminal status. Cleanup results
	// never change it.
	PriorStatus RunStatus `yaml:"prior_status,omitempty"`

	StepResults    []StepResult    `yaml:"step_results,omitempty"`
	CleanupResults []CleanupResult `yaml:"cleanup_results,omitempty"`

	// CleanupComplete reports whether every attempted cleanup command
	// succeeded. Independent of Status: a failed cleanup after a completed
	// run leaves Status completed and CleanupComplete false.
	CleanupComplete bool `yaml:"cleanup_complete"`
}

// NewRun creates a pending run for the given workflow.
func NewRun(id, workflowID string, startedAt time.Time) *Run {
	return &Run{
		ID:         id,
		WorkflowID: workflowID,
		Status:     RunPending,
		StartedAt:  startedAt,
	}
}

// Start transitions the run to running.
func (r *Run) Start() error {
	if r.Status != RunPending {
		return fmt.Errorf("cannot start run in status %s", r.Status)
	}
	r.Status = RunRunning
	return nil
}

// RecordStep appends a step result to the ordered run log.
func (r *Run) RecordStep(res StepResult) {
	r.StepResults = append(r.StepResults, res)
}

// StartCleanup transitions the run into the cleanup phase, recording the
// step-phase outcome. outcome must be one of the terminal statuses.
func (r *Run) StartCleanup(outcome RunStatus) error {
	if r.Status == RunCleaningUp {
		return nil
	}
	if r.Status.IsTerminal() {
		return fmt.Errorf("cannot start cleanup for run in terminal status %s", r.Status)
	}
	if !outcome.IsTerminal() {
		return fmt.Errorf("cleanup outcome must be terminal, got %s", outcome)
	}
	r.PriorStatus = outcome
	r.Status = RunCleaningUp
	return nil
}

// FinishCleanup transitions from cleaning_up to the recorded terminal
// status and stamps the completion time.
func (r *Run) FinishCleanup(complete bool, results []CleanupResult) {
	if r.Status != RunCleaningUp {
		return
	}
	now := time.Now()
	r.DoneAt = &now
	r.CleanupResults = results
	r.CleanupComplete = complete
	r.Status = r.PriorStatus
}

// Duration returns the total run duration, or the elapsed time if the run
// has not finished.
func (r *Run) Duration() time.Duration {
	if r.DoneAt != nil {
		return r.DoneAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// Succeeded returns true if every recorded step succeeded.
func (r *Run) Succeeded() bool {
	for _, res := range r.StepResults {
		if res.Status == StepFailed || res.Status == StepTimedOut {
			return false
		}
	}
	return true
}
