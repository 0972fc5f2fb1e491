package types

import (
	"fmt"
	"time"
)

// CommandSpec identifies one external tool invocation as a
// (type, action, params) triple. The engine treats it as opaque beyond
// this triple; the raps package maps it to concrete CLI arguments.
type CommandSpec struct {
	Type   string            `yaml:"type"`
	Action string            `yaml:"action"`
	Params map[string]string `yaml:"params,omitempty"`
}

// Key returns the registry lookup key for this command.
func (c CommandSpec) Key() string {
	return c.Type + "/" + c.Action
}

// OutputSource defines where a declared step output is captured from.
type OutputSource struct {
	Source string `yaml:"source"` // stdout | stderr | exit_code
}

// RetryPolicy is the declarative retry budget for one step.
// Attempts counts total tries, not re-tries: 1 means no retry.
// Resolved parameters are never re-resolved between attempts, so a retried
// create step targets the same resource name as its paired cleanup.
type RetryPolicy struct {
	Attempts int `yaml:"attempts,omitempty"`
}

// Budget returns the effective attempt count, applying the given default
// when the step declares none.
func (p RetryPolicy) Budget(def int) int {
	if p.Attempts > 0 {
		return p.Attempts
	}
	if def > 0 {
		return def
	}
	return 1
}

// StepDefinition is one declared unit of work mapping to exactly one
// external command invocation (plus retries).
type StepDefinition struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Command     CommandSpec `yaml:"command"`

	// ExpectedDuration is advisory only. It is never enforced as a deadline.
	ExpectedDuration Duration `yaml:"expected_duration,omitempty"`

	Retry RetryPolicy `yaml:"retry,omitempty"`

	// Outputs declares named values captured from the command result and
	// recorded in the execution context for later steps to reference.
	Outputs map[string]OutputSource `yaml:"outputs,omitempty"`

	// Requires lists step IDs that must have succeeded for this step to run.
	// If any listed step did not succeed (for example it was skipped), this
	// step is skipped rather than failed.
	Requires []string `yaml:"requires,omitempty"`

	// RequiredAssets lists files that must exist for this step to run.
	// Missing assets skip the step, they do not abort the run.
	RequiredAssets []string `yaml:"required_assets,omitempty"`
}

// Validate checks the step is well-formed.
func (s *StepDefinition) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("step id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("step %s: name is required", s.ID)
	}
	if s.Command.Type == "" || s.Command.Action == "" {
		return fmt.Errorf("step %s: command type and action are required", s.ID)
	}
	for name, out := range s.Outputs {
		switch out.Source {
		case "stdout", "stderr", "exit_code":
		default:
			return fmt.Errorf("step %s: output %s has unknown source %q", s.ID, name, out.Source)
		}
	}
	return nil
}

// StepStatus is the terminal outcome of one step.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"   // Declared prerequisites not met
	StepTimedOut  StepStatus = "timed_out" // Wall-clock timeout, subprocess killed
)

// Failure returns true for outcomes that count against the retry budget.
// Timeouts are treated identically to failures for retry purposes.
func (s StepStatus) Failure() bool {
	return s == StepFailed || s == StepTimedOut
}

// StepResult is the immutable record of one step's terminal outcome,
// appended to the ordered run log.
type StepResult struct {
	StepID      string        `yaml:"step_id"`
	Status      StepStatus    `yaml:"status"`
	Output      string        `yaml:"output,omitempty"`       // captured stdout
	ErrorDetail string        `yaml:"error_detail,omitempty"` // stderr or failure reason
	ExitCode    int           `yaml:"exit_code"`
	Attempts    int           `yaml:"attempts"`
	StartedAt   time.Time     `yaml:"started_at"`
	Duration    time.Duration `yaml:"duration"`
}
