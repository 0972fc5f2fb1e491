// Package engine walks workflow definitions step by step, resolves
// placeholders, invokes commands, tracks created resources, and always
// finishes with a cleanup phase.
package engine

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionContext carries the per-run state that placeholder resolution
// reads: run variables, captured step outputs, and the run-stable
// timestamp. UUID and clock sources are injectable so resolution is
// deterministic under test.
type ExecutionContext struct {
	RunID      string
	WorkflowID string
	StartedAt  time.Time

	vars    map[string]string
	outputs map[string]string // keyed "step-id.output-name"

	newUUID func() string
	now     func() time.Time
}

// ContextOption customizes an ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithUUIDSource replaces the UUID generator. Used in tests for
// deterministic placeholder resolution.
func WithUUIDSource(fn func() string) ContextOption {
	return func(c *ExecutionContext) {
		c.newUUID = fn
	}
}

// WithClock replaces the wall clock.
func WithClock(fn func() time.Time) ContextOption {
	return func(c *ExecutionContext) {
		c.now = fn
	}
}

// NewExecutionContext creates the context for one run. vars are the
// caller-supplied run variables; they are copied.
func NewExecutionContext(workflowID string, vars map[string]string, opts ...ContextOption) *ExecutionContext {
	c := &ExecutionContext{
		WorkflowID: workflowID,
		vars:       make(map[string]string, len(vars)),
		outputs:    make(map[string]string),
		newUUID:    uuid.NewString,
		now:        time.Now,
	}
	for k, v := range vars {
		c.vars[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	c.RunID = c.newUUID()
	c.StartedAt = c.now()
	return c
}

// SetOutput records a captured step output under "stepID.name".
func (c *ExecutionContext) SetOutput(stepID, name, value string) {
	c.outputs[stepID+"."+name] = value
}

// lookup resolves a plain name: step outputs shadow run variables so a
// later step always sees the freshest value for a dotted reference, and
// run variables win for undotted names.
func (c *ExecutionContext) lookup(name string) (string, bool) {
	if v, ok := c.vars[name]; ok {
		return v, true
	}
	if v, ok := c.outputs[name]; ok {
		return v, true
	}
	return "", false
}
