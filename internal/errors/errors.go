// Package errors provides structured error types for rapsflow.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Error codes for rapsflow operations.
const (
	// Definition errors
	CodeDefParse     = "DEF_001" // Definition failed to parse
	CodeDefInvalid   = "DEF_002" // Definition failed validation
	CodeDefNotFound  = "DEF_003" // Workflow not found
	CodeDefDuplicate = "DEF_004" // Duplicate step ID

	// Placeholder errors
	CodePlaceholderUnresolved = "VAR_001" // Token has no value in context

	// Command errors
	CodeCommandUnknown  = "CMD_001" // Unrecognized (type, action)
	CodeCommandFailed   = "CMD_002" // Non-zero exit code
	CodeCommandTimedOut = "CMD_003" // Wall-clock timeout, process killed
	CodeCommandSpawn    = "CMD_004" // Subprocess could not be started

	// Cleanup errors
	CodeCleanupFailed = "CLEAN_001" // Cleanup command failed, resource may remain

	// Prerequisite errors
	CodePrereqNotMet = "PREREQ_001" // Step or run prerequisite not satisfied
)

// FlowError is the structured error type for rapsflow operations.
type FlowError struct {
	Code    string         `json:"code"`              // Error code (e.g., "CMD_002")
	Message string         `json:"message"`           // Human-readable message
	Details map[string]any `json:"details,omitempty"` // Context (step_id, resource, etc.)
	Cause   error          `json:"-"`                 // Wrapped error (not serialized)
}

// Error implements the error interface.
func (e *FlowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *FlowError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *FlowError) WithDetail(key string, value any) *FlowError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error.
func (e *FlowError) WithCause(err error) *FlowError {
	e.Cause = err
	return e
}

// MarshalJSON implements json.Marshaler with cause error message.
func (e *FlowError) MarshalJSON() ([]byte, error) {
	type alias FlowError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new FlowError.
func New(code, message string) *FlowError {
	return &FlowError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new FlowError with formatted message.
func Newf(code, format string, args ...any) *FlowError {
	return &FlowError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a FlowError.
func Wrap(code, message string, err error) *FlowError {
	return &FlowError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted FlowError.
func Wrapf(code string, err error, format string, args ...any) *FlowError {
	return &FlowError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// --- Definition Errors ---

// DefParseError creates an error for a definition that failed to parse.
func DefParseError(path string, err error) *FlowError {
	return Wrap(CodeDefParse, "failed to parse workflow definition", err).
		WithDetail("path", path)
}

// DefInvalid creates an error for a definition that failed validation.
func DefInvalid(workflowID string, err error) *FlowError {
	return Wrap(CodeDefInvalid, "invalid workflow definition", err).
		WithDetail("workflow_id", workflowID)
}

// DefNotFound creates an error for a missing workflow.
func DefNotFound(workflowID string) *FlowError {
	return Newf(CodeDefNotFound, "workflow not found: %s", workflowID).
		WithDetail("workflow_id", workflowID)
}

// DefDuplicateWorkflow creates an error for a workflow ID claimed by two
// definition files.
func DefDuplicateWorkflow(workflowID, firstPath, secondPath string) *FlowError {
	return Newf(CodeDefDuplicate, "workflow id %q defined in both %s and %s", workflowID, firstPath, secondPath).
		WithDetail("workflow_id", workflowID).
		WithDetail("first_path", firstPath).
		WithDetail("second_path", secondPath)
}

// --- Placeholder Errors ---

// UnresolvedPlaceholder creates an error for a token with no value in the
// execution context. Raised before any command runs, since partial execution
// with bad placeholders would create untracked resources.
func UnresolvedPlaceholder(token, stepID string) *FlowError {
	return Newf(CodePlaceholderUnresolved, "unresolved placeholder {%s} in step %s", token, stepID).
		WithDetail("token", token).
		WithDetail("step_id", stepID)
}

// --- Command Errors ---

// UnknownCommand creates an error for an unrecognized (type, action) pair.
func UnknownCommand(cmdType, action string) *FlowError {
	return Newf(CodeCommandUnknown, "unknown command: %s/%s", cmdType, action).
		WithDetail("type", cmdType).
		WithDetail("action", action)
}

// CommandFailed creates an error for a non-zero exit code.
func CommandFailed(stepID string, exitCode int, stderr string) *FlowError {
	return Newf(CodeCommandFailed, "command failed in step %s (exit %d)", stepID, exitCode).
		WithDetail("step_id", stepID).
		WithDetail("exit_code", exitCode).
		WithDetail("stderr", stderr)
}

// CommandTimedOut creates an error for a command that exceeded its timeout.
func CommandTimedOut(stepID string, timeout time.Duration) *FlowError {
	return Newf(CodeCommandTimedOut, "command timed out in step %s after %s", stepID, timeout).
		WithDetail("step_id", stepID).
		WithDetail("timeout", timeout.String())
}

// CommandSpawn creates an error for a subprocess that could not be started.
func CommandSpawn(binary string, err error) *FlowError {
	return Wrap(CodeCommandSpawn, "failed to start command", err).
		WithDetail("binary", binary)
}

// --- Cleanup Errors ---

// CleanupFailed creates an error for a cleanup command that did not release
// its resource. Surfaced as a warning; never escalates the run status.
func CleanupFailed(kind, identifier, detail string) *FlowError {
	return Newf(CodeCleanupFailed, "cleanup failed for %s %s", kind, identifier).
		WithDetail("kind", kind).
		WithDetail("identifier", identifier).
		WithDetail("detail", detail)
}

// --- Prerequisite Errors ---

// PrerequisiteNotMet creates an error for an unsatisfied prerequisite.
func PrerequisiteNotMet(stepID, reason string) *FlowError {
	return Newf(CodePrereqNotMet, "prerequisite not met for step %s: %s", stepID, reason).
		WithDetail("step_id", stepID).
		WithDetail("reason", reason)
}

// HasCode checks if an error is a FlowError with the given code.
// It handles wrapped errors by unwrapping to find a FlowError.
func HasCode(err error, code string) bool {
	var ferr *FlowError
	if errors.As(err, &ferr) {
		return ferr.Code == code
	}
	return false
}

// Code returns the error code if err is a FlowError, empty string otherwise.
// It handles wrapped errors by unwrapping to find a FlowError.
func Code(err error) string {
	var ferr *FlowError
	if errors.As(err, &ferr) {
		return ferr.Code
	}
	return ""
}
