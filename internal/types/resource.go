package types

import "time"

// ResourceKind classifies the external artifacts a command can create.
// The set is closed; the raps command registry is the only producer.
type ResourceKind string

const (
	ResourceBucket      ResourceKind = "bucket"
	ResourceObject      ResourceKind = "object"
	ResourceTranslation ResourceKind = "translation"
	ResourceFolder      ResourceKind = "folder"
	ResourceWorkItem    ResourceKind = "work-item"
)

// TrackedResource is one external artifact created by a step and recorded
// so it can be torn down later. Owned by the resource tracker for the
// lifetime of one run.
type TrackedResource struct {
	ID         string       `yaml:"id"` // tracker-assigned, unique within the process
	Kind       ResourceKind `yaml:"kind"`
	Identifier string       `yaml:"identifier"` // external name: bucket name, object key, URN
	StepID     string       `yaml:"step_id"`    // creating step
	RunID      string       `yaml:"run_id"`
	CreatedAt  time.Time    `yaml:"created_at"`
}

// CleanupStatus is the outcome of one cleanup attempt.
type CleanupStatus string

const (
	CleanupSucceeded CleanupStatus = "succeeded"
	CleanupFailed    CleanupStatus = "failed"
)

// CleanupResult records one cleanup command attempt. Cleanup failures are
// surfaced to the user but never escalate into the run's overall status.
type CleanupResult struct {
	ResourceID string        `yaml:"resource_id,omitempty"` // empty for global cleanup commands
	Kind       ResourceKind  `yaml:"kind,omitempty"`
	Identifier string        `yaml:"identifier,omitempty"`
	Status     CleanupStatus `yaml:"status"`
	Detail     string        `yaml:"detail,omitempty"`
	Duration   time.Duration `yaml:"duration"`
}
