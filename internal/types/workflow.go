// Package types defines the core data model for rapsflow: workflow
// definitions, steps, commands, runs, and tracked resources.
package types

import (
	"fmt"
)

// Category groups workflows by the platform service they demonstrate.
type Category string

const (
	CategoryObjectStorage    Category = "object-storage"
	CategoryModelDerivative  Category = "model-derivative"
	CategoryDataManagement   Category = "data-management"
	CategoryDesignAutomation Category = "design-automation"
	CategoryEndToEnd         Category = "end-to-end"
)

// Valid returns true if this is a recognized category.
func (c Category) Valid() bool {
	switch c {
	case CategoryObjectStorage, CategoryModelDerivative, CategoryDataManagement,
		CategoryDesignAutomation, CategoryEndToEnd:
		return true
	}
	return false
}

// Prerequisite describes something a workflow needs before it can run.
// Prerequisites are informational; checking them is the caller's job.
type Prerequisite struct {
	Type        string `yaml:"type"` // auth | tool | assets | permissions
	Description string `yaml:"description"`
}

// CostEstimate describes the cloud cost a workflow may incur.
type CostEstimate struct {
	Description string  `yaml:"description"`
	MaxCostUSD  float64 `yaml:"max_cost_usd"`
}

// Metadata holds the descriptive header of a workflow definition.
type Metadata struct {
	ID                string         `yaml:"id"`
	Name              string         `yaml:"name"`
	Description       string         `yaml:"description"`
	Category          Category       `yaml:"category"`
	EstimatedDuration Duration       `yaml:"estimated_duration,omitempty"`
	CostEstimate      *CostEstimate  `yaml:"cost_estimate,omitempty"`
	Prerequisites     []Prerequisite `yaml:"prerequisites,omitempty"`
	RequiredAssets    []string       `yaml:"required_assets,omitempty"`
}

// CleanupDefinition is one teardown command template. Its command params may
// reference run variables, step outputs, and the per-resource scope
// ({resource.id}, {resource.kind}) when it targets a tracked resource kind.
type CleanupDefinition struct {
	Command CommandSpec `yaml:"command"`
}

// WorkflowDefinition is an immutable, validated workflow document:
// ordered steps plus ordered cleanup command templates.
type WorkflowDefinition struct {
	Metadata Metadata            `yaml:"metadata"`
	Steps    []StepDefinition    `yaml:"steps"`
	Cleanup  []CleanupDefinition `yaml:"cleanup,omitempty"`

	// Path is where the definition was loaded from. Not part of the document.
	Path string `yaml:"-"`
}

// Validate checks the structural invariants of the definition:
// non-empty identity, at least one step, unique step IDs.
func (d *WorkflowDefinition) Validate() error {
	if d.Metadata.ID == "" {
		return fmt.Errorf("workflow id is required")
	}
	if d.Metadata.Name == "" {
		return fmt.Errorf("workflow %s: name is required", d.Metadata.ID)
	}
	if !d.Metadata.Category.Valid() {
		return fmt.Errorf("workflow %s: unknown category %q", d.Metadata.ID, d.Metadata.Category)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("workflow %s: at least one step is required", d.Metadata.ID)
	}

	seen := make(map[string]bool, len(d.Steps))
	for _, step := range d.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("workflow %s: %w", d.Metadata.ID, err)
		}
		if seen[step.ID] {
			return fmt.Errorf("workflow %s: duplicate step id %q", d.Metadata.ID, step.ID)
		}
		seen[step.ID] = true
	}

	for _, req := range d.Steps {
		for _, dep := range req.Requires {
			if !seen[dep] {
				return fmt.Errorf("workflow %s: step %s requires unknown step %q", d.Metadata.ID, req.ID, dep)
			}
		}
	}

	return nil
}

// Step returns the step with the given ID, if present.
func (d *WorkflowDefinition) Step(id string) (*StepDefinition, bool) {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i], true
		}
	}
	return nil, false
}
