// Package resource tracks cloud resources created during a workflow run so
// cleanup can tear them down afterwards.
package resource

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raps-stack/rapsflow/internal/types"
)

// Tracker records resources created by workflow steps, in creation order.
// It is scoped to the process; entries carry the run ID they belong to.
// Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	resources []types.TrackedResource
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record registers a created resource and returns the tracked entry.
func (t *Tracker) Record(runID, stepID string, kind types.ResourceKind, identifier string) types.TrackedResource {
	t.mu.Lock()
	defer t.mu.Unlock()

	res := types.TrackedResource{
		ID:         uuid.NewString(),
		Kind:       kind,
		Identifier: identifier,
		StepID:     stepID,
		RunID:      runID,
		CreatedAt:  time.Now(),
	}
	t.resources = append(t.resources, res)
	return res
}

// List returns the tracked resources for a run in creation order.
// The returned slice is a copy.
func (t *Tracker) List(runID string) []types.TrackedResource {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []types.TrackedResource
	for _, res := range t.resources {
		if res.RunID == runID {
			out = append(out, res)
		}
	}
	return out
}

// Release removes a resource once its cleanup has succeeded.
// Releasing an unknown ID is a no-op.
func (t *Tracker) Release(resourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, res := range t.resources {
		if res.ID == resourceID {
			t.resources = append(t.resources[:i], t.resources[i+1:]...)
			return
		}
	}
}

// Count returns the number of tracked resources for a run.
func (t *Tracker) Count(runID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, res := range t.resources {
		if res.RunID == runID {
			n++
		}
	}
	return n
}
