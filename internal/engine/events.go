package engine

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/raps-stack/rapsflow/internal/types"
)

// EventKind discriminates execution events.
type EventKind string

const (
	EventRunStarted      EventKind = "run_started"
	EventStepStarted     EventKind = "step_started"
	EventStepCompleted   EventKind = "step_completed"
	EventResourceTracked EventKind = "resource_tracked"
	EventCleanupStarted  EventKind = "cleanup_started"
	EventCleanupResult   EventKind = "cleanup_result"
	EventRunCompleted    EventKind = "run_completed"
)

// Event is one observation of run progress. Only the fields relevant to
// the kind are populated.
type Event struct {
	Kind       EventKind
	Time       time.Time
	RunID      string
	WorkflowID string
	StepID     string

	Step     *types.StepResult
	Resource *types.TrackedResource
	Cleanup  *types.CleanupResult
	Run      *types.Run
}

// Reporter fans execution events out to one consumer over a buffered
// channel. Emission is fire-and-forget: when the consumer falls behind and
// the buffer fills, events are dropped rather than blocking or slowing
// execution. Dropped events are counted.
type Reporter struct {
	ch      chan Event
	dropped atomic.Int64
}

// NewReporter creates a reporter with the given buffer capacity.
func NewReporter(buffer int) *Reporter {
	if buffer <= 0 {
		buffer = 256
	}
	return &Reporter{ch: make(chan Event, buffer)}
}

// Emit publishes an event without blocking. Stamps the event time.
func (r *Reporter) Emit(ev Event) {
	if r == nil {
		return
	}
	ev.Time = time.Now()
	select {
	case r.ch <- ev:
	default:
		r.dropped.Add(1)
	}
}

// Events returns the consumer side of the stream.
func (r *Reporter) Events() <-chan Event {
	return r.ch
}

// Dropped returns how many events were discarded due to a full buffer.
func (r *Reporter) Dropped() int64 {
	return r.dropped.Load()
}

// Close ends the stream. Emit must not be called after Close.
func (r *Reporter) Close() {
	close(r.ch)
}

// LogEvents drains an event stream into a logger. Used as the consumer for
// non-interactive runs. Returns when the stream closes.
func LogEvents(logger *slog.Logger, events <-chan Event) {
	for ev := range events {
		attrs := []any{"run_id", ev.RunID, "workflow", ev.WorkflowID}
		if ev.StepID != "" {
			attrs = append(attrs, "step", ev.StepID)
		}
		switch ev.Kind {
		case EventStepCompleted:
			if ev.Step != nil {
				attrs = append(attrs, "status", ev.Step.Status, "attempts", ev.Step.Attempts)
			}
		case EventResourceTracked:
			if ev.Resource != nil {
				attrs = append(attrs, "kind", ev.Resource.Kind, "identifier", ev.Resource.Identifier)
			}
		case EventCleanupResult:
			if ev.Cleanup != nil {
				attrs = append(attrs, "kind", ev.Cleanup.Kind, "identifier", ev.Cleanup.Identifier, "status", ev.Cleanup.Status)
			}
		case EventRunCompleted:
			if ev.Run != nil {
				attrs = append(attrs, "status", ev.Run.Status, "cleanup_complete", ev.Run.CleanupComplete)
			}
		}
		logger.Info(string(ev.Kind), attrs...)
	}
}
