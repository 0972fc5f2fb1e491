package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raps-stack/rapsflow/internal/types"
)

func TestReporterEmitNonBlocking(t *testing.T) {
	r := NewReporter(2)

	// No consumer. The buffer absorbs two events, the rest are dropped
	// without blocking.
	for i := 0; i < 5; i++ {
		r.Emit(Event{Kind: EventStepStarted})
	}

	assert.Equal(t, int64(3), r.Dropped())
	assert.Len(t, r.ch, 2)
}

func TestReporterNilSafe(t *testing.T) {
	var r *Reporter
	// An engine without a reporter emits into the void.
	r.Emit(Event{Kind: EventRunStarted})
}

func TestEngineEmitsEventSequence(t *testing.T) {
	inv := &fakeInvoker{}
	reporter := NewReporter(64)
	eng, _ := newTestEngine(t, inv, WithReporter(reporter))

	def := workflowOf(
		[]types.StepDefinition{bucketStep("create", "demo-bucket")},
		bucketCleanup(),
	)

	run, err := eng.Run(context.Background(), def, nil)
	require.NoError(t, err)
	reporter.Close()

	var kinds []EventKind
	for ev := range reporter.Events() {
		kinds = append(kinds, ev.Kind)
		assert.Equal(t, run.ID, ev.RunID)
		assert.False(t, ev.Time.IsZero())
	}

	assert.Equal(t, []EventKind{
		EventRunStarted,
		EventStepStarted,
		EventResourceTracked,
		EventStepCompleted,
		EventCleanupStarted,
		EventCleanupResult,
		EventRunCompleted,
	}, kinds)
	assert.Zero(t, reporter.Dropped())
}
