package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/raps-stack/rapsflow/internal/errors"
	"github.com/raps-stack/rapsflow/internal/types"
)

// sequentialUUIDs returns a source yielding uuid-1, uuid-2, ...
func sequentialUUIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("uuid-%d", n)
	}
}

func testContext(vars map[string]string) *ExecutionContext {
	return NewExecutionContext("wf", vars,
		WithUUIDSource(sequentialUUIDs()),
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
}

func TestResolveStepParams(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		outputs map[string]string
		params  map[string]string
		want    map[string]string
		wantErr bool
	}{
		{
			name:   "run variable",
			vars:   map[string]string{"region": "EMEA"},
			params: map[string]string{"region": "{region}"},
			want:   map[string]string{"region": "EMEA"},
		},
		{
			name:   "timestamp is run start",
			params: map[string]string{"name": "bucket-{timestamp}"},
			want:   map[string]string{"name": "bucket-1700000000"},
		},
		{
			name:    "step output reference",
			outputs: map[string]string{"create-bucket.bucket_name": "demo-1"},
			params:  map[string]string{"bucket_name": "{create-bucket.bucket_name}"},
			want:    map[string]string{"bucket_name": "demo-1"},
		},
		{
			name:   "literal text untouched",
			params: map[string]string{"format": "svf2"},
			want:   map[string]string{"format": "svf2"},
		},
		{
			name:    "unresolved token fails",
			params:  map[string]string{"bucket_name": "{missing}"},
			wantErr: true,
		},
		{
			name:   "mixed literal and token",
			vars:   map[string]string{"suffix": "demo"},
			params: map[string]string{"bucket_name": "rapsflow-{suffix}-bucket"},
			want:   map[string]string{"bucket_name": "rapsflow-demo-bucket"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(tt.vars)
			for key, value := range tt.outputs {
				ctx.outputs[key] = value
			}

			got, err := ResolveStepParams(ctx, "step-1", tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveStepParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.HasCode(err, errors.CodePlaceholderUnresolved) {
					t.Errorf("error code = %s, want VAR_001", errors.Code(err))
				}
				return
			}
			for key, want := range tt.want {
				if got[key] != want {
					t.Errorf("param %s = %q, want %q", key, got[key], want)
				}
			}
		})
	}
}

func TestResolveStepParamsSharesUUIDWithinStep(t *testing.T) {
	ctx := testContext(nil)

	// The context itself consumed uuid-1 for the run ID.
	got, err := ResolveStepParams(ctx, "step-1", map[string]string{
		"bucket_name": "bucket-{uuid}",
		"label":       "label-{uuid}",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got["bucket_name"] != "bucket-uuid-2" {
		t.Errorf("bucket_name = %q", got["bucket_name"])
	}
	if got["label"] != "label-uuid-2" {
		t.Errorf("label = %q, every {uuid} in one step must share a value", got["label"])
	}

	// A second step mints a fresh value.
	next, err := ResolveStepParams(ctx, "step-2", map[string]string{"name": "{uuid}"})
	if err != nil {
		t.Fatal(err)
	}
	if next["name"] != "uuid-3" {
		t.Errorf("second step uuid = %q, want uuid-3", next["name"])
	}
}

func TestResolveCleanupParams(t *testing.T) {
	ctx := testContext(map[string]string{"region": "EMEA"})
	res := &types.TrackedResource{
		ID:         "tracked-1",
		Kind:       types.ResourceBucket,
		Identifier: "demo-bucket",
		StepID:     "create-bucket",
	}

	got, err := ResolveCleanupParams(ctx, res, map[string]string{
		"bucket_name": "{resource.id}",
		"kind":        "{resource.kind}",
		"region":      "{region}",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got["bucket_name"] != "demo-bucket" {
		t.Errorf("resource.id = %q, want the external identifier", got["bucket_name"])
	}
	if got["kind"] != "bucket" {
		t.Errorf("resource.kind = %q", got["kind"])
	}
	if got["region"] != "EMEA" {
		t.Errorf("run vars should stay visible in cleanup scope")
	}
}

func TestResolveCleanupParamsGlobalScope(t *testing.T) {
	ctx := testContext(nil)

	_, err := ResolveCleanupParams(ctx, nil, map[string]string{"bucket_name": "{resource.id}"})
	if err == nil {
		t.Error("resource scope tokens must not resolve for global cleanup commands")
	}
}
