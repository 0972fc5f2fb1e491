package errors

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestFlowErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *FlowError
		want string
	}{
		{
			name: "code and message",
			err:  New(CodeDefNotFound, "workflow missing"),
			want: "[DEF_003] workflow missing",
		},
		{
			name: "with cause",
			err:  Wrap(CodeDefParse, "parsing definition", fmt.Errorf("bad yaml")),
			want: "[DEF_001] parsing definition: bad yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(CodeCommandFailed, "command failed", cause)
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() did not return the cause")
	}

	bare := New(CodeCommandFailed, "no cause")
	if bare.Unwrap() != nil {
		t.Errorf("Unwrap() on bare error should be nil")
	}
}

func TestHasCode(t *testing.T) {
	err := UnknownCommand("bucket", "explode")
	if !HasCode(err, CodeCommandUnknown) {
		t.Errorf("HasCode should match CMD_001")
	}
	if HasCode(err, CodeCommandFailed) {
		t.Errorf("HasCode should not match CMD_002")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !HasCode(wrapped, CodeCommandUnknown) {
		t.Errorf("HasCode should match through wrapping")
	}

	if HasCode(nil, CodeCommandUnknown) {
		t.Errorf("HasCode(nil) should be false")
	}
}

func TestCode(t *testing.T) {
	if got := Code(DefNotFound("x")); got != CodeDefNotFound {
		t.Errorf("Code() = %q, want %q", got, CodeDefNotFound)
	}
	if got := Code(fmt.Errorf("plain")); got != "" {
		t.Errorf("Code(plain) = %q, want empty", got)
	}
}

func TestConstructorDetails(t *testing.T) {
	err := CommandFailed("create-bucket", 3, "boom")
	if err.Details["step_id"] != "create-bucket" {
		t.Errorf("missing step_id detail")
	}
	if err.Details["exit_code"] != 3 {
		t.Errorf("missing exit_code detail")
	}

	timeout := CommandTimedOut("upload", 5*time.Minute)
	if !HasCode(timeout, CodeCommandTimedOut) {
		t.Errorf("expected CMD_003")
	}
	if !strings.Contains(timeout.Message, "5m") {
		t.Errorf("timeout message should name the limit, got %q", timeout.Message)
	}
}

func TestCleanupAndDefinitionConstructors(t *testing.T) {
	cleanup := CleanupFailed("bucket", "demo-bucket", "access denied")
	if !HasCode(cleanup, CodeCleanupFailed) {
		t.Errorf("expected CLEAN_001, got %s", Code(cleanup))
	}
	if cleanup.Details["identifier"] != "demo-bucket" {
		t.Errorf("missing identifier detail")
	}

	dup := DefDuplicateWorkflow("bucket-lifecycle", "a.yaml", "b.yaml")
	if !HasCode(dup, CodeDefDuplicate) {
		t.Errorf("expected DEF_004, got %s", Code(dup))
	}
	if dup.Details["second_path"] != "b.yaml" {
		t.Errorf("missing second_path detail")
	}
}

func TestMarshalJSON(t *testing.T) {
	err := UnresolvedPlaceholder("{bucket}", "create-bucket").
		WithCause(fmt.Errorf("no such variable"))

	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("marshal: %v", jerr)
	}

	var decoded map[string]any
	if jerr := json.Unmarshal(data, &decoded); jerr != nil {
		t.Fatalf("unmarshal: %v", jerr)
	}
	if decoded["code"] != CodePlaceholderUnresolved {
		t.Errorf("code = %v, want %s", decoded["code"], CodePlaceholderUnresolved)
	}
	if decoded["cause"] != "no such variable" {
		t.Errorf("cause = %v", decoded["cause"])
	}
}
