package types

import (
	"testing"
	"time"
)

func TestRunLifecycle(t *testing.T) {
	run := NewRun("run-1", "wf-1", time.Now())
	if run.Status != RunPending {
		t.Fatalf("new run status = %s, want pending", run.Status)
	}

	if err := run.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if run.Status != RunRunning {
		t.Errorf("status after Start = %s, want running", run.Status)
	}
	if err := run.Start(); err == nil {
		t.Errorf("second Start() should fail")
	}

	if err := run.StartCleanup(RunCompleted); err != nil {
		t.Fatalf("StartCleanup() error: %v", err)
	}
	if run.Status != RunCleaningUp {
		t.Errorf("status = %s, want cleaning_up", run.Status)
	}

	run.FinishCleanup(true, nil)
	if run.Status != RunCompleted {
		t.Errorf("terminal status = %s, want completed", run.Status)
	}
	if !run.CleanupComplete {
		t.Errorf("CleanupComplete should be true")
	}
	if run.DoneAt == nil {
		t.Errorf("DoneAt should be stamped")
	}
}

func TestFinishCleanupRestoresFailure(t *testing.T) {
	run := NewRun("run-1", "wf-1", time.Now())
	if err := run.Start(); err != nil {
		t.Fatal(err)
	}

	if err := run.StartCleanup(RunFailed); err != nil {
		t.Fatal(err)
	}

	// A successful cleanup never upgrades a failed run.
	run.FinishCleanup(true, nil)
	if run.Status != RunFailed {
		t.Errorf("status = %s, want failed", run.Status)
	}
	if !run.CleanupComplete {
		t.Errorf("CleanupComplete should reflect the cleanup, not the run")
	}
}

func TestStartCleanupRejectsNonTerminalOutcome(t *testing.T) {
	run := NewRun("run-1", "wf-1", time.Now())
	if err := run.Start(); err != nil {
		t.Fatal(err)
	}
	if err := run.StartCleanup(RunRunning); err == nil {
		t.Errorf("StartCleanup(running) should fail")
	}
}

func TestRunSucceeded(t *testing.T) {
	run := NewRun("run-1", "wf-1", time.Now())
	run.RecordStep(StepResult{StepID: "a", Status: StepSucceeded})
	run.RecordStep(StepResult{StepID: "b", Status: StepSkipped})
	if !run.Succeeded() {
		t.Errorf("skipped steps do not count as failures")
	}

	run.RecordStep(StepResult{StepID: "c", Status: StepTimedOut})
	if run.Succeeded() {
		t.Errorf("timed out step should fail the run")
	}
}

func TestRunStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunPending, false},
		{RunRunning, false},
		{RunCleaningUp, false},
		{RunCompleted, true},
		{RunFailed, true},
		{RunAborted, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
		if !tt.status.Valid() {
			t.Errorf("%s should be a valid status", tt.status)
		}
	}
	if RunStatus("exploded").Valid() {
		t.Errorf("unknown status should not be valid")
	}
}

func TestWorkflowDefinitionStep(t *testing.T) {
	def := WorkflowDefinition{
		Steps: []StepDefinition{
			{ID: "a", Name: "A"},
			{ID: "b", Name: "B"},
		},
	}
	step, ok := def.Step("b")
	if !ok || step.Name != "B" {
		t.Errorf("Step(b) = %v, %v", step, ok)
	}
	if _, ok := def.Step("zzz"); ok {
		t.Errorf("Step(zzz) should not be found")
	}
}

func TestRetryPolicyBudget(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		def    int
		want   int
	}{
		{"declared wins", RetryPolicy{Attempts: 3}, 1, 3},
		{"default applies", RetryPolicy{}, 2, 2},
		{"floor of one", RetryPolicy{}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Budget(tt.def); got != tt.want {
				t.Errorf("Budget(%d) = %d, want %d", tt.def, got, tt.want)
			}
		})
	}
}

func TestWorkflowDefinitionValidate(t *testing.T) {
	valid := func() WorkflowDefinition {
		return WorkflowDefinition{
			Metadata: Metadata{ID: "wf", Name: "Workflow", Category: CategoryObjectStorage},
			Steps: []StepDefinition{
				{ID: "a", Name: "A", Command: CommandSpec{Type: "bucket", Action: "create"}},
				{ID: "b", Name: "B", Command: CommandSpec{Type: "object", Action: "upload"}},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*WorkflowDefinition)
		wantErr bool
	}{
		{"valid", func(d *WorkflowDefinition) {}, false},
		{"missing id", func(d *WorkflowDefinition) { d.Metadata.ID = "" }, true},
		{"bad category", func(d *WorkflowDefinition) { d.Metadata.Category = "cat-videos" }, true},
		{"no steps", func(d *WorkflowDefinition) { d.Steps = nil }, true},
		{"duplicate step id", func(d *WorkflowDefinition) { d.Steps[1].ID = "a" }, true},
		{"unknown requires", func(d *WorkflowDefinition) { d.Steps[1].Requires = []string{"zzz"} }, true},
		{"known requires", func(d *WorkflowDefinition) { d.Steps[1].Requires = []string{"a"} }, false},
		{"bad output source", func(d *WorkflowDefinition) {
			d.Steps[0].Outputs = map[string]OutputSource{"x": {Source: "file"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid()
			tt.mutate(&def)
			err := def.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
