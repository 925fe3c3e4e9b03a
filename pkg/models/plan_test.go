package models

import "testing"

func step(id string, status StepStatus, deps ...string) *PlanStep {
	return &PlanStep{ID: id, Status: status, ToolArgs: map[string]any{}, DependsOn: deps}
}

func TestFoldStatus(t *testing.T) {
	tests := []struct {
		name  string
		steps []*PlanStep
		want  PlanStatus
	}{
		{"empty", nil, PlanPending},
		{"any failed wins", []*PlanStep{step("1", StepCompleted), step("2", StepFailed)}, PlanFailed},
		{"all completed", []*PlanStep{step("1", StepCompleted), step("2", StepCompleted)}, PlanCompleted},
		{"in progress", []*PlanStep{step("1", StepCompleted), step("2", StepInProgress)}, PlanInProgress},
		{"some pending", []*PlanStep{step("1", StepCompleted), step("2", StepPending)}, PlanPending},
		{"blocked only", []*PlanStep{step("1", StepBlocked)}, PlanInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FoldStatus(tt.steps); got != tt.want {
				t.Errorf("FoldStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextExecutableStep(t *testing.T) {
	p := &Plan{Steps: []*PlanStep{
		step("1", StepCompleted),
		step("2", StepPending, "1"),
		step("3", StepPending, "2"),
	}}
	next := p.NextExecutableStep()
	if next == nil || next.ID != "2" {
		t.Fatalf("expected step 2 executable, got %+v", next)
	}

	p.Steps[1].Status = StepCompleted
	next = p.NextExecutableStep()
	if next == nil || next.ID != "3" {
		t.Fatalf("expected step 3 executable, got %+v", next)
	}
}

func TestNextExecutableStepBlockedByDependency(t *testing.T) {
	p := &Plan{Steps: []*PlanStep{
		step("1", StepPending),
		step("2", StepPending, "1"),
	}}
	next := p.NextExecutableStep()
	if next == nil || next.ID != "1" {
		t.Fatalf("expected step 1 (no deps), got %+v", next)
	}
}

func TestNextExecutableStepNone(t *testing.T) {
	p := &Plan{Steps: []*PlanStep{step("1", StepCompleted), step("2", StepFailed)}}
	if next := p.NextExecutableStep(); next != nil {
		t.Fatalf("expected no executable step, got %+v", next)
	}
}
