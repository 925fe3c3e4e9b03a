package models

import "strings"

// StepStatus is the lifecycle state of a PlanStep. Once a step reaches
// Completed or Failed it is terminal: the Planning Engine never transitions
// it again for that step instance.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepBlocked    StepStatus = "blocked"
)

// PlanStep is one unit of work in a Plan: either a tool invocation
// (ToolName set) or an LM generation (ToolName empty).
//
// Invariants: ToolArgs is never nil (callers get an empty map, never a nil
// one); ID is unique within the owning Plan; DependsOn refers only to step
// IDs within the same Plan.
type PlanStep struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	ToolName    string         `json:"tool_name,omitempty"`
	ToolArgs    map[string]any `json:"tool_args"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Status      StepStatus     `json:"status"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// HasTool reports whether this step dispatches to a registered tool rather
// than asking the LM to generate content directly.
func (s *PlanStep) HasTool() bool {
	return s != nil && strings.TrimSpace(s.ToolName) != ""
}

// PlanStatus is the fold of a Plan's step statuses; see FoldStatus.
type PlanStatus string

const (
	PlanPending    PlanStatus = "pending"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanFailed     PlanStatus = "failed"
)

// Plan is the ordered sequence of steps the Planning Engine intends to
// execute to satisfy a goal. Step insertion order defines execution order
// when a step carries no DependsOn. A Plan always has at least one step
// once created (CreatePlan inserts a fallback step when the LM returns
// none).
type Plan struct {
	ID       string         `json:"id"`
	Goal     string         `json:"goal"`
	Steps    []*PlanStep    `json:"steps"`
	Status   PlanStatus     `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FoldStatus computes a Plan's status from its steps' statuses. The first
// matching condition wins:
//
//  1. any step Failed            -> Failed
//  2. all steps Completed        -> Completed
//  3. any step InProgress        -> InProgress
//  4. some step Pending          -> Pending
//  5. otherwise                  -> InProgress
func FoldStatus(steps []*PlanStep) PlanStatus {
	if len(steps) == 0 {
		return PlanPending
	}
	allCompleted := true
	anyInProgress := false
	anyPending := false
	for _, s := range steps {
		switch s.Status {
		case StepFailed:
			return PlanFailed
		case StepInProgress:
			anyInProgress = true
			allCompleted = false
		case StepPending:
			anyPending = true
			allCompleted = false
		case StepCompleted:
			// no-op, keeps allCompleted true
		default:
			allCompleted = false
		}
	}
	if allCompleted {
		return PlanCompleted
	}
	if anyInProgress {
		return PlanInProgress
	}
	if anyPending {
		return PlanPending
	}
	return PlanInProgress
}

// RefreshStatus recomputes and stores p.Status from its current steps.
func (p *Plan) RefreshStatus() {
	p.Status = FoldStatus(p.Steps)
}

// StepByID returns the step with the given id, or nil if not present.
func (p *Plan) StepByID(id string) *PlanStep {
	for _, s := range p.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// NextExecutableStep returns the first step in insertion order whose
// status is Pending and whose every dependency is Completed. Returns nil
// if no such step exists.
func (p *Plan) NextExecutableStep() *PlanStep {
	for _, s := range p.Steps {
		if s.Status != StepPending {
			continue
		}
		if stepDependenciesSatisfied(p, s) {
			return s
		}
	}
	return nil
}

func stepDependenciesSatisfied(p *Plan, s *PlanStep) bool {
	for _, depID := range s.DependsOn {
		dep := p.StepByID(depID)
		if dep == nil || dep.Status != StepCompleted {
			return false
		}
	}
	return true
}
