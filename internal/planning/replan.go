package planning

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentrunner/internal/orchestrator"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

// replan asks the Orchestrator whether the plan still fits after step
// ran, and reconstructs e.plan from the reply when it does. A nil
// Orchestrator reply leaves the plan untouched.
func (e *Engine) replan(ctx context.Context, step *models.PlanStep) {
	parsed := e.orchestrator.RePlan(ctx, e.goal, e.plan, e.executed, fmt.Sprint(step.Result), e.promptCtx)
	if parsed == nil {
		return
	}
	e.reconstructPlan(parsed)
}

// reconstructPlan rebuilds e.plan.Steps from a re-plan reply:
//
//  1. steps the reply names by an id that is already completed in e.plan,
//     and whose returned status is not "pending", are kept as-is (the
//     existing *PlanStep object, not rebuilt from the reply);
//  2. every other step is built fresh from the reply, generating an id
//     when the reply omitted one;
//  3. the reply's status string (default "pending") maps to StepStatus;
//  4. the plan's reasoning metadata is overwritten from the reply;
//  5. if no step in the rebuilt plan is pending, the plan is marked
//     completed outright rather than left to FoldStatus.
func (e *Engine) reconstructPlan(parsed *orchestrator.ParsedPlan) {
	completed := make(map[string]*models.PlanStep, len(e.plan.Steps))
	for _, s := range e.plan.Steps {
		if s.Status == models.StepCompleted {
			completed[s.ID] = s
		}
	}

	oldCount := len(e.plan.Steps)
	newSteps := make([]*models.PlanStep, 0, len(parsed.Steps))

	for _, spec := range parsed.Steps {
		id := spec.ID
		if id == "" {
			id = uuid.NewString()
			e.logger.Debug("planning: generated id for re-plan step", "description", spec.Description)
		}

		if existing, ok := completed[id]; ok && spec.Status != "pending" && spec.Status != "" {
			newSteps = append(newSteps, existing)
			continue
		}

		args := spec.ToolArgs
		if args == nil {
			args = map[string]any{}
		}
		newSteps = append(newSteps, &models.PlanStep{
			ID:          id,
			Description: spec.Description,
			ToolName:    spec.ToolName,
			ToolArgs:    args,
			DependsOn:   spec.DependsOn,
			Status:      stepStatusFromSpec(spec.Status),
		})
	}

	e.plan.Steps = newSteps
	if e.plan.Metadata == nil {
		e.plan.Metadata = map[string]any{}
	}
	e.plan.Metadata["reasoning"] = parsed.Reasoning

	anyPending := false
	for _, s := range e.plan.Steps {
		if s.Status == models.StepPending {
			anyPending = true
			break
		}
	}
	if !anyPending {
		e.plan.Status = models.PlanCompleted
	} else {
		e.plan.RefreshStatus()
	}

	if e.emitter != nil {
		e.emitter.PlanChanged(e.plan.ID, oldCount, len(newSteps))
	}
}

func stepStatusFromSpec(s string) models.StepStatus {
	switch s {
	case "completed":
		return models.StepCompleted
	case "failed":
		return models.StepFailed
	case "in_progress":
		return models.StepInProgress
	case "blocked":
		return models.StepBlocked
	default:
		return models.StepPending
	}
}
