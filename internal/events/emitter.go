package events

import "github.com/haasonsaas/agentrunner/pkg/models"

// Emitter publishes well-known Event shapes onto a Bus, matching the
// seven event types the Planning Engine, Tool Registry, and LM
// Orchestrator raise during one request.
type Emitter struct {
	bus *Bus
}

// NewEmitter wraps a Bus with typed convenience constructors.
func NewEmitter(bus *Bus) *Emitter {
	return &Emitter{bus: bus}
}

func (e *Emitter) publish(typ models.EventType, data map[string]any) {
	if e == nil || e.bus == nil {
		return
	}
	e.bus.Publish(NewEvent(typ, data, nil))
}

// PlanGenerated is emitted when the LM Orchestrator produces a new Plan.
func (e *Emitter) PlanGenerated(planID, goal string, stepCount int) {
	e.publish(models.EventPlanGeneration, map[string]any{
		"plan_id":    planID,
		"goal":       goal,
		"step_count": stepCount,
	})
}

// PlanChanged is emitted whenever the Planning Engine rebuilds a plan
// after a re-plan call.
func (e *Emitter) PlanChanged(planID string, removed, added int) {
	e.publish(models.EventPlanChange, map[string]any{
		"plan_id": planID,
		"removed": removed,
		"added":   added,
	})
}

// ToolInput is emitted before a tool's Execute runs.
func (e *Emitter) ToolInput(toolName string, args map[string]any) {
	e.publish(models.EventToolInput, map[string]any{
		"tool_name": toolName,
		"args":      args,
	})
}

// ToolOutput is emitted after a tool's Execute returns.
func (e *Emitter) ToolOutput(toolName string, success bool, data any, errMsg string) {
	e.publish(models.EventToolOutput, map[string]any{
		"tool_name": toolName,
		"success":   success,
		"data":      data,
		"error":     errMsg,
	})
}

// ToolErrorEvent is emitted when a tool fails, separately from ToolOutput,
// so recovery-path consumers can watch for it specifically.
func (e *Emitter) ToolErrorEvent(toolName, stepID, errMsg string) {
	e.publish(models.EventToolError, map[string]any{
		"tool_name": toolName,
		"step_id":   stepID,
		"error":     errMsg,
	})
}

// ExecutionStep is emitted around each PlanStep transition.
func (e *Emitter) ExecutionStep(stepID, description string, status models.StepStatus) {
	e.publish(models.EventExecutionStep, map[string]any{
		"step_id":     stepID,
		"description": description,
		"status":      string(status),
	})
}

// FinalSolution is emitted once per inbound message, carrying the response
// text the Agent Facade returns to the caller.
func (e *Emitter) FinalSolution(response string, success bool) {
	e.publish(models.EventFinalSolution, map[string]any{
		"response": response,
		"success":  success,
	})
}
