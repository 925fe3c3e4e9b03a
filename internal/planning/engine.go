// Package planning implements the plan-then-execute-then-replan loop: given
// a goal it asks the LM Orchestrator for a Plan, runs each step against the
// Tool Registry (or the LM directly for generation steps), and lets the
// Orchestrator revise the remaining steps after every execution.
package planning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentrunner/internal/events"
	"github.com/haasonsaas/agentrunner/internal/memory"
	"github.com/haasonsaas/agentrunner/internal/metrics"
	"github.com/haasonsaas/agentrunner/internal/orchestrator"
	"github.com/haasonsaas/agentrunner/internal/tools"
	"github.com/haasonsaas/agentrunner/internal/tracing"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

const fallbackDescription = "Analyze the request and respond to the user"

// Engine owns the lifecycle of exactly one Plan at a time: CreatePlan
// starts it, ExecuteNextStep/ExecutePlan drive it forward, and Reset clears
// it so the next CreatePlan starts clean. It is not safe for concurrent use
// by multiple goroutines against the same Plan.
type Engine struct {
	orchestrator *orchestrator.Orchestrator
	registry     *tools.Registry
	memory       *memory.Memory
	emitter      *events.Emitter
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       *tracing.Tracer

	goal      string
	promptCtx orchestrator.PromptContext
	plan      *models.Plan
	executed  []*models.PlanStep
}

// New constructs an Engine. memory and emitter may be nil to disable
// durable recording and eventing respectively; logger defaults to
// slog.Default() when nil.
func New(orch *orchestrator.Orchestrator, registry *tools.Registry, mem *memory.Memory, emitter *events.Emitter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		orchestrator: orch,
		registry:     registry,
		memory:       mem,
		emitter:      emitter,
		logger:       logger,
	}
}

// SetMetrics attaches a Metrics recorder. A nil m (the default) disables
// instrumentation.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// SetTracer attaches a Tracer. A nil t (the default) disables span
// creation.
func (e *Engine) SetTracer(t *tracing.Tracer) {
	e.tracer = t
}

// CreatePlan asks the Orchestrator to decompose goal into a Plan, becomes
// the Engine's active plan, and resets the executed-steps history. A Plan
// always has at least one step: when the Orchestrator returns none, a
// single fallback step is inserted.
func (e *Engine) CreatePlan(ctx context.Context, goal string, pc orchestrator.PromptContext) *models.Plan {
	parsed := e.orchestrator.GeneratePlan(ctx, goal, pc)

	plan := &models.Plan{
		ID:       uuid.NewString(),
		Goal:     goal,
		Metadata: map[string]any{"reasoning": parsed.Reasoning},
	}
	for _, spec := range parsed.Steps {
		plan.Steps = append(plan.Steps, stepFromSpec(spec))
	}
	if len(plan.Steps) == 0 {
		plan.Steps = append(plan.Steps, &models.PlanStep{
			ID:          uuid.NewString(),
			Description: fallbackDescription,
			ToolArgs:    map[string]any{},
			Status:      models.StepPending,
		})
	}
	plan.RefreshStatus()

	e.goal = goal
	e.promptCtx = pc
	e.plan = plan
	e.executed = nil

	if e.emitter != nil {
		e.emitter.PlanGenerated(plan.ID, goal, len(plan.Steps))
	}
	return plan
}

func stepFromSpec(spec orchestrator.StepSpec) *models.PlanStep {
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	args := spec.ToolArgs
	if args == nil {
		args = map[string]any{}
	}
	return &models.PlanStep{
		ID:          id,
		Description: spec.Description,
		ToolName:    spec.ToolName,
		ToolArgs:    args,
		DependsOn:   spec.DependsOn,
		Status:      models.StepPending,
	}
}

// CurrentPlan returns the Engine's active plan, or nil between CreatePlan
// calls.
func (e *Engine) CurrentPlan() *models.Plan {
	return e.plan
}

// Reset clears the active plan and its execution history.
func (e *Engine) Reset() {
	e.plan = nil
	e.executed = nil
	e.goal = ""
	e.promptCtx = orchestrator.PromptContext{}
}

// ExecutePlan drives the active plan to completion, calling stepCallback
// (if non-nil) after every step. It returns whether the plan finished in
// models.PlanCompleted status.
func (e *Engine) ExecutePlan(ctx context.Context, stepCallback func(*models.PlanStep)) (bool, error) {
	if e.plan == nil {
		return false, fmt.Errorf("planning: no active plan")
	}
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		step, err := e.ExecuteNextStep(ctx)
		if err != nil {
			return false, err
		}
		if step == nil {
			break
		}
		if stepCallback != nil {
			stepCallback(step)
		}
	}
	completed := e.plan.Status == models.PlanCompleted
	if e.plan.Status == models.PlanCompleted || e.plan.Status == models.PlanFailed {
		e.metrics.ObservePlan(string(e.plan.Status))
	}
	return completed, nil
}

// ExecuteNextStep runs one iteration of the select/execute/record/re-plan
// loop and returns the step it ran, or nil if the plan has no more
// executable steps. A non-nil error only occurs when there is no active
// plan.
func (e *Engine) ExecuteNextStep(ctx context.Context) (*models.PlanStep, error) {
	if e.plan == nil {
		return nil, fmt.Errorf("planning: no active plan")
	}

	step := e.plan.NextExecutableStep()
	if step == nil {
		e.plan.RefreshStatus()
		return nil, nil
	}

	// Duplicate steps are skipped without executing, recording, or
	// re-planning, so they never shift placeholder indices.
	if e.isDuplicate(step) {
		e.logger.Warn("planning: skipping duplicate step", "description", step.Description)
		step.Status = models.StepCompleted
		step.Result = "Step skipped to avoid duplication of previous step"
		e.plan.RefreshStatus()
		return step, nil
	}

	if step.ToolArgs != nil {
		if resolved, ok := resolvePlaceholders(step.ToolArgs, e.executed, e.logger).(map[string]any); ok {
			step.ToolArgs = resolved
		}
	}

	step.Status = models.StepInProgress
	if e.emitter != nil {
		e.emitter.ExecutionStep(step.ID, step.Description, step.Status)
	}

	spanCtx, span := e.tracer.StartStep(ctx, step.Description, step.ToolName)
	kind := "generation"
	start := time.Now()
	if step.HasTool() {
		kind = "tool"
		e.executeToolStep(spanCtx, step)
	} else {
		e.executeGenerationStep(spanCtx, step)
	}
	span.End()
	e.metrics.ObserveStep(kind, string(step.Status), time.Since(start))

	if e.emitter != nil {
		e.emitter.ExecutionStep(step.ID, step.Description, step.Status)
	}

	execStatus := models.ExecutionCompleted
	if step.Status == models.StepFailed {
		execStatus = models.ExecutionFailed
	}
	e.recordExecution(ctx, step, execStatus)

	if step.Status == models.StepCompleted {
		e.replan(ctx, step)
	}
	e.plan.RefreshStatus()
	return step, nil
}

// isDuplicate reports whether an already-executed step matches step's
// description (case-insensitively) and tool name.
func (e *Engine) isDuplicate(step *models.PlanStep) bool {
	for _, prior := range e.executed {
		if prior.ToolName == step.ToolName && strings.EqualFold(prior.Description, step.Description) {
			return true
		}
	}
	return false
}

func (e *Engine) executeToolStep(ctx context.Context, step *models.PlanStep) {
	result, _ := e.registry.Execute(ctx, step.ToolName, step.ToolArgs)

	if !result.Success {
		if recoveryStep := e.registry.FindRecovery(result.Error, step); recoveryStep != nil {
			recResult, _ := e.registry.Execute(ctx, recoveryStep.ToolName, recoveryStep.ToolArgs)
			if recResult.Success {
				result, _ = e.registry.Execute(ctx, step.ToolName, step.ToolArgs)
			}
			outcome := "exhausted"
			if result.Success {
				outcome = "recovered"
			}
			e.metrics.ObserveRecovery(outcome)
		} else if code, ok := step.ToolArgs["code"].(string); ok && code != "" {
			if fixed, err := e.orchestrator.FixCode(ctx, code, result.Error); err == nil && fixed != "" {
				step.ToolArgs["code"] = fixed
				result, _ = e.registry.Execute(ctx, step.ToolName, step.ToolArgs)
			}
		}
	}

	if result.Success {
		step.Status = models.StepCompleted
		step.Result = result.Data
	} else {
		step.Status = models.StepFailed
		step.Error = result.Error
	}
}

func (e *Engine) executeGenerationStep(ctx context.Context, step *models.PlanStep) {
	if !isGenerationVerb(step.Description) {
		step.Status = models.StepCompleted
		step.Result = "Step completed successfully"
		return
	}

	text, err := e.orchestrator.RunGenerationStep(ctx, e.goal, step.Description, e.priorSummary())
	if err != nil {
		step.Status = models.StepFailed
		step.Error = err.Error()
		return
	}
	step.Status = models.StepCompleted
	step.Result = text
}

// maxSummaryResultLen caps how much of a prior step's result is carried
// into a generation-step prompt.
const maxSummaryResultLen = 500

// priorSummary renders the already-executed steps as "description: result"
// lines (or "description: error" for failed steps), truncating long
// results, for generation-step prompts.
func (e *Engine) priorSummary() string {
	if len(e.executed) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, s := range e.executed {
		if i > 0 {
			b.WriteByte('\n')
		}
		outcome := fmt.Sprint(s.Result)
		if s.Error != "" {
			outcome = "error: " + s.Error
		}
		if len(outcome) > maxSummaryResultLen {
			outcome = outcome[:maxSummaryResultLen] + "..."
		}
		fmt.Fprintf(&b, "%s: %s", s.Description, outcome)
	}
	return b.String()
}

// recordExecution appends a copy of step to the in-memory executed history
// (used for duplicate detection and placeholder resolution) and, if a
// Memory is configured, an ExecutionRecord to it.
func (e *Engine) recordExecution(ctx context.Context, step *models.PlanStep, status models.ExecutionStatus) {
	e.executed = append(e.executed, copyStep(step))

	if e.memory == nil {
		return
	}
	rec := &models.ExecutionRecord{
		Action: step.Description,
		Status: status,
		Result: step.Result,
		Metadata: map[string]any{
			"step_id":   step.ID,
			"tool_name": step.ToolName,
		},
	}
	if err := e.memory.AddExecution(ctx, rec); err != nil {
		e.logger.Warn("planning: failed to record execution in memory", "error", err)
	}
}

func copyStep(step *models.PlanStep) *models.PlanStep {
	cp := *step
	if step.ToolArgs != nil {
		cp.ToolArgs = make(map[string]any, len(step.ToolArgs))
		for k, v := range step.ToolArgs {
			cp.ToolArgs[k] = v
		}
	}
	if step.DependsOn != nil {
		cp.DependsOn = append([]string(nil), step.DependsOn...)
	}
	return &cp
}
