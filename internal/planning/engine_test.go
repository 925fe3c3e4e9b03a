package planning

import (
	"context"
	"log/slog"
	"testing"

	"github.com/haasonsaas/agentrunner/internal/events"
	"github.com/haasonsaas/agentrunner/internal/llm"
	"github.com/haasonsaas/agentrunner/internal/orchestrator"
	"github.com/haasonsaas/agentrunner/internal/tools"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

// queueClient returns its configured responses in order, one per
// ChatCompletion call, so a single test can script a GeneratePlan reply
// followed by however many RePlan replies the loop will trigger.
type queueClient struct {
	responses []string
	i         int
}

func (q *queueClient) ChatCompletion(_ context.Context, _ *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	if q.i >= len(q.responses) {
		return &llm.ChatCompletionResponse{Choices: []llm.Choice{{Message: llm.ChatMessage{Content: `{"plan_needs_adjustment": false}`}}}}, nil
	}
	resp := q.responses[q.i]
	q.i++
	return &llm.ChatCompletionResponse{Choices: []llm.Choice{{Message: llm.ChatMessage{Content: resp}}}}, nil
}

func (q *queueClient) EstimateTokens(text string) int { return len(text) / 4 }
func (q *queueClient) ModelName() string              { return "fake-model" }

func newTestEngine(responses []string, registry *tools.Registry) *Engine {
	client := &queueClient{responses: responses}
	orch := orchestrator.New(client)
	bus := events.NewBus(0, slog.Default())
	emitter := events.NewEmitter(bus)
	return New(orch, registry, nil, emitter, slog.Default())
}

func TestExecutePlanSingleToolStep(t *testing.T) {
	registry := tools.NewRegistry(nil)
	registry.Register(tools.EchoTool{})

	e := newTestEngine([]string{
		`{"plan": [{"description": "say hi", "tool_name": "echo", "tool_args": {"text": "hi"}}]}`,
		`{"plan_needs_adjustment": false}`,
	}, registry)

	plan := e.CreatePlan(context.Background(), "greet the user", orchestrator.PromptContext{})
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan.Steps))
	}

	completed, err := e.ExecutePlan(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if !completed {
		t.Fatalf("expected plan to complete, got status %s", plan.Status)
	}
	if plan.Steps[0].Result != "hi" {
		t.Fatalf("expected step result %q, got %v", "hi", plan.Steps[0].Result)
	}
}

func TestPlaceholderChainingAcrossSteps(t *testing.T) {
	registry := tools.NewRegistry(nil)
	registry.Register(tools.EchoTool{})
	registry.Register(tools.AdderTool{})

	e := newTestEngine([]string{
		`{"plan": [
			{"description": "add numbers", "tool_name": "adder", "tool_args": {"a": 2, "b": 3}},
			{"description": "echo the sum", "tool_name": "echo", "tool_args": {"text": "sum is {step_1_result}"}}
		]}`,
		`{"plan_needs_adjustment": false}`,
		`{"plan_needs_adjustment": false}`,
	}, registry)

	e.CreatePlan(context.Background(), "add then echo", orchestrator.PromptContext{})
	completed, err := e.ExecutePlan(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if !completed {
		t.Fatalf("expected plan to complete")
	}

	plan := e.CurrentPlan()
	if got := plan.Steps[1].Result; got != "sum is 5" {
		t.Fatalf("expected placeholder substitution %q, got %v", "sum is 5", got)
	}
}

func TestDuplicateStepIsSkipped(t *testing.T) {
	registry := tools.NewRegistry(nil)
	registry.Register(tools.EchoTool{})

	e := newTestEngine([]string{
		`{"plan": [
			{"description": "say hi", "tool_name": "echo", "tool_args": {"text": "hi"}},
			{"description": "Say Hi", "tool_name": "echo", "tool_args": {"text": "hi again"}}
		]}`,
		`{"plan_needs_adjustment": false}`,
	}, registry)

	e.CreatePlan(context.Background(), "greet twice", orchestrator.PromptContext{})
	completed, err := e.ExecutePlan(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if !completed {
		t.Fatalf("expected plan to complete")
	}

	plan := e.CurrentPlan()
	if plan.Steps[1].Result != "Step skipped to avoid duplication of previous step" {
		t.Fatalf("expected duplicate step to be skipped, got %v", plan.Steps[1].Result)
	}
}

// failThenRecoverTool fails its first invocation and succeeds thereafter,
// exposing a recovery handler for the failure text it produces.
type failThenRecoverTool struct {
	calls *int
}

func (t failThenRecoverTool) Name() string        { return "flaky" }
func (t failThenRecoverTool) Description() string { return "Fails once, then succeeds." }
func (t failThenRecoverTool) ParamSchema() tools.Schema {
	return tools.Schema{Parameters: map[string]any{"type": "object"}}
}

func (t failThenRecoverTool) Execute(_ context.Context, _ map[string]any) (*models.ToolResult, error) {
	*t.calls++
	if *t.calls == 1 {
		failure := models.NewFailure("dependency missing")
		return &failure, nil
	}
	result := models.NewSuccess("recovered")
	return &result, nil
}

func (t failThenRecoverTool) ErrorHandlers() []tools.ErrorHandler {
	return []tools.ErrorHandler{{
		Pattern:     "dependency missing",
		Description: "install the missing dependency",
		ToolName:    "fixer",
	}}
}

type fixerTool struct{}

func (fixerTool) Name() string        { return "fixer" }
func (fixerTool) Description() string { return "Installs a missing dependency." }
func (fixerTool) ParamSchema() tools.Schema {
	return tools.Schema{Parameters: map[string]any{"type": "object"}}
}

func (fixerTool) Execute(_ context.Context, _ map[string]any) (*models.ToolResult, error) {
	result := models.NewSuccess("fixed")
	return &result, nil
}

func TestRecoveryPathRetriesAfterFix(t *testing.T) {
	registry := tools.NewRegistry(nil)
	calls := 0
	registry.Register(failThenRecoverTool{calls: &calls})
	registry.Register(fixerTool{})

	e := newTestEngine([]string{
		`{"plan": [{"description": "run the flaky tool", "tool_name": "flaky", "tool_args": {}}]}`,
		`{"plan_needs_adjustment": false}`,
	}, registry)

	e.CreatePlan(context.Background(), "run flaky", orchestrator.PromptContext{})
	completed, err := e.ExecutePlan(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if !completed {
		t.Fatalf("expected plan to complete after recovery")
	}
	plan := e.CurrentPlan()
	if plan.Steps[0].Result != "recovered" {
		t.Fatalf("expected recovered result, got %v", plan.Steps[0].Result)
	}
	if calls != 2 {
		t.Fatalf("expected flaky tool to be called twice, got %d", calls)
	}
}

func TestReplanReplacesRemainingSteps(t *testing.T) {
	registry := tools.NewRegistry(nil)
	registry.Register(tools.EchoTool{})

	e := newTestEngine([]string{
		`{"plan": [
			{"description": "say hi", "tool_name": "echo", "tool_args": {"text": "hi"}},
			{"description": "say bye", "tool_name": "echo", "tool_args": {"text": "bye"}}
		]}`,
		`{"plan_needs_adjustment": true, "updated_plan": [{"description": "say goodnight", "tool_name": "echo", "tool_args": {"text": "goodnight"}}], "reasoning": "simplified"}`,
		`{"plan_needs_adjustment": false}`,
	}, registry)

	e.CreatePlan(context.Background(), "say several things", orchestrator.PromptContext{})
	completed, err := e.ExecutePlan(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if !completed {
		t.Fatalf("expected plan to complete")
	}

	plan := e.CurrentPlan()
	if len(plan.Steps) != 1 {
		t.Fatalf("expected the returned plan to replace the step list wholesale, got %d steps", len(plan.Steps))
	}
	if plan.Steps[0].Description != "say goodnight" {
		t.Fatalf("expected replaced step, got %+v", plan.Steps[0])
	}
	if plan.Metadata["reasoning"] != "simplified" {
		t.Fatalf("expected reasoning to be overwritten, got %v", plan.Metadata["reasoning"])
	}
}

func TestReplanWithOnlyCompletedStepsMarksPlanCompleted(t *testing.T) {
	registry := tools.NewRegistry(nil)
	registry.Register(tools.EchoTool{})

	e := newTestEngine([]string{
		`{"plan": [
			{"id": "s1", "description": "say hi", "tool_name": "echo", "tool_args": {"text": "hi"}},
			{"id": "s2", "description": "say bye", "tool_name": "echo", "tool_args": {"text": "bye"}},
			{"id": "s3", "description": "say more", "tool_name": "echo", "tool_args": {"text": "more"}}
		]}`,
		`{"plan_needs_adjustment": true, "updated_plan": [{"id": "s1", "description": "say hi", "tool_name": "echo", "tool_args": {"text": "hi"}, "status": "completed"}], "reasoning": "goal already reached"}`,
	}, registry)

	e.CreatePlan(context.Background(), "say several things", orchestrator.PromptContext{})
	completed, err := e.ExecutePlan(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if !completed {
		t.Fatalf("expected plan to complete after re-plan removed remaining steps")
	}

	plan := e.CurrentPlan()
	if len(plan.Steps) != 1 || plan.Steps[0].ID != "s1" {
		t.Fatalf("expected only the completed step to remain, got %+v", plan.Steps)
	}
	if plan.Steps[0].Result != "hi" {
		t.Fatalf("expected the completed step's result to be preserved, got %v", plan.Steps[0].Result)
	}
	if plan.Status != models.PlanCompleted {
		t.Fatalf("expected plan status completed, got %s", plan.Status)
	}
}

func TestResetClearsPlanAndHistory(t *testing.T) {
	registry := tools.NewRegistry(nil)
	registry.Register(tools.EchoTool{})
	e := newTestEngine([]string{`{"plan": [{"description": "say hi", "tool_name": "echo", "tool_args": {"text": "hi"}}]}`}, registry)

	e.CreatePlan(context.Background(), "greet", orchestrator.PromptContext{})
	e.Reset()

	if e.CurrentPlan() != nil {
		t.Fatalf("expected plan to be cleared")
	}
	if _, err := e.ExecuteNextStep(context.Background()); err == nil {
		t.Fatalf("expected an error executing without an active plan")
	}
}
