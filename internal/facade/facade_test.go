package facade

import (
	"context"
	"testing"

	"github.com/haasonsaas/agentrunner/internal/llm"
	"github.com/haasonsaas/agentrunner/internal/orchestrator"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

// fixedClient always returns the same completion text, so a test can
// assert either that it was used (non-generic response) or that it was
// never reached (generic response).
type fixedClient struct {
	text string
}

func (c *fixedClient) ChatCompletion(_ context.Context, _ *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return &llm.ChatCompletionResponse{Choices: []llm.Choice{{Message: llm.ChatMessage{Content: c.text}}}}, nil
}

func (c *fixedClient) EstimateTokens(text string) int { return len(text) / 4 }
func (c *fixedClient) ModelName() string              { return "fake-model" }

func newTestFacade(replyText string) *Facade {
	orch := orchestrator.New(&fixedClient{text: replyText})
	return &Facade{orchestrator: orch}
}

func toolStep(status models.StepStatus) *models.PlanStep {
	return &models.PlanStep{
		ID:       "step-1",
		ToolName: "echo",
		ToolArgs: map[string]any{},
		Status:   status,
	}
}

func generationStep(status models.StepStatus) *models.PlanStep {
	return &models.PlanStep{
		ID:       "step-1",
		ToolArgs: map[string]any{},
		Status:   status,
	}
}

// successResponse returns the generic success message when the completed
// plan ran no tool steps and reasoning does not mark it deliberately
// tool-free.
func TestSuccessResponseGenericWhenNoToolSteps(t *testing.T) {
	f := newTestFacade("should not be used")
	plan := &models.Plan{
		Goal:  "greet the user",
		Steps: []*models.PlanStep{generationStep(models.StepCompleted)},
	}

	got := f.successResponse(context.Background(), plan.Goal, plan, orchestrator.PromptContext{})
	if got != genericSuccessMessage {
		t.Errorf("expected generic success message, got %q", got)
	}
}

// successResponse asks the LM to compose a response whenever the plan ran
// at least one tool step.
func TestSuccessResponseGeneratedWhenToolStepsRan(t *testing.T) {
	f := newTestFacade("here is what I did")
	plan := &models.Plan{
		Goal:  "add two numbers",
		Steps: []*models.PlanStep{toolStep(models.StepCompleted)},
	}

	got := f.successResponse(context.Background(), plan.Goal, plan, orchestrator.PromptContext{})
	if got != "here is what I did" {
		t.Errorf("expected LM-generated response, got %q", got)
	}
}

// successResponse also asks the LM when there were no tool steps but the
// plan's reasoning names one of the deliberate no-tool phrases.
func TestSuccessResponseGeneratedWhenDeliberatelyToolFree(t *testing.T) {
	f := newTestFacade("this is creative writing")
	plan := &models.Plan{
		Goal:     "write a poem",
		Steps:    []*models.PlanStep{generationStep(models.StepCompleted)},
		Metadata: map[string]any{"reasoning": "This is a creative writing task, no tools needed."},
	}

	got := f.successResponse(context.Background(), plan.Goal, plan, orchestrator.PromptContext{})
	if got != "this is creative writing" {
		t.Errorf("expected LM-generated response for a deliberately tool-free plan, got %q", got)
	}
}

// failureResponse returns the generic failure message when no step in the
// plan actually reached Failed.
func TestFailureResponseGenericWhenNoFailedStep(t *testing.T) {
	f := newTestFacade("should not be used")
	plan := &models.Plan{
		Goal:  "do something",
		Steps: []*models.PlanStep{toolStep(models.StepInProgress)},
	}

	got := f.failureResponse(context.Background(), plan.Goal, plan, orchestrator.PromptContext{})
	if got != genericFailureMessage {
		t.Errorf("expected generic failure message, got %q", got)
	}
}

// failureResponse asks the LM to explain the failure when a step reached
// Failed.
func TestFailureResponseGeneratedWhenStepFailed(t *testing.T) {
	f := newTestFacade("here is why it failed")
	failed := toolStep(models.StepFailed)
	failed.Error = "boom"
	plan := &models.Plan{
		Goal:  "do something",
		Steps: []*models.PlanStep{failed},
	}

	got := f.failureResponse(context.Background(), plan.Goal, plan, orchestrator.PromptContext{})
	if got != "here is why it failed" {
		t.Errorf("expected LM-generated failure explanation, got %q", got)
	}
}

// composeResponse routes to failureResponse whenever the plan did not
// complete, even if no step in it is individually marked Failed.
func TestComposeResponseUsesFailurePathWhenPlanIncomplete(t *testing.T) {
	f := newTestFacade("should not be used")
	plan := &models.Plan{
		Goal:  "do something",
		Steps: []*models.PlanStep{toolStep(models.StepInProgress)},
	}

	got := f.composeResponse(context.Background(), plan.Goal, plan, false, orchestrator.PromptContext{})
	if got != genericFailureMessage {
		t.Errorf("expected composeResponse to take the failure path, got %q", got)
	}
}
