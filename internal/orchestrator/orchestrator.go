package orchestrator

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/haasonsaas/agentrunner/internal/llm"
	"github.com/haasonsaas/agentrunner/internal/metrics"
	"github.com/haasonsaas/agentrunner/internal/tools"
	"github.com/haasonsaas/agentrunner/internal/tracing"
)

// fallbackStepDescription is the single-step plan returned when plan
// generation fails outright.
const fallbackStepDescription = "Analyze the request and respond to the user"

// Orchestrator owns the plan/response/re-plan prompt families and turns
// LM replies into normalized ParsedPlan values. It holds no conversation
// state of its own; callers (the Planning Engine, the Agent Facade)
// supply context per call.
type Orchestrator struct {
	client  llm.Client
	metrics *metrics.Metrics
	tracer  *tracing.Tracer
}

// New constructs an Orchestrator over an LM Client.
func New(client llm.Client) *Orchestrator {
	return &Orchestrator{client: client}
}

// SetMetrics attaches a Metrics recorder. A nil m (the default) disables
// instrumentation.
func (o *Orchestrator) SetMetrics(m *metrics.Metrics) {
	o.metrics = m
}

// SetTracer attaches a Tracer. A nil t (the default) disables span
// creation.
func (o *Orchestrator) SetTracer(t *tracing.Tracer) {
	o.tracer = t
}

// complete wraps one ChatCompletion call with a span and request metrics,
// labeled by call kind (plan|response|replan|fix_code|generation). The
// provider label and span attribute carry the client's ModelName.
func (o *Orchestrator) complete(ctx context.Context, call string, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	ctx, span := o.tracer.StartLLMCall(ctx, o.client.ModelName(), call)
	defer span.End()

	start := time.Now()
	resp, err := o.client.ChatCompletion(ctx, req)
	o.metrics.ObserveLLM(o.client.ModelName(), call, err, time.Since(start))
	return resp, err
}

// GeneratePlan asks the LM to decompose goal into steps. On an LM error or
// unparsable reply, it returns a single fallback step rather than erroring
//: the caller always gets a usable ParsedPlan.
func (o *Orchestrator) GeneratePlan(ctx context.Context, goal string, pc PromptContext) *ParsedPlan {
	resp, err := o.complete(ctx, "plan", &llm.ChatCompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: PlanSystemPrompt(pc)},
			{Role: llm.RoleUser, Content: PlanUserPrompt(goal, pc)},
		},
		ResponseFormat: &llm.JSONResponseFormat,
	})
	if err != nil {
		return fallbackPlan()
	}

	parsed, err := ParsePlanResponse(resp.Content())
	if err != nil || len(parsed.Steps) == 0 {
		return fallbackPlan()
	}
	return parsed
}

func fallbackPlan() *ParsedPlan {
	return &ParsedPlan{
		Steps: []StepSpec{{Description: fallbackStepDescription, ToolArgs: map[string]any{}, Status: "pending"}},
	}
}

// GenerateResponse asks the LM to compose the final reply text for a
// completed (or failed) plan.
func (o *Orchestrator) GenerateResponse(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := o.complete(ctx, "response", &llm.ChatCompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

// RePlan asks the LM whether the in-progress plan still fits, given what
// has executed so far. A nil return (with no error) means "keep the plan
// unchanged": either because the LM said so, or because the call/parse
// failed.
func (o *Orchestrator) RePlan(ctx context.Context, goal string, plan, executed any, lastResult string, pc PromptContext) *ParsedPlan {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil
	}
	executedJSON, err := json.Marshal(executed)
	if err != nil {
		return nil
	}

	resp, err := o.complete(ctx, "replan", &llm.ChatCompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: RePlanSystemPrompt(pc)},
			{Role: llm.RoleUser, Content: RePlanUserPrompt(goal, string(planJSON), string(executedJSON), lastResult, pc)},
		},
		ResponseFormat: &llm.JSONResponseFormat,
	})
	if err != nil {
		return nil
	}

	parsed, err := ParsePlanResponse(resp.Content())
	if err != nil {
		return nil
	}
	if parsed.HasAdjustmentFlag && !parsed.PlanNeedsAdjustment {
		return nil
	}
	// A reply claiming the plan needs adjustment but carrying no steps
	// would truncate the plan to nothing; treat it like a parse failure.
	if len(parsed.Steps) == 0 {
		return nil
	}
	return parsed
}

// FixCode asks the LM to repair a failing code snippet and returns the
// corrected source extracted from any fenced block in the reply.
func (o *Orchestrator) FixCode(ctx context.Context, code, errorText string) (string, error) {
	system, user := FixCodePrompt(code, errorText)
	resp, err := o.complete(ctx, "fix_code", &llm.ChatCompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	content := resp.Content()
	if m := codeFence.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	return ExtractJSON(content), nil
}

// codeFence matches a fenced block whose opening fence carries a language
// tag (```python, ```go, ...) followed by a newline.
var codeFence = regexp.MustCompile("(?s)```[\\w+-]+[ \\t]*\\n(.*?)\\s*```")

// RunGenerationStep asks the LM to perform a no-tool "generation step".
func (o *Orchestrator) RunGenerationStep(ctx context.Context, goal, stepDescription, priorSummary string) (string, error) {
	system, user := GenerationStepPrompt(goal, stepDescription, priorSummary)
	resp, err := o.complete(ctx, "generation", &llm.ChatCompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

// MissingTools reports which tool names a ParsedPlan references that
// aren't registered, for the Agent Facade's can_accomplish operation.
func MissingTools(plan *ParsedPlan, registry *tools.Registry) []string {
	var missing []string
	seen := map[string]bool{}
	for _, step := range plan.Steps {
		if step.ToolName == "" || seen[step.ToolName] {
			continue
		}
		seen[step.ToolName] = true
		if _, ok := registry.Get(step.ToolName); !ok {
			missing = append(missing, step.ToolName)
		}
	}
	return missing
}
