// Package facade binds the Memory, Tool Registry, Event Bus, LM
// Orchestrator, and Planning Engine into the single entry point external
// callers use: process a message, get a response.
package facade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/agentrunner/internal/events"
	"github.com/haasonsaas/agentrunner/internal/memory"
	"github.com/haasonsaas/agentrunner/internal/orchestrator"
	"github.com/haasonsaas/agentrunner/internal/planning"
	"github.com/haasonsaas/agentrunner/internal/tools"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

const (
	genericSuccessMessage = "Task completed successfully."
	genericFailureMessage = "The task could not be completed, and no further detail is available."
	fallbackDescription   = "Analyze the request and respond to the user"
)

// noToolPhrases are reasoning substrings (case-insensitive) that mark a
// plan as deliberately tool-free rather than merely empty.
var noToolPhrases = []string{
	"no tools needed", "no tool required", "language generation",
	"can be accomplished directly", "without using tools", "language task",
	"creative", "explanation", "general knowledge", "straightforward",
	"counting", "analysis", "directly",
}

// HistoryEntry is one turn of caller-supplied conversation history, used
// when process_message is given history explicitly instead of reading it
// from Memory.
type HistoryEntry struct {
	Sender  string
	Content string
}

// Facade owns one Memory, one Tool Registry, one Event Bus (via emitter),
// one LM Orchestrator, and one Planning Engine, and maps an inbound
// message to a final response string.
type Facade struct {
	orchestrator    *orchestrator.Orchestrator
	registry        *tools.Registry
	memory          *memory.Memory
	engine          *planning.Engine
	emitter         *events.Emitter
	storagePath     string
	planningEnabled bool
}

// New constructs a Facade. emitter may be nil to disable eventing.
func New(orch *orchestrator.Orchestrator, registry *tools.Registry, mem *memory.Memory, engine *planning.Engine, emitter *events.Emitter, storagePath string, planningEnabled bool) *Facade {
	return &Facade{
		orchestrator:    orch,
		registry:        registry,
		memory:          mem,
		engine:          engine,
		emitter:         emitter,
		storagePath:     storagePath,
		planningEnabled: planningEnabled,
	}
}

// ProcessMessage appends message to Memory, runs the plan-then-execute
// loop (when planning is enabled), composes a response, appends it to
// Memory, and returns it.
func (f *Facade) ProcessMessage(ctx context.Context, message string, sender models.Sender, history []HistoryEntry) (string, error) {
	if sender == "" {
		sender = models.SenderUser
	}

	inbound := &models.Message{
		Sender:  sender,
		Content: message,
		Metadata: map[string]any{
			"current_date": currentDateString(),
		},
	}
	if err := f.memory.AddMessage(ctx, inbound); err != nil {
		return "", fmt.Errorf("facade: append inbound message: %w", err)
	}

	pc := orchestrator.PromptContext{
		CurrentDate: currentDateString(),
		StoragePath: f.storagePath,
		Tools:       f.registry.All(),
		History:     f.historyText(history),
	}

	var response string
	succeeded := true
	if f.planningEnabled {
		plan := f.engine.CreatePlan(ctx, message, pc)
		completed, err := f.engine.ExecutePlan(ctx, nil)
		if err != nil {
			response = genericFailureMessage
			succeeded = false
		} else {
			response = f.composeResponse(ctx, message, plan, completed, pc)
			succeeded = completed
		}
	} else {
		resp, err := f.orchestrator.GenerateResponse(ctx, orchestrator.ResponseSystemPrompt(pc), orchestrator.ResponseUserPrompt(message, "", pc))
		if err != nil {
			response = genericFailureMessage
			succeeded = false
		} else {
			response = resp
		}
	}

	outbound := &models.Message{Sender: models.SenderAgent, Content: response}
	if err := f.memory.AddMessage(ctx, outbound); err != nil {
		return "", fmt.Errorf("facade: append outbound message: %w", err)
	}

	if f.emitter != nil {
		f.emitter.FinalSolution(response, succeeded)
	}
	return response, nil
}

// historyText prefers explicit history over Memory's ring when the caller
// supplies it.
func (f *Facade) historyText(history []HistoryEntry) string {
	if len(history) == 0 {
		_, text := f.memory.GetConversationHistory(true)
		return text
	}
	var b strings.Builder
	for i, h := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", h.Sender, h.Content)
	}
	return b.String()
}

func currentDateString() string {
	return time.Now().Format("January 2, 2006")
}

// composeResponse routes a finished plan to the success or failure
// response path.
func (f *Facade) composeResponse(ctx context.Context, goal string, plan *models.Plan, completed bool, pc orchestrator.PromptContext) string {
	if !completed || plan.Status == models.PlanFailed {
		return f.failureResponse(ctx, goal, plan, pc)
	}
	return f.successResponse(ctx, goal, plan, pc)
}

func (f *Facade) successResponse(ctx context.Context, goal string, plan *models.Plan, pc orchestrator.PromptContext) string {
	var toolSteps []*models.PlanStep
	for _, s := range plan.Steps {
		if s.HasTool() {
			toolSteps = append(toolSteps, s)
		}
	}

	reasoning, _ := plan.Metadata["reasoning"].(string)
	deliberate := isDeliberateNoToolPlan(reasoning)

	if len(toolSteps) == 0 && !deliberate {
		return genericSuccessMessage
	}

	summary := planSummaryForPrompt(plan)
	resp, err := f.orchestrator.GenerateResponse(ctx, orchestrator.ResponseSystemPrompt(pc), orchestrator.ResponseUserPrompt(goal, summary, pc))
	if err != nil {
		return genericSuccessMessage
	}
	return resp
}

func (f *Facade) failureResponse(ctx context.Context, goal string, plan *models.Plan, pc orchestrator.PromptContext) string {
	var failed *models.PlanStep
	for _, s := range plan.Steps {
		if s.Status == models.StepFailed {
			failed = s
			break
		}
	}
	if failed == nil {
		return genericFailureMessage
	}

	system := orchestrator.ResponseSystemPrompt(pc)
	user := orchestrator.FailureUserPrompt(goal, failed.Description, failed.Error, pc)
	resp, err := f.orchestrator.GenerateResponse(ctx, system, user)
	if err != nil {
		return genericFailureMessage
	}
	return resp
}

// isDeliberateNoToolPlan reports whether reasoning names one of the
// phrases that mark a tool-free plan as intentional rather than simply
// empty.
func isDeliberateNoToolPlan(reasoning string) bool {
	lower := strings.ToLower(reasoning)
	for _, phrase := range noToolPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// planSummaryForPrompt renders the plan's steps for the response prompt,
// eliding the default single-step fallback plan entirely.
func planSummaryForPrompt(plan *models.Plan) string {
	if len(plan.Steps) == 1 && plan.Steps[0].Description == fallbackDescription {
		return ""
	}
	var b strings.Builder
	for i, s := range plan.Steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s [%s]", s.Description, s.Status)
		if s.Result != nil {
			fmt.Fprintf(&b, " -> %v", s.Result)
		}
		if s.Error != "" {
			fmt.Fprintf(&b, " error: %s", s.Error)
		}
	}
	return b.String()
}

// CanAccomplishResult is the reply to CanAccomplish.
type CanAccomplishResult struct {
	CanAccomplish bool
	Reason        string
	MissingTools  []string
	Plan          *orchestrator.ParsedPlan
}

// CanAccomplish generates a plan for task without executing it and reports
// whether every tool it references is registered.
func (f *Facade) CanAccomplish(ctx context.Context, task string, pc orchestrator.PromptContext) *CanAccomplishResult {
	pc.Tools = f.registry.All()
	plan := f.orchestrator.GeneratePlan(ctx, task, pc)
	missing := orchestrator.MissingTools(plan, f.registry)

	if len(missing) == 0 {
		return &CanAccomplishResult{CanAccomplish: true, Reason: "all referenced tools are registered", Plan: plan}
	}
	return &CanAccomplishResult{
		CanAccomplish: false,
		Reason:        fmt.Sprintf("missing tools: %s", strings.Join(missing, ", ")),
		MissingTools:  missing,
		Plan:          plan,
	}
}
