// Package orchestrator owns the three LM prompt families (plan, response,
// re-plan) and the tolerant JSON parsing that turns an LM's free-form
// reply into a normalized Plan.
package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/agentrunner/internal/tools"
)

const placeholderInstruction = "When a step needs the output of prior step N, use the literal token `{step_N_result}`."

const exactParamsDirective = "Use the exact parameter names from each tool's schema; do not invent or rename fields."

// PromptContext carries the per-request context every prompt family
// injects: the current date and storage-path hint for system prompts,
// and the tool catalog and conversation history for user prompts.
type PromptContext struct {
	CurrentDate string
	StoragePath string
	Tools       []tools.Tool
	History     string
}

func (c PromptContext) currentDate() string {
	if c.CurrentDate != "" {
		return c.CurrentDate
	}
	return time.Now().Format("January 2, 2006")
}

func systemPreamble(c PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today's date is %s.\n", c.currentDate())
	if c.StoragePath != "" {
		fmt.Fprintf(&b, "Durable memory is stored at %s.\n", c.StoragePath)
	}
	return b.String()
}

// formatToolCatalog renders each tool's name, description, and declared
// parameters (with required flags and any enum/example) for inclusion in
// plan and re-plan prompts.
func formatToolCatalog(registered []tools.Tool) string {
	if len(registered) == 0 {
		return "(no tools are registered)"
	}
	var b strings.Builder
	for _, t := range registered {
		schema := t.ParamSchema()
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
		required := map[string]bool{}
		switch reqList := schema.Parameters["required"].(type) {
		case []string:
			for _, r := range reqList {
				required[r] = true
			}
		case []any:
			for _, r := range reqList {
				if name, ok := r.(string); ok {
					required[name] = true
				}
			}
		}
		if props, ok := schema.Parameters["properties"].(map[string]any); ok {
			for name, raw := range props {
				prop, _ := raw.(map[string]any)
				kind, _ := prop["type"].(string)
				marker := "optional"
				if required[name] {
					marker = "required"
				}
				fmt.Fprintf(&b, "    - %s (%s, %s)", name, kind, marker)
				if enum, ok := prop["enum"]; ok {
					fmt.Fprintf(&b, " enum=%v", enum)
				}
				b.WriteByte('\n')
			}
		}
		if schema.Example != nil {
			fmt.Fprintf(&b, "    example: %v\n", schema.Example)
		}
	}
	return b.String()
}

// PlanSystemPrompt builds the system prompt for generate_plan.
func PlanSystemPrompt(c PromptContext) string {
	return systemPreamble(c) + "You are a planning engine. Decompose the user's goal into an ordered list of steps."
}

// PlanUserPrompt builds the user prompt for generate_plan.
func PlanUserPrompt(goal string, c PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)
	b.WriteString("Available tools:\n")
	b.WriteString(formatToolCatalog(c.Tools))
	b.WriteString("\nConversation history:\n")
	if c.History != "" {
		b.WriteString(c.History)
	} else {
		b.WriteString("(empty)")
	}
	b.WriteString("\n\n" + exactParamsDirective + "\n" + placeholderInstruction + "\n")
	b.WriteString("Respond with a JSON object: {\"plan\": [{\"description\": ..., \"tool_name\": ..., \"tool_args\": {...}, \"depends_on\": [...]}], \"reasoning\": \"...\"}.")
	return b.String()
}

// RePlanSystemPrompt builds the system prompt for reevaluate_plan.
func RePlanSystemPrompt(c PromptContext) string {
	return systemPreamble(c) + "You are re-evaluating an in-progress plan after a step finished."
}

// RePlanUserPrompt builds the user prompt for reevaluate_plan.
func RePlanUserPrompt(goal, planJSON, executedJSON, lastResult string, c PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)
	fmt.Fprintf(&b, "Current plan:\n%s\n\n", planJSON)
	fmt.Fprintf(&b, "Executed steps:\n%s\n\n", executedJSON)
	fmt.Fprintf(&b, "Last step result:\n%s\n\n", lastResult)
	b.WriteString("Available tools:\n")
	b.WriteString(formatToolCatalog(c.Tools))
	b.WriteString("\n" + exactParamsDirective + "\n" + placeholderInstruction + "\n")
	b.WriteString("If the plan still fits, respond {\"plan_needs_adjustment\": false}. ")
	b.WriteString("Otherwise respond {\"plan_needs_adjustment\": true, \"updated_plan\": [...], \"reasoning\": \"...\"}.")
	return b.String()
}

// ResponseSystemPrompt builds the system prompt for generate_response.
func ResponseSystemPrompt(c PromptContext) string {
	return systemPreamble(c) + "You compose the final reply to the user given the outcome of a plan."
}

// ResponseUserPrompt builds the user prompt for a successful plan.
func ResponseUserPrompt(goal, planSummary string, c PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)
	fmt.Fprintf(&b, "Plan outcome:\n%s\n\n", planSummary)
	b.WriteString("Conversation history:\n")
	if c.History != "" {
		b.WriteString(c.History)
	} else {
		b.WriteString("(empty)")
	}
	b.WriteString("\n\nCompose a helpful final reply to the user.")
	return b.String()
}

// FailureUserPrompt builds the user prompt explaining a failed plan.
func FailureUserPrompt(goal, failedDescription, failureError string, c PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)
	fmt.Fprintf(&b, "The step %q failed: %s\n\n", failedDescription, failureError)
	b.WriteString("Explain the failure to the user and suggest what they might try instead.")
	return b.String()
}

// FixCodePrompt asks the LM to repair a failing code snippet, used by the
// Planning Engine's code-fix recovery path when no tool error handler
// matches.
func FixCodePrompt(code, errorText string) (system, user string) {
	system = "You fix broken code snippets. Respond with only the corrected code in a single fenced code block."
	user = fmt.Sprintf("This code failed with error:\n%s\n\nCode:\n```\n%s\n```\n\nReturn the corrected code.", errorText, code)
	return system, user
}

// GenerationStepPrompt asks the LM to perform a no-tool "generation
// step", summarizing the goal and prior step outcomes.
func GenerationStepPrompt(goal, stepDescription, priorSummary string) (system, user string) {
	system = "You are executing one step of a larger plan. Respond with only the content requested by the step."
	user = fmt.Sprintf("Overall goal: %s\n\nStep: %s\n\nPrior steps:\n%s", goal, stepDescription, priorSummary)
	return system, user
}
