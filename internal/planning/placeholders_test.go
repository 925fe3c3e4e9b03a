package planning

import (
	"log/slog"
	"testing"

	"github.com/haasonsaas/agentrunner/pkg/models"
)

func executedStub(results ...any) []*models.PlanStep {
	steps := make([]*models.PlanStep, len(results))
	for i, r := range results {
		steps[i] = &models.PlanStep{Result: r}
	}
	return steps
}

func TestResolvePlaceholdersWholeStringPreservesType(t *testing.T) {
	executed := executedStub(42.0)
	got := resolvePlaceholders("{step_1_result}", executed, slog.Default())
	if got != 42.0 {
		t.Fatalf("expected whole-token substitution to preserve type, got %#v", got)
	}
}

func TestResolvePlaceholdersPartialStringEncodesNonString(t *testing.T) {
	executed := executedStub(map[string]any{"ok": true})
	got := resolvePlaceholders("result: {step_1_result}!", executed, slog.Default())
	if got != `result: {"ok":true}!` {
		t.Fatalf("unexpected partial substitution: %v", got)
	}
}

func TestResolvePlaceholdersOutOfRangeLeftVerbatim(t *testing.T) {
	executed := executedStub("only one")
	got := resolvePlaceholders("{step_5_result}", executed, slog.Default())
	if got != "{step_5_result}" {
		t.Fatalf("expected out-of-range token left verbatim, got %v", got)
	}
}

func TestResolvePlaceholdersWalksNestedStructures(t *testing.T) {
	executed := executedStub("hello")
	value := map[string]any{
		"a": []any{"{step_1_result}", map[string]any{"b": "say {step_1_result} now"}},
	}
	got := resolvePlaceholders(value, executed, slog.Default()).(map[string]any)
	list := got["a"].([]any)
	if list[0] != "hello" {
		t.Fatalf("expected whole-string substitution in list, got %v", list[0])
	}
	nested := list[1].(map[string]any)
	if nested["b"] != "say hello now" {
		t.Fatalf("expected nested partial substitution, got %v", nested["b"])
	}
}

func TestIsGenerationVerb(t *testing.T) {
	cases := map[string]bool{
		"Write a summary of the findings": true,
		"Explain why the build failed":    true,
		"Move the file to /tmp":           false,
		"Check the disk usage":            false,
	}
	for desc, want := range cases {
		if got := isGenerationVerb(desc); got != want {
			t.Errorf("isGenerationVerb(%q) = %v, want %v", desc, got, want)
		}
	}
}
