package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// fencedBlock matches a ```json ... ``` or bare ``` ... ``` block.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// StepSpec is one plan step after key-alias normalization, before the
// Planning Engine turns it into a models.PlanStep (assigning any missing
// ID, wiring DependsOn validation, etc).
type StepSpec struct {
	ID          string
	Description string
	ToolName    string
	ToolArgs    map[string]any
	DependsOn   []string
	Status      string // only populated by re-plan responses
	IDWasGiven  bool
}

// ParsedPlan is a plan/re-plan response after shape normalization.
type ParsedPlan struct {
	Steps     []StepSpec
	Reasoning string

	// Re-plan-only fields.
	HasAdjustmentFlag   bool
	PlanNeedsAdjustment bool
}

// ExtractJSON unwraps a fenced code block if present, else returns raw
// trimmed. Accepts both ```json and bare ``` fences.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return raw
}

// normalizedToolName maps the provider's various "no tool" spellings to
// the empty string.
func normalizedToolName(raw string) string {
	switch strings.TrimSpace(raw) {
	case "", "null", "None":
		return ""
	default:
		return raw
	}
}

// ParsePlanResponse normalizes a plan or re-plan LM reply into a
// ParsedPlan, tolerating every accepted reply shape and key alias. It
// uses gjson to sniff the response's shape and sjson to rewrite aliased
// keys into a canonical envelope before a final structured decode.
func ParsePlanResponse(raw string) (*ParsedPlan, error) {
	text := ExtractJSON(raw)
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("orchestrator: response is not valid JSON")
	}
	root := gjson.Parse(text)

	canonical := text
	switch {
	case root.IsArray():
		// Root list -> wrap into {"plan": [...]}.
		var err error
		canonical, err = sjson.SetRaw("{}", "plan", text)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: wrap root list: %w", err)
		}
	case root.Get("plan").Exists():
		// Already canonical.
	case root.Get("steps").Exists():
		rewritten, err := sjson.SetRawBytes([]byte(canonical), "plan", []byte(root.Get("steps").Raw))
		if err != nil {
			return nil, fmt.Errorf("orchestrator: alias steps->plan: %w", err)
		}
		canonical = string(rewritten)
	}

	canonicalParsed := gjson.Parse(canonical)
	parsed := &ParsedPlan{Reasoning: canonicalParsed.Get("reasoning").String()}

	if adj := canonicalParsed.Get("plan_needs_adjustment"); adj.Exists() {
		parsed.HasAdjustmentFlag = true
		parsed.PlanNeedsAdjustment = adj.Bool()
	}

	stepsResult := canonicalParsed.Get("plan")
	if !stepsResult.Exists() {
		stepsResult = canonicalParsed.Get("updated_plan")
	}
	if !stepsResult.Exists() || !stepsResult.IsArray() {
		return parsed, nil
	}

	for _, stepResult := range stepsResult.Array() {
		parsed.Steps = append(parsed.Steps, normalizeStep(stepResult))
	}
	return parsed, nil
}

// normalizeStep applies the description/task and tool_args/parameters/
// arguments aliasing, plus tool_name null-variant normalization.
func normalizeStep(step gjson.Result) StepSpec {
	spec := StepSpec{}

	if id := step.Get("id"); id.Exists() && id.String() != "" {
		spec.ID = id.String()
		spec.IDWasGiven = true
	}

	desc := step.Get("description")
	if !desc.Exists() || desc.String() == "" {
		desc = step.Get("task")
	}
	spec.Description = desc.String()

	spec.ToolName = normalizedToolName(step.Get("tool_name").String())

	argsResult := step.Get("tool_args")
	if !argsResult.Exists() {
		argsResult = step.Get("parameters")
	}
	if !argsResult.Exists() {
		argsResult = step.Get("arguments")
	}
	if argsResult.Exists() && argsResult.IsObject() {
		spec.ToolArgs = argsResult.Value().(map[string]any)
	} else {
		spec.ToolArgs = map[string]any{}
	}

	if deps := step.Get("depends_on"); deps.Exists() && deps.IsArray() {
		for _, d := range deps.Array() {
			spec.DependsOn = append(spec.DependsOn, d.String())
		}
	}

	if status := step.Get("status"); status.Exists() {
		spec.Status = status.String()
	} else {
		spec.Status = "pending"
	}

	return spec
}
