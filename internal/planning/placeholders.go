package planning

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/haasonsaas/agentrunner/pkg/models"
)

// placeholderToken matches the {step_N_result} reference token, N being the 1-based index into the already-executed steps.
var placeholderToken = regexp.MustCompile(`\{step_(\d+)_result\}`)

// resolvePlaceholders recursively substitutes {step_N_result} tokens
// through maps, lists, and strings. A string that is entirely one token
// is replaced by the raw prior result (preserving its type); a token
// embedded in a larger string is replaced by its string form (JSON-encoded
// when the result isn't already a string). A token referencing a step
// index that hasn't executed yet is left verbatim and logged.
func resolvePlaceholders(value any, executed []*models.PlanStep, logger *slog.Logger) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = resolvePlaceholders(val, executed, logger)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = resolvePlaceholders(val, executed, logger)
		}
		return out
	case string:
		return resolveStringPlaceholders(v, executed, logger)
	default:
		return v
	}
}

func resolveStringPlaceholders(s string, executed []*models.PlanStep, logger *slog.Logger) any {
	if loc := placeholderToken.FindStringIndex(s); loc == nil {
		return s
	} else if loc[0] == 0 && loc[1] == len(s) {
		n := stepIndexFromToken(s)
		if result, ok := executedResult(n, executed); ok {
			return result
		}
		logger.Warn("planning: placeholder refers to a step that has not executed", "token", s)
		return s
	}

	return placeholderToken.ReplaceAllStringFunc(s, func(token string) string {
		n := stepIndexFromToken(token)
		result, ok := executedResult(n, executed)
		if !ok {
			logger.Warn("planning: placeholder refers to a step that has not executed", "token", token)
			return token
		}
		if str, isStr := result.(string); isStr {
			return str
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return token
		}
		return string(encoded)
	})
}

func stepIndexFromToken(token string) int {
	m := placeholderToken.FindStringSubmatch(token)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func executedResult(n int, executed []*models.PlanStep) (any, bool) {
	idx := n - 1
	if idx < 0 || idx >= len(executed) {
		return nil, false
	}
	return executed[idx].Result, true
}
