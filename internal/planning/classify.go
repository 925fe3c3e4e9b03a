package planning

import "strings"

// generationVerbs classifies a tool-less step's description as a
// "generation step" (one the Orchestrator should answer directly) versus a
// bookkeeping step with no real work to do.
var generationVerbs = []string{
	"generate", "create", "tell", "write", "compose",
	"explain", "answer", "provide", "describe", "synthesize", "summarize",
}

func isGenerationVerb(description string) bool {
	lower := strings.ToLower(description)
	for _, v := range generationVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
