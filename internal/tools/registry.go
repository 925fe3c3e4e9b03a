package tools

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentrunner/internal/events"
	"github.com/haasonsaas/agentrunner/internal/metrics"
	"github.com/haasonsaas/agentrunner/internal/tracing"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

// recoveryPattern pairs one registered ErrorHandler with the tool that
// exposed it, so re-registering that tool replaces its patterns.
type recoveryPattern struct {
	owner   string
	pattern string
	handler ErrorHandler
}

// Registry stores Tools by name and resolves error-text substrings to
// recovery steps. Append-mostly: registration happens at startup,
// reads are lock-free-friendly via RWMutex once tools are published.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	patterns  []recoveryPattern
	emitter   *events.Emitter
	preHooks  []Hook
	postHooks []Hook
	metrics   *metrics.Metrics
	tracer    *tracing.Tracer
}

// NewRegistry constructs an empty Registry. A nil emitter disables
// TOOL_INPUT/TOOL_OUTPUT eventing.
func NewRegistry(emitter *events.Emitter) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		emitter: emitter,
	}
}

// SetMetrics attaches a Metrics recorder. A nil m (the default) disables
// instrumentation.
func (r *Registry) SetMetrics(m *metrics.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// SetTracer attaches a Tracer. A nil t (the default) disables span
// creation.
func (r *Registry) SetTracer(t *tracing.Tracer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracer = t
}

// Register stores tool by name, replacing any prior tool under the same
// name, and registers its error handlers if it implements
// RecoverableTool.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Name()] = tool
	// Drop any patterns this tool previously registered before re-adding,
	// so re-registration fully replaces the prior entry.
	filtered := r.patterns[:0:0]
	for _, p := range r.patterns {
		if p.owner != tool.Name() {
			filtered = append(filtered, p)
		}
	}
	r.patterns = filtered

	if rt, ok := tool.(RecoverableTool); ok {
		for _, h := range rt.ErrorHandlers() {
			r.patterns = append(r.patterns, recoveryPattern{owner: tool.Name(), pattern: h.Pattern, handler: h})
		}
	}
}

// AddPreHook registers a hook invoked before every Execute call.
func (r *Registry) AddPreHook(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preHooks = append(r.preHooks, h)
}

// AddPostHook registers a hook invoked after every Execute call.
func (r *Registry) AddPostHook(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postHooks = append(r.postHooks, h)
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// All returns every registered tool. Order is unspecified.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Execute runs the named tool, publishing TOOL_INPUT before and
// TOOL_OUTPUT after, and invoking any registered pre/post hooks around the
// call.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*models.ToolResult, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	pre := append([]Hook(nil), r.preHooks...)
	post := append([]Hook(nil), r.postHooks...)
	m := r.metrics
	t := r.tracer
	r.mu.RUnlock()

	if args == nil {
		args = map[string]any{}
	}

	ctx, span := t.StartToolExecution(ctx, name)
	defer span.End()

	if !ok {
		if r.emitter != nil {
			r.emitter.ToolInput(name, args)
			r.emitter.ToolOutput(name, false, nil, ErrToolNotFound.Error())
			r.emitter.ToolErrorEvent(name, "", ErrToolNotFound.Error())
		}
		m.ObserveTool(name, false, 0)
		failure := models.NewFailure(ErrToolNotFound.Error())
		return &failure, nil
	}

	if err := ValidateArgs(tool.ParamSchema(), args); err != nil {
		if r.emitter != nil {
			r.emitter.ToolInput(name, args)
			r.emitter.ToolOutput(name, false, nil, err.Error())
			r.emitter.ToolErrorEvent(name, "", err.Error())
		}
		m.ObserveTool(name, false, 0)
		failure := models.NewFailure(err.Error())
		return &failure, nil
	}

	for _, h := range pre {
		h(ctx, name, args)
	}
	if r.emitter != nil {
		r.emitter.ToolInput(name, args)
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	elapsed := time.Since(start)
	if err != nil {
		failure := models.NewFailure(err.Error())
		result = &failure
	}
	if result == nil {
		failure := models.NewFailure("tool returned no result")
		result = &failure
	}
	m.ObserveTool(name, result.Success, elapsed)

	for _, h := range post {
		h(ctx, name, args)
	}
	if r.emitter != nil {
		r.emitter.ToolOutput(name, result.Success, result.Data, result.Error)
		if !result.Success {
			r.emitter.ToolErrorEvent(name, "", result.Error)
		}
	}

	return result, nil
}

// FindRecovery returns a recovery PlanStep for the first registered
// pattern contained as a substring of errorText, or nil if none match.
// The recovery step carries a fresh id and an empty DependsOn list;
// the Planning Engine runs it directly and does not add it to the plan.
func (r *Registry) FindRecovery(errorText string, failedStep *models.PlanStep) *models.PlanStep {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patterns {
		if strings.Contains(errorText, p.pattern) {
			args := map[string]any{}
			if p.handler.ArgGenerator != nil {
				if generated := p.handler.ArgGenerator(errorText, failedStep); generated != nil {
					args = generated
				}
			}
			return &models.PlanStep{
				ID:          uuid.NewString(),
				Description: p.handler.Description,
				ToolName:    p.handler.ToolName,
				ToolArgs:    args,
				Status:      models.StepPending,
			}
		}
	}
	return nil
}
