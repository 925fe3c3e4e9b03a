// Package metrics provides Prometheus instrumentation for the Planning
// Engine, Tool Registry, and LM Orchestrator: one central Metrics
// struct holding every collector the runner emits.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics centralizes every Prometheus collector the core emits. Construct
// exactly once at startup with New and share the pointer across the
// Planning Engine, Tool Registry, and LM Orchestrator.
type Metrics struct {
	// PlanCounter counts plans created, labeled by outcome
	// (completed|failed) once the plan reaches a terminal status.
	PlanCounter *prometheus.CounterVec

	// PlanStepCounter counts step executions, labeled by terminal status
	// (completed|failed).
	PlanStepCounter *prometheus.CounterVec

	// StepDuration measures wall-clock time spent in one step's Execute
	// call (tool dispatch or LM generation), labeled by kind (tool|generation).
	StepDuration *prometheus.HistogramVec

	// ToolExecutionCounter counts tool invocations, labeled by tool_name
	// and status (success|error).
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool Execute latency in seconds,
	// labeled by tool_name.
	ToolExecutionDuration *prometheus.HistogramVec

	// RecoveryAttempts counts error-recovery attempts, labeled by outcome
	// (recovered|exhausted).
	RecoveryAttempts *prometheus.CounterVec

	// LLMRequestDuration measures chat-completion latency in seconds,
	// labeled by provider and call (plan|response|replan|fix_code|generation).
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts chat-completion calls, labeled by provider,
	// call, and status (success|error).
	LLMRequestCounter *prometheus.CounterVec

	// EventBusDropped counts events dropped due to overflow.
	EventBusDropped prometheus.Counter
}

// New registers and returns a fresh Metrics against reg. Pass
// prometheus.DefaultRegisterer to expose at the process-wide /metrics
// endpoint, or a fresh prometheus.NewRegistry() in tests to avoid
// cross-test collisions.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PlanCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrunner_plans_total",
			Help: "Total number of plans reaching a terminal status, by outcome.",
		}, []string{"outcome"}),

		PlanStepCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrunner_plan_steps_total",
			Help: "Total number of plan steps executed, by terminal status.",
		}, []string{"status"}),

		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentrunner_step_duration_seconds",
			Help:    "Wall-clock duration of one plan step's execution.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"kind"}),

		ToolExecutionCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrunner_tool_executions_total",
			Help: "Total number of tool invocations, by tool name and status.",
		}, []string{"tool_name", "status"}),

		ToolExecutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentrunner_tool_execution_duration_seconds",
			Help:    "Tool Execute call latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool_name"}),

		RecoveryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrunner_recovery_attempts_total",
			Help: "Total number of error-recovery attempts, by outcome.",
		}, []string{"outcome"}),

		LLMRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentrunner_llm_request_duration_seconds",
			Help:    "LM chat-completion call latency in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "call"}),

		LLMRequestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrunner_llm_requests_total",
			Help: "Total number of LM chat-completion calls, by provider, call kind, and status.",
		}, []string{"provider", "call", "status"}),

		EventBusDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentrunner_event_bus_dropped_total",
			Help: "Total number of events dropped from the Event Bus due to overflow.",
		}),
	}
}

// ObserveStep records one step execution's duration and terminal status.
func (m *Metrics) ObserveStep(kind, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.PlanStepCounter.WithLabelValues(status).Inc()
}

// ObserveTool records one tool Execute call's duration and outcome.
func (m *Metrics) ObserveTool(toolName string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

// ObserveLLM records one chat-completion call's duration and outcome.
func (m *Metrics) ObserveLLM(provider, call string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LLMRequestDuration.WithLabelValues(provider, call).Observe(d.Seconds())
	m.LLMRequestCounter.WithLabelValues(provider, call, status).Inc()
}

// ObservePlan records a plan reaching a terminal status.
func (m *Metrics) ObservePlan(outcome string) {
	if m == nil {
		return
	}
	m.PlanCounter.WithLabelValues(outcome).Inc()
}

// ObserveRecovery records one recovery attempt's outcome.
func (m *Metrics) ObserveRecovery(outcome string) {
	if m == nil {
		return
	}
	m.RecoveryAttempts.WithLabelValues(outcome).Inc()
}

// ObserveEventDropped increments the dropped-event counter.
func (m *Metrics) ObserveEventDropped() {
	if m == nil {
		return
	}
	m.EventBusDropped.Inc()
}
