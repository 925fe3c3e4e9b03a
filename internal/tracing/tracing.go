// Package tracing wraps OpenTelemetry span creation around LM calls and
// tool executions. No OTLP exporter is wired here; the SDK
// TracerProvider runs with whatever SpanProcessor the caller supplies
// (a batcher over a real exporter in production, none in tests).
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer issues spans for the Planning Engine and Tool Registry.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New constructs a Tracer. serviceName identifies this process's spans;
// processors are SDK span processors (e.g. sdktrace.NewBatchSpanProcessor
// over an exporter) appended to the provider; pass none to get working
// spans that are simply not exported anywhere.
func New(serviceName string, processors ...sdktrace.SpanProcessor) *Tracer {
	opts := make([]sdktrace.TracerProviderOption, 0, len(processors))
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	provider := sdktrace.NewTracerProvider(opts...)
	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}
}

// Shutdown flushes and stops the underlying TracerProvider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// StartStep opens a span around one plan step's execution, tagged with
// its description and tool name (empty for generation steps).
func (t *Tracer) StartStep(ctx context.Context, description, toolName string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "plan_step",
		trace.WithAttributes(
			attribute.String("step.description", description),
			attribute.String("step.tool_name", toolName),
		),
	)
}

// StartToolExecution opens a span around one Tool Registry.Execute call.
func (t *Tracer) StartToolExecution(ctx context.Context, toolName string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "tool_execute",
		trace.WithAttributes(attribute.String("tool.name", toolName)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartLLMCall opens a span around one LM Client.ChatCompletion call.
func (t *Tracer) StartLLMCall(ctx context.Context, provider, call string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "llm_chat_completion",
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.call", call),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// Global installs t as the process-wide default tracer provider.
func Global(t *Tracer) {
	if t == nil || t.provider == nil {
		return
	}
	otel.SetTracerProvider(t.provider)
}
