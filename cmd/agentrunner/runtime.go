// Package main provides the CLI entry point for the agent runner: a
// plan-then-execute-then-replan agentic task runner driven by an LM, with
// an optional HTTP/SSE front-end streaming its internal events.
//
// # Basic Usage
//
// One-shot query:
//
//	agentrunner query "Add 2 and 3"
//
// Interactive REPL:
//
//	agentrunner interactive
//
// Serve the event stream over HTTP/SSE while answering queries:
//
//	agentrunner serve --addr :8080
//
// # Environment Variables
//
// Provider credentials are read from the environment: ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY, AWS credentials (via
// the default AWS credential chain) for Bedrock, AZURE_CLIENT_SECRET /
// AZURE_API_KEY for Azure.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haasonsaas/agentrunner/internal/config"
	"github.com/haasonsaas/agentrunner/internal/events"
	"github.com/haasonsaas/agentrunner/internal/facade"
	"github.com/haasonsaas/agentrunner/internal/llm"
	"github.com/haasonsaas/agentrunner/internal/llm/providers"
	"github.com/haasonsaas/agentrunner/internal/memory"
	"github.com/haasonsaas/agentrunner/internal/memory/jsonstore"
	"github.com/haasonsaas/agentrunner/internal/memory/sqlitestore"
	"github.com/haasonsaas/agentrunner/internal/metrics"
	"github.com/haasonsaas/agentrunner/internal/orchestrator"
	"github.com/haasonsaas/agentrunner/internal/planning"
	"github.com/haasonsaas/agentrunner/internal/storage"
	"github.com/haasonsaas/agentrunner/internal/storage/filestore"
	"github.com/haasonsaas/agentrunner/internal/storage/s3store"
	"github.com/haasonsaas/agentrunner/internal/tools"
	"github.com/haasonsaas/agentrunner/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
)

// runtime bundles every collaborator the Agent Facade needs, constructed
// once per process.
type runtime struct {
	cfg     *config.Config
	bus     *events.Bus
	emitter *events.Emitter
	facade  *facade.Facade
	metrics *metrics.Metrics
	tracer  *tracing.Tracer
	closers []func() error
}

// newRuntime wires the core subsystems from cfg: LM client, event bus,
// metrics, blob store, tool registry, memory, orchestrator, engine, and
// the facade over all of them.
func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := buildLLMClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}

	bus := events.NewBus(cfg.Events.Capacity, logger)
	emitter := events.NewEmitter(bus)

	runMetrics := metrics.New(prometheus.DefaultRegisterer)
	bus.SetMetrics(runMetrics)

	blobStore, blobCloser, err := buildArtifactStore(context.Background(), cfg.Tools)
	if err != nil {
		return nil, fmt.Errorf("build artifact store: %w", err)
	}

	registry := tools.NewRegistry(emitter)
	registerBuiltinTools(registry, cfg, blobStore)

	longTerm, closers, err := buildLongTermStore(cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("build long-term store: %w", err)
	}
	if blobCloser != nil {
		closers = append(closers, blobCloser)
	}
	mem := memory.New(cfg.Memory.ShortTermCapacity, longTerm)

	tracer := tracing.New("agentrunner")
	registry.SetMetrics(runMetrics)
	registry.SetTracer(tracer)

	orch := orchestrator.New(client)
	orch.SetMetrics(runMetrics)
	orch.SetTracer(tracer)
	engine := planning.New(orch, registry, mem, emitter, logger)
	engine.SetMetrics(runMetrics)
	engine.SetTracer(tracer)
	agentFacade := facade.New(orch, registry, mem, engine, emitter, cfg.Tools.BlobStoragePath, true)

	return &runtime{
		cfg:     cfg,
		bus:     bus,
		emitter: emitter,
		facade:  agentFacade,
		metrics: runMetrics,
		tracer:  tracer,
		closers: closers,
	}, nil
}

// Close releases every resource newRuntime opened (long-term store
// handles, the tracer provider, mainly).
func (r *runtime) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.tracer.Shutdown(context.Background()); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Query runs one ProcessMessage call with no caller-supplied history,
// reading conversation history from Memory instead.
func (r *runtime) Query(ctx context.Context, text string) (string, error) {
	return r.facade.ProcessMessage(ctx, text, "", nil)
}

func buildLLMClient(cfg config.LLMConfig) (llm.Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: firstNonEmpty(cfg.Model, "claude-sonnet-4-5"),
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})
	case "openai":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: firstNonEmpty(cfg.Model, "gpt-4o"),
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})
	case "google", "gemini":
		return providers.NewGoogleProvider(context.Background(), providers.GoogleConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: firstNonEmpty(cfg.Model, "gemini-2.0-flash"),
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})
	case "bedrock":
		return providers.NewBedrockProvider(context.Background(), providers.BedrockConfig{
			Region:       firstNonEmpty(cfg.BedrockRegion, "us-east-1"),
			DefaultModel: firstNonEmpty(cfg.Model, "anthropic.claude-3-5-sonnet-20241022-v2:0"),
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})
	case "azure":
		return providers.NewAzureProvider(context.Background(), providers.AzureConfig{
			Endpoint:     cfg.AzureEndpoint,
			APIKey:       cfg.APIKey,
			APIVersion:   firstNonEmpty(cfg.AzureAPIVersion, "2024-06-01"),
			DefaultModel: firstNonEmpty(cfg.Model, "gpt-4o"),
			TenantID:     cfg.AzureTenantID,
			ClientID:     cfg.AzureClientID,
			ClientSecret: cfg.AzureClientSecret,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func buildLongTermStore(cfg config.MemoryConfig) (memory.LongTermStore, []func() error, error) {
	switch strings.ToLower(cfg.LongTermBackend) {
	case "":
		return nil, nil, nil
	case "json":
		store, err := jsonstore.New(firstNonEmpty(cfg.JSONPath, "agentrunner_memory.json"))
		if err != nil {
			return nil, nil, err
		}
		return store, []func() error{store.Close}, nil
	case "sqlite":
		store, err := sqlitestore.Open(firstNonEmpty(cfg.SQLiteDSN, "file:agentrunner_memory.db"))
		if err != nil {
			return nil, nil, err
		}
		return store, []func() error{store.Close}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported long_term_backend %q", cfg.LongTermBackend)
	}
}

// buildArtifactStore builds the blob store backing the blob_writer tool
// and, eventually, any other tool output too large for a plan step's
// result field: "local" (the default) rooted at BlobStoragePath, or "s3"
// for a shared bucket, the same local/durable split buildLongTermStore
// applies to conversation memory.
func buildArtifactStore(ctx context.Context, cfg config.ToolsConfig) (storage.Store, func() error, error) {
	switch strings.ToLower(firstNonEmpty(cfg.BlobBackend, "local")) {
	case "local":
		store, err := filestore.New(firstNonEmpty(cfg.BlobStoragePath, "./blob_storage"))
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "s3":
		store, err := s3store.New(ctx, s3store.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported blob_backend %q", cfg.BlobBackend)
	}
}

func registerBuiltinTools(registry *tools.Registry, cfg *config.Config, blobStore storage.Store) {
	registry.Register(tools.EchoTool{})
	registry.Register(tools.AdderTool{})
	registry.Register(tools.ReaderTool{})
	registry.Register(tools.CodeRunnerTool{
		Interpreter: firstNonEmpty(cfg.Tools.PythonPath, "python3"),
		Timeout:     cfg.Tools.Timeout,
	})
	registry.Register(tools.PackageInstallerTool{
		PipPath: firstNonEmpty(cfg.Tools.PipPath, "pip3"),
		Timeout: cfg.Tools.Timeout,
	})
	registry.Register(tools.BlobWriterTool{Store: blobStore})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
