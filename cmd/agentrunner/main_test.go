package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/agentrunner/internal/events"
	"github.com/haasonsaas/agentrunner/internal/facade"
	"github.com/haasonsaas/agentrunner/internal/llm"
	"github.com/haasonsaas/agentrunner/internal/memory"
	"github.com/haasonsaas/agentrunner/internal/orchestrator"
	"github.com/haasonsaas/agentrunner/internal/planning"
	"github.com/haasonsaas/agentrunner/internal/tools"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range []string{"query", "interactive", "serve"} {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

// fakeClient is an in-package fake llm.Client.
type fakeClient struct {
	content string
}

func (f *fakeClient) ChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return &llm.ChatCompletionResponse{Choices: []llm.Choice{{Message: llm.ChatMessage{Content: f.content}}}}, nil
}
func (f *fakeClient) EstimateTokens(text string) int { return len(text) / 4 }
func (f *fakeClient) ModelName() string              { return "fake-model" }

func newTestRuntime(t *testing.T, planJSON string) *runtime {
	t.Helper()
	client := &fakeClient{content: planJSON}
	orch := orchestrator.New(client)
	bus := events.NewBus(0, nil)
	emitter := events.NewEmitter(bus)
	registry := tools.NewRegistry(emitter)
	registry.Register(tools.EchoTool{})
	mem := memory.New(0, nil)
	engine := planning.New(orch, registry, mem, emitter, nil)
	f := facade.New(orch, registry, mem, engine, emitter, "", true)
	return &runtime{bus: bus, emitter: emitter, facade: f}
}

func TestRunREPLPrintsBannerAndStopsOnExit(t *testing.T) {
	rt := newTestRuntime(t, `{"plan":[{"description":"Analyze the request and respond to the user","tool_name":null}],"reasoning":"no tools needed"}`)

	in := strings.NewReader("hello\nexit\n")
	var out bytes.Buffer
	if err := runREPL(context.Background(), rt, in, &out); err != nil {
		t.Fatalf("runREPL: %v", err)
	}
	if !strings.Contains(out.String(), "agentrunner interactive") {
		t.Errorf("expected banner in output, got %q", out.String())
	}
}

func TestWrapToWidthNoopWhenZero(t *testing.T) {
	if got := wrapToWidth("hello world", 0); got != "hello world" {
		t.Errorf("wrapToWidth with width=0 should be a no-op, got %q", got)
	}
}
