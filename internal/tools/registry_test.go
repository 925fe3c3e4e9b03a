package tools

import (
	"context"
	"testing"

	"github.com/haasonsaas/agentrunner/pkg/models"
)

func TestRegistryRegisterAndExecute(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(EchoTool{})

	result, err := r.Execute(context.Background(), "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success || result.Data != "hi" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	result, err := r.Execute(context.Background(), "nope", nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure for unknown tool")
	}
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(EchoTool{})
	r.Register(EchoTool{})

	if len(r.All()) != 1 {
		t.Fatalf("expected re-registration to replace, got %d tools", len(r.All()))
	}
}

func TestRegistryFindRecovery(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(CodeRunnerTool{})
	r.Register(PackageInstallerTool{})

	step := r.FindRecovery(`ModuleNotFoundError: No module named 'requests'`, &models.PlanStep{ID: "step-1"})
	if step == nil {
		t.Fatalf("expected a recovery step")
	}
	if step.ToolName != "package_installer" {
		t.Fatalf("expected recovery tool package_installer, got %q", step.ToolName)
	}
	packages, ok := step.ToolArgs["packages"].([]any)
	if !ok || len(packages) != 1 || packages[0] != "requests" {
		t.Fatalf("expected extracted packages [requests], got %v", step.ToolArgs["packages"])
	}
}

func TestRegistryFindRecoveryNoMatch(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(CodeRunnerTool{})

	if step := r.FindRecovery("some unrelated failure", nil); step != nil {
		t.Fatalf("expected no recovery step, got %+v", step)
	}
}

func TestRegistryHooksRun(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(EchoTool{})

	var preCalled, postCalled bool
	r.AddPreHook(func(ctx context.Context, name string, args map[string]any) { preCalled = true })
	r.AddPostHook(func(ctx context.Context, name string, args map[string]any) { postCalled = true })

	if _, err := r.Execute(context.Background(), "echo", map[string]any{"text": "x"}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !preCalled || !postCalled {
		t.Fatalf("expected both hooks to run: pre=%v post=%v", preCalled, postCalled)
	}
}
