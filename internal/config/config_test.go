package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("default provider = %q, want anthropic", cfg.LLM.Provider)
	}
	if cfg.Memory.ShortTermCapacity != 10 {
		t.Errorf("default short-term capacity = %d, want 10", cfg.Memory.ShortTermCapacity)
	}
	if cfg.Events.Capacity != 1000 {
		t.Errorf("default event bus capacity = %d, want 1000", cfg.Events.Capacity)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentrunner.yaml")
	content := "llm:\n  provider: openai\n  model: gpt-4o\n  temperature: 0.2\nmemory:\n  short_term_capacity: 25\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", cfg.LLM.Model)
	}
	if cfg.Memory.ShortTermCapacity != 25 {
		t.Errorf("short-term capacity = %d, want 25", cfg.Memory.ShortTermCapacity)
	}
	// Fields not in the file keep Default()'s values.
	if cfg.Tools.Timeout <= 0 {
		t.Errorf("tools.timeout should keep its default, got %v", cfg.Tools.Timeout)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("AGENTRUNNER_PROVIDER", "google")
	t.Setenv("AGENTRUNNER_MAX_TOKENS", "2048")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "google" {
		t.Errorf("provider = %q, want google (env override)", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxTokens != 2048 {
		t.Errorf("max tokens = %d, want 2048", cfg.LLM.MaxTokens)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentrunner.yaml")
	if err := os.WriteFile(path, []byte("not_a_real_field: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject unknown top-level fields")
	}
}
