package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "demandsight" {
		t.Errorf("expected Name=demandsight, got %s", cfg.Name)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected Model=gpt-4o-mini, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Errorf("expected Temperature=0.3, got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 1000 {
		t.Errorf("expected MaxTokens=1000, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Chat.HistoryLimit != 10 {
		t.Errorf("expected HistoryLimit=10, got %d", cfg.Chat.HistoryLimit)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "gpt-4o"
	cfg.Server.Listen = ":9000"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM.Model != "gpt-4o" {
		t.Errorf("expected Model=gpt-4o, got %s", loaded.LLM.Model)
	}
	if loaded.Server.Listen != ":9000" {
		t.Errorf("expected Listen=:9000, got %s", loaded.Server.Listen)
	}
}

func TestConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should fall back to defaults, got %v", err)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %s", cfg.LLM.Model)
	}
}

func TestConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [not a mapping"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env-test")
	t.Setenv("DEMANDSIGHT_LISTEN", ":7000")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.LLM.APIKey != "sk-env-test" {
		t.Errorf("expected APIKey=sk-env-test, got %s", cfg.LLM.APIKey)
	}
	if cfg.Server.Listen != ":7000" {
		t.Errorf("expected Listen=:7000, got %s", cfg.Server.Listen)
	}
}

func TestConfig_ValidateCredential(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = ""
	if err := cfg.ValidateCredential(); err == nil {
		t.Fatal("expected error when API key is absent")
	}

	cfg.LLM.APIKey = "sk-test"
	if err := cfg.ValidateCredential(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
