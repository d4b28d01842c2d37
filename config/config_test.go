package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overwatch.yaml")
	content := `
server:
  addr: ":9000"
llm:
  provider: openai
  model: gpt-4o-mini
  base_url: ""
openhands:
  base_url: https://openhands.example.com/api
  poll_interval: 500ms
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr: got %q", cfg.Server.Addr)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm not overridden: %+v", cfg.LLM)
	}
	// Untouched defaults survive.
	if cfg.LLM.Backend != "openai" || cfg.Monitor.MaxHistory != 200 {
		t.Errorf("defaults lost: %+v", cfg)
	}

	interval, err := cfg.PollInterval()
	if err != nil {
		t.Fatalf("PollInterval: %v", err)
	}
	if interval != 500*time.Millisecond {
		t.Errorf("poll interval: got %v", interval)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OVERWATCH_LLM_API_KEY", "sk-from-env")
	t.Setenv("OVERWATCH_LLM_MODEL", "deepseek-reasoner")
	t.Setenv("OVERWATCH_ADDR", ":7000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("api key not taken from env")
	}
	if cfg.LLM.Model != "deepseek-reasoner" {
		t.Errorf("model not taken from env, got %q", cfg.LLM.Model)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr not taken from env, got %q", cfg.Server.Addr)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.LLM.Backend = "grpc"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestValidateRejectsBadDuration(t *testing.T) {
	cfg := Default()
	cfg.OpenHands.MaxWait = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unparsable max_wait")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
