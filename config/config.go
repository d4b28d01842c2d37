// Package config holds all overwatch configuration. Settings come from a
// YAML file with environment overrides; credentials are never read from
// package-level state, they travel inside the Config value.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all overwatch configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	OpenHands OpenHandsConfig `yaml:"openhands"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the worker HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LLMConfig configures the reviewer model.
type LLMConfig struct {
	Backend     string   `yaml:"backend"`  // "openai" (OpenAI-compatible) or "gollm"
	Provider    string   `yaml:"provider"` // e.g. deepseek, openai, anthropic
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// OpenHandsConfig configures the conversation API client.
type OpenHandsConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	PollInterval string `yaml:"poll_interval"` // e.g. "2s"
	MaxWait      string `yaml:"max_wait"`      // e.g. "60s"
}

// MonitorConfig configures supervision sessions.
type MonitorConfig struct {
	MaxHistory int `yaml:"max_history"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8787"},
		LLM: LLMConfig{
			Backend:   "openai",
			Provider:  "deepseek",
			Model:     "deepseek-chat",
			BaseURL:   "https://api.deepseek.com",
			MaxTokens: 1024,
		},
		OpenHands: OpenHandsConfig{
			PollInterval: "2s",
			MaxWait:      "60s",
		},
		Monitor: MonitorConfig{MaxHistory: 200},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path skips the file and uses defaults plus env.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from OVERWATCH_* environment variables.
// Secrets are expected to arrive this way in deployments.
func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"OVERWATCH_ADDR", &c.Server.Addr},
		{"OVERWATCH_LLM_BACKEND", &c.LLM.Backend},
		{"OVERWATCH_LLM_PROVIDER", &c.LLM.Provider},
		{"OVERWATCH_LLM_API_KEY", &c.LLM.APIKey},
		{"OVERWATCH_LLM_MODEL", &c.LLM.Model},
		{"OVERWATCH_LLM_BASE_URL", &c.LLM.BaseURL},
		{"OVERWATCH_OPENHANDS_URL", &c.OpenHands.BaseURL},
		{"OVERWATCH_OPENHANDS_API_KEY", &c.OpenHands.APIKey},
		{"OVERWATCH_LOG_LEVEL", &c.Logging.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// Validate checks settings that every command depends on. Credentials are
// validated where they are used, so offline commands stay usable.
func (c *Config) Validate() error {
	switch c.LLM.Backend {
	case "openai", "gollm":
	default:
		return fmt.Errorf("config: unknown llm backend %q", c.LLM.Backend)
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("config: llm provider is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("config: llm model is required")
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	if _, err := c.MaxWait(); err != nil {
		return err
	}
	return nil
}

// PollInterval parses the OpenHands poll interval.
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.OpenHands.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("config: openhands.poll_interval: %w", err)
	}
	return d, nil
}

// MaxWait parses the OpenHands readiness bound.
func (c *Config) MaxWait() (time.Duration, error) {
	d, err := time.ParseDuration(c.OpenHands.MaxWait)
	if err != nil {
		return 0, fmt.Errorf("config: openhands.max_wait: %w", err)
	}
	return d, nil
}
