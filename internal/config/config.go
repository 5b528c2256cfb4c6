package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all demandsight configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Prompt templates sent to the model
	Prompts PromptsConfig `yaml:"prompts"`

	// Prediction data files
	Data DataConfig `yaml:"data"`

	// Dashboard server
	Server ServerConfig `yaml:"server"`

	// Chat history and persistence
	Chat ChatConfig `yaml:"chat"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the chat-completion client.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, or any OpenAI-compatible endpoint
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// PromptsConfig holds the system prompt and the template used to wrap
// forecast rows into a context message. The template must contain a
// %s verb for the rendered data context.
type PromptsConfig struct {
	System          string `yaml:"system"`
	ContextTemplate string `yaml:"context_template"`
}

// DataConfig names the prediction CSV files produced by the modeling
// pipeline.
type DataConfig struct {
	MonthlyPath string `yaml:"monthly_path"`
	DailyPath   string `yaml:"daily_path"`
	Watch       bool   `yaml:"watch"` // reload tables when the files change
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// ChatConfig configures conversation handling.
type ChatConfig struct {
	HistoryLimit int    `yaml:"history_limit"` // messages kept in-memory per conversation
	DatabasePath string `yaml:"database_path"` // sqlite transcript store
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

const defaultSystemPrompt = `You are a decision-support assistant for demand planning.
You answer questions about demand forecasts for products across US cities,
using only the forecast rows provided as context. Give concrete, quantified
recommendations (which cities to stock, by how much) and keep answers short.
If the context does not contain the data needed, say so.`

const defaultContextTemplate = `Forecast data relevant to the question:

%s

Base your answer strictly on this data.`

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "demandsight",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			Temperature: 0.3,
			MaxTokens:   1000,
			Timeout:     "60s",
		},

		Prompts: PromptsConfig{
			System:          defaultSystemPrompt,
			ContextTemplate: defaultContextTemplate,
		},

		Data: DataConfig{
			MonthlyPath: "prediction/predictions_3_mois.csv",
			DailyPath:   "prediction/predictions_60_jours.csv",
			Watch:       true,
		},

		Server: ServerConfig{
			Listen: ":8501",
		},

		Chat: ChatConfig{
			HistoryLimit: 10,
			DatabasePath: "data/demandsight.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "openai"
		}
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if model := os.Getenv("DEMANDSIGHT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if addr := os.Getenv("DEMANDSIGHT_LISTEN"); addr != "" {
		c.Server.Listen = addr
	}
	if path := os.Getenv("DEMANDSIGHT_DB"); path != "" {
		c.Chat.DatabasePath = path
	}
}

// ValidateCredential checks that an API key is configured. Commands that
// call the chat-completion API fail fast with this error instead of
// surfacing an HTTP 401 later.
func (c *Config) ValidateCredential() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY not set: add it to your environment or a .env file")
	}
	return nil
}
