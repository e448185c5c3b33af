// Package config loads the docchat configuration from a YAML file,
// applying defaults and environment fallbacks for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSystemMessage is the persona injected as the first turn of
// every session.
const DefaultSystemMessage = "You are a practical, didactic study assistant. " +
	"Your goal is to simplify any topic so the user understands it and knows " +
	"the next step to keep learning. Explain clearly and directly, focus on " +
	"the essentials and practical examples, and avoid unexplained jargon. " +
	"After each explanation, check understanding and suggest the next logical " +
	"topic. Keep a friendly, encouraging tone and use bold for key terms."

// DefaultSummaryInstruction is prepended to the active summary content
// when it is injected into a request.
const DefaultSummaryInstruction = "The following text may include a summary of " +
	"a PDF document or other relevant information. Use it as your primary " +
	"context when answering questions. Prioritize this material, complementing " +
	"it with general knowledge only where needed, and say so when a question " +
	"cannot be answered from it. Context content:"

// Config represents the application configuration.
type Config struct {
	// Completion provider
	Provider    string  `yaml:"provider"` // openai, gemini, bedrock
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	// API keys (environment fallback: OPENAI_API_KEY, GOOGLE_API_KEY)
	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`

	// Token budgets
	MaxTokenLimit    int `yaml:"max_token_limit"`    // input budget per request
	SummaryMaxTokens int `yaml:"summary_max_tokens"` // response cap for summarization
	HistoryLimit     int `yaml:"history_limit"`      // turns included per request

	// Prompts
	SystemMessage      string `yaml:"system_message"`
	SummaryInstruction string `yaml:"summary_instruction"`
	DefaultSession     string `yaml:"default_session"`

	// Storage
	DataDir string      `yaml:"data_dir"` // sessions/, summaries/, exports/ live here
	PDFDir  string      `yaml:"pdf_dir"`  // where source PDFs are read from
	Storage StorageConfig `yaml:"storage"`

	// Rate limiting for completion calls
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// StorageConfig selects and configures the session store backend.
type StorageConfig struct {
	Backend  string `yaml:"backend"` // file (default) or redis
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig bounds the request rate against the completion API.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Load reads configuration from a YAML file. A missing file is not an
// error: defaults apply and credentials come from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg.applyDefaults()

	// Load API keys from environment if not in config
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.GeminiKey == "" {
		cfg.GeminiKey = os.Getenv("GOOGLE_API_KEY")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.8
	}
	if c.MaxTokenLimit == 0 {
		c.MaxTokenLimit = 100000
	}
	if c.SummaryMaxTokens == 0 {
		c.SummaryMaxTokens = 1500
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 15
	}
	if c.SystemMessage == "" {
		c.SystemMessage = DefaultSystemMessage
	}
	if c.SummaryInstruction == "" {
		c.SummaryInstruction = DefaultSummaryInstruction
	}
	if c.DefaultSession == "" {
		c.DefaultSession = "default_session"
	}
	if c.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DataDir = filepath.Join(home, ".docchat")
		} else {
			c.DataDir = ".docchat"
		}
	}
	if c.PDFDir == "" {
		c.PDFDir = filepath.Join(c.DataDir, "pdfs")
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 2
	}
}

// Validate checks that the configuration can actually reach a
// completion provider. Called once at startup; a failure here is fatal
// by design since no completion call is possible without credentials.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("openai provider selected but OPENAI_API_KEY is not set")
		}
	case "gemini":
		if c.GeminiKey == "" {
			return fmt.Errorf("gemini provider selected but GOOGLE_API_KEY is not set")
		}
	case "bedrock":
		// Credentials come from the AWS default chain; validated on first call.
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}

	if c.Storage.Backend == "redis" && c.Storage.Addr == "" {
		return fmt.Errorf("redis storage selected but no address configured")
	}

	return nil
}

// SessionsDir returns the directory holding session records.
func (c *Config) SessionsDir() string { return filepath.Join(c.DataDir, "sessions") }

// SummariesDir returns the directory holding summary records.
func (c *Config) SummariesDir() string { return filepath.Join(c.DataDir, "summaries") }

// ExportsDir returns the directory holding exported chat PDFs.
func (c *Config) ExportsDir() string { return filepath.Join(c.DataDir, "exports") }
