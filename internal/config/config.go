// Package config provides unified configuration loading for scenex.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/calibrant/scenex/internal/propose"
	"github.com/calibrant/scenex/internal/tree"
)

// ScenexConfig contains all scenex configuration settings.
type ScenexConfig struct {
	// Exploration contains default run bounds and goal settings.
	Exploration ExplorationConfig `json:"exploration" yaml:"exploration"`

	// Generator contains settings for the proposal generator backend.
	Generator GeneratorConfig `json:"generator" yaml:"generator"`

	// Logging contains settings for operational and audit logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ExplorationConfig holds the default run bounds applied when a command
// does not override them.
type ExplorationConfig struct {
	BeamWidth        int      `json:"beam_width" yaml:"beam_width"`
	MaxDepth         int      `json:"max_depth" yaml:"max_depth"`
	MaxProposalCalls int      `json:"max_proposal_calls" yaml:"max_proposal_calls"`
	SampleSize       int      `json:"sample_size" yaml:"sample_size"`
	RandomSeed       int64    `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`
	Categories       []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// GoalDimension and GoalThreshold set the default goal when the
	// explore command does not specify one.
	GoalDimension string  `json:"goal_dimension" yaml:"goal_dimension"`
	GoalThreshold float64 `json:"goal_threshold" yaml:"goal_threshold"`

	// EvalTimeout bounds a single scorer evaluation.
	EvalTimeout time.Duration `json:"eval_timeout,omitempty" yaml:"eval_timeout,omitempty"`
}

// ToRunConfig converts the defaults into an exploration run config.
func (c ExplorationConfig) ToRunConfig() tree.Config {
	return tree.Config{
		BeamWidth:        c.BeamWidth,
		MaxDepth:         c.MaxDepth,
		MaxProposalCalls: c.MaxProposalCalls,
		SampleSize:       c.SampleSize,
		RandomSeed:       c.RandomSeed,
		Categories:       c.Categories,
	}
}

// GeneratorConfig configures the proposal generator backend.
type GeneratorConfig struct {
	// Provider identifies the backend: "anthropic", "openai", "ollama", "mock", or "" for disabled.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider. Supports ${VAR} syntax for env vars.
	// Not required for ollama or mock.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API endpoint URL. Used for ollama or custom
	// OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier to use for proposal requests.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout is the maximum duration to wait for generator responses.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// RatePerMinute throttles generator calls per exploration. Zero
	// disables throttling.
	RatePerMinute float64 `json:"rate_per_minute,omitempty" yaml:"rate_per_minute,omitempty"`

	// Burst is the throttle's burst allowance.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// ToClientConfig converts the generator settings for the propose package.
func (c GeneratorConfig) ToClientConfig() propose.ClientConfig {
	return propose.ClientConfig{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
		Timeout:  c.Timeout,
	}
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "sk-a...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12 chars.
func (c GeneratorConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c GeneratorConfig) String() string {
	return fmt.Sprintf("GeneratorConfig{Provider:%s, APIKey:%s, Model:%s}",
		c.Provider, c.RedactedAPIKey(), c.Model)
}

// LoggingConfig configures scenex's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "trace" additionally includes full generator prompt/response content.
	Level string `json:"level" yaml:"level"`

	// Audit enables the JSONL round audit trail under the root directory.
	Audit bool `json:"audit" yaml:"audit"`
}

// Default returns a ScenexConfig with sensible defaults.
func Default() *ScenexConfig {
	run := tree.DefaultConfig()
	return &ScenexConfig{
		Exploration: ExplorationConfig{
			BeamWidth:        run.BeamWidth,
			MaxDepth:         run.MaxDepth,
			MaxProposalCalls: run.MaxProposalCalls,
			SampleSize:       run.SampleSize,
			Categories:       run.Categories,
			GoalDimension:    "success",
			GoalThreshold:    0.40,
			EvalTimeout:      30 * time.Second,
		},
		Generator: GeneratorConfig{
			Provider:      "",
			APIKey:        "",
			Timeout:       30 * time.Second,
			RatePerMinute: 0,
			Burst:         5,
		},
		Logging: LoggingConfig{
			Level: "info",
			Audit: true,
		},
	}
}

// Load loads configuration for a root directory: defaults, then
// <root>/config.yaml if present, then environment variable overrides.
// An empty root selects ~/.scenex.
func Load(root string) (*ScenexConfig, error) {
	config := Default()

	if root == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			root = filepath.Join(homeDir, ".scenex")
		}
	}
	if root != "" {
		configPath := filepath.Join(root, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*ScenexConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in API key
	config.Generator.APIKey = expandEnvVars(config.Generator.APIKey)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *ScenexConfig) Validate() error {
	if err := c.Exploration.ToRunConfig().Validate(); err != nil {
		return err
	}
	if c.Exploration.GoalThreshold < 0 || c.Exploration.GoalThreshold > 1 {
		return fmt.Errorf("goal_threshold must be between 0 and 1, got %f", c.Exploration.GoalThreshold)
	}
	if c.Generator.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Generator.Timeout)
	}
	if c.Generator.RatePerMinute < 0 {
		return fmt.Errorf("rate_per_minute must be non-negative, got %f", c.Generator.RatePerMinute)
	}

	validProviders := map[string]bool{"": true, "anthropic": true, "openai": true, "ollama": true, "mock": true}
	if !validProviders[c.Generator.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: anthropic, openai, ollama, mock, or empty)", c.Generator.Provider)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *ScenexConfig) {
	if v := os.Getenv("SCENEX_PROVIDER"); v != "" {
		config.Generator.Provider = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.Generator.Provider == "anthropic" {
		config.Generator.APIKey = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" && config.Generator.Provider == "openai" {
		config.Generator.APIKey = v
	}

	// Ollama uses OLLAMA_HOST for base URL (no API key needed)
	if config.Generator.Provider == "ollama" {
		if v := os.Getenv("OLLAMA_HOST"); v != "" {
			config.Generator.BaseURL = v
		} else if config.Generator.BaseURL == "" {
			config.Generator.BaseURL = "http://localhost:11434/v1"
		}
	}

	if v := os.Getenv("SCENEX_BEAM_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Exploration.BeamWidth = n
		}
	}
	if v := os.Getenv("SCENEX_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Exploration.MaxDepth = n
		}
	}
	if v := os.Getenv("SCENEX_MAX_PROPOSAL_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Exploration.MaxProposalCalls = n
		}
	}
	if v := os.Getenv("SCENEX_SAMPLE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Exploration.SampleSize = n
		}
	}
	if v := os.Getenv("SCENEX_RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Exploration.RandomSeed = n
		}
	}

	if v := os.Getenv("SCENEX_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
