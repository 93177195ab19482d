// Package config provides the configuration for the sentient CLI.
//
// Configuration is stored under os.UserConfigDir()/sentient/config.yaml:
//
//	~/Library/Application Support/sentient/config.yaml   (macOS)
//	~/.config/sentient/config.yaml                       (Linux)
//	%AppData%/sentient/config.yaml                       (Windows)
//
// Environment variables override file values; a .env file in the working
// directory is loaded by the CLI entry point before the config is read.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/shawnjuqi/sentient/pkg/chat"
)

// appDir is the directory name under os.UserConfigDir().
const appDir = "sentient"

// Config holds all settings the CLI feeds into the pipeline.
type Config struct {
	// APIKey is the bearer credential for the chat completions endpoint.
	APIKey string `yaml:"api_key"`

	// BaseURL is the chat completions API base URL.
	BaseURL string `yaml:"base_url"`

	// Model is the model identifier sent with each request.
	Model string `yaml:"model"`

	// SystemPrompt is the fixed system instruction.
	SystemPrompt string `yaml:"system_prompt"`

	// Temperature is the sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// TranscribeURL is the HTTP transcription backend endpoint.
	TranscribeURL string `yaml:"transcribe_url"`

	// TranscribeWS is the websocket streaming transcription endpoint.
	// When set, it takes precedence over TranscribeURL.
	TranscribeWS string `yaml:"transcribe_ws,omitempty"`

	// SampleRate is the microphone capture rate in Hz.
	SampleRate int `yaml:"sample_rate"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		BaseURL:       chat.DefaultBaseURL,
		Model:         chat.DefaultModel,
		SystemPrompt:  chat.DefaultSystemPrompt,
		Temperature:   chat.DefaultTemperature,
		TranscribeURL: "http://localhost:8090/transcribe",
		SampleRate:    48000,
	}
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// Path returns the configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the configuration from the default location, applying
// environment overrides on top. A missing file is not an error: defaults
// plus environment are returned.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFrom reads the configuration from a specific file, without
// environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("SENTIENT_API_KEY"); v != "" {
		c.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.APIKey == "" {
		c.APIKey = v
	}
	if v := os.Getenv("SENTIENT_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SENTIENT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("SENTIENT_TRANSCRIBE_URL"); v != "" {
		c.TranscribeURL = v
	}
	if v := os.Getenv("SENTIENT_TRANSCRIBE_WS"); v != "" {
		c.TranscribeWS = v
	}
}

// Save writes the configuration to the default location, creating the
// directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to a specific file.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
