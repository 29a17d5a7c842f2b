// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

// Package config provides configuration loading and management for localseek.
//
// Supports both TOML and JSON configuration formats, with sensible defaults
// and environment variable overrides.
//
// Configuration file locations (in order of precedence):
//   - ~/.localseek/config.toml
//   - ~/.localseek/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete localseek configuration.
type Config struct {
	// OllamaURL is the base URL of the local Ollama server.
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`

	// DefaultModel is the model used when the UI has not picked one.
	DefaultModel string `toml:"default_model" json:"default_model"`

	// DataDir is where conversation history, knowledge bases, usage data
	// and logs are stored. Empty means ~/.localseek.
	DataDir string `toml:"data_dir" json:"data_dir"`

	// Workspace scopes the conversation list. Empty means the base name of
	// the current working directory.
	Workspace string `toml:"workspace" json:"workspace"`

	// LogLevel is the zerolog level name: "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level" json:"log_level"`

	// Knowledge holds retrieval-augmentation settings.
	Knowledge KnowledgeConfig `toml:"knowledge" json:"knowledge"`
}

// KnowledgeConfig contains knowledge base settings.
type KnowledgeConfig struct {
	// Path is the root directory of the knowledge base. Empty disables
	// augmentation (chat still works, with a warning when requested).
	Path string `toml:"path" json:"path"`

	// Watch re-indexes the knowledge base automatically when files under
	// Path change.
	Watch bool `toml:"watch" json:"watch"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		OllamaURL:    "http://127.0.0.1:11434",
		DefaultModel: "",
		DataDir:      "",
		Workspace:    "",
		LogLevel:     "info",
		Knowledge: KnowledgeConfig{
			Path:  "",
			Watch: false,
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the localseek configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".localseek"), nil
}

// ResolveDataDir returns the effective data directory for a config,
// creating it if needed.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		base, err := ConfigDir()
		if err != nil {
			return "", err
		}
		dir = base
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// ResolveWorkspace returns the effective workspace identity.
func (c *Config) ResolveWorkspace() string {
	if c.Workspace != "" {
		return c.Workspace
	}
	wd, err := os.Getwd()
	if err != nil {
		return "default"
	}
	return filepath.Base(wd)
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	dir, err := ConfigDir()
	if err == nil {
		tomlPath := filepath.Join(dir, "config.toml")
		jsonPath := filepath.Join(dir, "config.json")

		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
		} else if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, err
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.OllamaURL == "" {
		c.OllamaURL = defaults.OllamaURL
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LOCALSEEK_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LOCALSEEK_OLLAMA_URL"); v != "" {
		c.OllamaURL = v
	}
	if v := os.Getenv("LOCALSEEK_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("LOCALSEEK_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LOCALSEEK_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv("LOCALSEEK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOCALSEEK_KNOWLEDGE_PATH"); v != "" {
		c.Knowledge.Path = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.OllamaURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ollama_url %q is not a valid URL", c.OllamaURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("ollama_url scheme must be http or https, got %q", u.Scheme)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration as TOML to ~/.localseek/config.toml.
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, "config.toml")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode TOML: %w", err)
	}
	return nil
}
