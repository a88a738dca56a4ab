// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete arda configuration.
type Config struct {
	Completion CompletionConfig `toml:"completion"`
	Search     SearchConfig     `toml:"search"`
	Storage    StorageConfig    `toml:"storage"`
	Logging    LoggingConfig    `toml:"logging"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	UI         UIConfig         `toml:"ui"`
}

// CompletionConfig holds the chat completion endpoint settings.
type CompletionConfig struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	TimeoutSecs int    `toml:"timeout_secs"`
}

// SearchConfig holds the web search endpoint settings.
type SearchConfig struct {
	APIKey        string  `toml:"api_key"`
	EngineID      string  `toml:"engine_id"`
	BaseURL       string  `toml:"base_url"`
	TimeoutSecs   int     `toml:"timeout_secs"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// StorageConfig selects where conversations are kept.
type StorageConfig struct {
	// Backend is one of file, bolt, sqlite, memory.
	Backend string `toml:"backend"`

	// DataDir holds the backing file. Empty means the config directory.
	DataDir string `toml:"data_dir"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	WithCaller bool   `toml:"with_caller"`
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	// OTLPEndpoint enables tracing when set, e.g. "localhost:4318".
	OTLPEndpoint string `toml:"otlp_endpoint"`
	Insecure     bool   `toml:"insecure"`
	ServiceName  string `toml:"service_name"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	// Theme is auto, dark, light or notty.
	Theme string `toml:"theme"`

	// Stream shows replies as they arrive.
	Stream bool `toml:"stream"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Completion: CompletionConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			TimeoutSecs: 120,
		},
		Search: SearchConfig{
			BaseURL:       "https://www.googleapis.com/customsearch/v1",
			TimeoutSecs:   15,
			RatePerSecond: 1,
			Burst:         5,
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "arda",
		},
		UI: UIConfig{
			Theme:  "auto",
			Stream: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the arda configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".arda"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory holding conversation data.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return expandHome(c.Storage.DataDir)
	}
	return ConfigDir()
}

// LogFile returns the configured log file with ~ expanded.
func (c *Config) LogFile() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	return expandHome(c.Logging.File)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config file at path (the default location when empty),
// applies environment overrides and validates the result. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path into cfg and fills missing values
// with defaults.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none)
// into the process environment. Missing files are skipped and variables
// already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// fillDefaults fills in zero values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = defaults.Completion.BaseURL
	}
	if cfg.Completion.TimeoutSecs == 0 {
		cfg.Completion.TimeoutSecs = defaults.Completion.TimeoutSecs
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = defaults.Search.BaseURL
	}
	if cfg.Search.TimeoutSecs == 0 {
		cfg.Search.TimeoutSecs = defaults.Search.TimeoutSecs
	}
	if cfg.Search.RatePerSecond == 0 {
		cfg.Search.RatePerSecond = defaults.Search.RatePerSecond
	}
	if cfg.Search.Burst == 0 {
		cfg.Search.Burst = defaults.Search.Burst
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = defaults.Telemetry.ServiceName
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# arda configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	var errs ValidateErrors

	oneOf := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return
			}
		}
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid value '%s', must be one of: %s", value, strings.Join(allowed, ", ")),
		})
	}

	oneOf("storage.backend", c.Storage.Backend, "file", "bolt", "sqlite", "memory")
	oneOf("logging.level", c.Logging.Level, "trace", "debug", "info", "warn", "error", "fatal", "panic")
	oneOf("logging.format", c.Logging.Format, "text", "json")
	oneOf("ui.theme", c.UI.Theme, "auto", "dark", "light", "notty")

	if c.Completion.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "completion.timeout_secs", Message: "must not be negative"})
	}
	if c.Search.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "search.timeout_secs", Message: "must not be negative"})
	}
	if c.Search.RatePerSecond < 0 {
		errs = append(errs, ValidationError{Field: "search.rate_per_second", Message: "must not be negative"})
	}
	if c.Search.Burst < 0 {
		errs = append(errs, ValidationError{Field: "search.burst", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variables on top of file values:
//   - ARDA_GROQ_API_KEY, then GROQ_API_KEY: completion.api_key
//   - ARDA_COMPLETION_BASE_URL: completion.base_url
//   - ARDA_SEARCH_API_KEY: search.api_key
//   - ARDA_SEARCH_ENGINE_ID: search.engine_id
//   - ARDA_STORAGE_BACKEND: storage.backend
//   - ARDA_DATA_DIR: storage.data_dir
//   - ARDA_OTLP_ENDPOINT: telemetry.otlp_endpoint
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("ARDA_GROQ_API_KEY"); key != "" {
		c.Completion.APIKey = key
	} else if key := os.Getenv("GROQ_API_KEY"); key != "" && c.Completion.APIKey == "" {
		c.Completion.APIKey = key
	}
	if url := os.Getenv("ARDA_COMPLETION_BASE_URL"); url != "" {
		c.Completion.BaseURL = url
	}
	if key := os.Getenv("ARDA_SEARCH_API_KEY"); key != "" {
		c.Search.APIKey = key
	}
	if cx := os.Getenv("ARDA_SEARCH_ENGINE_ID"); cx != "" {
		c.Search.EngineID = cx
	}
	if backend := os.Getenv("ARDA_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if dir := os.Getenv("ARDA_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if endpoint := os.Getenv("ARDA_OTLP_ENDPOINT"); endpoint != "" {
		c.Telemetry.OTLPEndpoint = endpoint
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// Redacted returns a copy of c with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Completion.APIKey = mask(c.Completion.APIKey)
	out.Search.APIKey = mask(c.Search.APIKey)
	return &out
}

// String renders the redacted configuration as TOML.
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c.Redacted()); err != nil {
		return err.Error()
	}
	return sb.String()
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
