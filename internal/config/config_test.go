// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable ApplyEnvOverrides reads for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ARDA_GROQ_API_KEY", "GROQ_API_KEY", "ARDA_COMPLETION_BASE_URL",
		"ARDA_SEARCH_API_KEY", "ARDA_SEARCH_ENGINE_ID", "ARDA_STORAGE_BACKEND",
		"ARDA_DATA_DIR", "ARDA_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Completion.BaseURL)
	assert.Equal(t, 5, cfg.Search.Burst)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[completion]
api_key = "gsk_file"

[search]
engine_id = "cx-file"

[storage]
backend = "sqlite"
data_dir = "/tmp/arda-data"

[ui]
stream = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gsk_file", cfg.Completion.APIKey)
	assert.Equal(t, "cx-file", cfg.Search.EngineID)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.False(t, cfg.UI.Stream)

	// Unset sections keep their defaults.
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Completion.BaseURL)
	assert.Equal(t, "info", cfg.Logging.Level)

	dir, err := cfg.DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/arda-data", dir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[completion]\napi_key = \"from-file\"\n")

	t.Setenv("ARDA_GROQ_API_KEY", "from-env")
	t.Setenv("ARDA_SEARCH_API_KEY", "search-key")
	t.Setenv("ARDA_SEARCH_ENGINE_ID", "cx-env")
	t.Setenv("ARDA_STORAGE_BACKEND", "bolt")
	t.Setenv("ARDA_DATA_DIR", "/data")
	t.Setenv("ARDA_OTLP_ENDPOINT", "localhost:4318")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Completion.APIKey)
	assert.Equal(t, "search-key", cfg.Search.APIKey)
	assert.Equal(t, "cx-env", cfg.Search.EngineID)
	assert.Equal(t, "bolt", cfg.Storage.Backend)
	assert.Equal(t, "/data", cfg.Storage.DataDir)
	assert.Equal(t, "localhost:4318", cfg.Telemetry.OTLPEndpoint)
}

func TestApplyEnvOverrides_GroqFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "plain-groq")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "plain-groq", cfg.Completion.APIKey)

	cfg = Default()
	cfg.Completion.APIKey = "configured"
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "configured", cfg.Completion.APIKey, "GROQ_API_KEY does not replace a configured key")
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[storage]
backend = "postgres"

[logging]
format = "xml"

[search]
burst = -1
`)

	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs), "error %v should wrap ValidateErrors", err)
	fields := map[string]bool{}
	for _, v := range verrs {
		fields[v.Field] = true
	}
	assert.True(t, fields["storage.backend"])
	assert.True(t, fields["logging.format"])
	assert.True(t, fields["search.burst"])
}

func TestLoad_MalformedTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[completion\napi_key = ")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Completion.APIKey = "gsk_secret"
	cfg.Storage.Backend = "bolt"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "ARDA_SEARCH_ENGINE_ID=cx-dotenv\n")
	// godotenv keeps variables that already exist, even when empty.
	require.NoError(t, os.Unsetenv("ARDA_SEARCH_ENGINE_ID"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envPath))
	assert.Equal(t, "cx-dotenv", os.Getenv("ARDA_SEARCH_ENGINE_ID"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "none.env")))
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Completion.APIKey = "gsk_1234567890abcdef"
	cfg.Search.APIKey = "short"

	out := cfg.String()
	assert.NotContains(t, out, "gsk_1234567890abcdef")
	assert.Contains(t, out, "gsk_...cdef")
	assert.NotContains(t, out, `"short"`)
	assert.Equal(t, "gsk_1234567890abcdef", cfg.Completion.APIKey, "Redacted must not modify the receiver")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandHome("~/logs/arda.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs", "arda.log"), got)

	got, err = expandHome("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
	assert.False(t, strings.HasPrefix(got, "~"))
}
