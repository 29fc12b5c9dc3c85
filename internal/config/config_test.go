package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/resume-analyzer/internal/llm"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50<<20, cfg.Server.BodyLimit)
	assert.Equal(t, "*", cfg.Server.AllowOrigins)
	assert.Equal(t, llm.KindOpenAI, cfg.ProviderKind())
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "us-central1", cfg.Vertex.Location)
	assert.Equal(t, "credentials.json", cfg.Gmail.Credentials)
	assert.Equal(t, "token.json", cfg.Gmail.Token)
	assert.Equal(t, 4, cfg.Analysis.Concurrency)
	assert.False(t, cfg.Log.JSON)
	assert.False(t, cfg.Log.Debug)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "custom.yaml", `
server:
  port: 9090
llm:
  provider: gemini
  timeout: 15s
  models:
    gemini: gemini-1.5-pro
analysis:
  concurrency: 2
`)

	t.Setenv("RESUME_ANALYSIS_CONCURRENCY", "6")
	t.Setenv("RESUME_LLM_API_KEY", "env-key")
	t.Setenv("RESUME_LLM_ENDPOINTS_OPENAI", "http://localhost:9999/v1/chat/completions")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "file overrides default")
	assert.Equal(t, llm.KindGemini, cfg.ProviderKind())
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 6, cfg.Analysis.Concurrency, "env overrides file")
	assert.Equal(t, "env-key", cfg.LLM.APIKey)

	settings := cfg.LLMSettings()
	assert.Equal(t, "gemini-1.5-pro", settings.Models[llm.KindGemini])
	assert.Equal(t, "http://localhost:9999/v1/chat/completions", settings.Endpoints[llm.KindOpenAI])
	assert.NotContains(t, settings.Models, llm.KindOpenAI, "empty overrides are dropped")
	assert.Equal(t, 15*time.Second, settings.Timeout)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// Registered so the variable is removed again after the test.
	t.Setenv("RESUME_LOG_DEBUG", "")
	require.NoError(t, os.Unsetenv("RESUME_LOG_DEBUG"))

	writeFile(t, dir, ".env", "RESUME_LOG_DEBUG=true\n")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.True(t, cfg.Log.Debug)
}

func TestLoadDefaultConfigName(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	writeFile(t, dir, DefaultConfigName+".json", `{"vertex": {"project": "demo-project"}}`)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	settings := cfg.LLMSettings()
	assert.Equal(t, "demo-project", settings.VertexProject)
	assert.Equal(t, "us-central1", settings.VertexLocation)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "unknown provider", content: "llm:\n  provider: claude\n", wantErr: "Provider"},
		{name: "concurrency too high", content: "analysis:\n  concurrency: 64\n", wantErr: "Concurrency"},
		{name: "concurrency zero", content: "analysis:\n  concurrency: 0\n", wantErr: "Concurrency"},
		{name: "bad port", content: "server:\n  port: 70000\n", wantErr: "Port"},
		{name: "bad duration", content: "llm:\n  timeout: soon\n", wantErr: "failed to parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)

			path := writeFile(t, dir, "config.yaml", tt.content)

			_, err := Load(viper.New(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(viper.New(), "does-not-exist.yaml")
	assert.Error(t, err)
}
