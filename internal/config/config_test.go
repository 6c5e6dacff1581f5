package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, "http://localhost:7279", cfg.TranscriptServiceURL)
	assert.Equal(t, 4000, cfg.ChunkSize)
	assert.Equal(t, 400, cfg.ChunkOverlap)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 50, cfg.MaxQuestionsPerSession)
	assert.Equal(t, 100000, cfg.MaxTokensPerSession)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
addr = ":9090"
ollama_model = "mistral"
chunk_size = 2000
chunk_overlap = 200
session_ttl = "30m"
max_questions_per_session = 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "mistral", cfg.OllamaModel)
	assert.Equal(t, 2000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.MaxQuestionsPerSession)
	// untouched keys keep their defaults
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100000, cfg.MaxTokensPerSession)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `addr = ":9090"`)
	t.Setenv("DOCCHAT_ADDR", ":7070")
	t.Setenv("DOCCHAT_MAX_TOKENS", "5000")
	t.Setenv("DOCCHAT_SESSION_TTL", "1h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, 5000, cfg.MaxTokensPerSession)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, `addr = [not toml`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `session_ttl = "soon"`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BadEnvInt(t *testing.T) {
	t.Setenv("DOCCHAT_CHUNK_SIZE", "lots")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_OverlapMustBeSmallerThanSize(t *testing.T) {
	path := writeConfig(t, `
chunk_size = 100
chunk_overlap = 100
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}
