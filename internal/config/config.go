// Package config loads service configuration from an optional TOML file and
// the environment. Environment variables (DOCCHAT_* prefix) win over the
// file, the file wins over defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full configuration surface of the service.
type Config struct {
	Addr                 string
	LogLevel             string
	OllamaURL            string
	OllamaModel          string
	TranscriptServiceURL string
	WatchDir             string
	CachePath            string

	ChunkSize    int
	ChunkOverlap int

	SessionTTL                 time.Duration
	MaxQuestionsPerSession     int
	MaxTokensPerSession        int
	EstimatedTokensPerQuestion int
	EstimatedTokensPerAnswer   int
}

// fileConfig mirrors Config for TOML decoding; durations are strings there.
type fileConfig struct {
	Addr                 string `toml:"addr"`
	LogLevel             string `toml:"log_level"`
	OllamaURL            string `toml:"ollama_url"`
	OllamaModel          string `toml:"ollama_model"`
	TranscriptServiceURL string `toml:"transcript_service_url"`
	WatchDir             string `toml:"watch_dir"`
	CachePath            string `toml:"cache_path"`

	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`

	SessionTTL                 string `toml:"session_ttl"`
	MaxQuestionsPerSession     int    `toml:"max_questions_per_session"`
	MaxTokensPerSession        int    `toml:"max_tokens_per_session"`
	EstimatedTokensPerQuestion int    `toml:"estimated_tokens_per_question"`
	EstimatedTokensPerAnswer   int    `toml:"estimated_tokens_per_answer"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Addr:                 ":8080",
		LogLevel:             "info",
		OllamaURL:            "http://localhost:11434",
		OllamaModel:          "llama3.2",
		TranscriptServiceURL: "http://localhost:7279",
		WatchDir:             "./documents",
		CachePath:            "./data",

		ChunkSize:    4000,
		ChunkOverlap: 400,

		SessionTTL:                 15 * time.Minute,
		MaxQuestionsPerSession:     50,
		MaxTokensPerSession:        100000,
		EstimatedTokensPerQuestion: 500,
		EstimatedTokensPerAnswer:   1000,
	}
}

// Load builds the configuration: defaults, then the TOML file at path (if
// non-empty), then DOCCHAT_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	setString(&cfg.Addr, fc.Addr)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.OllamaURL, fc.OllamaURL)
	setString(&cfg.OllamaModel, fc.OllamaModel)
	setString(&cfg.TranscriptServiceURL, fc.TranscriptServiceURL)
	setString(&cfg.WatchDir, fc.WatchDir)
	setString(&cfg.CachePath, fc.CachePath)
	setInt(&cfg.ChunkSize, fc.ChunkSize)
	setInt(&cfg.ChunkOverlap, fc.ChunkOverlap)
	setInt(&cfg.MaxQuestionsPerSession, fc.MaxQuestionsPerSession)
	setInt(&cfg.MaxTokensPerSession, fc.MaxTokensPerSession)
	setInt(&cfg.EstimatedTokensPerQuestion, fc.EstimatedTokensPerQuestion)
	setInt(&cfg.EstimatedTokensPerAnswer, fc.EstimatedTokensPerAnswer)

	if fc.SessionTTL != "" {
		d, err := time.ParseDuration(fc.SessionTTL)
		if err != nil {
			return fmt.Errorf("parsing session_ttl: %w", err)
		}
		cfg.SessionTTL = d
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Addr, os.Getenv("DOCCHAT_ADDR"))
	setString(&cfg.LogLevel, os.Getenv("DOCCHAT_LOG_LEVEL"))
	setString(&cfg.OllamaURL, os.Getenv("DOCCHAT_OLLAMA_URL"))
	setString(&cfg.OllamaModel, os.Getenv("DOCCHAT_OLLAMA_MODEL"))
	setString(&cfg.TranscriptServiceURL, os.Getenv("DOCCHAT_TRANSCRIPT_URL"))
	setString(&cfg.WatchDir, os.Getenv("DOCCHAT_WATCH_DIR"))
	setString(&cfg.CachePath, os.Getenv("DOCCHAT_CACHE_PATH"))

	for _, v := range []struct {
		key string
		dst *int
	}{
		{"DOCCHAT_CHUNK_SIZE", &cfg.ChunkSize},
		{"DOCCHAT_CHUNK_OVERLAP", &cfg.ChunkOverlap},
		{"DOCCHAT_MAX_QUESTIONS", &cfg.MaxQuestionsPerSession},
		{"DOCCHAT_MAX_TOKENS", &cfg.MaxTokensPerSession},
		{"DOCCHAT_EST_QUESTION_TOKENS", &cfg.EstimatedTokensPerQuestion},
		{"DOCCHAT_EST_ANSWER_TOKENS", &cfg.EstimatedTokensPerAnswer},
	} {
		raw := os.Getenv(v.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", v.key, err)
		}
		*v.dst = n
	}

	if raw := os.Getenv("DOCCHAT_SESSION_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parsing DOCCHAT_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
