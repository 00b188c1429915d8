package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Agent     AgentDefaults   `json:"agent"`
	Providers ProvidersConfig `json:"providers"`
	RAG       RAGConfig       `json:"rag"`
	Archive   ArchiveConfig   `json:"archive"`
	mu        sync.RWMutex
}

type AgentDefaults struct {
	Workspace          string  `json:"workspace" env:"NOTEMIND_AGENT_WORKSPACE"`
	Provider           string  `json:"provider" env:"NOTEMIND_AGENT_PROVIDER"`
	// Model overrides the provider's default model when set.
	Model              string  `json:"model" env:"NOTEMIND_AGENT_MODEL"`
	MaxTokens          int     `json:"max_tokens" env:"NOTEMIND_AGENT_MAX_TOKENS"`
	Temperature        float64 `json:"temperature" env:"NOTEMIND_AGENT_TEMPERATURE"`
	CallTimeoutSeconds int     `json:"call_timeout_seconds" env:"NOTEMIND_AGENT_CALL_TIMEOUT_SECONDS"`
	LogLevel           string  `json:"log_level" env:"NOTEMIND_AGENT_LOG_LEVEL"`
	LogJSON            bool    `json:"log_json" env:"NOTEMIND_AGENT_LOG_JSON"`
}

type ProvidersConfig struct {
	OpenRouter ProviderConfig  `json:"openrouter"`
	OpenAI     OpenAIConfig    `json:"openai"`
	Anthropic  AnthropicConfig `json:"anthropic"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" env:"NOTEMIND_PROVIDERS_OPENROUTER_API_KEY"`
	APIBase string `json:"api_base" env:"NOTEMIND_PROVIDERS_OPENROUTER_API_BASE"`
	Proxy   string `json:"proxy,omitempty" env:"NOTEMIND_PROVIDERS_OPENROUTER_PROXY"`
}

type OpenAIConfig struct {
	APIKey       string `json:"api_key" env:"NOTEMIND_PROVIDERS_OPENAI_API_KEY"`
	APIBase      string `json:"api_base" env:"NOTEMIND_PROVIDERS_OPENAI_API_BASE"`
	Proxy        string `json:"proxy,omitempty" env:"NOTEMIND_PROVIDERS_OPENAI_PROXY"`
	Organization string `json:"organization,omitempty" env:"NOTEMIND_PROVIDERS_OPENAI_ORGANIZATION"`
	Project      string `json:"project,omitempty" env:"NOTEMIND_PROVIDERS_OPENAI_PROJECT"`
	// OAuthTokenFile holds a bearer token on disk, either plain or as {"access_token": "..."}.
	OAuthTokenFile string `json:"oauth_token_file,omitempty" env:"NOTEMIND_PROVIDERS_OPENAI_OAUTH_TOKEN_FILE"`
}

type AnthropicConfig struct {
	APIKey  string `json:"api_key" env:"NOTEMIND_PROVIDERS_ANTHROPIC_API_KEY"`
	APIBase string `json:"api_base,omitempty" env:"NOTEMIND_PROVIDERS_ANTHROPIC_API_BASE"`
}

// RAGConfig tunes chunking, retrieval budgets and summary compression.
type RAGConfig struct {
	ChunkSize             int  `json:"chunk_size" env:"NOTEMIND_RAG_CHUNK_SIZE"`
	ChunkOverlap          int  `json:"chunk_overlap" env:"NOTEMIND_RAG_CHUNK_OVERLAP"`
	PrimaryTokenBudget    int  `json:"primary_token_budget" env:"NOTEMIND_RAG_PRIMARY_TOKEN_BUDGET"`
	PrimaryMaxChunks      int  `json:"primary_max_chunks" env:"NOTEMIND_RAG_PRIMARY_MAX_CHUNKS"`
	FallbackTokenBudget   int  `json:"fallback_token_budget" env:"NOTEMIND_RAG_FALLBACK_TOKEN_BUDGET"`
	FallbackMaxChunks     int  `json:"fallback_max_chunks" env:"NOTEMIND_RAG_FALLBACK_MAX_CHUNKS"`
	SummaryThresholdChars int  `json:"summary_threshold_chars" env:"NOTEMIND_RAG_SUMMARY_THRESHOLD_CHARS"`
	EscalationChars       int  `json:"escalation_chars" env:"NOTEMIND_RAG_ESCALATION_CHARS"`
	MaxCorpusChunks       int  `json:"max_corpus_chunks" env:"NOTEMIND_RAG_MAX_CORPUS_CHUNKS"`
	SyncSummary           bool `json:"sync_summary" env:"NOTEMIND_RAG_SYNC_SUMMARY"`
}

type ArchiveConfig struct {
	Enabled bool   `json:"enabled" env:"NOTEMIND_ARCHIVE_ENABLED"`
	Path    string `json:"path" env:"NOTEMIND_ARCHIVE_PATH"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentDefaults{
			Workspace:          "~/.notemind/workspace",
			Provider:           "openrouter",
			Model:              "",
			MaxTokens:          2048,
			Temperature:        0.3,
			CallTimeoutSeconds: 90,
			LogLevel:           "info",
		},
		Providers: ProvidersConfig{},
		RAG: RAGConfig{
			ChunkSize:             800,
			ChunkOverlap:          120,
			PrimaryTokenBudget:    1400,
			PrimaryMaxChunks:      8,
			FallbackTokenBudget:   980,
			FallbackMaxChunks:     5,
			SummaryThresholdChars: 1800,
			EscalationChars:       2000,
			MaxCorpusChunks:       0,
			SyncSummary:           false,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    "",
		},
	}
}

// LoadConfig reads path (missing file means defaults) and applies NOTEMIND_* overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate rejects settings the controller cannot run with.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r := c.RAG
	if r.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", r.ChunkSize)
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size), got %d", r.ChunkOverlap)
	}
	if r.PrimaryTokenBudget <= 0 || r.PrimaryMaxChunks <= 0 {
		return fmt.Errorf("rag primary budget must be positive")
	}
	if r.FallbackTokenBudget > 0 && r.FallbackTokenBudget >= r.PrimaryTokenBudget {
		return fmt.Errorf("rag.fallback_token_budget (%d) must be below primary (%d)", r.FallbackTokenBudget, r.PrimaryTokenBudget)
	}
	if r.FallbackMaxChunks > 0 && r.FallbackMaxChunks >= r.PrimaryMaxChunks {
		return fmt.Errorf("rag.fallback_max_chunks (%d) must be below primary (%d)", r.FallbackMaxChunks, r.PrimaryMaxChunks)
	}
	if r.SummaryThresholdChars <= 0 {
		return fmt.Errorf("rag.summary_threshold_chars must be positive")
	}
	if r.MaxCorpusChunks < 0 {
		return fmt.Errorf("rag.max_corpus_chunks must not be negative")
	}
	return nil
}

func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Agent.Workspace)
}

// ArchivePath returns the note archive database location.
func (c *Config) ArchivePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p := strings.TrimSpace(c.Archive.Path); p != "" {
		return expandHome(p)
	}
	return filepath.Join(expandHome(c.Agent.Workspace), "state", "notes.db")
}

func (c *Config) CallTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Agent.CallTimeoutSeconds <= 0 {
		return 90 * time.Second
	}
	return time.Duration(c.Agent.CallTimeoutSeconds) * time.Second
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
