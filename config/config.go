package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for bookrag.
type Config struct {
	Ingest    IngestConfig    `yaml:"ingest" toml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	LLM       LLMConfig       `yaml:"llm" toml:"llm"`
	Retrieve  RetrieveConfig  `yaml:"retrieve" toml:"retrieve"`
	Answer    AnswerConfig    `yaml:"answer" toml:"answer"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
}

// IngestConfig holds book discovery and chunking configuration.
type IngestConfig struct {
	Includes         []string `yaml:"includes" toml:"includes"`
	Excludes         []string `yaml:"excludes" toml:"excludes"`
	ChunkSize        int      `yaml:"chunk_size" toml:"chunk_size"`       // words
	ChunkOverlap     int      `yaml:"chunk_overlap" toml:"chunk_overlap"` // words
	OverlapSentences int      `yaml:"overlap_sentences" toml:"overlap_sentences"`
	Workers          int      `yaml:"workers" toml:"workers"`
	OutputDir        string   `yaml:"output_dir" toml:"output_dir"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" toml:"provider"` // "openai", "ollama", "mock"
	Model             string  `yaml:"model" toml:"model"`
	BaseURL           string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env" toml:"api_key_env"`
	Dimension         int     `yaml:"dimension" toml:"dimension"` // 0 infers from the model
	BatchSize         int     `yaml:"batch_size" toml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// LLMConfig holds chat model configuration.
type LLMConfig struct {
	Provider       string  `yaml:"provider" toml:"provider"` // "openai", "ollama"
	Model          string  `yaml:"model" toml:"model"`
	BaseURL        string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env" toml:"api_key_env"`
	MaxTokens      int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature    float64 `yaml:"temperature" toml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK                int     `yaml:"top_k" toml:"top_k"`
	MinSimilarity       float64 `yaml:"min_similarity" toml:"min_similarity"`
	SearchMinSimilarity float64 `yaml:"search_min_similarity" toml:"search_min_similarity"`
	SearchPreviewChars  int     `yaml:"search_preview_chars" toml:"search_preview_chars"`
}

// AnswerConfig holds answer composition configuration.
type AnswerConfig struct {
	ContextPreviewChars  int `yaml:"context_preview_chars" toml:"context_preview_chars"`
	CitationPreviewChars int `yaml:"citation_preview_chars" toml:"citation_preview_chars"`
	HistoryTurns         int `yaml:"history_turns" toml:"history_turns"`
}

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	Path       string `yaml:"path" toml:"path"`
	Collection string `yaml:"collection" toml:"collection"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Pretty bool   `yaml:"pretty" toml:"pretty"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			Includes:         []string{"**/*.txt", "**/*.md"},
			Excludes:         []string{"**/.git/**", "**/.bookrag/**", "**/processed_data/**"},
			ChunkSize:        1000,
			ChunkOverlap:     200,
			OverlapSentences: 3,
			Workers:          4,
			OutputDir:        "processed_data",
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			BatchSize:      100,
			TimeoutSeconds: 60,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			MaxTokens:      2000,
			Temperature:    0.7,
			TimeoutSeconds: 120,
		},
		Retrieve: RetrieveConfig{
			TopK:                5,
			MinSimilarity:       0.6,
			SearchMinSimilarity: 0.5,
			SearchPreviewChars:  300,
		},
		Answer: AnswerConfig{
			ContextPreviewChars:  500,
			CitationPreviewChars: 200,
			HistoryTurns:         6,
		},
		Store: StoreConfig{
			Path:       filepath.Join(".bookrag", "index.db"),
			Collection: "book_knowledge",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
	}
}

// Load loads configuration from a YAML or TOML file. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads bookrag.yaml, bookrag.toml or .bookrag/config.yaml from
// dir, in that order.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{
		"bookrag.yaml",
		"bookrag.toml",
		filepath.Join(".bookrag", "config.yaml"),
	} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return DefaultConfig(), nil
}

// Save saves configuration as YAML, or TOML when path ends in .toml.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports settings that cannot produce a working pipeline.
func (c *Config) Validate() error {
	var errs []error
	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap <= 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("ingest.chunk_overlap must be in (0, chunk_size), got %d", c.Ingest.ChunkOverlap))
	}
	if c.Ingest.OverlapSentences < 0 {
		errs = append(errs, fmt.Errorf("ingest.overlap_sentences must not be negative"))
	}
	if c.Retrieve.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK))
	}
	if c.Retrieve.MinSimilarity < 0 || c.Retrieve.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("retrieve.min_similarity must be in [0, 1], got %g", c.Retrieve.MinSimilarity))
	}
	if c.Retrieve.SearchMinSimilarity < 0 || c.Retrieve.SearchMinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("retrieve.search_min_similarity must be in [0, 1], got %g", c.Retrieve.SearchMinSimilarity))
	}
	if c.Embedding.Dimension < 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must not be negative, got %d", c.Embedding.Dimension))
	}
	switch c.Embedding.Provider {
	case "openai", "ollama", "mock":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider))
	}
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

// ResolveAPIKey reads the embedding key from the configured environment
// variable. It is called once, when the gateway is built.
func (c EmbeddingConfig) ResolveAPIKey() string {
	return resolveEnv(c.APIKeyEnv)
}

// Timeout returns the request timeout.
func (c EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveAPIKey reads the chat model key from the configured environment
// variable. It is called once, when the gateway is built.
func (c LLMConfig) ResolveAPIKey() string {
	return resolveEnv(c.APIKeyEnv)
}

// Timeout returns the request timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func resolveEnv(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

// StorePath returns the vector store path resolved against dir.
func (c *Config) StorePath(dir string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(dir, c.Store.Path)
}

// EnsureStoreDir ensures the directory holding the vector store exists.
func (c *Config) EnsureStoreDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.StorePath(dir)), 0755)
}
