package embedding

import (
	"fmt"

	"bookrag/config"
	"bookrag/internal/port"
)

// New builds the embedding gateway named by cfg.Provider. The API key is
// read here, once.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	gc := Config{
		APIKey:            cfg.ResolveAPIKey(),
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		Dimension:         ResolveDimension(cfg),
		BatchSize:         cfg.BatchSize,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout(),
	}

	switch cfg.Provider {
	case "openai":
		if gc.BaseURL != "" && gc.BaseURL != DefaultOpenAIBaseURL {
			return NewOpenAICompatibleEmbedder(gc)
		}
		return NewOpenAIEmbedder(gc)
	case "ollama":
		return NewOllamaEmbedder(gc)
	case "mock":
		return NewMockEmbedder(gc.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// ResolveDimension returns the vector length the configured gateway
// produces, without building it. A zero dimension is inferred from the
// provider and model.
func ResolveDimension(cfg config.EmbeddingConfig) int {
	if cfg.Dimension > 0 {
		return cfg.Dimension
	}
	if cfg.Provider == "mock" {
		return defaultMockDimension
	}
	return modelDimension(cfg.Model)
}
