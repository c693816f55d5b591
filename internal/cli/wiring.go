package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"bookrag/config"
	"bookrag/internal/adapter/llm"
	"bookrag/internal/adapter/retriever"
	"bookrag/internal/adapter/store"
	"bookrag/internal/metrics"
	"bookrag/internal/port"
	"bookrag/internal/usecase"
)

// newLLM builds the configured chat model gateway.
func newLLM(cfg *config.Config) (port.LLM, error) {
	lc := cfg.LLM
	gc := llm.Config{
		APIKey:  lc.ResolveAPIKey(),
		BaseURL: lc.BaseURL,
		Model:   lc.Model,
		Timeout: lc.Timeout(),
	}

	switch lc.Provider {
	case "openai":
		return llm.NewOpenAIClient(gc)
	case "ollama":
		return llm.NewOllamaClient(gc), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", lc.Provider)
	}
}

// knowledge bundles the read side of an index.
type knowledge struct {
	bolt      *store.BoltStore
	store     port.VectorStore
	storePath string
}

func (k *knowledge) Close() error {
	if k.bolt == nil {
		return nil
	}
	return k.bolt.Close()
}

// openKnowledge opens the index read-only. A missing index is not an error:
// the returned knowledge has a nil store and reports itself unavailable.
func openKnowledge(cfg *config.Config, dir string, dimension int) (*knowledge, error) {
	path := cfg.StorePath(dir)
	k := &knowledge{storePath: path}

	bs, err := store.OpenReadOnly(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("no index found")
		return k, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	vs, err := store.NewVectorStore(bs, cfg.Store.Collection, dimension)
	if err != nil {
		bs.Close()
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	k.bolt = bs
	k.store = vs
	k.storePath = bs.Path()
	return k, nil
}

// services are the query-side use cases shared by ask, search and serve.
type services struct {
	ask    *usecase.AskUseCase
	search *usecase.SearchUseCase
	kb     *usecase.KnowledgeBase
}

func newServices(cfg *config.Config, k *knowledge, embedder port.Embedder, model port.LLM, m *metrics.Metrics) *services {
	r := retriever.NewSemanticRetriever(k.store, embedder, log, m)

	composer := usecase.NewAnswerComposer(model, usecase.ComposerConfig{
		MaxResults:           cfg.Retrieve.TopK,
		ContextPreviewChars:  cfg.Answer.ContextPreviewChars,
		CitationPreviewChars: cfg.Answer.CitationPreviewChars,
		HistoryTurns:         cfg.Answer.HistoryTurns,
		MaxTokens:            cfg.LLM.MaxTokens,
		Temperature:          cfg.LLM.Temperature,
	}, log, m)

	return &services{
		ask:    usecase.NewAskUseCase(r, composer, cfg.Retrieve.TopK, cfg.Retrieve.MinSimilarity, log, m),
		search: usecase.NewSearchUseCase(r, cfg.Retrieve.SearchMinSimilarity, cfg.Retrieve.SearchPreviewChars),
		kb:     usecase.NewKnowledgeBase(k.store, cfg.Store.Collection, k.storePath, log),
	}
}
