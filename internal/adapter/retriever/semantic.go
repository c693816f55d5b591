package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookrag/internal/domain"
	"bookrag/internal/logger"
	"bookrag/internal/metrics"
	"bookrag/internal/port"
)

// SemanticRetriever answers queries by nearest-neighbour search over chunk
// embeddings. It holds no per-call state and is safe for concurrent use.
type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
	log         *logger.Logger
	metrics     *metrics.Metrics
}

var _ port.Retriever = (*SemanticRetriever)(nil)

// NewSemanticRetriever creates a retriever. log and m may be nil.
func NewSemanticRetriever(
	vectorStore port.VectorStore,
	embedder port.Embedder,
	log *logger.Logger,
	m *metrics.Metrics,
) *SemanticRetriever {
	if log == nil {
		log = logger.Nop()
	}
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		log:         log.Component("retriever"),
		metrics:     m,
	}
}

// Retrieve returns at most k results whose similarity is at least
// minSimilarity, nearest first. Failures never escape as errors: they are
// logged and reported through the outcome status.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, k int, minSimilarity float64) domain.RetrievalOutcome {
	start := time.Now()
	outcome := r.retrieve(ctx, query, k, minSimilarity)

	if outcome.Status == domain.RetrievalFailed {
		r.log.Warn().Err(outcome.Err).Str("query", query).Msg("retrieval failed")
	} else {
		r.log.Debug().
			Str("status", string(outcome.Status)).
			Int("candidates", outcome.Candidates).
			Int("results", len(outcome.Results)).
			Float64("min_similarity", minSimilarity).
			Msg("retrieval completed")
	}

	if r.metrics != nil {
		r.metrics.RecordRetrieval(string(outcome.Status), len(outcome.Results),
			outcome.Candidates-len(outcome.Results), time.Since(start))
	}
	return outcome
}

func (r *SemanticRetriever) retrieve(ctx context.Context, query string, k int, minSimilarity float64) domain.RetrievalOutcome {
	if r.vectorStore == nil || r.embedder == nil {
		return domain.RetrievalOutcome{
			Status: domain.RetrievalUnavailable,
			Err:    domain.ErrKnowledgeBaseUnavailable,
		}
	}

	count, err := r.vectorStore.Count(ctx)
	if err != nil {
		return failed(fmt.Errorf("count vectors: %w", err))
	}
	if count == 0 {
		return domain.RetrievalOutcome{
			Status: domain.RetrievalUnavailable,
			Err:    domain.ErrKnowledgeBaseUnavailable,
		}
	}

	if strings.TrimSpace(query) == "" || k <= 0 {
		return domain.RetrievalOutcome{Status: domain.RetrievalEmpty}
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return failed(fmt.Errorf("embed query: %w", err))
	}
	if len(embeddings) == 0 {
		return failed(errors.New("embed query: empty result"))
	}

	res, err := r.vectorStore.Query(ctx, embeddings[0], k)
	if err != nil {
		return failed(fmt.Errorf("query vectors: %w", err))
	}

	results := FilterBySimilarity(res, minSimilarity)
	status := domain.RetrievalOK
	if len(results) == 0 {
		status = domain.RetrievalEmpty
	}

	return domain.RetrievalOutcome{
		Status:     status,
		Results:    results,
		Candidates: res.Len(),
	}
}

// FilterBySimilarity converts distances to similarities (1 - d) and keeps
// candidates at or above the floor, in the store's order.
func FilterBySimilarity(res port.QueryResult, minSimilarity float64) []domain.RetrievalResult {
	n := min(res.Len(), len(res.Distances))
	results := make([]domain.RetrievalResult, 0, n)
	for i := 0; i < n; i++ {
		similarity := 1 - res.Distances[i]
		if similarity < minSimilarity {
			continue
		}

		var meta domain.ChunkMetadata
		if i < len(res.Metadatas) {
			meta = res.Metadatas[i]
		}
		var content string
		if i < len(res.Documents) {
			content = res.Documents[i]
		}

		results = append(results, domain.RetrievalResult{
			ID:         res.IDs[i],
			Content:    content,
			Metadata:   meta.WithDefaults(),
			Similarity: similarity,
		})
	}
	return results
}

func failed(err error) domain.RetrievalOutcome {
	return domain.RetrievalOutcome{Status: domain.RetrievalFailed, Err: err}
}
