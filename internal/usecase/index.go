package usecase

import (
	"context"
	"fmt"

	"bookrag/internal/domain"
	"bookrag/internal/logger"
	"bookrag/internal/metrics"
	"bookrag/internal/port"
)

// IndexUseCase embeds chunks and writes them to the vector store.
type IndexUseCase struct {
	store     port.VectorStore
	embedder  port.Embedder
	batchSize int
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewIndexUseCase creates an index use case. log and m may be nil.
func NewIndexUseCase(
	store port.VectorStore,
	embedder port.Embedder,
	batchSize int,
	log *logger.Logger,
	m *metrics.Metrics,
) *IndexUseCase {
	if log == nil {
		log = logger.Nop()
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IndexUseCase{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		log:       log.Component("index"),
		metrics:   m,
	}
}

// IndexOptions controls a single Index run.
type IndexOptions struct {
	// Reset empties the collection before writing.
	Reset bool
	// Progress is called after each batch with the number of chunks written
	// so far and the total.
	Progress func(done, total int)
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	ChunksIndexed int
	Batches       int
	EmbedFailures int
	Errors        []string
}

// Index embeds chunks batch by batch and upserts them. A batch whose
// embedding fails is still written with the zero vectors the embedder
// returns, so every chunk stays addressable; the failure is reported.
func (u *IndexUseCase) Index(ctx context.Context, chunks []domain.Chunk, opts IndexOptions) (*IndexResult, error) {
	if opts.Reset {
		if err := u.store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset collection: %w", err)
		}
		u.log.Info().Msg("collection reset")
	}

	result := &IndexResult{}
	total := len(chunks)

	for start := 0; start < total; start += u.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := min(start+u.batchSize, total)
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			result.EmbedFailures++
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d-%d: %v", start, end, err))
			u.log.Warn().Err(err).Int("start", start).Int("end", end).Msg("embedding failed for batch")
			if u.metrics != nil {
				u.metrics.EmbedFailuresTotal.Inc()
			}
		}
		if len(vectors) != len(batch) {
			return result, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}

		items := make([]domain.IndexedVector, len(batch))
		for i, c := range batch {
			items[i] = domain.IndexedVector{
				ID:       c.ID,
				Vector:   vectors[i],
				Content:  c.Content,
				Metadata: c.Metadata(),
			}
		}
		if err := u.store.Upsert(ctx, items); err != nil {
			return result, fmt.Errorf("failed to store batch %d-%d: %w", start, end, err)
		}

		result.Batches++
		result.ChunksIndexed += len(batch)
		if u.metrics != nil {
			u.metrics.VectorsWrittenTotal.Add(float64(len(batch)))
		}
		if opts.Progress != nil {
			opts.Progress(result.ChunksIndexed, total)
		}
		u.log.Debug().Int("done", result.ChunksIndexed).Int("total", total).Msg("indexed batch")
	}

	u.log.Info().
		Int("chunks", result.ChunksIndexed).
		Int("batches", result.Batches).
		Int("embed_failures", result.EmbedFailures).
		Msg("indexing complete")
	return result, nil
}
