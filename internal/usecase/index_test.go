package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/adapter/embedding"
	"bookrag/internal/adapter/memstore"
	"bookrag/internal/domain"
	"bookrag/internal/metrics"
)

func makeChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:            fmt.Sprintf("book_ch_%d", i),
			Content:       fmt.Sprintf("passage number %d about offers", i),
			DocumentTitle: "Book",
			SectionTitle:  "Ch",
			WordCount:     5,
			SequenceIndex: i,
			SourceFile:    "book.txt",
		}
	}
	return chunks
}

func TestIndexWritesBatches(t *testing.T) {
	st := memstore.NewMemoryStore(32)
	m := metrics.New()
	u := NewIndexUseCase(st, embedding.NewMockEmbedder(32), 4, nil, m)

	var progress [][2]int
	res, err := u.Index(context.Background(), makeChunks(10), IndexOptions{
		Progress: func(done, total int) { progress = append(progress, [2]int{done, total}) },
	})
	require.NoError(t, err)

	assert.Equal(t, 10, res.ChunksIndexed)
	assert.Equal(t, 3, res.Batches)
	assert.Zero(t, res.EmbedFailures)
	assert.Equal(t, [][2]int{{4, 10}, {8, 10}, {10, 10}}, progress)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	metas, err := st.Metadatas(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, metas[0].SequenceIndex)
	assert.Equal(t, "book.txt", metas[9].SourceFile)
}

func TestIndexReset(t *testing.T) {
	ctx := context.Background()
	st := memstore.NewMemoryStore(16)
	u := NewIndexUseCase(st, embedding.NewMockEmbedder(16), 100, nil, nil)

	_, err := u.Index(ctx, makeChunks(5), IndexOptions{})
	require.NoError(t, err)
	_, err = u.Index(ctx, makeChunks(2), IndexOptions{Reset: true})
	require.NoError(t, err)

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndexUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memstore.NewMemoryStore(16)
	u := NewIndexUseCase(st, embedding.NewMockEmbedder(16), 3, nil, nil)

	for i := 0; i < 2; i++ {
		_, err := u.Index(ctx, makeChunks(5), IndexOptions{})
		require.NoError(t, err)
	}
	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestIndexZeroVectorsOnEmbedFailure(t *testing.T) {
	st := memstore.NewMemoryStore(8)
	emb := &zeroingEmbedder{dim: 8}
	u := NewIndexUseCase(st, emb, 2, nil, metrics.New())

	res, err := u.Index(context.Background(), makeChunks(4), IndexOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.ChunksIndexed)
	assert.Equal(t, 2, res.EmbedFailures)
	assert.Len(t, res.Errors, 2)
}

// zeroingEmbedder mirrors the gateway contract: aligned zero vectors plus an error.
type zeroingEmbedder struct{ dim int }

func (e *zeroingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, e.dim)
	}
	return out, errors.New("upstream unavailable")
}

func (e *zeroingEmbedder) Dimension() int    { return e.dim }
func (e *zeroingEmbedder) ModelName() string { return "zero" }

func TestIndexCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u := NewIndexUseCase(memstore.NewMemoryStore(8), embedding.NewMockEmbedder(8), 2, nil, nil)
	_, err := u.Index(ctx, makeChunks(4), IndexOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
