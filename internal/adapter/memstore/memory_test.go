package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
)

func vec(id string, v ...float32) domain.IndexedVector {
	return domain.IndexedVector{ID: id, Vector: v, Content: id}
}

func TestMemoryStoreQueryOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	require.NoError(t, s.Upsert(ctx, []domain.IndexedVector{
		vec("far", 0, 1),
		vec("tie1", 1, 1),
		vec("near", 1, 0),
		vec("tie2", 1, 1),
	}))

	res, err := s.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"near", "tie1", "tie2"}, res.IDs)
	assert.InDelta(t, 0.0, res.Distances[0], 1e-9)
	assert.Equal(t, domain.Unknown, res.Metadatas[0].DocumentTitle)
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	require.NoError(t, s.Upsert(ctx, []domain.IndexedVector{vec("a", 1, 0), vec("b", 0, 1)}))
	require.NoError(t, s.Upsert(ctx, []domain.IndexedVector{{ID: "a", Vector: []float32{1, 0}, Content: "new"}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := s.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", res.Documents[0])
}

func TestMemoryStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	err := s.Upsert(ctx, []domain.IndexedVector{vec("ok", 1, 0), vec("bad", 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	n, _ := s.Count(ctx)
	assert.Zero(t, n)

	assert.Error(t, s.Upsert(ctx, []domain.IndexedVector{vec("", 1, 0)}))
}

func TestMemoryStoreResetAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	require.NoError(t, s.Upsert(ctx, []domain.IndexedVector{vec("a", 1, 0), vec("b", 0, 1), vec("c", 1, 1)}))

	metas, err := s.Metadatas(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	recs, err := s.Records(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[2].ID)
	assert.Equal(t, "c", recs[2].Document)
	assert.Equal(t, domain.Unknown, recs[2].Metadata.SectionTitle)

	require.NoError(t, s.Reset(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
