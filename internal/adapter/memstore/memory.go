package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"bookrag/internal/adapter/store"
	"bookrag/internal/domain"
	"bookrag/internal/port"
)

// MemoryStore is a non-persistent port.VectorStore. Records live in a slice
// so insertion order is the slice order.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   []domain.IndexedVector
	index     map[string]int
}

var _ port.VectorStore = (*MemoryStore)(nil)

func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		index:     make(map[string]int),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, items []domain.IndexedVector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, item := range items {
		if item.ID == "" {
			return errors.New("memory store: empty record id")
		}
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, item.ID, len(item.Vector), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if i, ok := s.index[item.ID]; ok {
			s.records[i] = item
			continue
		}
		s.index[item.ID] = len(s.records)
		s.records = append(s.records, item)
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, k int) (port.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return port.QueryResult{}, err
	}
	if len(vector) != s.dimension {
		return port.QueryResult{}, fmt.Errorf("%w: query has %d dimensions, expected %d",
			domain.ErrDimensionMismatch, len(vector), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.records) == 0 {
		return port.QueryResult{}, nil
	}

	order := make([]int, len(s.records))
	distances := make([]float64, len(s.records))
	for i, rec := range s.records {
		order[i] = i
		distances[i] = store.CosineDistance(vector, rec.Vector)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}

	var result port.QueryResult
	for _, i := range order[:k] {
		rec := s.records[i]
		result.IDs = append(result.IDs, rec.ID)
		result.Documents = append(result.Documents, rec.Content)
		result.Metadatas = append(result.Metadatas, rec.Metadata.WithDefaults())
		result.Distances = append(result.Distances, distances[i])
	}
	return result, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Metadatas(ctx context.Context, limit int) ([]domain.ChunkMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.ChunkMetadata, n)
	for i := range out {
		out[i] = s.records[i].Metadata.WithDefaults()
	}
	return out, nil
}

func (s *MemoryStore) Records(ctx context.Context, limit int) ([]port.StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]port.StoredRecord, n)
	for i := range out {
		rec := s.records[i]
		out[i] = port.StoredRecord{ID: rec.ID, Document: rec.Content, Metadata: rec.Metadata.WithDefaults()}
	}
	return out, nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.index = make(map[string]int)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
