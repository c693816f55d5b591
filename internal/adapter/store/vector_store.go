package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"go.etcd.io/bbolt"

	"bookrag/internal/domain"
	"bookrag/internal/port"
)

const collectionPrefix = "collection:"

// VectorStore implements port.VectorStore on top of one bbolt bucket.
// Every record is also cached in memory and searched by brute force.
type VectorStore struct {
	store      *BoltStore
	bucket     []byte
	collection string
	dimension  int

	mu      sync.RWMutex
	records map[string]record
}

type record struct {
	seq      uint64
	vector   []float32
	content  string
	metadata domain.ChunkMetadata
}

type storedRecord struct {
	Seq      uint64               `json:"seq"`
	Vector   []float32            `json:"v"`
	Content  string               `json:"c"`
	Metadata domain.ChunkMetadata `json:"m"`
}

var _ port.VectorStore = (*VectorStore)(nil)

func collectionBucket(name string) []byte {
	return []byte(collectionPrefix + name)
}

func collectionName(bucket []byte) (string, bool) {
	return strings.CutPrefix(string(bucket), collectionPrefix)
}

// NewVectorStore opens the named collection. A collection that does not
// exist yet is created unless the store is read-only, in which case it is
// simply empty.
func NewVectorStore(bs *BoltStore, collection string, dimension int) (*VectorStore, error) {
	if collection == "" {
		return nil, errors.New("collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}

	vs := &VectorStore{
		store:      bs,
		bucket:     collectionBucket(collection),
		collection: collection,
		dimension:  dimension,
		records:    make(map[string]record),
	}

	if !bs.readOnly {
		err := bs.db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(vs.bucket)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", collection, err)
		}
	}

	if err := vs.load(); err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	return vs, nil
}

func (s *VectorStore) load() error {
	return s.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			if len(stored.Vector) != s.dimension {
				return fmt.Errorf("%w: record %s has %d dimensions, collection uses %d",
					domain.ErrDimensionMismatch, k, len(stored.Vector), s.dimension)
			}
			s.records[string(k)] = record{
				seq:      stored.Seq,
				vector:   stored.Vector,
				content:  stored.Content,
				metadata: stored.Metadata,
			}
			return nil
		})
	})
}

// Collection returns the collection name.
func (s *VectorStore) Collection() string {
	return s.collection
}

// Dimension returns the vector length accepted by the collection.
func (s *VectorStore) Dimension() int {
	return s.dimension
}

// Upsert writes items in one transaction. Replacing an existing id keeps its
// original insertion position.
func (s *VectorStore) Upsert(ctx context.Context, items []domain.IndexedVector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if item.ID == "" {
			return errors.New("vector store: empty record id")
		}
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, item.ID, len(item.Vector), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]record, len(items))
	err := s.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("collection %s not found", s.collection)
		}

		for _, item := range items {
			seq, ok := s.existingSeq(item.ID, staged)
			if !ok {
				next, err := b.NextSequence()
				if err != nil {
					return err
				}
				seq = next
			}

			stored := storedRecord{
				Seq:      seq,
				Vector:   item.Vector,
				Content:  item.Content,
				Metadata: item.Metadata,
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}

			staged[item.ID] = record{
				seq:      seq,
				vector:   item.Vector,
				content:  item.Content,
				metadata: item.Metadata,
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for id, rec := range staged {
		s.records[id] = rec
	}
	return nil
}

func (s *VectorStore) existingSeq(id string, staged map[string]record) (uint64, bool) {
	if rec, ok := staged[id]; ok {
		return rec.seq, true
	}
	if rec, ok := s.records[id]; ok {
		return rec.seq, true
	}
	return 0, false
}

// Query returns up to k records ordered by ascending cosine distance. Ties
// keep insertion order.
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int) (port.QueryResult, error) {
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

	type scored struct {
		id       string
		distance float64
		rec      record
	}

	scores := make([]scored, 0, len(s.records))
	for id, rec := range s.records {
		scores = append(scores, scored{
			id:       id,
			distance: CosineDistance(vector, rec.vector),
			rec:      rec,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].distance != scores[j].distance {
			return scores[i].distance < scores[j].distance
		}
		return scores[i].rec.seq < scores[j].rec.seq
	})

	if k > len(scores) {
		k = len(scores)
	}

	result := port.QueryResult{
		IDs:       make([]string, k),
		Documents: make([]string, k),
		Metadatas: make([]domain.ChunkMetadata, k),
		Distances: make([]float64, k),
	}
	for i := 0; i < k; i++ {
		result.IDs[i] = scores[i].id
		result.Documents[i] = scores[i].rec.content
		result.Metadatas[i] = scores[i].rec.metadata.WithDefaults()
		result.Distances[i] = scores[i].distance
	}

	return result, nil
}

// Count returns the number of records in the collection.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Metadatas returns record metadata in insertion order.
func (s *VectorStore) Metadatas(ctx context.Context, limit int) ([]domain.ChunkMetadata, error) {
	recs, err := s.Records(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChunkMetadata, len(recs))
	for i, rec := range recs {
		out[i] = rec.Metadata
	}
	return out, nil
}

// Records returns ids, contents and metadata in insertion order.
func (s *VectorStore) Records(ctx context.Context, limit int) ([]port.StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type keyed struct {
		id string
		record
	}
	s.mu.RLock()
	recs := make([]keyed, 0, len(s.records))
	for id, rec := range s.records {
		recs = append(recs, keyed{id: id, record: rec})
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].seq < recs[j].seq
	})

	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}

	out := make([]port.StoredRecord, len(recs))
	for i, rec := range recs {
		out[i] = port.StoredRecord{
			ID:       rec.id,
			Document: rec.content,
			Metadata: rec.metadata.WithDefaults(),
		}
	}
	return out, nil
}

// Reset drops every record of the collection. Insertion sequences restart.
func (s *VectorStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(s.bucket) != nil {
			if err := tx.DeleteBucket(s.bucket); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to reset collection %s: %w", s.collection, err)
	}

	s.records = make(map[string]record)
	return nil
}

// CosineDistance returns 1 - cos(a, b), clamped to [0, 2]. A zero vector is
// orthogonal to everything.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	d := 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
	return math.Max(0, math.Min(2, d))
}
