package port

import (
	"context"

	"bookrag/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order. A text that
	// could not be embedded gets a zero vector of Dimension() length.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore persists chunk vectors and answers nearest-neighbour queries.
type VectorStore interface {
	// Upsert adds or replaces records by ID.
	Upsert(ctx context.Context, items []domain.IndexedVector) error

	// Query returns up to k records nearest to vector, nearest first.
	Query(ctx context.Context, vector []float32, k int) (QueryResult, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Metadatas returns stored metadata in insertion order. limit <= 0 means all.
	Metadatas(ctx context.Context, limit int) ([]domain.ChunkMetadata, error)

	// Records returns stored records without vectors, in insertion order.
	// limit <= 0 means all.
	Records(ctx context.Context, limit int) ([]StoredRecord, error)

	// Reset removes every record.
	Reset(ctx context.Context) error
}

// StoredRecord is a record as read back from a store.
type StoredRecord struct {
	ID       string
	Document string
	Metadata domain.ChunkMetadata
}

// QueryResult holds aligned parallel lists, nearest first. Distances are
// cosine distances in [0, 2].
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []domain.ChunkMetadata
	Distances []float64
}

// Len returns the number of matches.
func (r QueryResult) Len() int {
	return len(r.IDs)
}
