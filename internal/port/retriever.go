package port

import (
	"context"

	"bookrag/internal/domain"
)

// Retriever returns chunks relevant to a query.
type Retriever interface {
	// Retrieve returns at most k results with similarity >= minSimilarity.
	Retrieve(ctx context.Context, query string, k int, minSimilarity float64) domain.RetrievalOutcome
}
