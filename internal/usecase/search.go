package usecase

import (
	"context"
	"strings"

	"bookrag/internal/domain"
	"bookrag/internal/port"
)

const searchUnavailableText = "Knowledge base not available. Please run the indexing pipeline first."

// SearchResponse is the result of a raw top-k search.
type SearchResponse struct {
	Query      string                 `json:"query"`
	Results    []domain.SearchHit     `json:"results"`
	TotalFound int                    `json:"total_found"`
	Message    string                 `json:"message,omitempty"`
	Status     domain.RetrievalStatus `json:"status"`
}

// SearchUseCase runs retrieval without generation and returns previews.
type SearchUseCase struct {
	retriever     port.Retriever
	minSimilarity float64
	previewChars  int
}

func NewSearchUseCase(retriever port.Retriever, minSimilarity float64, previewChars int) *SearchUseCase {
	return &SearchUseCase{
		retriever:     retriever,
		minSimilarity: minSimilarity,
		previewChars:  previewChars,
	}
}

// Search returns up to limit previews. A blank query is rejected with
// domain.ErrEmptyQuery before any lookup.
func (u *SearchUseCase) Search(ctx context.Context, query string, limit int) (SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResponse{}, domain.ErrEmptyQuery
	}

	resp := SearchResponse{Query: query, Results: []domain.SearchHit{}}

	outcome := u.retriever.Retrieve(ctx, query, limit, u.minSimilarity)
	resp.Status = outcome.Status
	switch outcome.Status {
	case domain.RetrievalUnavailable:
		resp.Message = searchUnavailableText
		return resp, nil
	case domain.RetrievalFailed:
		resp.Message = "Search failed. Please try again later."
		return resp, nil
	}

	for _, r := range outcome.Results {
		resp.Results = append(resp.Results, domain.SearchHit{
			Content:    domain.Preview(r.Content, u.previewChars),
			Book:       r.Book(),
			Chapter:    r.Chapter(),
			PageNumber: r.Metadata.PageNumber,
			Similarity: r.Similarity,
		})
	}
	resp.TotalFound = len(resp.Results)
	return resp, nil
}
