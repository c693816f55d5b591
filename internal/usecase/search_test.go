package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
)

func TestSearchPreviews(t *testing.T) {
	long := strings.Repeat("x", 400)
	r := &stubRetriever{outcome: domain.RetrievalOutcome{
		Status: domain.RetrievalOK,
		Results: []domain.RetrievalResult{
			result("Book", "Ch", long, 0.8),
			result("Book", "Ch2", "short", 0.55),
		},
	}}
	u := NewSearchUseCase(r, 0.5, 300)

	resp, err := u.Search(context.Background(), " offers ", 5)
	require.NoError(t, err)

	assert.Equal(t, "offers", resp.Query)
	assert.Equal(t, 2, resp.TotalFound)
	assert.Equal(t, strings.Repeat("x", 300)+"...", resp.Results[0].Content)
	assert.Equal(t, "short", resp.Results[1].Content)
	assert.Equal(t, "Ch2", resp.Results[1].Chapter)
	assert.Equal(t, 0.5, r.lastMin)
	assert.Equal(t, 5, r.lastK)
}

func TestSearchEmptyQuery(t *testing.T) {
	r := &stubRetriever{}
	_, err := NewSearchUseCase(r, 0.5, 300).Search(context.Background(), "", 5)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Zero(t, r.calls)
}

func TestSearchUnavailable(t *testing.T) {
	r := &stubRetriever{outcome: domain.RetrievalOutcome{Status: domain.RetrievalUnavailable}}

	resp, err := NewSearchUseCase(r, 0.5, 300).Search(context.Background(), "q", 5)
	require.NoError(t, err)

	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, searchUnavailableText, resp.Message)
	assert.Equal(t, domain.RetrievalUnavailable, resp.Status)
}

func TestSearchNothingQualifies(t *testing.T) {
	r := &stubRetriever{outcome: domain.RetrievalOutcome{Status: domain.RetrievalEmpty}}

	resp, err := NewSearchUseCase(r, 0.5, 300).Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Zero(t, resp.TotalFound)
	assert.Empty(t, resp.Message)
}
