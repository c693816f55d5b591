package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, dim int, failCall int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if n == failCall {
			http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
			return
		}

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{}
		// Reverse order to check that results are placed by index.
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dim)
			vec[0] = float32(len(req.Input[i]))
			resp.Data = append(resp.Data, embeddingData{Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIEmbedderBatches(t *testing.T) {
	srv, calls := newTestServer(t, 4, 0)

	e, err := NewOpenAICompatibleEmbedder(Config{
		APIKey:    "test-key",
		Model:     "test-model",
		BaseURL:   srv.URL,
		Dimension: 4,
		BatchSize: 2,
	})
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, int32(3), calls.Load())

	for i, v := range vecs {
		assert.Len(t, v, 4)
		assert.Equal(t, float32(i+1), v[0])
	}
}

func TestOpenAIEmbedderFailedBatchYieldsZeroVectors(t *testing.T) {
	srv, _ := newTestServer(t, 3, 2)

	e, err := NewOpenAICompatibleEmbedder(Config{
		APIKey:    "test-key",
		Model:     "test-model",
		BaseURL:   srv.URL,
		Dimension: 3,
		BatchSize: 2,
	})
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.Error(t, err)
	require.Len(t, vecs, 5)

	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, []float32{0, 0, 0}, vecs[2])
	assert.Equal(t, []float32{0, 0, 0}, vecs[3])
	assert.Equal(t, float32(5), vecs[4][0])
}

func TestOpenAIEmbedderDimensionMismatch(t *testing.T) {
	srv, _ := newTestServer(t, 8, 0)

	e, err := NewOpenAICompatibleEmbedder(Config{
		APIKey:    "test-key",
		Model:     "test-model",
		BaseURL:   srv.URL,
		Dimension: 4,
	})
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, [][]float32{{0, 0, 0, 0}}, vecs)
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	e, err := NewOpenAICompatibleEmbedder(Config{APIKey: "k", Model: "m", BaseURL: "http://unused"})
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(Config{Model: "text-embedding-3-small"})
	assert.Error(t, err)

	e, err := NewOpenAIEmbedder(Config{APIKey: "k", Model: "text-embedding-3-small"})
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dimension())
	assert.Equal(t, "text-embedding-3-small", e.ModelName())
}

func TestNewOllamaEmbedderDefaults(t *testing.T) {
	e, err := NewOllamaEmbedder(Config{Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())
	assert.Equal(t, DefaultOllamaBaseURL, e.baseURL)
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(64)

	vecs, err := e.Embed(context.Background(), []string{
		"pricing your offer",
		"Pricing your OFFER!",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, dot(vecs[0], vecs[0]), 1e-5)
	assert.Equal(t, make([]float32, 64), vecs[2])
	assert.Equal(t, "mock", e.ModelName())
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
