package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
	"bookrag/internal/port"
)

var conversation = []domain.Message{
	{Role: domain.RoleSystem, Content: "Answer only from context."},
	{Role: domain.RoleUser, Content: "How do I price?"},
}

func TestOpenAIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, conversation, req.Messages)
		assert.Equal(t, 2000, req.MaxTokens)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)

		w.Write([]byte(`{"choices":[{"message":{"content":"Charge more."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-test"})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), conversation, port.CompletionOptions{MaxTokens: 2000, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "Charge more.", out)
	assert.Equal(t, "gpt-test", c.ModelName())
}

func TestOpenAIClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"auth"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"bad json", http.StatusBadGateway, `<html>`},
		{"status only", http.StatusInternalServerError, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), conversation, port.CompletionOptions{})
			assert.Error(t, err)
		})
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{})
	assert.Error(t, err)
}

func TestOllamaClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, conversation, req.Messages)
		require.NotNil(t, req.Options)
		assert.Equal(t, 500, req.Options.NumPredict)

		w.Write([]byte(`{"message":{"role":"assistant","content":"Raise prices."},"done":true}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL})
	out, err := c.Complete(context.Background(), conversation, port.CompletionOptions{MaxTokens: 500, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "Raise prices.", out)
	assert.Equal(t, DefaultOllamaModel, c.ModelName())
}

func TestOllamaClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), conversation, port.CompletionOptions{})
	assert.ErrorContains(t, err, "404")
}
