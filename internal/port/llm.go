package port

import (
	"context"

	"bookrag/internal/domain"
)

// LLM turns an ordered conversation into a completion.
type LLM interface {
	// Complete generates the assistant reply for messages.
	Complete(ctx context.Context, messages []domain.Message, opts CompletionOptions) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// CompletionOptions bounds a single generation call.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}
