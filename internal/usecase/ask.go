package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"bookrag/internal/domain"
	"bookrag/internal/logger"
	"bookrag/internal/metrics"
	"bookrag/internal/port"
)

const unavailableText = "I'm sorry, but the knowledge base is not currently available. " +
	"Please make sure the books have been processed and indexed. " +
	"You can do this by running `bookrag process` followed by `bookrag index`."

const (
	setupSnippet        = "Knowledge base needs to be initialized. Please run: bookrag process <books_dir> && bookrag index"
	emptyQueryText      = "Please enter a question so I can search the books for you."
	setupConversationID = "setup_required"
)

// AskRequest is one chat turn.
type AskRequest struct {
	Query          string           `json:"message"`
	ConversationID string           `json:"conversation_id,omitempty"`
	History        []domain.Message `json:"history,omitempty"`
}

// AskUseCase answers questions from the indexed books.
type AskUseCase struct {
	retriever     port.Retriever
	composer      *AnswerComposer
	topK          int
	minSimilarity float64
	log           *logger.Logger
	metrics       *metrics.Metrics
}

// NewAskUseCase creates an ask use case. log and m may be nil.
func NewAskUseCase(
	retriever port.Retriever,
	composer *AnswerComposer,
	topK int,
	minSimilarity float64,
	log *logger.Logger,
	m *metrics.Metrics,
) *AskUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &AskUseCase{
		retriever:     retriever,
		composer:      composer,
		topK:          topK,
		minSimilarity: minSimilarity,
		log:           log.Component("ask"),
		metrics:       m,
	}
}

// Ask never returns an error: every outcome is a typed answer.
func (u *AskUseCase) Ask(ctx context.Context, req AskRequest) domain.Answer {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return u.record(domain.Answer{
			Status:         domain.AnswerRejected,
			Text:           emptyQueryText,
			Citations:      []domain.Citation{},
			ConversationID: req.ConversationID,
		})
	}

	outcome := u.retriever.Retrieve(ctx, query, u.topK, u.minSimilarity)
	if outcome.Status == domain.RetrievalUnavailable {
		u.log.Warn().Msg("knowledge base not available")
		id := req.ConversationID
		if id == "" {
			id = setupConversationID
		}
		return u.record(UnavailableAnswer(id))
	}

	// A failed retrieval degrades to answering without context.
	answer := u.composer.Compose(ctx, query, outcome.Results, req.History)
	answer.ConversationID = req.ConversationID
	if answer.ConversationID == "" {
		answer.ConversationID = uuid.NewString()
	}
	return answer
}

// record counts answers the composer did not produce.
func (u *AskUseCase) record(a domain.Answer) domain.Answer {
	if u.metrics != nil {
		u.metrics.RecordAnswer(string(a.Status))
	}
	return a
}

// UnavailableAnswer is the fixed reply while no index exists.
func UnavailableAnswer(conversationID string) domain.Answer {
	return domain.Answer{
		Status: domain.AnswerUnavailable,
		Text:   unavailableText,
		Citations: []domain.Citation{{
			Book:        "System",
			Chapter:     "Setup Required",
			Page:        0,
			TextSnippet: setupSnippet,
		}},
		ConversationID: conversationID,
	}
}
