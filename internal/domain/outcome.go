package domain

// RetrievalStatus classifies how a retrieval call ended.
type RetrievalStatus string

const (
	// RetrievalOK means at least one candidate cleared the similarity floor.
	RetrievalOK RetrievalStatus = "ok"
	// RetrievalEmpty means the store answered but nothing qualified.
	RetrievalEmpty RetrievalStatus = "empty"
	// RetrievalUnavailable means the index is missing or holds no vectors.
	RetrievalUnavailable RetrievalStatus = "unavailable"
	// RetrievalFailed means the embedding or store layer returned an error.
	RetrievalFailed RetrievalStatus = "failed"
)

// RetrievalOutcome is the typed result of one retrieval call. Results is
// never nil-vs-empty significant: callers branch on Status.
type RetrievalOutcome struct {
	Status     RetrievalStatus
	Results    []RetrievalResult
	Candidates int
	Err        error
}

// AnswerStatus classifies the answer returned to a caller.
type AnswerStatus string

const (
	AnswerGenerated   AnswerStatus = "generated"
	AnswerFallback    AnswerStatus = "fallback"
	AnswerUnavailable AnswerStatus = "unavailable"
	AnswerRejected    AnswerStatus = "rejected"
)

// Answer is the composed response for one query.
type Answer struct {
	Status         AnswerStatus `json:"status"`
	Text           string       `json:"response"`
	Citations      []Citation   `json:"sources"`
	ConversationID string       `json:"conversation_id,omitempty"`
}
