package domain

import "errors"

var (
	// ErrEmptyQuery indicates a blank query that must not reach any gateway.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrKnowledgeBaseUnavailable indicates the vector store is missing or empty.
	ErrKnowledgeBaseUnavailable = errors.New("knowledge base unavailable")

	// ErrDimensionMismatch indicates a vector of the wrong length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidChunkConfig indicates chunk size/overlap outside 0 < O < S.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")
)
