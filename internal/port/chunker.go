package port

import (
	"iter"

	"bookrag/internal/domain"
)

// Segmenter splits cleaned text into sentences and counts words.
type Segmenter interface {
	// Sentences yields the sentences of text in original order. Each call
	// starts a fresh pass over the text.
	Sentences(text string) iter.Seq[string]

	// CountWords returns the number of words in text.
	CountWords(text string) int
}

// Chunker turns one section of a book into ordered, overlapping chunks.
type Chunker interface {
	Chunk(book domain.Book, section domain.Section) ([]domain.Chunk, error)
}
