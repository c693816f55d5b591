package domain

import "time"

// Unknown is substituted for provenance fields missing from stored metadata.
const Unknown = "Unknown"

// Book is a source document discovered on disk.
type Book struct {
	Title      string
	SourceFile string
	ModTime    time.Time
}

// Section is one chapter-level slice of a book's cleaned text.
type Section struct {
	Title string
	Text  string
}

// Chunk is the unit of retrieval. Field names of the JSON form are stable
// across versions because processed chunk files are exchanged between runs.
type Chunk struct {
	ID            string `json:"id"`
	Content       string `json:"content"`
	DocumentTitle string `json:"book_title"`
	SectionTitle  string `json:"chapter"`
	PageNumber    int    `json:"page_number"`
	WordCount     int    `json:"word_count"`
	CharCount     int    `json:"char_count"`
	SequenceIndex int    `json:"chunk_index"`
	SourceFile    string `json:"source_file"`
}

// Metadata returns the chunk attributes persisted next to its vector.
func (c Chunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		DocumentTitle: c.DocumentTitle,
		SectionTitle:  c.SectionTitle,
		PageNumber:    c.PageNumber,
		WordCount:     c.WordCount,
		CharCount:     c.CharCount,
		SequenceIndex: c.SequenceIndex,
		SourceFile:    c.SourceFile,
	}
}

// ChunkMetadata mirrors Chunk minus its content.
type ChunkMetadata struct {
	DocumentTitle string `json:"book_title"`
	SectionTitle  string `json:"chapter"`
	PageNumber    int    `json:"page_number"`
	WordCount     int    `json:"word_count"`
	CharCount     int    `json:"char_count"`
	SequenceIndex int    `json:"chunk_index"`
	SourceFile    string `json:"source_file"`
}

// WithDefaults fills blank provenance fields with Unknown.
func (m ChunkMetadata) WithDefaults() ChunkMetadata {
	if m.DocumentTitle == "" {
		m.DocumentTitle = Unknown
	}
	if m.SectionTitle == "" {
		m.SectionTitle = Unknown
	}
	if m.SourceFile == "" {
		m.SourceFile = Unknown
	}
	return m
}

// IndexedVector is a chunk's persisted counterpart inside the vector store.
type IndexedVector struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata ChunkMetadata
}

// RetrievalResult is one surviving candidate of a single query.
type RetrievalResult struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity"`
}

// Book returns the result's document title.
func (r RetrievalResult) Book() string { return r.Metadata.DocumentTitle }

// Chapter returns the result's section title.
func (r RetrievalResult) Chapter() string { return r.Metadata.SectionTitle }

// Citation is the user-facing projection of a RetrievalResult.
type Citation struct {
	Book        string  `json:"book"`
	Chapter     string  `json:"chapter"`
	Page        int     `json:"page"`
	TextSnippet string  `json:"text_snippet"`
	Similarity  float64 `json:"similarity"`
}

// Message is one conversation turn passed to the language model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SearchHit is a truncated preview returned by raw top-k search.
type SearchHit struct {
	Content    string  `json:"content"`
	Book       string  `json:"book"`
	Chapter    string  `json:"chapter"`
	PageNumber int     `json:"page_number"`
	Similarity float64 `json:"similarity"`
}

// BookSummary aggregates the chunks stored for one book.
type BookSummary struct {
	Title       string   `json:"title"`
	Chapters    []string `json:"chapters"`
	TotalChunks int      `json:"total_chunks"`
	TotalWords  int      `json:"total_words"`
	TotalChars  int      `json:"total_chars"`
}

// Stats describes the whole knowledge base.
type Stats struct {
	TotalChunks          int           `json:"total_chunks"`
	TotalWords           int           `json:"total_words"`
	TotalChars           int           `json:"total_characters"`
	UniqueBooks          int           `json:"unique_books"`
	UniqueChapters       int           `json:"unique_chapters"`
	AverageWordsPerChunk float64       `json:"average_words_per_chunk"`
	AverageCharsPerChunk float64       `json:"average_chars_per_chunk"`
	Books                []BookSummary `json:"books"`
}

// Health is the knowledge base status report.
type Health struct {
	Available   bool     `json:"knowledge_base_available"`
	TotalChunks int      `json:"total_documents"`
	Collection  string   `json:"collection_name"`
	StorePath   string   `json:"store_path"`
	Books       []string `json:"books_available"`
	Error       string   `json:"error,omitempty"`
}
