package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"bookrag/internal/adapter/analyzer"
	"bookrag/internal/adapter/chunker"
	"bookrag/internal/domain"
	"bookrag/internal/logger"
	"bookrag/internal/metrics"
	"bookrag/internal/port"
)

const (
	ChunksFileName   = "processed_chunks.json"
	MetadataFileName = "processing_metadata.json"
)

// BookProcessingStats describes the chunks built from one book.
type BookProcessingStats struct {
	Title      string   `json:"title"`
	SourceFile string   `json:"source_file"`
	Chunks     int      `json:"chunks"`
	Words      int      `json:"words"`
	Chars      int      `json:"characters"`
	Chapters   []string `json:"chapters"`
}

// ProcessingSummary is written next to the chunk file after a run.
type ProcessingSummary struct {
	TotalChunks  int                   `json:"total_chunks"`
	TotalBooks   int                   `json:"total_books"`
	Books        []BookProcessingStats `json:"books"`
	ChunkSize    int                   `json:"chunk_size"`
	ChunkOverlap int                   `json:"chunk_overlap"`
	ProcessedAt  time.Time             `json:"processed_at"`
	Errors       []string              `json:"errors,omitempty"`
}

// ProcessResult holds the chunks of every processed book in discovery order.
type ProcessResult struct {
	Chunks  []domain.Chunk
	Summary ProcessingSummary
}

// ProcessUseCase turns book files into chunks.
type ProcessUseCase struct {
	walker       port.FileWalker
	extractor    port.TextExtractor
	chunker      port.Chunker
	chunkSize    int
	chunkOverlap int
	workers      int
	log          *logger.Logger
	metrics      *metrics.Metrics
}

// NewProcessUseCase creates a process use case. chunkSize and chunkOverlap
// are recorded in the summary only. log and m may be nil.
func NewProcessUseCase(
	walker port.FileWalker,
	extractor port.TextExtractor,
	splitter port.Chunker,
	chunkSize, chunkOverlap, workers int,
	log *logger.Logger,
	m *metrics.Metrics,
) *ProcessUseCase {
	if log == nil {
		log = logger.Nop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &ProcessUseCase{
		walker:       walker,
		extractor:    extractor,
		chunker:      splitter,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		workers:      workers,
		log:          log.Component("process"),
		metrics:      m,
	}
}

// Process walks root and chunks every supported book. A book that cannot be
// read is reported in the summary and skipped.
func (u *ProcessUseCase) Process(ctx context.Context, root string) (*ProcessResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &ProcessResult{
		Summary: ProcessingSummary{
			Books:        []BookProcessingStats{},
			ChunkSize:    u.chunkSize,
			ChunkOverlap: u.chunkOverlap,
			ProcessedAt:  time.Now().UTC(),
		},
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !u.extractor.Supports(file.Path) {
			continue
		}

		book, text, err := u.extractor.Extract(file.Path)
		if err != nil {
			u.log.Warn().Err(err).Str("file", file.Path).Msg("skipping unreadable book")
			result.Summary.Errors = append(result.Summary.Errors, fmt.Sprintf("%s: %v", file.Path, err))
			continue
		}

		bookLog := u.log.WithFields(map[string]interface{}{"book": book.Title, "file": file.Path})
		bookLog.Debug().Int("bytes", len(text)).Msg("chunking book")

		chunks, err := u.ProcessBook(ctx, book, text)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %s: %w", book.Title, err)
		}
		bookLog.Info().Int("chunks", len(chunks)).Msg("processed book")

		result.Chunks = append(result.Chunks, chunks...)
		result.Summary.Books = append(result.Summary.Books, bookStats(book, chunks))
	}

	// Two files can share a title.
	chunker.Renumber(result.Chunks)

	result.Summary.TotalBooks = len(result.Summary.Books)
	result.Summary.TotalChunks = len(result.Chunks)
	if u.metrics != nil {
		u.metrics.ChunksProducedTotal.Add(float64(len(result.Chunks)))
	}
	return result, nil
}

// ProcessBook splits text into sections and chunks them concurrently. The
// returned chunks are in section order, numbered per section title across
// the whole book.
func (u *ProcessUseCase) ProcessBook(ctx context.Context, book domain.Book, text string) ([]domain.Chunk, error) {
	sections := analyzer.SplitSections(text)
	perSection := make([][]domain.Chunk, len(sections))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)
	for i, section := range sections {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks, err := u.chunker.Chunk(book, section)
			if err != nil {
				return fmt.Errorf("section %q: %w", section.Title, err)
			}
			perSection[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, c := range perSection {
		chunks = append(chunks, c...)
	}
	chunker.Renumber(chunks)
	return chunks, nil
}

func bookStats(book domain.Book, chunks []domain.Chunk) BookProcessingStats {
	stats := BookProcessingStats{
		Title:      book.Title,
		SourceFile: book.SourceFile,
		Chunks:     len(chunks),
		Chapters:   []string{},
	}
	seen := make(map[string]bool)
	for _, c := range chunks {
		stats.Words += c.WordCount
		stats.Chars += c.CharCount
		if !seen[c.SectionTitle] {
			seen[c.SectionTitle] = true
			stats.Chapters = append(stats.Chapters, c.SectionTitle)
		}
	}
	return stats
}

// SaveResult writes the chunk and summary files into dir.
func SaveResult(dir string, result *ProcessResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	chunks := result.Chunks
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	if err := writeJSON(filepath.Join(dir, ChunksFileName), chunks); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, MetadataFileName), result.Summary)
}

// LoadChunks reads a chunk file written by SaveResult.
func LoadChunks(path string) ([]domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return chunks, nil
}

// LoadSummary reads a summary file written by SaveResult.
func LoadSummary(path string) (*ProcessingSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var summary ProcessingSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &summary, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
