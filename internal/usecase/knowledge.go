package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bookrag/internal/domain"
	"bookrag/internal/logger"
	"bookrag/internal/port"
)

// healthSampleSize bounds how many records a health check reads to list books.
const healthSampleSize = 100

// KnowledgeBase reports on the contents of the vector store.
type KnowledgeBase struct {
	store      port.VectorStore
	collection string
	storePath  string
	log        *logger.Logger
}

// NewKnowledgeBase wraps store. store may be nil when no index exists yet;
// the knowledge base then reports itself unavailable.
func NewKnowledgeBase(store port.VectorStore, collection, storePath string, log *logger.Logger) *KnowledgeBase {
	if log == nil {
		log = logger.Nop()
	}
	return &KnowledgeBase{
		store:      store,
		collection: collection,
		storePath:  storePath,
		log:        log.Component("knowledge"),
	}
}

// Available reports whether the store exists and holds at least one record.
func (k *KnowledgeBase) Available(ctx context.Context) bool {
	if k.store == nil {
		return false
	}
	n, err := k.store.Count(ctx)
	if err != nil {
		k.log.Warn().Err(err).Msg("count failed")
		return false
	}
	return n > 0
}

// HealthCheck never fails: problems are reported in the Error field.
func (k *KnowledgeBase) HealthCheck(ctx context.Context) domain.Health {
	health := domain.Health{
		Collection: k.collection,
		StorePath:  k.storePath,
		Books:      []string{},
	}
	if k.store == nil {
		return health
	}

	n, err := k.store.Count(ctx)
	if err != nil {
		k.log.Error().Err(err).Msg("health check failed")
		health.Error = err.Error()
		return health
	}
	if n == 0 {
		return health
	}
	health.Available = true
	health.TotalChunks = n

	metas, err := k.store.Metadatas(ctx, healthSampleSize)
	if err != nil {
		k.log.Error().Err(err).Msg("health check failed")
		health.Error = err.Error()
		return health
	}
	seen := make(map[string]bool)
	for _, m := range metas {
		if m.DocumentTitle == "" || m.DocumentTitle == domain.Unknown || seen[m.DocumentTitle] {
			continue
		}
		seen[m.DocumentTitle] = true
		health.Books = append(health.Books, m.DocumentTitle)
	}
	return health
}

// Books summarises every stored book, in the order books were indexed.
func (k *KnowledgeBase) Books(ctx context.Context) ([]domain.BookSummary, error) {
	if !k.Available(ctx) {
		return []domain.BookSummary{}, nil
	}
	metas, err := k.store.Metadatas(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return summarize(metas), nil
}

// Stats aggregates counts over the whole store.
func (k *KnowledgeBase) Stats(ctx context.Context) (domain.Stats, error) {
	books, err := k.Books(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{UniqueBooks: len(books), Books: books}
	for _, b := range books {
		stats.TotalChunks += b.TotalChunks
		stats.TotalWords += b.TotalWords
		stats.TotalChars += b.TotalChars
		stats.UniqueChapters += len(b.Chapters)
	}
	if stats.TotalChunks > 0 {
		stats.AverageWordsPerChunk = float64(stats.TotalWords) / float64(stats.TotalChunks)
		stats.AverageCharsPerChunk = float64(stats.TotalChars) / float64(stats.TotalChunks)
	}
	return stats, nil
}

// CollectionExport is a JSON dump of the stored chunks. Vectors are left
// out.
type CollectionExport struct {
	Collection     string     `json:"collection_name"`
	TotalDocuments int        `json:"total_documents"`
	ExportedAt     time.Time  `json:"export_timestamp"`
	Data           ExportData `json:"data"`
}

// ExportData holds aligned parallel lists in insertion order.
type ExportData struct {
	IDs       []string               `json:"ids"`
	Documents []string               `json:"documents"`
	Metadatas []domain.ChunkMetadata `json:"metadatas"`
}

// Export reads every stored record. An absent or empty index is
// domain.ErrKnowledgeBaseUnavailable.
func (k *KnowledgeBase) Export(ctx context.Context) (*CollectionExport, error) {
	if !k.Available(ctx) {
		return nil, domain.ErrKnowledgeBaseUnavailable
	}
	records, err := k.store.Records(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	export := &CollectionExport{
		Collection:     k.collection,
		TotalDocuments: len(records),
		ExportedAt:     time.Now().UTC(),
		Data: ExportData{
			IDs:       make([]string, len(records)),
			Documents: make([]string, len(records)),
			Metadatas: make([]domain.ChunkMetadata, len(records)),
		},
	}
	for i, r := range records {
		export.Data.IDs[i] = r.ID
		export.Data.Documents[i] = r.Document
		export.Data.Metadatas[i] = r.Metadata
	}
	k.log.Info().Int("records", len(records)).Msg("exported collection")
	return export, nil
}

// SaveExport writes export to path, creating its directory.
func SaveExport(path string, export *CollectionExport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	return writeJSON(path, export)
}

func summarize(metas []domain.ChunkMetadata) []domain.BookSummary {
	var books []domain.BookSummary
	index := make(map[string]int)
	chapters := make(map[string]map[string]bool)

	for _, m := range metas {
		m = m.WithDefaults()
		i, ok := index[m.DocumentTitle]
		if !ok {
			i = len(books)
			index[m.DocumentTitle] = i
			books = append(books, domain.BookSummary{Title: m.DocumentTitle, Chapters: []string{}})
			chapters[m.DocumentTitle] = make(map[string]bool)
		}

		b := &books[i]
		if !chapters[m.DocumentTitle][m.SectionTitle] {
			chapters[m.DocumentTitle][m.SectionTitle] = true
			b.Chapters = append(b.Chapters, m.SectionTitle)
		}
		b.TotalChunks++
		b.TotalWords += m.WordCount
		b.TotalChars += m.CharCount
	}
	if books == nil {
		books = []domain.BookSummary{}
	}
	return books
}
