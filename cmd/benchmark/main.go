package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bookrag/config"
	"bookrag/internal/adapter/embedding"
	"bookrag/internal/adapter/memstore"
	"bookrag/internal/adapter/retriever"
	"bookrag/internal/adapter/store"
	"bookrag/internal/domain"
	"bookrag/internal/port"
	"bookrag/internal/usecase"
)

// smokeQueries cover the main topics a business book library is asked about.
var smokeQueries = []string{
	"How to create irresistible offers?",
	"Lead generation strategies",
	"Sales process optimization",
	"Business scaling techniques",
	"Pricing strategies",
}

func main() {
	indexPath := flag.String("index", ".", "Path to the project directory holding the index")
	query := flag.String("q", "", "Single query to test (default runs the smoke queries)")
	topK := flag.Int("k", 3, "Number of results per query")
	mock := flag.Bool("mock", false, "Use the offline hashing embedder")
	chunks := flag.String("chunks", "", "Index this processed_chunks.json in memory instead of opening the index")
	flag.Parse()

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *mock {
		cfg.Embedding.Provider = "mock"
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder not available: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var vectorStore port.VectorStore
	if *chunks != "" {
		vectorStore, err = memoryIndex(ctx, *chunks, embedder, cfg.Embedding.BatchSize)
	} else {
		var closeStore func() error
		vectorStore, closeStore, err = openIndex(cfg, *indexPath, embedder.Dimension())
		if closeStore != nil {
			defer closeStore()
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}

	count, _ := vectorStore.Count(ctx)

	fmt.Println("SEMANTIC SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	queries := smokeQueries
	if *query != "" {
		queries = []string{*query}
	}

	r := retriever.NewSemanticRetriever(vectorStore, embedder, nil, nil)
	passed := 0
	totalScore, scored := 0.0, 0
	for _, q := range queries {
		// A zero floor reports the raw ranking.
		out := r.Retrieve(ctx, q, *topK, 0)
		if report(q, out) {
			passed++
		}
		for _, res := range out.Results {
			totalScore += res.Similarity
			scored++
		}
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Queries with results: %d/%d\n", passed, len(queries))
	if scored == 0 {
		fmt.Println("  Status: POOR - no results; run 'bookrag process' and 'bookrag index'")
		os.Exit(1)
	}

	avgScore := totalScore / float64(scored)
	fmt.Printf("  Average similarity:   %.3f\n", avgScore)
	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - semantic search working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need better embeddings or re-indexing")
	}
}

// report prints one query's outcome and whether it returned anything.
func report(query string, out domain.RetrievalOutcome) bool {
	fmt.Printf("Query: \"%s\"\n", query)
	fmt.Println(strings.Repeat("-", 70))

	if out.Status != domain.RetrievalOK {
		fmt.Printf("  %s", strings.ToUpper(string(out.Status)))
		if out.Err != nil {
			fmt.Printf(": %v", out.Err)
		}
		fmt.Print("\n\n")
		return false
	}

	fmt.Printf("  Found %d results\n", len(out.Results))
	for i, res := range out.Results {
		preview := strings.ReplaceAll(domain.Preview(res.Content, 150), "\n", " ")
		fmt.Printf("  %d. [%s %.3f] %s - %s\n", i+1, rating(res.Similarity), res.Similarity, res.Book(), res.Chapter())
		fmt.Printf("     %s\n", preview)
	}
	fmt.Println()
	return true
}

func rating(similarity float64) string {
	switch {
	case similarity > 0.7:
		return "HIGH"
	case similarity > 0.5:
		return "GOOD"
	case similarity > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}

// openIndex opens the persisted collection read-only.
func openIndex(cfg *config.Config, dir string, dimension int) (port.VectorStore, func() error, error) {
	st, err := store.OpenReadOnly(cfg.StorePath(dir))
	if err != nil {
		return nil, nil, err
	}
	vs, err := store.NewVectorStore(st, cfg.Store.Collection, dimension)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("collection: %w", err)
	}
	return vs, st.Close, nil
}

// memoryIndex embeds a chunk file into a throwaway in-memory store.
func memoryIndex(ctx context.Context, path string, embedder port.Embedder, batchSize int) (port.VectorStore, error) {
	chunks, err := usecase.LoadChunks(path)
	if err != nil {
		return nil, err
	}
	vs := memstore.NewMemoryStore(embedder.Dimension())
	res, err := usecase.NewIndexUseCase(vs, embedder, batchSize, nil, nil).Index(ctx, chunks, usecase.IndexOptions{})
	if err != nil {
		return nil, err
	}
	if res.EmbedFailures > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d batches failed to embed\n", res.EmbedFailures)
	}
	return vs, nil
}
