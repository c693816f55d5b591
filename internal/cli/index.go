package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"bookrag/internal/adapter/embedding"
	"bookrag/internal/adapter/store"
	"bookrag/internal/metrics"
	"bookrag/internal/usecase"
)

var (
	indexChunks string
	indexReset  bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed processed chunks into the vector index",
	Long: `Embed the chunks written by 'bookrag process' and store them in the local
vector index (.bookrag/index.db by default).

Examples:
  bookrag index
  bookrag index --reset
  bookrag index --chunks ./processed_data/processed_chunks.json`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexChunks, "chunks", "", "path to processed_chunks.json (default from config)")
	indexCmd.Flags().BoolVar(&indexReset, "reset", false, "empty the collection before indexing")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()

	chunksPath := indexChunks
	if chunksPath == "" {
		chunksPath = filepath.Join(resolveDir(cfg.Ingest.OutputDir, ""), usecase.ChunksFileName)
	}
	if _, err := os.Stat(chunksPath); os.IsNotExist(err) {
		return fmt.Errorf("no processed chunks at %s. Run 'bookrag process' first", chunksPath)
	}
	chunks, err := usecase.LoadChunks(chunksPath)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%s holds no chunks", chunksPath)
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	if err := cfg.EnsureStoreDir(dir); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	dbPath := cfg.StorePath(dir)
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer st.Close()

	// Check for schema migration or rebuild
	migrationResult, err := st.CheckMigration(cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}
	if migrationResult.NeedsRebuild {
		fmt.Printf("Index rebuild required: %s\n", migrationResult.Reason)
		fmt.Println("Clearing existing index...")
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	} else if migrationResult.NeedsMigration {
		fmt.Printf("Running schema migration: %s\n", migrationResult.Reason)
		if err := st.Migrate(cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	vs, err := store.NewVectorStore(st, cfg.Store.Collection, embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}

	indexUC := usecase.NewIndexUseCase(vs, embedder, cfg.Embedding.BatchSize, log, metrics.New())

	fmt.Printf("Embedding %d chunks with %s (%s)...\n", len(chunks), embedder.ModelName(), cfg.Embedding.Provider)

	start := time.Now()
	bar := progressbar.NewOptions(len(chunks),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	progress := func(done, total int) {
		_ = bar.Set(done)
		elapsed := time.Since(start)
		if rate := float64(done) / elapsed.Seconds(); done > 0 && rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] ETA: %s", formatDuration(eta)))
		}
	}

	result, err := indexUC.Index(cmd.Context(), chunks, usecase.IndexOptions{
		Reset:    indexReset,
		Progress: progress,
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	// Update schema info after successful indexing
	if err := st.Migrate(cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}

	count, err := vs.Count(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", boldGreen("Indexing complete:"))
	fmt.Printf("  Chunks indexed: %d\n", result.ChunksIndexed)
	fmt.Printf("  Batches:        %d\n", result.Batches)
	fmt.Printf("  Collection:     %s (%d records)\n", cfg.Store.Collection, count)
	fmt.Printf("  Took:           %s\n", formatDuration(time.Since(start)))

	if len(result.Errors) > 0 {
		fmt.Printf("\n%s %d batch(es) were stored with zero vectors:\n", yellow("Warning:"), result.EmbedFailures)
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", dbPath)
	return nil
}
