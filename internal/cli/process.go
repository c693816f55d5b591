package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bookrag/internal/adapter/analyzer"
	"bookrag/internal/adapter/chunker"
	"bookrag/internal/adapter/fs"
	"bookrag/internal/metrics"
	"bookrag/internal/usecase"
)

var processOutput string

var processCmd = &cobra.Command{
	Use:   "process [books_dir]",
	Short: "Split books into chunks",
	Long: `Read every book under the given directory, split it into chapters and
sentence-aligned chunks, and write processed_chunks.json and
processing_metadata.json to the output directory.

Examples:
  bookrag process ./books
  bookrag process ./books -o ./processed_data`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "output directory (default from config)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	ch, err := chunker.NewSentenceChunker(
		cfg.Ingest.ChunkSize,
		cfg.Ingest.ChunkOverlap,
		analyzer.NewSegmenter(),
		chunker.WithOverlapSentences(cfg.Ingest.OverlapSentences),
	)
	if err != nil {
		return err
	}

	processUC := usecase.NewProcessUseCase(
		fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes),
		fs.PlainTextExtractor{},
		ch,
		cfg.Ingest.ChunkSize,
		cfg.Ingest.ChunkOverlap,
		cfg.Ingest.Workers,
		log,
		metrics.New(),
	)

	fmt.Printf("Processing books in %s...\n", path)
	result, err := processUC.Process(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	if result.Summary.TotalBooks == 0 {
		return fmt.Errorf("no books found in %s", path)
	}

	outDir := resolveDir(cfg.Ingest.OutputDir, processOutput)
	if err := usecase.SaveResult(outDir, result); err != nil {
		return err
	}

	s := result.Summary
	fmt.Printf("\n%s\n", boldGreen("Processing complete:"))
	fmt.Printf("  Books:  %d\n", s.TotalBooks)
	fmt.Printf("  Chunks: %d\n", s.TotalChunks)
	for _, b := range s.Books {
		fmt.Printf("  - %s: %d chunks, %d words, %d chapters\n", boldCyan(b.Title), b.Chunks, b.Words, len(b.Chapters))
	}
	if len(s.Errors) > 0 {
		fmt.Printf("\n%s\n", yellow("Warnings:"))
		for _, e := range s.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	fmt.Printf("\nChunks written to: %s\n", filepath.Join(outDir, usecase.ChunksFileName))
	return nil
}

// resolveDir resolves a configured directory, or its flag override, against
// the project root.
func resolveDir(configured, override string) string {
	dir := configured
	if override != "" {
		dir = override
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(GetRootDir(), dir)
}
