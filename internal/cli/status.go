package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bookrag/internal/adapter/embedding"
	"bookrag/internal/domain"
	"bookrag/internal/usecase"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report knowledge base health and statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List indexed books and their chapters",
	Args:  cobra.NoArgs,
	RunE:  runBooks,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(booksCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	booksCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

// statusReport is the JSON form of the status command.
type statusReport struct {
	Health      domain.Health              `json:"health"`
	Stats       domain.Stats               `json:"stats"`
	Collections []string                   `json:"collections"`
	Rebuild     string                     `json:"rebuild_required,omitempty"`
	Processing  *usecase.ProcessingSummary `json:"processing,omitempty"`
}

// openReadSide opens the index for commands that never embed. The
// collection is loaded at the dimension the configured embedder produces.
func openReadSide() (*knowledge, *services, error) {
	cfg := GetConfig()
	k, err := openKnowledge(cfg, GetRootDir(), embedding.ResolveDimension(cfg.Embedding))
	if err != nil {
		return nil, nil, err
	}
	return k, newServices(cfg, k, nil, nil, nil), nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	k, svc, err := openReadSide()
	if err != nil {
		return err
	}
	defer k.Close()

	report := statusReport{
		Health:      svc.kb.HealthCheck(cmd.Context()),
		Collections: []string{},
	}
	report.Stats, err = svc.kb.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if err := inspectIndex(k, &report); err != nil {
		return err
	}

	summaryPath := filepath.Join(resolveDir(GetConfig().Ingest.OutputDir, ""), usecase.MetadataFileName)
	summary, err := usecase.LoadSummary(summaryPath)
	switch {
	case err == nil:
		report.Processing = summary
	case !errors.Is(err, fs.ErrNotExist):
		log.Warn().Err(err).Str("path", summaryPath).Msg("unreadable processing summary")
	}

	if statusJSON {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	health, stats := report.Health, report.Stats
	state := boldGreen("available")
	if !health.Available {
		state = red("not available")
	}
	fmt.Printf("Knowledge base: %s\n", state)
	fmt.Printf("  Store:       %s\n", health.StorePath)
	fmt.Printf("  Collection:  %s\n", health.Collection)
	if len(report.Collections) > 0 {
		fmt.Printf("  In file:     %s\n", strings.Join(report.Collections, ", "))
	}
	if health.Error != "" {
		fmt.Printf("  Error:       %s\n", red(health.Error))
	}
	if report.Rebuild != "" {
		fmt.Printf("  %s %s, run 'bookrag index --reset'\n", yellow("Rebuild needed:"), report.Rebuild)
	}
	if p := report.Processing; p != nil {
		fmt.Printf("  Processed:   %d books, %d chunks at %s\n",
			p.TotalBooks, p.TotalChunks, p.ProcessedAt.Format("2006-01-02 15:04"))
		if len(p.Errors) > 0 {
			fmt.Printf("  Skipped:     %s\n", yellow(fmt.Sprintf("%d files", len(p.Errors))))
		}
	}
	if !health.Available {
		fmt.Println("\nRun 'bookrag process <books_dir>' and 'bookrag index' to build it.")
		return nil
	}
	fmt.Printf("  Chunks:      %d\n", stats.TotalChunks)
	fmt.Printf("  Books:       %d\n", stats.UniqueBooks)
	fmt.Printf("  Chapters:    %d\n", stats.UniqueChapters)
	fmt.Printf("  Words/chunk: %.1f\n", stats.AverageWordsPerChunk)
	fmt.Printf("  Chars/chunk: %.1f\n", stats.AverageCharsPerChunk)
	return nil
}

func runBooks(cmd *cobra.Command, args []string) error {
	k, svc, err := openReadSide()
	if err != nil {
		return err
	}
	defer k.Close()

	books, err := svc.kb.Books(cmd.Context())
	if err != nil {
		return err
	}

	if statusJSON {
		output, err := json.MarshalIndent(books, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}
	if len(books) == 0 {
		fmt.Println("No books indexed.")
		return nil
	}
	for _, b := range books {
		fmt.Printf("%s (%d chunks, %d words)\n", boldCyan(b.Title), b.TotalChunks, b.TotalWords)
		for _, ch := range b.Chapters {
			fmt.Printf("  - %s\n", ch)
		}
	}
	return nil
}

// inspectIndex lists the collections in the index file and checks whether
// the current config still matches the one the index was built with.
func inspectIndex(k *knowledge, report *statusReport) error {
	if k.bolt == nil {
		return nil
	}
	collections, err := k.bolt.Collections()
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	report.Collections = append(report.Collections, collections...)

	rebuild, reason, err := k.bolt.NeedsRebuild(GetConfig())
	if err != nil {
		return fmt.Errorf("failed to check index schema: %w", err)
	}
	if rebuild {
		report.Rebuild = reason
	}
	return nil
}
