package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookrag/internal/adapter/embedding"
)

var (
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Show the passages closest to a query",
	Long: `Run a raw similarity search against the index without generating an answer.

Examples:
  bookrag search "grand slam offer"
  bookrag search "lead magnets" -k 10 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	query := strings.Join(args, " ")

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	k, err := openKnowledge(cfg, GetRootDir(), embedder.Dimension())
	if err != nil {
		return err
	}
	defer k.Close()

	svc := newServices(cfg, k, embedder, nil, nil)

	topK := cfg.Retrieve.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	resp, err := svc.search.Search(cmd.Context(), query, topK)
	if err != nil {
		return err
	}

	if searchJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if resp.Message != "" {
		fmt.Println(yellow(resp.Message))
		return nil
	}
	if resp.TotalFound == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", resp.TotalFound, resp.Query)
	for i, hit := range resp.Results {
		fmt.Printf("--- [%d] %s - %s (similarity: %.3f) ---\n", i+1, boldCyan(hit.Book), hit.Chapter, hit.Similarity)
		fmt.Println(hit.Content)
		fmt.Println()
	}
	return nil
}
