package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bookrag/internal/domain"
	"bookrag/internal/usecase"
)

const exportFileName = "collection_export.json"

var exportCmd = &cobra.Command{
	Use:   "export [output_file]",
	Short: "Dump the indexed chunks to JSON",
	Long: `Write the ids, texts and metadata of every indexed chunk to a JSON file.
Vectors are not exported. The default file is collection_export.json in the
output directory.

Examples:
  bookrag export
  bookrag export ./backup/books.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	path := filepath.Join(resolveDir(cfg.Ingest.OutputDir, ""), exportFileName)
	if len(args) > 0 {
		var err error
		if path, err = filepath.Abs(args[0]); err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	k, svc, err := openReadSide()
	if err != nil {
		return err
	}
	defer k.Close()

	export, err := svc.kb.Export(cmd.Context())
	if errors.Is(err, domain.ErrKnowledgeBaseUnavailable) {
		return fmt.Errorf("nothing to export, run 'bookrag index' first: %w", err)
	}
	if err != nil {
		return err
	}
	if err := usecase.SaveExport(path, export); err != nil {
		return err
	}

	fmt.Printf("%s %d chunks from %s to %s\n", boldGreen("Exported"), export.TotalDocuments, export.Collection, path)
	return nil
}
