package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"bookrag/internal/domain"
	"bookrag/internal/port"
)

// PlainTextExtractor reads UTF-8 text and markdown files. The book title is
// the file name without its extension.
type PlainTextExtractor struct{}

var _ port.TextExtractor = PlainTextExtractor{}

func (PlainTextExtractor) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		return true
	}
	return false
}

func (PlainTextExtractor) Extract(path string) (domain.Book, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Book{}, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Book{}, "", err
	}
	if !utf8.Valid(data) {
		return domain.Book{}, "", fmt.Errorf("%s: not valid UTF-8 text", path)
	}

	book := domain.Book{
		Title:      BookTitle(path),
		SourceFile: path,
		ModTime:    info.ModTime(),
	}
	return book, string(data), nil
}

// BookTitle derives a title from a file path.
func BookTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
