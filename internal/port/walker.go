package port

import "bookrag/internal/domain"

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// TextExtractor pulls raw text out of a source file.
type TextExtractor interface {
	Supports(path string) bool
	Extract(path string) (domain.Book, string, error)
}
