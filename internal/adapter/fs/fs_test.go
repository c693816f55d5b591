package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWalkerIncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.md"), "a")
	writeFile(t, filepath.Join(root, "notes.pdf"), "binary")
	writeFile(t, filepath.Join(root, "nested", "c.txt"), "c")
	writeFile(t, filepath.Join(root, "processed_data", "d.txt"), "d")

	w := NewWalker([]string{"**/*.txt", "**/*.md"}, []string{"processed_data/**"})
	files, err := w.Walk(root)
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
		assert.Positive(t, f.Size)
	}
	assert.Equal(t, []string{"a.md", "b.txt", "nested/c.txt"}, rel)
}

func TestWalkerSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "book.txt")
	writeFile(t, path, "text")

	files, err := NewWalker([]string{"**/*.txt"}, nil).Walk(path)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, path, files[0].Path)
}

func TestWalkerMissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestPlainTextExtractor(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "The 100M Offers.txt")
	writeFile(t, path, "Chapter 1: Start\nHello.")

	var ex PlainTextExtractor
	assert.True(t, ex.Supports(path))
	assert.True(t, ex.Supports("notes.MD"))
	assert.False(t, ex.Supports("book.pdf"))

	book, text, err := ex.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "The 100M Offers", book.Title)
	assert.Equal(t, path, book.SourceFile)
	assert.False(t, book.ModTime.IsZero())
	assert.Equal(t, "Chapter 1: Start\nHello.", text)
}

func TestPlainTextExtractorRejectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0644))

	_, _, err := PlainTextExtractor{}.Extract(path)
	assert.Error(t, err)
}
