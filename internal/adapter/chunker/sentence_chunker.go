package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"bookrag/internal/domain"
	"bookrag/internal/port"
)

// DefaultOverlapSentences is the number of trailing sentences carried into
// the next chunk.
const DefaultOverlapSentences = 3

// SentenceChunker greedily packs whole sentences into chunks of about
// chunkSize words. Consecutive chunks share the trailing sentences of the
// previous one.
//
// overlap is validated but the carried context is a fixed sentence count,
// not a word budget.
type SentenceChunker struct {
	chunkSize        int
	overlap          int
	overlapSentences int
	segmenter        port.Segmenter
}

// Option configures a SentenceChunker.
type Option func(*SentenceChunker)

// WithOverlapSentences sets how many trailing sentences seed the next chunk.
func WithOverlapSentences(n int) Option {
	return func(c *SentenceChunker) {
		if n >= 0 {
			c.overlapSentences = n
		}
	}
}

// NewSentenceChunker creates a chunker. chunkSize and overlap are word
// counts and must satisfy 0 < overlap < chunkSize.
func NewSentenceChunker(chunkSize, overlap int, segmenter port.Segmenter, opts ...Option) (*SentenceChunker, error) {
	if chunkSize <= 0 || overlap <= 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", domain.ErrInvalidChunkConfig, chunkSize, overlap)
	}
	c := &SentenceChunker{
		chunkSize:        chunkSize,
		overlap:          overlap,
		overlapSentences: DefaultOverlapSentences,
		segmenter:        segmenter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type sentence struct {
	text  string
	words int
}

// Chunk folds the section's sentences into chunks in order. A sentence is
// never split, so a sentence longer than chunkSize becomes one oversized
// chunk.
func (c *SentenceChunker) Chunk(book domain.Book, section domain.Section) ([]domain.Chunk, error) {
	var (
		chunks   []domain.Chunk
		acc      []sentence
		accWords int
		consumed []sentence
		index    int
	)

	emit := func() {
		content := joinSentences(acc)
		chunks = append(chunks, domain.Chunk{
			ID:            ChunkID(book.Title, section.Title, index),
			Content:       content,
			DocumentTitle: book.Title,
			SectionTitle:  section.Title,
			WordCount:     accWords,
			CharCount:     domain.CharCount(content),
			SequenceIndex: index,
			SourceFile:    book.SourceFile,
		})
		index++
	}

	for text := range c.segmenter.Sentences(section.Text) {
		s := sentence{text: text, words: c.segmenter.CountWords(text)}

		// A word-less accumulator (punctuation only) is never closed.
		if accWords > 0 && accWords+s.words > c.chunkSize {
			emit()

			tail := lastN(consumed, c.overlapSentences)
			acc = append(make([]sentence, 0, len(tail)+1), tail...)
			acc = append(acc, s)
			accWords = s.words
			for _, t := range tail {
				accWords += t.words
			}
		} else {
			acc = append(acc, s)
			accWords += s.words
		}

		consumed = append(consumed, s)
		if len(consumed) > c.overlapSentences {
			consumed = consumed[len(consumed)-c.overlapSentences:]
		}
	}

	if accWords > 0 && strings.TrimSpace(joinSentences(acc)) != "" {
		emit()
	}

	return chunks, nil
}

func joinSentences(sentences []sentence) string {
	parts := make([]string, len(sentences))
	for i, s := range sentences {
		parts[i] = s.text
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func lastN(sentences []sentence, n int) []sentence {
	if n <= 0 {
		return nil
	}
	if len(sentences) <= n {
		return sentences
	}
	return sentences[len(sentences)-n:]
}

// ChunkID derives a stable identifier from provenance and position.
func ChunkID(documentTitle, sectionTitle string, index int) string {
	return fmt.Sprintf("%s_%s_%d", slug(documentTitle), slug(sectionTitle), index)
}

// Renumber rewrites SequenceIndex and ID in slice order so indices run
// 0..n-1 per (document, section) pair, even when a section title repeats
// within a book. Distinct titles whose slugs collide get a numeric suffix.
func Renumber(chunks []domain.Chunk) {
	type pair struct{ document, section string }
	next := make(map[pair]int)
	prefixes := make(map[pair]string)
	claimed := make(map[string]bool)

	for i := range chunks {
		c := &chunks[i]
		p := pair{c.DocumentTitle, c.SectionTitle}
		prefix, ok := prefixes[p]
		if !ok {
			base := slug(p.document) + "_" + slug(p.section)
			prefix = base
			for n := 2; claimed[prefix]; n++ {
				prefix = fmt.Sprintf("%s_%d", base, n)
			}
			claimed[prefix] = true
			prefixes[p] = prefix
		}
		c.SequenceIndex = next[p]
		c.ID = fmt.Sprintf("%s_%d", prefix, c.SequenceIndex)
		next[p]++
	}
}

func slug(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			underscore = false
		case !underscore:
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "untitled"
	}
	return out
}
