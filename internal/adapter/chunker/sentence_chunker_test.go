package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/adapter/analyzer"
	"bookrag/internal/domain"
)

var testBook = domain.Book{Title: "The 100M Offers", SourceFile: "/books/The 100M Offers.txt"}

func newChunker(t *testing.T, size, overlap int, opts ...Option) *SentenceChunker {
	t.Helper()
	c, err := NewSentenceChunker(size, overlap, analyzer.NewSegmenter(), opts...)
	require.NoError(t, err)
	return c
}

func TestSentenceChunkerSingleChunk(t *testing.T) {
	c := newChunker(t, 100, 20)
	section := domain.Section{Title: "Pricing", Text: "Sentence one. Sentence two. Sentence three."}

	chunks, err := c.Chunk(testBook, section)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	chunk := chunks[0]
	assert.Equal(t, "Sentence one. Sentence two. Sentence three.", chunk.Content)
	assert.Equal(t, 6, chunk.WordCount)
	assert.Equal(t, len(chunk.Content), chunk.CharCount)
	assert.Equal(t, 0, chunk.SequenceIndex)
	assert.Equal(t, "the_100m_offers_pricing_0", chunk.ID)
	assert.Equal(t, "The 100M Offers", chunk.DocumentTitle)
	assert.Equal(t, "Pricing", chunk.SectionTitle)
	assert.Equal(t, testBook.SourceFile, chunk.SourceFile)
}

func TestSentenceChunkerOverlapOneSentence(t *testing.T) {
	c := newChunker(t, 4, 1, WithOverlapSentences(1))
	text := "Alpha beta. Gamma delta. Epsilon zeta. Eta theta. Iota kappa."

	chunks, err := c.Chunk(testBook, domain.Section{Title: "Greek", Text: text})
	require.NoError(t, err)

	got := contents(chunks)
	assert.Equal(t, []string{
		"Alpha beta. Gamma delta.",
		"Gamma delta. Epsilon zeta.",
		"Epsilon zeta. Eta theta.",
		"Eta theta. Iota kappa.",
	}, got)
}

func TestSentenceChunkerDefaultOverlapUsesConsumedSentences(t *testing.T) {
	c := newChunker(t, 4, 1)
	text := "Alpha beta. Gamma delta. Epsilon zeta. Eta theta. Iota kappa."

	chunks, err := c.Chunk(testBook, domain.Section{Title: "Greek", Text: text})
	require.NoError(t, err)

	// The first overlap draw has only two consumed sentences available.
	assert.Equal(t, []string{
		"Alpha beta. Gamma delta.",
		"Alpha beta. Gamma delta. Epsilon zeta.",
		"Alpha beta. Gamma delta. Epsilon zeta. Eta theta.",
		"Gamma delta. Epsilon zeta. Eta theta. Iota kappa.",
	}, contents(chunks))
	assert.Equal(t, []int{4, 6, 8, 8}, wordCounts(chunks))
}

func TestSentenceChunkerOrdering(t *testing.T) {
	c := newChunker(t, 12, 4)
	text := longText(40)

	chunks, err := c.Chunk(testBook, domain.Section{Title: "Long", Text: text})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.SequenceIndex)
		assert.Equal(t, ChunkID(testBook.Title, "Long", i), chunk.ID)
	}
}

func TestSentenceChunkerNeverSplitsSentences(t *testing.T) {
	seg := analyzer.NewSegmenter()
	text := longText(30)
	sentences := seg.SplitSentences(text)

	for _, cfg := range []struct{ size, overlap, keep int }{{8, 2, 3}, {15, 5, 1}, {30, 10, 0}} {
		c := newChunker(t, cfg.size, cfg.overlap, WithOverlapSentences(cfg.keep))
		chunks, err := c.Chunk(testBook, domain.Section{Title: "Long", Text: text})
		require.NoError(t, err)

		prevEnd := 0
		for i, chunk := range chunks {
			start, end, ok := sentenceRange(sentences, chunk.Content)
			require.True(t, ok, "chunk %d is not a run of whole sentences: %q", i, chunk.Content)
			if i == 0 {
				assert.Equal(t, 0, start)
			} else {
				assert.LessOrEqual(t, start, prevEnd, "gap before chunk %d", i)
				assert.Greater(t, end, prevEnd, "chunk %d adds no new sentence", i)
			}
			prevEnd = end
		}
		assert.Equal(t, len(sentences), prevEnd, "last chunk must end at the last sentence")
	}
}

func TestSentenceChunkerOversizedSentence(t *testing.T) {
	c := newChunker(t, 5, 1)
	long := "This single sentence has far more than five words in it."

	chunks, err := c.Chunk(testBook, domain.Section{Title: "Big", Text: long})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, long, chunks[0].Content)
	assert.Equal(t, 11, chunks[0].WordCount)
}

func TestSentenceChunkerOversizedSentenceInMiddle(t *testing.T) {
	c := newChunker(t, 5, 1)
	long := "This single sentence has far more than five words in it."
	text := "Short one. " + long + " Short two."

	chunks, err := c.Chunk(testBook, domain.Section{Title: "Big", Text: text})
	require.NoError(t, err)

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk.Content, long) {
			found = true
		}
	}
	assert.True(t, found, "oversized sentence must survive intact")
	assert.Equal(t, "Short one.", chunks[0].Content)
}

func TestSentenceChunkerEmptySection(t *testing.T) {
	c := newChunker(t, 50, 10)

	for _, text := range []string{"", "   \n\t", "... !!! ???"} {
		chunks, err := c.Chunk(testBook, domain.Section{Title: "Empty", Text: text})
		require.NoError(t, err)
		assert.Empty(t, chunks, "text %q", text)
	}
}

func TestSentenceChunkerNonEmptyInvariant(t *testing.T) {
	c := newChunker(t, 6, 2)
	text := "... Alpha beta gamma. !!! Delta epsilon zeta eta theta. ?? Iota."

	chunks, err := c.Chunk(testBook, domain.Section{Title: "Mixed", Text: text})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.GreaterOrEqual(t, chunk.WordCount, 1)
		assert.Equal(t, chunk.Content, strings.TrimSpace(chunk.Content))
		assert.Equal(t, domain.CharCount(chunk.Content), chunk.CharCount)
	}
}

func TestSentenceChunkerIdempotent(t *testing.T) {
	c := newChunker(t, 10, 3)
	section := domain.Section{Title: "Repeat", Text: longText(25)}

	first, err := c.Chunk(testBook, section)
	require.NoError(t, err)
	second, err := c.Chunk(testBook, section)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNewSentenceChunkerInvalidConfig(t *testing.T) {
	seg := analyzer.NewSegmenter()

	for _, cfg := range [][2]int{{0, 0}, {10, 0}, {10, 10}, {10, 20}, {-5, 1}} {
		_, err := NewSentenceChunker(cfg[0], cfg[1], seg)
		assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig, "size=%d overlap=%d", cfg[0], cfg[1])
	}
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "book_chapter_one_3", ChunkID("Book", "Chapter One", 3))
	assert.Equal(t, "untitled_untitled_0", ChunkID("", "  ", 0))
	assert.Equal(t, "a_b_c_1", ChunkID("A -- B", "C!", 1))
}

func longText(n int) string {
	words := []string{"offer", "value", "price", "lead", "scale", "grow", "sell", "buy"}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		// Sentences vary between two and five words.
		count := 2 + i%4
		parts := make([]string, count)
		for j := range parts {
			parts[j] = words[(i+j)%len(words)]
		}
		parts[0] = strings.ToUpper(parts[0][:1]) + parts[0][1:]
		b.WriteString(fmt.Sprintf("%s %d.", strings.Join(parts, " "), i))
	}
	return b.String()
}

func contents(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func wordCounts(chunks []domain.Chunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.WordCount
	}
	return out
}

// sentenceRange finds the contiguous run of sentences whose join is content.
func sentenceRange(sentences []string, content string) (int, int, bool) {
	for start := range sentences {
		for end := start + 1; end <= len(sentences); end++ {
			joined := strings.Join(sentences[start:end], " ")
			if joined == content {
				return start, end, true
			}
			if len(joined) > len(content) {
				break
			}
		}
	}
	return 0, 0, false
}

func TestRenumber(t *testing.T) {
	chunks := []domain.Chunk{
		{DocumentTitle: "Book", SectionTitle: "Offers", SequenceIndex: 0},
		{DocumentTitle: "Book", SectionTitle: "Offers", SequenceIndex: 1},
		{DocumentTitle: "Book", SectionTitle: "Bonuses", SequenceIndex: 0},
		{DocumentTitle: "Book", SectionTitle: "Offers", SequenceIndex: 0},
		{DocumentTitle: "Book", SectionTitle: "Offers!", SequenceIndex: 0},
	}

	Renumber(chunks)

	var ids []string
	var indices []int
	for _, c := range chunks {
		ids = append(ids, c.ID)
		indices = append(indices, c.SequenceIndex)
	}
	assert.Equal(t, []string{"book_offers_0", "book_offers_1", "book_bonuses_0", "book_offers_2", "book_offers_2_0"}, ids)
	assert.Equal(t, []int{0, 1, 0, 2, 0}, indices)
}
