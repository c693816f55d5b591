package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
	"bookrag/internal/port"
)

// fakeLLM records the messages it receives and returns a canned reply.
type fakeLLM struct {
	reply    string
	err      error
	calls    int
	messages []domain.Message
	opts     port.CompletionOptions
}

func (f *fakeLLM) Complete(_ context.Context, messages []domain.Message, opts port.CompletionOptions) (string, error) {
	f.calls++
	f.messages = messages
	f.opts = opts
	return f.reply, f.err
}

func (f *fakeLLM) ModelName() string { return "fake" }

func result(book, chapter, content string, sim float64) domain.RetrievalResult {
	return domain.RetrievalResult{
		ID:         book + "_" + chapter,
		Content:    content,
		Metadata:   domain.ChunkMetadata{DocumentTitle: book, SectionTitle: chapter, PageNumber: 0},
		Similarity: sim,
	}
}

func TestComposeGenerated(t *testing.T) {
	llm := &fakeLLM{reply: "Price on value, not cost."}
	c := NewAnswerComposer(llm, DefaultComposerConfig(), nil, nil)

	results := []domain.RetrievalResult{
		result("The 100M Offers", "Pricing", "Charge what it is worth.", 0.91234),
		result("The 100M Leads", "Outreach", "Reach out daily.", 0.7),
	}
	answer := c.Compose(context.Background(), "How should I price?", results, nil)

	assert.Equal(t, domain.AnswerGenerated, answer.Status)
	assert.Equal(t, "Price on value, not cost.", answer.Text)
	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "The 100M Offers", answer.Citations[0].Book)
	assert.Equal(t, "Pricing", answer.Citations[0].Chapter)
	assert.Equal(t, 0.912, answer.Citations[0].Similarity)
	assert.Equal(t, "Charge what it is worth.", answer.Citations[0].TextSnippet)

	assert.Equal(t, 2000, llm.opts.MaxTokens)
	assert.Equal(t, 0.7, llm.opts.Temperature)
}

func TestComposeFallbackIsDeterministic(t *testing.T) {
	llm := &fakeLLM{err: errors.New("rate limited")}
	c := NewAnswerComposer(llm, DefaultComposerConfig(), nil, nil)
	results := []domain.RetrievalResult{result("B", "C", "text", 0.8)}

	first := c.Compose(context.Background(), "what is a grand slam offer?", results, nil)
	second := c.Compose(context.Background(), "what is a grand slam offer?", results, nil)

	assert.Equal(t, domain.AnswerFallback, first.Status)
	assert.Empty(t, first.Citations)
	assert.Contains(t, first.Text, `"what is a grand slam offer?"`)
	assert.Equal(t, first, second)
	assert.Equal(t, FallbackText("what is a grand slam offer?"), first.Text)
}

func TestComposeWithoutLLM(t *testing.T) {
	c := NewAnswerComposer(nil, DefaultComposerConfig(), nil, nil)
	answer := c.Compose(context.Background(), "q", nil, nil)
	assert.Equal(t, domain.AnswerFallback, answer.Status)
}

func TestComposeLimitsResults(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	cfg := DefaultComposerConfig()
	cfg.MaxResults = 2
	c := NewAnswerComposer(llm, cfg, nil, nil)

	results := []domain.RetrievalResult{
		result("A", "1", "one", 0.9),
		result("B", "2", "two", 0.8),
		result("C", "3", "three", 0.7),
	}
	answer := c.Compose(context.Background(), "q", results, nil)

	require.Len(t, answer.Citations, 2)
	user := llm.messages[len(llm.messages)-1].Content
	assert.Contains(t, user, "[Source 2]")
	assert.NotContains(t, user, "[Source 3]")
}

func TestBuildContextFormat(t *testing.T) {
	c := NewAnswerComposer(nil, DefaultComposerConfig(), nil, nil)

	got := c.BuildContext([]domain.RetrievalResult{
		result("Book A", "Intro", "First passage.", 0.9),
		result("Book B", "Ending", "Second passage.", 0.8),
	})

	want := "[Source 1] From 'Book A' - Intro:\nFirst passage.\n\n" +
		"[Source 2] From 'Book B' - Ending:\nSecond passage.\n"
	assert.Equal(t, want, got)
}

func TestBuildContextEmpty(t *testing.T) {
	c := NewAnswerComposer(nil, DefaultComposerConfig(), nil, nil)
	assert.Equal(t, noContextText, c.BuildContext(nil))
}

func TestBuildContextTruncatesContent(t *testing.T) {
	c := NewAnswerComposer(nil, DefaultComposerConfig(), nil, nil)
	long := strings.Repeat("a", 800)

	got := c.BuildContext([]domain.RetrievalResult{result("B", "C", long, 0.9)})

	assert.Contains(t, got, strings.Repeat("a", 500)+"\n")
	assert.NotContains(t, got, strings.Repeat("a", 501))
}

func TestBuildMessagesHistoryWindow(t *testing.T) {
	c := NewAnswerComposer(nil, DefaultComposerConfig(), nil, nil)

	var history []domain.Message
	for i := 0; i < 10; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		history = append(history, domain.Message{Role: role, Content: string(rune('a' + i))})
	}

	messages := c.BuildMessages("q", nil, history)

	require.Len(t, messages, 1+6+1)
	assert.Equal(t, domain.RoleSystem, messages[0].Role)
	assert.Equal(t, "e", messages[1].Content)
	assert.Equal(t, "j", messages[6].Content)
	last := messages[len(messages)-1]
	assert.Equal(t, domain.RoleUser, last.Role)
	assert.Contains(t, last.Content, "Question: q")
	assert.Contains(t, last.Content, noContextText)
}

func TestCitationsSnippet(t *testing.T) {
	c := NewAnswerComposer(nil, DefaultComposerConfig(), nil, nil)
	long := strings.Repeat("é", 250)

	citations := c.Citations([]domain.RetrievalResult{
		result("B", "C", long, 0.66666),
		result("B", "C", "short", 0.5),
	})

	require.Len(t, citations, 2)
	assert.Equal(t, strings.Repeat("é", 200)+"...", citations[0].TextSnippet)
	assert.Equal(t, 0.667, citations[0].Similarity)
	assert.Equal(t, "short", citations[1].TextSnippet)
}
