package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"bookrag/internal/domain"
	"bookrag/internal/logger"
	"bookrag/internal/metrics"
	"bookrag/internal/port"
)

const noContextText = "No relevant context found in the knowledge base."

const systemPrompt = `You are a knowledgeable assistant that answers questions about a library of books.

Your role:
- Give practical, specific answers grounded in the books
- Use the frameworks and examples the books describe
- Cite the book and chapter when you rely on a passage

Guidelines:
- Answer based ONLY on the provided context from the books
- If the context does not contain relevant information, say so honestly
- Do not invent facts, numbers or quotes that are not in the context`

// ComposerConfig bounds prompt size and generation.
type ComposerConfig struct {
	MaxResults           int // results placed in context; <= 0 means all
	ContextPreviewChars  int
	CitationPreviewChars int
	HistoryTurns         int
	MaxTokens            int
	Temperature          float64
}

// DefaultComposerConfig returns the stock limits.
func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{
		MaxResults:           5,
		ContextPreviewChars:  500,
		CitationPreviewChars: 200,
		HistoryTurns:         6,
		MaxTokens:            2000,
		Temperature:          0.7,
	}
}

// AnswerComposer turns retrieved chunks into a grounded answer with
// citations. It is stateless between calls.
type AnswerComposer struct {
	llm     port.LLM
	cfg     ComposerConfig
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewAnswerComposer creates a composer. llm may be nil, in which case every
// answer is the fallback text. log and m may be nil.
func NewAnswerComposer(llm port.LLM, cfg ComposerConfig, log *logger.Logger, m *metrics.Metrics) *AnswerComposer {
	if log == nil {
		log = logger.Nop()
	}
	return &AnswerComposer{
		llm:     llm,
		cfg:     cfg,
		log:     log.Component("composer"),
		metrics: m,
	}
}

// Compose generates the answer for query from results. Generation errors
// are not returned: the answer degrades to a fallback with no citations.
func (c *AnswerComposer) Compose(ctx context.Context, query string, results []domain.RetrievalResult, history []domain.Message) domain.Answer {
	used := results
	if c.cfg.MaxResults > 0 && len(used) > c.cfg.MaxResults {
		used = used[:c.cfg.MaxResults]
	}

	messages := c.BuildMessages(query, used, history)

	answer := domain.Answer{Status: domain.AnswerGenerated}
	var text string
	var err error
	if c.llm == nil {
		err = fmt.Errorf("no language model configured")
	} else {
		text, err = c.llm.Complete(ctx, messages, port.CompletionOptions{
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
		})
	}

	if err != nil {
		c.log.Error().Err(err).Str("query", query).Msg("generation failed, returning fallback")
		answer = domain.Answer{
			Status:    domain.AnswerFallback,
			Text:      FallbackText(query),
			Citations: []domain.Citation{},
		}
	} else {
		answer.Text = text
		answer.Citations = c.Citations(used)
		c.log.Info().Int("sources", len(answer.Citations)).Msg("generated response")
	}

	if c.metrics != nil {
		c.metrics.RecordAnswer(string(answer.Status))
	}
	return answer
}

// BuildMessages assembles the system prompt, the trailing history window
// and the user prompt with its context block.
func (c *AnswerComposer) BuildMessages(query string, results []domain.RetrievalResult, history []domain.Message) []domain.Message {
	messages := []domain.Message{{Role: domain.RoleSystem, Content: systemPrompt}}

	if n := c.cfg.HistoryTurns; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	messages = append(messages, history...)

	messages = append(messages, domain.Message{
		Role:    domain.RoleUser,
		Content: userPrompt(query, c.BuildContext(results)),
	})
	return messages
}

// BuildContext renders results as numbered, labelled source entries, each
// cut to the context preview length.
func (c *AnswerComposer) BuildContext(results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return noContextText
	}

	parts := make([]string, 0, len(results))
	for i, r := range results {
		content, _ := domain.Truncate(r.Content, c.cfg.ContextPreviewChars)
		parts = append(parts, fmt.Sprintf("[Source %d] From '%s' - %s:\n%s\n", i+1, r.Book(), r.Chapter(), content))
	}
	return strings.Join(parts, "\n")
}

// Citations projects every result placed in context to a citation.
func (c *AnswerComposer) Citations(results []domain.RetrievalResult) []domain.Citation {
	citations := make([]domain.Citation, 0, len(results))
	for _, r := range results {
		citations = append(citations, domain.Citation{
			Book:        r.Book(),
			Chapter:     r.Chapter(),
			Page:        r.Metadata.PageNumber,
			TextSnippet: domain.Preview(r.Content, c.cfg.CitationPreviewChars),
			Similarity:  roundTo(r.Similarity, 3),
		})
	}
	return citations
}

func userPrompt(query, context string) string {
	return fmt.Sprintf(`Based on the book excerpts in the provided context, please answer this question:

Question: %s

Context from the books:
%s

Please provide a helpful, actionable response based on the context above. If the context doesn't contain enough information to fully answer the question, please say so and provide what guidance you can.`, query, context)
}

// FallbackText is returned when generation fails. It repeats the query and
// does not attempt an answer.
func FallbackText(query string) string {
	return fmt.Sprintf(`I'm sorry, but I couldn't generate an answer to your question about: "%s"

This could be because:
1. The knowledge base hasn't been set up yet
2. There's a temporary technical issue
3. Your question might need to be rephrased

Please try again later, or ask about a specific topic covered in the books.`, query)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
