package analyzer

import (
	"iter"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// Segmenter splits text on Unicode (UAX #29) sentence and word boundaries.
type Segmenter struct{}

// NewSegmenter creates a new Segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Sentences yields trimmed sentences in original order. Whitespace-only
// segments are skipped; every other rune of text ends up in exactly one
// yielded sentence.
func (s *Segmenter) Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := text
		state := -1
		var sentence string
		for len(rest) > 0 {
			sentence, rest, state = uniseg.FirstSentenceInString(rest, state)
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			if !yield(sentence) {
				return
			}
		}
	}
}

// SplitSentences collects Sentences into a slice.
func (s *Segmenter) SplitSentences(text string) []string {
	var out []string
	for sentence := range s.Sentences(text) {
		out = append(out, sentence)
	}
	return out
}

// CountWords counts word segments that contain at least one letter or digit.
// Punctuation and whitespace segments are not words.
func (s *Segmenter) CountWords(text string) int {
	count := 0
	rest := text
	state := -1
	var word string
	for len(rest) > 0 {
		word, rest, state = uniseg.FirstWordInString(rest, state)
		if isWord(word) {
			count++
		}
	}
	return count
}

func isWord(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
