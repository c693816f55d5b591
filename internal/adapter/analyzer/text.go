package analyzer

import (
	"regexp"
	"strings"

	"bookrag/internal/domain"
)

const (
	// FullTextSection names the single section of a book without chapter headings.
	FullTextSection = "Full Text"
	// FrontMatterSection names text that precedes the first chapter heading.
	FrontMatterSection = "Front Matter"
)

var (
	pageNumberLine = regexp.MustCompile(`(?m)^[ \t]*\d+[ \t]*$`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	chapterHeading = regexp.MustCompile(`(?m)^[ \t]*(?:Chapter|CHAPTER)[ \t]+(\d+|[IVXLC]+)\b[ \t]*[:.\-]?[ \t]*(.*)$`)
)

// CleanText drops standalone page-number lines and collapses all whitespace
// runs to single spaces.
func CleanText(text string) string {
	text = pageNumberLine.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// SplitSections cuts raw book text at chapter headings and cleans each part.
// A heading's trailing text becomes the section title, or "Chapter N" when
// the heading carries no title. Text without any heading is one section.
func SplitSections(text string) []domain.Section {
	matches := chapterHeading.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		cleaned := CleanText(text)
		if cleaned == "" {
			return nil
		}
		return []domain.Section{{Title: FullTextSection, Text: cleaned}}
	}

	var sections []domain.Section
	if front := CleanText(text[:matches[0][0]]); front != "" {
		sections = append(sections, domain.Section{Title: FrontMatterSection, Text: front})
	}

	for i, m := range matches {
		number := text[m[2]:m[3]]
		title := strings.TrimSpace(text[m[4]:m[5]])
		if title == "" {
			title = "Chapter " + number
		}

		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := CleanText(text[m[1]:end])
		if body == "" {
			continue
		}
		sections = append(sections, domain.Section{Title: title, Text: body})
	}

	return sections
}
