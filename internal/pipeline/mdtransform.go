package pipeline

import (
	"regexp"
	"strings"
)

// Highlight markers sit in the Unicode Private Use Area so goldmark passes
// them through untouched; they become <mark> tags after rendering, which
// keeps raw HTML disabled.
const (
	markStart = "\uE000"
	markEnd   = "\uE001"
)

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	highlightPattern   = regexp.MustCompile(`==(.*?)==`)
)

// prepareMarkdown normalizes line endings, turns ==text== into highlight
// markers and caps runs of blank lines at one.
func prepareMarkdown(content string) string {
	content = crlfOrCR.ReplaceAllString(content, "\n")
	content = highlightPattern.ReplaceAllString(content, markStart+"$1"+markEnd)
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// restoreMarks converts highlight markers in rendered HTML to <mark> tags.
func restoreMarks(html string) string {
	return strings.NewReplacer(markStart, "<mark>", markEnd, "</mark>").Replace(html)
}
