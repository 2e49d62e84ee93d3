package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tripnote/tripnote/internal/domain/record"
)

// SnippetMaxLen is the snippet length before the ellipsis is appended.
const SnippetMaxLen = 150

const ellipsis = "..."

// snippet picks the sentence of the record's body text with the most
// query-word occurrences and truncates it to SnippetMaxLen runes.
func snippet(r *record.Record, words []string) string {
	text := firstNonEmpty(r.Body(), r.Title, r.Name)
	if text == "" {
		return ""
	}

	sentences := strings.FieldsFunc(text, func(c rune) bool {
		return c == '.' || c == '!' || c == '?'
	})
	best, bestCount := "", -1
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		lower := strings.ToLower(s)
		n := 0
		for _, w := range words {
			n += strings.Count(lower, w)
		}
		if n > bestCount {
			best, bestCount = s, n
		}
	}
	return truncate(best, SnippetMaxLen)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:n]), unicode.IsSpace) + ellipsis
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
