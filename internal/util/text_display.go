package util

import (
	"strings"
	"unicode"
)

const defaultSnippetRunes = 420

// Snippet flattens s to a single line of printable text, cut to maxRunes
// (420 when maxRunes <= 0) with a trailing ellipsis.
func Snippet(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = defaultSnippetRunes
	}
	s = strings.Join(strings.Fields(SanitizeText(s)), " ")
	runes := []rune(strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}
