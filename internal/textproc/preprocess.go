// Package textproc normalizes extracted document text and cuts it into
// overlapping, paragraph-aware chunks.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinParagraphLength is the shortest paragraph kept by Preprocess.
const MinParagraphLength = 10

var (
	reLineBreaks     = regexp.MustCompile(`\r\n?|\x{2028}|\x{2029}|\x0b|\x0c`)
	reManyNewlines   = regexp.MustCompile(`\n{3,}`)
	reHorizontalWS   = regexp.MustCompile(`[^\S\n]+`)
	reSpaceAroundNL  = regexp.MustCompile(` *\n *`)
	reSentenceThenNL = regexp.MustCompile(`([.!?…])\n([^\n])`)
)

const allowedSymbols = ".,;:!?¿¡'\"-–—…()[]{}<>$€£¥%+*/=^±×÷°@#&|~_"

// Preprocess normalizes line structure and strips noise while keeping
// paragraphs separated by a blank line. On an internal fault it returns the
// input unchanged.
func Preprocess(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()

	s := reLineBreaks.ReplaceAllString(text, "\n")
	s = reManyNewlines.ReplaceAllString(s, "\n\n")
	s = reHorizontalWS.ReplaceAllString(s, " ")
	s = reSpaceAroundNL.ReplaceAllString(s, "\n")
	s = strings.Map(keepRune, s)
	// dropped symbols must not leave double spaces behind
	s = reHorizontalWS.ReplaceAllString(s, " ")
	s = reSpaceAroundNL.ReplaceAllString(s, "\n")

	paragraphs := strings.Split(s, "\n\n")
	kept := paragraphs[:0]
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) < MinParagraphLength {
			continue
		}
		kept = append(kept, p)
	}
	s = strings.Join(kept, "\n\n")
	s = reSentenceThenNL.ReplaceAllString(s, "$1\n\n$2")
	return strings.TrimSpace(s)
}

func keepRune(r rune) rune {
	switch {
	case r == '\n' || r == ' ':
		return r
	case unicode.IsDigit(r):
		return r
	case unicode.IsLetter(r) && unicode.Is(unicode.Latin, r):
		return r
	case strings.ContainsRune(allowedSymbols, r):
		return r
	}
	return -1
}
