package textproc

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	weightUniqueness  = 0.35
	weightWordLength  = 0.25
	weightDigits      = 0.15
	weightTerminators = 0.10
	weightCapitalized = 0.15

	wordLengthCap       = 6.0
	capitalizedRatioCap = 0.3
)

var (
	reFormula  = regexp.MustCompile(`\p{N}\s*[+*/^]\s*[\p{N}(]|\p{N}\s+-\s+\p{N}|[=≈≠≤≥±×÷√∑∫]`)
	reListLine = regexp.MustCompile(`(?m)^[ \t]*(?:[-*•·]|\d{1,3}[.)]|[a-zA-Z][.)])[ \t]+\S`)
)

// Density estimates how information-dense text is, in [0,1]. It is a
// weighted sum of lexical uniqueness, average word length, digit density,
// sentence-terminal punctuation density and capitalized-word density.
func Density(text string) float64 {
	words := Words(text)
	if len(words) == 0 {
		return 0
	}

	unique := make(map[string]struct{}, len(words))
	totalLen := 0
	capitalized := 0
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
		totalLen += utf8.RuneCountInString(w)
		if r, _ := utf8.DecodeRuneInString(w); unicode.IsUpper(r) {
			capitalized++
		}
	}
	n := float64(len(words))
	uniqueRatio := float64(len(unique)) / n
	avgLen := float64(totalLen) / n

	digits, terminators, chars := 0, 0, 0
	for _, r := range text {
		chars++
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == '!' || r == '?' || r == '…':
			terminators++
		}
	}

	score := weightUniqueness*uniqueRatio +
		weightWordLength*minf(avgLen/wordLengthCap, 1) +
		weightDigits*minf(float64(digits)/float64(chars), 1) +
		weightTerminators*minf(float64(terminators)/n, 1) +
		weightCapitalized*minf(float64(capitalized)/n, capitalizedRatioCap)
	return clamp01(score)
}

func HasNumbers(text string) bool {
	return strings.IndexFunc(text, unicode.IsDigit) >= 0
}

func HasFormulas(text string) bool {
	return reFormula.MatchString(text)
}

// IsListLike reports whether at least two lines start with a bullet or
// enumeration marker.
func IsListLike(text string) bool {
	return len(reListLine.FindAllStringIndex(text, 3)) >= 2
}

func CountWords(text string) int {
	return len(Words(text))
}

func CountSentences(text string) int {
	return len(sentenceSpans([]rune(text), 0, utf8.RuneCountInString(text)))
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
