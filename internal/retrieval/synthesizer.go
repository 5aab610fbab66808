package retrieval

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"edurag/internal/textproc"
)

const (
	verbatimBelow      = 200
	minSentenceLength  = 10
	digestSentences    = 8
	fallbackSentences  = 4
	longSentenceLength = 50
)

var reSentenceEnd = regexp.MustCompile(`[.!?]+`)

type ScoredSentence struct {
	Text  string
	Score float64
	// Pos is the sentence's position in the combined text.
	Pos int
}

// Synthesize builds an extractive digest of texts for query. Short input is
// returned as is; otherwise the best scoring sentences are joined.
func Synthesize(texts []string, query string) string {
	combined := strings.TrimSpace(strings.Join(texts, " "))
	if utf8.RuneCountInString(combined) < verbatimBelow {
		return combined
	}
	ranked := RankSentences(combined, query)
	if len(ranked) == 0 {
		return ""
	}
	picked := make([]string, 0, digestSentences)
	if ranked[0].Score > 0 {
		for _, s := range ranked {
			if len(picked) == digestSentences {
				break
			}
			picked = append(picked, s.Text)
		}
	} else {
		for _, s := range splitSentences(combined) {
			if len(picked) == fallbackSentences {
				break
			}
			picked = append(picked, s)
		}
	}
	return strings.Join(picked, ". ") + "."
}

// RankSentences scores every sentence of text against the query keywords
// and returns them by descending score, ties in text order.
func RankSentences(text, query string) []ScoredSentence {
	keywords := textproc.Keywords(query, 2)
	sentences := splitSentences(text)
	out := make([]ScoredSentence, 0, len(sentences))
	for i, s := range sentences {
		out = append(out, ScoredSentence{Text: s, Score: scoreSentence(s, keywords), Pos: i})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func splitSentences(text string) []string {
	parts := reSentenceEnd.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if utf8.RuneCountInString(p) <= minSentenceLength {
			continue
		}
		out = append(out, p)
	}
	return out
}

func scoreSentence(sentence string, keywords []string) float64 {
	lower := strings.ToLower(sentence)
	folded := textproc.FoldAccents(lower)
	words := make(map[string]struct{})
	for _, w := range textproc.Words(lower) {
		words[w] = struct{}{}
	}

	score := 0.0
	for _, kw := range keywords {
		switch {
		case hasWord(words, kw):
			score += 3
		case strings.Contains(lower, kw):
			score += 2
		case strings.Contains(folded, textproc.FoldAccents(kw)):
			score += 2
		case stemMatch(lower, kw):
			score += 1
		}
	}
	if utf8.RuneCountInString(sentence) > longSentenceLength {
		score += 0.5
	}
	score += 0.3 * float64(capitalizedRuns(sentence))
	return score
}

func hasWord(words map[string]struct{}, kw string) bool {
	_, ok := words[kw]
	return ok
}

// stemMatch compares the keyword minus its last two runes, never shorter
// than three runes, so "algorithms" matches "algorithm".
func stemMatch(s, kw string) bool {
	r := []rune(kw)
	if len(r) <= 3 {
		return false
	}
	n := len(r) - 2
	if n < 3 {
		n = 3
	}
	return strings.Contains(s, string(r[:n]))
}

// capitalizedRuns counts runs of consecutive capitalized words, ignoring the
// sentence's first word.
func capitalizedRuns(sentence string) int {
	words := textproc.Words(sentence)
	runs := 0
	inRun := false
	for i, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		capital := i > 0 && unicode.IsUpper(r)
		if capital && !inRun {
			runs++
		}
		inRun = capital
	}
	return runs
}
