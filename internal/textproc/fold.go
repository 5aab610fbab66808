package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var reWord = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// FoldAccents strips combining marks, e.g. "fotosíntesis" -> "fotosintesis".
func FoldAccents(s string) string {
	// transformers carry state, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Words returns the word tokens of s in order of appearance.
func Words(s string) []string {
	return reWord.FindAllString(s, -1)
}

// IsStopword reports whether w is a Spanish or English function word.
// Matching ignores case and accents.
func IsStopword(w string) bool {
	_, ok := stopwords[FoldAccents(strings.ToLower(w))]
	return ok
}

// Keywords returns the case-folded, stopword-filtered words of s longer than
// minLen runes, deduplicated in order of first appearance.
func Keywords(s string, minLen int) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)
	for _, w := range Words(strings.ToLower(s)) {
		if len([]rune(w)) <= minLen || IsStopword(w) {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

var stopwords = func() map[string]struct{} {
	words := []string{
		// es
		"a", "al", "algo", "ante", "asi", "bajo", "cada", "como", "con", "contra", "cual", "cuales",
		"cuando", "cuanto", "de", "del", "desde", "donde", "dos", "el", "ella", "ellas", "ellos", "en",
		"entre", "era", "es", "esa", "ese", "eso", "esta", "estan", "este", "esto", "fue", "ha", "hacia",
		"han", "hasta", "hay", "la", "las", "le", "les", "lo", "los", "mas", "me", "mi", "muy", "nada",
		"ni", "no", "nos", "o", "otra", "otro", "para", "pero", "poco", "por", "porque", "puede", "que",
		"quien", "se", "sea", "segun", "ser", "si", "sin", "sobre", "son", "su", "sus", "tambien", "tan",
		"te", "tiene", "todo", "tu", "un", "una", "uno", "unos", "unas", "y", "ya", "yo",
		"explica", "explicame", "dime", "sabes", "hola",
		// en
		"about", "an", "and", "are", "as", "at", "be", "been", "but", "by", "can", "did", "do", "does",
		"for", "from", "how", "if", "in", "into", "is", "it", "its", "of", "on", "or", "so", "than",
		"that", "the", "their", "then", "there", "these", "this", "those", "to", "was", "were", "what",
		"when", "where", "which", "who", "why", "will", "with", "would", "you", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// WordIndexes returns the byte ranges of the word tokens of s.
func WordIndexes(s string) [][]int {
	return reWord.FindAllStringIndex(s, -1)
}
