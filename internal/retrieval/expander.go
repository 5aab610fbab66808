// Package retrieval gathers ranked context for a tutor query: it expands the
// query, searches the vector index per variant, merges the hits and builds
// an extractive digest.
package retrieval

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"edurag/internal/textproc"
)

const (
	MaxVariants     = 5
	keywordVariantN = 3
)

// synonyms maps accent-folded content words to a single substitute.
var synonyms = map[string]string{
	"fotosintesis":   "clorofila",
	"celula":         "celular",
	"celulas":        "celulares",
	"adn":            "genetica",
	"ecuacion":       "formula",
	"formula":        "ecuacion",
	"suma":           "adicion",
	"resta":          "sustraccion",
	"multiplicacion": "producto",
	"division":       "cociente",
	"fraccion":       "quebrado",
	"planeta":        "astro",
	"guerra":         "conflicto",
	"gobierno":       "estado",
	"planta":         "vegetal",
	"plantas":        "vegetales",
	"velocidad":      "rapidez",
	"energia":        "trabajo",
	"photosynthesis": "chlorophyll",
	"equation":       "formula",
	"algorithm":      "procedure",
	"algorithms":     "procedures",
	"war":            "conflict",
	"speed":          "velocity",
	"plant":          "vegetation",
}

// ExpandQuery returns up to MaxVariants distinct query variants, in order:
// the trimmed query, its lower-case and title-case forms, a keyword-only form
// and a synonym substitution. A blank query yields no variants.
func ExpandQuery(q string) []string {
	q = strings.Join(strings.Fields(q), " ")
	if q == "" {
		return []string{}
	}
	lower := strings.ToLower(q)
	candidates := []string{q, lower, titleCase(lower)}

	if kw := textproc.Keywords(q, 2); len(kw) > 0 {
		if len(kw) > keywordVariantN {
			kw = kw[:keywordVariantN]
		}
		candidates = append(candidates, strings.Join(kw, " "))
	}
	if s, ok := substituteSynonym(lower); ok {
		candidates = append(candidates, s)
	}

	out := make([]string, 0, MaxVariants)
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if len(out) == MaxVariants {
			break
		}
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		// skip leading punctuation such as "¿"
		for j, r := range w {
			if unicode.IsLetter(r) {
				words[i] = w[:j] + string(unicode.ToUpper(r)) + w[j+utf8.RuneLen(r):]
				break
			}
		}
	}
	return strings.Join(words, " ")
}

// substituteSynonym replaces the first content word of s that has an entry
// in the synonym table.
func substituteSynonym(s string) (string, bool) {
	for _, idx := range textproc.WordIndexes(s) {
		w := s[idx[0]:idx[1]]
		if textproc.IsStopword(w) {
			continue
		}
		if syn, ok := synonyms[textproc.FoldAccents(w)]; ok {
			return s[:idx[0]] + syn + s[idx[1]:], true
		}
	}
	return "", false
}
