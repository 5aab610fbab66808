package textproc

import (
	"unicode"

	"edurag/internal/models"
)

const (
	DefaultMaxSize = 1000
	DefaultOverlap = 200
	// MinChunkLength is the shortest chunk emitted; shorter fragments are dropped.
	MinChunkLength = 100
	excerptLength  = 100
)

// ChunkDraft is a chunk before embedding. Start and End are rune offsets
// into the text given to Chunk; the overlap shared with the previous chunk
// is part of [Start, End).
type ChunkDraft struct {
	Seq      int
	Text     string
	Start    int
	End      int
	Metadata models.ChunkMetadata
}

// Chunker splits normalized text into paragraph-aware chunks of at most
// maxSize runes. Consecutive chunks share up to overlap runes, trimmed to
// start on a sentence boundary when one is available.
type Chunker struct {
	maxSize int
	overlap int
}

func NewChunker(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}
}

type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

func (c *Chunker) Chunk(text string) []ChunkDraft {
	src := []rune(text)
	var (
		spans []span
		buf   span
		open  bool
	)
	for _, p := range paragraphSpans(src) {
		if p.len() > c.maxSize {
			if open {
				spans = append(spans, buf)
				open = false
			}
			spans = append(spans, c.greedy(src, splitSentences(src, p, c.maxSize))...)
			continue
		}
		if !open {
			buf, open = p, true
			continue
		}
		// a paragraph landing exactly on maxSize stays in this chunk
		if p.end-buf.start <= c.maxSize {
			buf.end = p.end
			continue
		}
		spans = append(spans, buf)
		buf = c.seed(src, buf, p)
	}
	if open {
		spans = append(spans, buf)
	}
	return c.emit(src, spans)
}

// greedy accumulates contiguous pieces into spans with the same overlap
// rule as the paragraph stream.
func (c *Chunker) greedy(src []rune, pieces []span) []span {
	out := make([]span, 0, len(pieces))
	var (
		buf  span
		open bool
	)
	for _, s := range pieces {
		if !open {
			buf, open = s, true
			continue
		}
		if s.end-buf.start <= c.maxSize {
			buf.end = s.end
			continue
		}
		out = append(out, buf)
		buf = c.seed(src, buf, s)
	}
	if open {
		out = append(out, buf)
	}
	return out
}

// seed starts the buffer following closed with an overlap tail of closed
// plus next. The tail is dropped when it would push the buffer past maxSize.
func (c *Chunker) seed(src []rune, closed, next span) span {
	start, ok := c.overlapStart(src, closed)
	if !ok || next.end-start > c.maxSize {
		return next
	}
	return span{start: start, end: next.end}
}

// overlapStart returns where the overlap tail of s begins. The window is
// capped at half of s so consecutive chunks always advance.
func (c *Chunker) overlapStart(src []rune, s span) (int, bool) {
	window := c.overlap
	if half := s.len() / 2; window > half {
		window = half
	}
	if window <= 0 {
		return 0, false
	}
	from := s.end - window
	for i := from; i < s.end; i++ {
		if !sentenceStartsAt(src, i, s.start) {
			continue
		}
		if st := skipSpace(src, i, s.end); st < s.end {
			return st, true
		}
		break
	}
	st := skipSpace(src, from, s.end)
	if st >= s.end {
		return 0, false
	}
	return st, true
}

func (c *Chunker) emit(src []rune, spans []span) []ChunkDraft {
	out := make([]ChunkDraft, 0, len(spans))
	prev := ""
	for _, s := range spans {
		if s.len() < MinChunkLength {
			continue
		}
		text := string(src[s.start:s.end])
		out = append(out, ChunkDraft{
			Seq:   len(out),
			Text:  text,
			Start: s.start,
			End:   s.end,
			Metadata: models.ChunkMetadata{
				Length:        s.len(),
				WordCount:     CountWords(text),
				SentenceCount: len(sentenceSpans(src, s.start, s.end)),
				Density:       Density(text),
				HasNumbers:    HasNumbers(text),
				HasFormulas:   HasFormulas(text),
				IsList:        IsListLike(text),
				PrevExcerpt:   tail(prev, excerptLength),
			},
		})
		prev = text
	}
	return out
}

// paragraphSpans returns the trimmed paragraphs of src, separated by runs
// of two or more newlines.
func paragraphSpans(src []rune) []span {
	out := make([]span, 0, 16)
	start := 0
	for i := 0; i <= len(src); i++ {
		atBreak := i == len(src) || (src[i] == '\n' && i+1 < len(src) && src[i+1] == '\n')
		if !atBreak {
			continue
		}
		if p := trimSpan(src, span{start, i}); p.len() > 0 {
			out = append(out, p)
		}
		for i < len(src) && src[i] == '\n' {
			i++
		}
		start = i
	}
	return out
}

// splitSentences cuts p into sentence spans, hard-splitting any sentence
// longer than maxSize at the last space that fits.
func splitSentences(src []rune, p span, maxSize int) []span {
	out := make([]span, 0, 8)
	for _, s := range sentenceSpans(src, p.start, p.end) {
		for s.len() > maxSize {
			cut := s.start + maxSize
			for j := cut; j > s.start; j-- {
				if unicode.IsSpace(src[j]) {
					cut = j
					break
				}
			}
			out = append(out, trimSpan(src, span{s.start, cut}))
			s = trimSpan(src, span{cut, s.end})
		}
		if s.len() > 0 {
			out = append(out, s)
		}
	}
	return out
}

// sentenceSpans returns trimmed sentences within [start, end). A sentence
// ends after a run of terminal punctuation (plus closing quotes/brackets)
// followed by whitespace, or at end.
func sentenceSpans(src []rune, start, end int) []span {
	out := make([]span, 0, 8)
	i := skipSpace(src, start, end)
	sentStart := i
	for i < end {
		if !isTerminator(src[i]) {
			i++
			continue
		}
		j := i + 1
		for j < end && (isTerminator(src[j]) || isCloser(src[j])) {
			j++
		}
		if j == end || unicode.IsSpace(src[j]) {
			out = append(out, span{sentStart, j})
			i = skipSpace(src, j, end)
			sentStart = i
			continue
		}
		i = j
	}
	if rest := trimSpan(src, span{sentStart, end}); rest.len() > 0 {
		out = append(out, rest)
	}
	return out
}

// sentenceStartsAt reports whether a sentence can begin at i: the preceding
// rune is whitespace after terminal punctuation, or a newline.
func sentenceStartsAt(src []rune, i, lower int) bool {
	if i-1 < lower || i >= len(src) || !unicode.IsSpace(src[i-1]) {
		return false
	}
	if src[i-1] == '\n' {
		return true
	}
	j := i - 2
	for j >= lower && isCloser(src[j]) {
		j--
	}
	return j >= lower && isTerminator(src[j])
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' || r == '»' || r == '”'
}

func skipSpace(src []rune, i, end int) int {
	for i < end && unicode.IsSpace(src[i]) {
		i++
	}
	return i
}

func trimSpan(src []rune, s span) span {
	s.start = skipSpace(src, s.start, s.end)
	for s.end > s.start && unicode.IsSpace(src[s.end-1]) {
		s.end--
	}
	return s
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
