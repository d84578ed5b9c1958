package normalizer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/arigen-tech/docsearch/internal/models"
)

var (
	tokenPattern     = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
	paragraphPattern = regexp.MustCompile(`\n[ \t]*\n+`)
	sentencePattern  = regexp.MustCompile(`[.!?]["')\]]*(\s+|$)`)
)

// Normalizer turns extracted page text into indexable passages. Identical
// input always yields identical passage boundaries and term sets: boundary
// decisions never touch map iteration order.
type Normalizer struct {
	maxPassageLen int
	minPassageLen int
}

func New(maxPassageLen, minPassageLen int) *Normalizer {
	if maxPassageLen <= 0 {
		maxPassageLen = 600
	}
	if minPassageLen < 0 {
		minPassageLen = 0
	}
	if maxPassageLen <= minPassageLen {
		maxPassageLen = minPassageLen + 1
	}
	return &Normalizer{
		maxPassageLen: maxPassageLen,
		minPassageLen: minPassageLen,
	}
}

// Normalize splits one page into passages. Pages that did not extract cleanly
// produce nothing; a non-empty page always produces at least one passage so
// short pages remain searchable.
func (n *Normalizer) Normalize(page models.Page) []models.Passage {
	if page.Status != models.PageOK {
		return nil
	}
	if strings.TrimSpace(page.Text) == "" {
		return nil
	}

	spans := n.passageSpans(page.Text)

	passages := make([]models.Passage, 0, len(spans))
	for _, sp := range spans {
		text := page.Text[sp.start:sp.end]
		passages = append(passages, models.Passage{
			ID:          fmt.Sprintf("%s:%d:%d", page.DocumentID, page.Ordinal, sp.start),
			DocumentID:  page.DocumentID,
			PageOrdinal: page.Ordinal,
			Text:        text,
			Offset:      sp.start,
			End:         sp.end,
			Terms:       TermSet(text),
		})
	}
	return passages
}

type span struct {
	start, end int
}

// passageSpans segments raw page text into byte ranges: paragraphs first,
// then sentence groups bounded by the maximum passage length. Spans below
// the minimum length are dropped unless they are all the page has.
func (n *Normalizer) passageSpans(raw string) []span {
	var out []span
	for _, para := range n.paragraphSpans(raw) {
		out = append(out, n.splitParagraph(raw, para)...)
	}

	kept := out[:0]
	for _, sp := range out {
		if sp.end-sp.start >= n.minPassageLen {
			kept = append(kept, sp)
		}
	}
	if len(kept) > 0 {
		return kept
	}

	// Page shorter than the minimum: keep exactly one passage.
	whole := trimSpan(raw, span{0, len(raw)})
	if whole.end > whole.start {
		return []span{whole}
	}
	return nil
}

func (n *Normalizer) paragraphSpans(raw string) []span {
	var spans []span
	prev := 0
	for _, sep := range paragraphPattern.FindAllStringIndex(raw, -1) {
		sp := trimSpan(raw, span{prev, sep[0]})
		if sp.end > sp.start {
			spans = append(spans, sp)
		}
		prev = sep[1]
	}
	last := trimSpan(raw, span{prev, len(raw)})
	if last.end > last.start {
		spans = append(spans, last)
	}
	return spans
}

// splitParagraph cuts a paragraph into sentence groups no longer than the
// maximum passage length. A single overlong sentence is hard-cut at the last
// space before the limit.
func (n *Normalizer) splitParagraph(raw string, para span) []span {
	if para.end-para.start <= n.maxPassageLen {
		return []span{para}
	}

	boundaries := sentenceBoundaries(raw, para)

	var out []span
	emit := func(sp span) {
		sp = trimSpan(raw, sp)
		if sp.end > sp.start {
			out = append(out, sp)
		}
	}

	start := para.start
	prev := para.start
	for _, b := range boundaries {
		if b-start <= n.maxPassageLen {
			prev = b
			continue
		}
		if prev > start {
			emit(span{start, prev})
			start = prev
		}
		if b-start > n.maxPassageLen {
			// A single sentence over the limit: hard cut.
			out = append(out, hardCuts(raw, span{start, b}, n.maxPassageLen)...)
			start = b
		}
		prev = b
	}
	if start < para.end {
		emit(span{start, para.end})
	}
	return out
}

// sentenceBoundaries returns byte positions just after each sentence end
// within the paragraph, always ending with the paragraph end.
func sentenceBoundaries(raw string, para span) []int {
	text := raw[para.start:para.end]
	var bounds []int
	for _, m := range sentencePattern.FindAllStringIndex(text, -1) {
		bounds = append(bounds, para.start+m[1])
	}
	if len(bounds) == 0 || bounds[len(bounds)-1] != para.end {
		bounds = append(bounds, para.end)
	}
	return bounds
}

func hardCuts(raw string, sp span, limit int) []span {
	var out []span
	start := sp.start
	for end := sp.end; start < end; {
		cut := start + limit
		if cut >= end {
			cut = end
		} else if idx := strings.LastIndexByte(raw[start:cut], ' '); idx > 0 {
			cut = start + idx
		} else {
			// No space to break on: back the cut up to a rune boundary so
			// neither piece ends up with a torn multi-byte character.
			for cut > start && !utf8.RuneStart(raw[cut]) {
				cut--
			}
			if cut == start {
				cut = start + limit
				for cut < end && !utf8.RuneStart(raw[cut]) {
					cut++
				}
			}
		}
		piece := trimSpan(raw, span{start, cut})
		if piece.end > piece.start {
			out = append(out, piece)
		}
		start = cut
	}
	return out
}

func trimSpan(raw string, sp span) span {
	for sp.start < sp.end && isSpace(raw[sp.start]) {
		sp.start++
	}
	for sp.end > sp.start && isSpace(raw[sp.end-1]) {
		sp.end--
	}
	return sp
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// Tokenize folds case and extracts term tokens, filtering stopwords. The
// same pipeline runs on queries so matching is symmetric.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TermSet returns the sorted, deduplicated term set for a piece of text.
func TermSet(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	set := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		set = append(set, t)
	}
	sort.Strings(set)
	return set
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was",
		"were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than",
		"so", "such", "into", "about", "between", "through", "during",
		"before", "after", "above", "below", "out", "off", "own", "same",
		"too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
