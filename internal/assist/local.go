// Package assist – local fallback backend
//
// Local implements the deterministic, network-free backend used when the
// primary is unavailable. Every kind is an extractive or heuristic text
// transformation: identical input always yields identical output, and
// degenerate input yields a minimal floor value instead of an error.
package assist

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	titleMaxWords = 6
	titleMaxRunes = 50
	titleFloor    = "Untitled note"

	maxTags      = 5
	minTagRunes  = 4
	maxIdeas     = 6
	minIdeas     = 4
	shortContent = 20
)

var (
	wordRE     = regexp.MustCompile(`[\p{L}\p{N}]+`)
	sentenceRE = regexp.MustCompile(`[^.!?]+[.!?]*`)
	punctGapRE = regexp.MustCompile(`\s+([.,!?;:])`)
	punctRunRE = regexp.MustCompile(`([.!?])([\p{Lu}\p{Ll}])`)
)

// stopwords excluded from keyword and tag extraction.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "from": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "will": {}, "would": {}, "should": {},
	"can": {}, "could": {}, "not": {}, "about": {}, "into": {}, "over": {},
	"some": {}, "more": {}, "very": {}, "then": {}, "than": {}, "when": {},
	"what": {}, "which": {}, "their": {}, "there": {}, "here": {}, "also": {},
	"just": {}, "like": {}, "your": {}, "they": {}, "them": {}, "does": {},
}

// Local is the deterministic fallback backend. Safe for concurrent use.
type Local struct {
	titleCaser cases.Caser
}

// NewLocal constructs the fallback backend.
func NewLocal() *Local {
	return &Local{titleCaser: cases.Title(language.English)}
}

var _ Backend = (*Local)(nil)

// Complete dispatches to the per-kind transformation. It never returns an
// error for a known kind.
func (l *Local) Complete(_ context.Context, kind Kind, content string) (Result, error) {
	switch kind {
	case KindGenerateTitle:
		return Result{Text: l.title(content)}, nil
	case KindSummarize:
		return Result{Text: summarize(content)}, nil
	case KindImproveContent:
		return Result{Text: improve(content)}, nil
	case KindGenerateIdeas:
		return Result{Items: ideas(content)}, nil
	case KindSuggestTags:
		return Result{Items: tags(content)}, nil
	default:
		return Result{}, ErrUnknownKind
	}
}

// title derives a short title from the first sentence: at most six words and
// fifty runes, title-cased.
func (l *Local) title(content string) string {
	sents := sentences(content)
	if len(sents) == 0 {
		return titleFloor
	}
	words := wordRE.FindAllString(sents[0], -1)
	if len(words) == 0 {
		return titleFloor
	}
	if len(words) > titleMaxWords {
		words = words[:titleMaxWords]
	}
	title := l.titleCaser.String(strings.Join(words, " "))
	if r := []rune(title); len(r) > titleMaxRunes {
		title = strings.TrimSpace(string(r[:titleMaxRunes]))
	}
	if title == "" {
		return titleFloor
	}
	return title
}

// summarize performs extractive summarization: short inputs come back
// verbatim, longer ones are reduced to first, middle, and last sentence.
func summarize(content string) string {
	trimmed := strings.TrimSpace(content)
	if significantRunes(trimmed) < shortContent {
		return trimmed
	}
	sents := sentences(trimmed)
	if len(sents) <= 2 {
		return trimmed
	}

	picked := []string{sents[0]}
	if len(sents) >= 5 {
		picked = append(picked, sents[len(sents)/2])
	}
	picked = append(picked, sents[len(sents)-1])

	summary := strings.Join(picked, " ")
	return ensureTerminal(summary)
}

// improve cleans whitespace, punctuation spacing, sentence capitalization,
// and the terminal stop. Content is otherwise untouched.
func improve(content string) string {
	out := strings.Join(strings.Fields(content), " ")
	if out == "" {
		return out
	}
	out = punctGapRE.ReplaceAllString(out, "$1")
	out = punctRunRE.ReplaceAllString(out, "$1 $2")
	out = capitalizeSentences(out)
	return ensureTerminal(out)
}

// ideas produces a deterministic bullet list seeded by the content's top
// keywords, padded with generic expansions to at least four entries.
func ideas(content string) []string {
	kws := keywords(content, 2)

	out := make([]string, 0, maxIdeas)
	for _, kw := range kws {
		out = append(out,
			"Expand on "+kw+" with concrete examples",
			"Compare "+kw+" with related alternatives",
		)
	}
	generic := []string{
		"Break the topic into smaller actionable steps",
		"Add references and links for further reading",
		"Summarize the key takeaways at the end",
		"List open questions to revisit later",
	}
	for _, g := range generic {
		if len(out) >= maxIdeas {
			break
		}
		out = append(out, g)
	}
	// kws is at most 2, so the generic pool always reaches the minimum.
	return out
}

// tags extracts the highest-frequency meaningful tokens, lowercased, capped
// at five, with a fixed floor for degenerate content.
func tags(content string) []string {
	out := keywords(content, maxTags)
	if len(out) == 0 {
		return []string{"general", "notes"}
	}
	return out
}

// keywords returns up to n non-stopword tokens (len > 3) ordered by
// descending frequency, ties broken alphabetically for determinism.
func keywords(content string, n int) []string {
	freq := map[string]int{}
	for _, tok := range wordRE.FindAllString(strings.ToLower(content), -1) {
		if len([]rune(tok)) < minTagRunes {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		freq[tok]++
	}
	toks := make([]string, 0, len(freq))
	for t := range freq {
		toks = append(toks, t)
	}
	sort.Slice(toks, func(i, j int) bool {
		if freq[toks[i]] != freq[toks[j]] {
			return freq[toks[i]] > freq[toks[j]]
		}
		return toks[i] < toks[j]
	})
	if len(toks) > n {
		toks = toks[:n]
	}
	return toks
}

// sentences splits text on terminal punctuation, dropping empty fragments.
func sentences(text string) []string {
	var out []string
	for _, s := range sentenceRE.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// significantRunes counts the non-whitespace runes in s.
func significantRunes(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// capitalizeSentences upper-cases the first letter of each sentence.
func capitalizeSentences(text string) string {
	runes := []rune(text)
	atStart := true
	for i, r := range runes {
		switch {
		case atStart && unicode.IsLetter(r):
			runes[i] = unicode.ToUpper(r)
			atStart = false
		case r == '.' || r == '!' || r == '?':
			atStart = true
		case !unicode.IsSpace(r):
			atStart = false
		}
	}
	return string(runes)
}

// ensureTerminal appends a period when text lacks terminal punctuation.
func ensureTerminal(text string) string {
	if text == "" {
		return text
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return text
	}
	return text + "."
}
