// Package textutil provides pure text helpers used by candidate scoring
// and ingestion: tokenization, lexical relevance scoring, abstract
// reconstruction from OpenAlex inverted indexes, and filename sanitization.
package textutil

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Relevance score coefficients. These are a design choice, fixed at
// compile time rather than tunable at runtime.
const (
	bodyCoverageWeight  = 0.55
	titleCoverageWeight = 0.25
	phraseBoost         = 0.15
	abstractBoost       = 0.05
)

// DefaultMaxFilenameLen is the default maximum length for sanitized filenames.
const DefaultMaxFilenameLen = 120

// maxAbstractWords guards against malicious inverted indexes: both the
// total number of position entries and the largest position must stay
// below this cap, since the slot array is sized by the largest position.
const maxAbstractWords = 100_000

var (
	tokenPattern      = regexp.MustCompile(`[a-z0-9][a-z0-9_-]*`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
	spaceBeforePunct  = regexp.MustCompile(` +([,.;:!?])`)
	filenameSafeRunes = &unicode.RangeTable{
		R16: []unicode.Range16{
			{Lo: ' ', Hi: ' ', Stride: 1},
			{Lo: '-', Hi: '.', Stride: 1},
			{Lo: '0', Hi: '9', Stride: 1},
			{Lo: 'A', Hi: 'Z', Stride: 1},
			{Lo: '_', Hi: '_', Stride: 1},
			{Lo: 'a', Hi: 'z', Stride: 1},
		},
	}
)

// Tokenize lowercases text and extracts tokens that start with a letter or
// digit and continue with letters, digits, underscores, or hyphens.
// The returned slice preserves order and may contain duplicates.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// UniqueTokens returns the set of distinct tokens in text.
func UniqueTokens(text string) map[string]struct{} {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// RebuildAbstract reconstructs abstract text from an inverted index mapping
// each word to the list of positions where it occurs. Words are placed into
// a slot array sized to the maximum position, unfilled slots are skipped,
// and spaces before `,.;:!?` are collapsed. A nil, empty, or position-free
// index yields the empty string.
func RebuildAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}

	maxPos := -1
	total := 0
	for _, positions := range index {
		total += len(positions)
		for _, pos := range positions {
			if pos > maxPos {
				maxPos = pos
			}
		}
	}
	if maxPos < 0 || total > maxAbstractWords || maxPos >= maxAbstractWords {
		return ""
	}

	slots := make([]string, maxPos+1)
	for word, positions := range index {
		for _, pos := range positions {
			if pos >= 0 {
				slots[pos] = word
			}
		}
	}

	parts := make([]string, 0, len(slots))
	for _, word := range slots {
		if word != "" {
			parts = append(parts, word)
		}
	}

	return spaceBeforePunct.ReplaceAllString(strings.Join(parts, " "), "$1")
}

// RelevanceScore computes the lexical relevance of a title/abstract pair
// against a keyword query. The score is
//
//	min(1, 0.55*bodyCoverage + 0.25*titleCoverage + phraseBoost + abstractBoost)
//
// where coverage is the fraction of distinct query tokens found in the
// title (titleCoverage) or title+abstract (bodyCoverage), phraseBoost is
// 0.15 when the query appears as a whole-token phrase in the title, and
// abstractBoost is 0.05 when the abstract is non-empty. The returned
// reasons explain each contribution; an empty query token set scores 0
// with the single reason "empty query tokens".
func RelevanceScore(query, title, abstract string) (float64, []string) {
	queryTokens := Tokenize(query)
	querySet := UniqueTokens(query)
	if len(querySet) == 0 {
		return 0, []string{"empty query tokens"}
	}

	titleSet := UniqueTokens(title)
	bodySet := UniqueTokens(title + " " + abstract)

	titleHits, bodyHits := 0, 0
	for tok := range querySet {
		if _, ok := titleSet[tok]; ok {
			titleHits++
		}
		if _, ok := bodySet[tok]; ok {
			bodyHits++
		}
	}

	titleCoverage := float64(titleHits) / float64(len(querySet))
	bodyCoverage := float64(bodyHits) / float64(len(querySet))

	score := bodyCoverageWeight*bodyCoverage + titleCoverageWeight*titleCoverage
	reasons := []string{
		fmt.Sprintf("title coverage %.2f", titleCoverage),
		fmt.Sprintf("body coverage %.2f", bodyCoverage),
	}

	if containsPhrase(Tokenize(title), queryTokens) {
		score += phraseBoost
		reasons = append(reasons, "exact phrase in title")
	}
	if strings.TrimSpace(abstract) != "" {
		score += abstractBoost
		reasons = append(reasons, "abstract available")
	}

	if score > 1 {
		score = 1
	}
	return score, reasons
}

// containsPhrase reports whether phrase occurs as a consecutive run of
// whole tokens within tokens. Matching on token boundaries keeps partial
// words (e.g. "network" against "networks") from claiming the boost.
func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j := range phrase {
			if tokens[i+j] != phrase[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// SanitizeFilename converts an arbitrary title into a safe ASCII filename:
// Unicode is decomposed (NFKD) and non-ASCII stripped, characters outside
// [A-Za-z0-9._ -] become underscores, whitespace runs collapse to a single
// space, the result is trimmed and truncated to maxLen, and remaining
// spaces become underscores. An empty result yields "paper".
func SanitizeFilename(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxFilenameLen
	}

	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.Is(filenameSafeRunes, r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	s := whitespaceRun.ReplaceAllString(b.String(), " ")
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = strings.TrimSpace(s[:maxLen])
	}
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "paper"
	}
	return s
}

// TruncateText returns text unchanged when it fits within maxLen runes,
// otherwise the first maxLen-3 runes followed by "...".
func TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
