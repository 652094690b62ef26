// Package match implements the phrase match engine: a pure, deterministic
// scan of transcript turns against a phrase matcher catalog.
//
// Matching is lexical only. Text is Unicode case-folded and searched for each
// phrase as a substring; there is no stemming and no negation handling, so
// "you are NOT in hardship" still matches "hardship". That tradeoff is
// deliberate: the engine is a cheap first-pass filter, not a semantic
// classifier.
package match

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"convocoach/internal/catalog"
	"convocoach/internal/conversation"
)

// snippetMaxLen bounds the audit snippet captured with each match.
const snippetMaxLen = 200

// Record is one phrase match: a specific phrase from a specific matcher
// firing on a specific turn.
type Record struct {
	MatcherID   string                   `json:"matcher_id"`
	DisplayName string                   `json:"display_name"`
	TurnIndex   int                      `json:"turn_index"`
	Speaker     conversation.SpeakerRole `json:"speaker"`
	Phrase      string                   `json:"phrase"`
	TextSnippet string                   `json:"text_snippet"`
}

// MatcherResult groups the records produced by a single matcher.
type MatcherResult struct {
	MatcherID   string   `json:"matcher_id"`
	DisplayName string   `json:"display_name"`
	MatchCount  int      `json:"match_count"`
	Matches     []Record `json:"matches"`
}

// Match scans every turn against every matcher phrase and returns all matches
// ordered by turn index, then matcher registration order, then phrase
// registration order. It is pure: identical inputs always produce identical
// output, and no match short-circuits another.
func Match(transcript *conversation.Transcript, cat *catalog.Catalog) []Record {
	if transcript == nil || cat == nil || len(transcript.Turns) == 0 {
		return nil
	}

	folder := cases.Fold()
	matchers := cat.Matchers()
	foldedPhrases := make([][]string, len(matchers))
	for i, m := range matchers {
		folded := make([]string, len(m.Phrases))
		for j, p := range m.Phrases {
			folded[j] = folder.String(p)
		}
		foldedPhrases[i] = folded
	}

	var records []Record
	for _, turn := range transcript.Turns {
		foldedText := folder.String(turn.Text)
		for i, m := range matchers {
			for j, phrase := range m.Phrases {
				idx := strings.Index(foldedText, foldedPhrases[i][j])
				if idx < 0 {
					continue
				}
				records = append(records, Record{
					MatcherID:   m.ID,
					DisplayName: m.DisplayName,
					TurnIndex:   turn.Index,
					Speaker:     turn.Speaker,
					Phrase:      phrase,
					TextSnippet: snippet(turn.Text, foldedText, idx, len(foldedPhrases[i][j])),
				})
			}
		}
	}
	return records
}

// GroupByMatcher collapses raw records into per-matcher results, preserving
// the catalog's matcher registration order. Matchers with no matches are
// omitted.
func GroupByMatcher(cat *catalog.Catalog, records []Record) []MatcherResult {
	if cat == nil || len(records) == 0 {
		return nil
	}
	byID := make(map[string][]Record)
	for _, r := range records {
		byID[r.MatcherID] = append(byID[r.MatcherID], r)
	}

	var results []MatcherResult
	for _, m := range cat.Matchers() {
		matches := byID[m.ID]
		if len(matches) == 0 {
			continue
		}
		results = append(results, MatcherResult{
			MatcherID:   m.ID,
			DisplayName: m.DisplayName,
			MatchCount:  len(matches),
			Matches:     matches,
		})
	}
	return results
}

// snippet returns a bounded window of the original turn text containing the
// match. Byte offsets from the folded text are used directly when folding
// preserved the text length (the common case for call transcripts); otherwise
// the snippet falls back to the head of the turn.
func snippet(text, foldedText string, idx, matchLen int) string {
	if len(text) <= snippetMaxLen {
		return text
	}
	if len(foldedText) != len(text) {
		return truncateAtRune(text, snippetMaxLen)
	}

	center := idx + matchLen/2
	start := center - snippetMaxLen/2
	if start < 0 {
		start = 0
	}
	end := start + snippetMaxLen
	if end > len(text) {
		end = len(text)
		start = end - snippetMaxLen
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return text[start:end]
}

func truncateAtRune(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
