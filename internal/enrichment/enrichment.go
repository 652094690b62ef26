// Package enrichment persists the derived artifacts of the enrich stage:
// grouped phrase matches, conversation flags, and the optional analysis
// summary. One row per conversation; re-running enrichment replaces the row
// wholesale so stored results always reflect a single coherent run.
package enrichment

import (
	"time"

	"convocoach/internal/match"
)

// Record is the stored enrichment output for one conversation.
type Record struct {
	ConversationID    string
	CatalogVersion    string
	PhraseMatches     []match.MatcherResult
	Flags             []string
	AnnotationSummary string
	TurnCount         int
	ProcessedAt       time.Time
}
