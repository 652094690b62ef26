// Package audit records every rule evaluation as an append-only log. Entries
// are never rewritten: re-running enrichment for a conversation appends a new
// entry, so the log preserves the full evaluation history.
package audit

import (
	"time"

	"convocoach/internal/match"
)

// Entry is one rule-evaluation event.
type Entry struct {
	EntryID        string         `json:"entry_id"`
	ConversationID string         `json:"conversation_id"`
	CatalogVersion string         `json:"catalog_version"`
	CorrelationID  string         `json:"correlation_id,omitempty"`
	RecordedAt     time.Time      `json:"recorded_at"`
	MatchCount     int            `json:"match_count"`
	Matches        []match.Record `json:"matches"`
	Flags          []string       `json:"flags"`
}

// Sink receives audit entries.
type Sink interface {
	Append(entry *Entry) error
}
