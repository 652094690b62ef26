package main

import (
	"strings"
	"time"

	"convocoach/internal/enrichment"
	"convocoach/internal/match"
	"convocoach/internal/registry"
)

type enrichmentJSON struct {
	ConversationID    string                `json:"conversation_id"`
	CatalogVersion    string                `json:"catalog_version"`
	PhraseMatches     []match.MatcherResult `json:"phrase_matches"`
	Flags             []string              `json:"flags"`
	AnnotationSummary string                `json:"annotation_summary,omitempty"`
	TurnCount         int                   `json:"turn_count"`
	ProcessedAt       time.Time             `json:"processed_at"`
}

func enrichmentView(record *enrichment.Record) enrichmentJSON {
	return enrichmentJSON{
		ConversationID:    record.ConversationID,
		CatalogVersion:    record.CatalogVersion,
		PhraseMatches:     record.PhraseMatches,
		Flags:             record.Flags,
		AnnotationSummary: record.AnnotationSummary,
		TurnCount:         record.TurnCount,
		ProcessedAt:       record.ProcessedAt,
	}
}

type conversationJSON struct {
	ConversationID string     `json:"conversation_id"`
	Status         string     `json:"status"`
	SourceURI      string     `json:"source_uri,omitempty"`
	ErrorDetail    string     `json:"error_detail,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	IngestedAt     *time.Time `json:"ingested_at,omitempty"`
	EnrichedAt     *time.Time `json:"enriched_at,omitempty"`
	CoachedAt      *time.Time `json:"coached_at,omitempty"`
}

func conversationView(record *registry.ConversationRecord) conversationJSON {
	return conversationJSON{
		ConversationID: record.ConversationID,
		Status:         string(record.Status),
		SourceURI:      record.SourceURI,
		ErrorDetail:    record.ErrorDetail,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
		IngestedAt:     record.IngestedAt,
		EnrichedAt:     record.EnrichedAt,
		CoachedAt:      record.CoachedAt,
	}
}

func totalMatches(record *enrichment.Record) int {
	total := 0
	for _, result := range record.PhraseMatches {
		total += result.MatchCount
	}
	return total
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func formatTime(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}
