package registry

import (
	"strings"
	"time"
)

// Status represents the pipeline lifecycle of a conversation.
type Status string

const (
	StatusNew          Status = "NEW"
	StatusIngested     Status = "INGESTED"
	StatusEnriched     Status = "ENRICHED"
	StatusCoached      Status = "COACHED"
	StatusFailedIngest Status = "FAILED_INGEST"
	StatusFailedEnrich Status = "FAILED_ENRICH"
	StatusFailedCoach  Status = "FAILED_COACH"
)

var allStatuses = []Status{
	StatusNew,
	StatusIngested,
	StatusEnriched,
	StatusCoached,
	StatusFailedIngest,
	StatusFailedEnrich,
	StatusFailedCoach,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// stageRank orders statuses by the last stage a conversation completed.
// Failure statuses share the rank of the stage they fell back to.
var stageRank = map[Status]int{
	StatusNew:          0,
	StatusFailedIngest: 0,
	StatusIngested:     1,
	StatusFailedEnrich: 1,
	StatusEnriched:     2,
	StatusFailedCoach:  2,
	StatusCoached:      3,
}

// transitions is the closed set of valid status advances. Same-state writes
// are always permitted (idempotent re-commits); resets from failure statuses
// go backwards and are only reachable through an explicit reset operation.
var transitions = map[Status][]Status{
	StatusNew:          {StatusIngested, StatusFailedIngest},
	StatusIngested:     {StatusEnriched, StatusFailedEnrich},
	StatusEnriched:     {StatusCoached, StatusFailedEnrich, StatusFailedCoach},
	StatusCoached:      {},
	StatusFailedIngest: {StatusNew},
	StatusFailedEnrich: {StatusIngested},
	StatusFailedCoach:  {StatusEnriched},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether moving from one status to another is valid.
// A same-state write is always valid: stage commits are idempotent.
func CanTransition(from, to Status) bool {
	if _, known := statusSet[to]; !known {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AtLeast reports whether a status reflects completion of the stage the
// target status represents. Failure statuses count only the stages completed
// before the failure.
func (s Status) AtLeast(target Status) bool {
	return stageRank[s] >= stageRank[target]
}

// IsFailure reports whether the status is one of the per-stage failure states.
func (s Status) IsFailure() bool {
	switch s {
	case StatusFailedIngest, StatusFailedEnrich, StatusFailedCoach:
		return true
	default:
		return false
	}
}

// ResetTarget returns the status an explicit reset moves a failed
// conversation back to.
func (s Status) ResetTarget() (Status, bool) {
	switch s {
	case StatusFailedIngest:
		return StatusNew, true
	case StatusFailedEnrich:
		return StatusIngested, true
	case StatusFailedCoach:
		return StatusEnriched, true
	default:
		return "", false
	}
}

// ConversationRecord is the registry row for one conversation.
type ConversationRecord struct {
	ConversationID string
	Status         Status
	SourceURI      string
	ErrorDetail    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IngestedAt     *time.Time
	EnrichedAt     *time.Time
	CoachedAt      *time.Time
}

// MarkIngested advances the record to INGESTED and stamps the stage time.
func (r *ConversationRecord) MarkIngested(now time.Time) {
	r.Status = StatusIngested
	r.ErrorDetail = ""
	ts := now.UTC()
	r.IngestedAt = &ts
}

// MarkEnriched advances the record to ENRICHED. Re-runs refresh the stamp so
// it always reflects the latest committed enrichment.
func (r *ConversationRecord) MarkEnriched(now time.Time) {
	r.Status = StatusEnriched
	r.ErrorDetail = ""
	ts := now.UTC()
	r.EnrichedAt = &ts
}

// MarkCoached advances the record to COACHED and stamps the stage time.
func (r *ConversationRecord) MarkCoached(now time.Time) {
	r.Status = StatusCoached
	r.ErrorDetail = ""
	ts := now.UTC()
	r.CoachedAt = &ts
}

// MarkFailed records a stage failure with its detail message.
func (r *ConversationRecord) MarkFailed(status Status, detail string) {
	r.Status = status
	r.ErrorDetail = strings.TrimSpace(detail)
}
