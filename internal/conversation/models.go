// Package conversation defines the transcript and metadata models ingested by
// the pipeline, along with JSON parsing and structural validation.
//
// Transcripts are immutable once ingested: parsing returns fresh values and
// nothing downstream mutates them. Validation is structural only (identifiers,
// turn ordering, speaker roles); semantic interpretation belongs to the match
// engine and the analysis provider.
package conversation

import (
	"strings"
	"time"
)

// SpeakerRole identifies who spoke a turn.
type SpeakerRole string

const (
	SpeakerAgent    SpeakerRole = "AGENT"
	SpeakerCustomer SpeakerRole = "CUSTOMER"
	SpeakerUnknown  SpeakerRole = "UNKNOWN"
)

// ParseSpeakerRole converts a string into a known SpeakerRole.
func ParseSpeakerRole(value string) (SpeakerRole, bool) {
	switch SpeakerRole(strings.ToUpper(strings.TrimSpace(value))) {
	case SpeakerAgent:
		return SpeakerAgent, true
	case SpeakerCustomer:
		return SpeakerCustomer, true
	case SpeakerUnknown:
		return SpeakerUnknown, true
	default:
		return "", false
	}
}

// Turn is one utterance by one speaker, with a stable zero-based index.
type Turn struct {
	Index          int         `json:"turn_index"`
	Speaker        SpeakerRole `json:"speaker"`
	Text           string      `json:"text"`
	StartOffsetSec float64     `json:"ts_offset_sec"`
}

// Transcript is the ordered sequence of turns for one conversation.
type Transcript struct {
	ConversationID string    `json:"conversation_id"`
	Channel        string    `json:"channel"`
	Language       string    `json:"language"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	DurationSec    int       `json:"duration_sec"`
	Turns          []Turn    `json:"turns"`
}

// Metadata carries the operational attributes recorded alongside a transcript.
// Beyond the conversation id cross-check, these fields pass through the
// pipeline untouched.
type Metadata struct {
	ConversationID string            `json:"conversation_id"`
	Direction      string            `json:"direction"`
	BusinessLine   string            `json:"business_line"`
	Queue          string            `json:"queue"`
	AgentID        string            `json:"agent_id"`
	AgentName      string            `json:"agent_name,omitempty"`
	Team           string            `json:"team,omitempty"`
	Site           string            `json:"site,omitempty"`
	CallOutcome    string            `json:"call_outcome,omitempty"`
	Labels         map[string]string `json:"labels,omitempty"`
}
