package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"convocoach/internal/services"
)

// ParseTranscript decodes and validates a transcription.json payload.
// An empty turn list is permitted; the pipeline treats it as a conversation
// with nothing to match.
func ParseTranscript(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, services.Wrap(services.ErrValidation, "conversation", "parse transcript", "malformed JSON", err)
	}
	if err := validateTranscript(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseMetadata decodes and validates a metadata.json payload.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, services.Wrap(services.ErrValidation, "conversation", "parse metadata", "malformed JSON", err)
	}
	if strings.TrimSpace(m.ConversationID) == "" {
		return nil, services.Wrap(services.ErrValidation, "conversation", "parse metadata", "conversation_id is required", nil)
	}
	if strings.TrimSpace(m.AgentID) == "" {
		return nil, services.Wrap(services.ErrValidation, "conversation", "parse metadata", "agent_id is required", nil)
	}
	return &m, nil
}

func validateTranscript(t *Transcript) error {
	if strings.TrimSpace(t.ConversationID) == "" {
		return services.Wrap(services.ErrValidation, "conversation", "validate transcript", "conversation_id is required", nil)
	}
	for i, turn := range t.Turns {
		if turn.Index != i {
			return services.Wrap(services.ErrValidation, "conversation", "validate transcript",
				fmt.Sprintf("turn %d has index %d; indexes must be contiguous from zero", i, turn.Index), nil)
		}
		if _, ok := ParseSpeakerRole(string(turn.Speaker)); !ok {
			return services.Wrap(services.ErrValidation, "conversation", "validate transcript",
				fmt.Sprintf("turn %d has unknown speaker %q", i, turn.Speaker), nil)
		}
		if strings.TrimSpace(turn.Text) == "" {
			return services.Wrap(services.ErrValidation, "conversation", "validate transcript",
				fmt.Sprintf("turn %d has empty text", i), nil)
		}
		if turn.StartOffsetSec < 0 {
			return services.Wrap(services.ErrValidation, "conversation", "validate transcript",
				fmt.Sprintf("turn %d has negative offset", i), nil)
		}
	}
	if t.DurationSec == 0 && !t.StartedAt.IsZero() && !t.EndedAt.IsZero() {
		if delta := t.EndedAt.Sub(t.StartedAt); delta > 0 {
			t.DurationSec = int(delta.Seconds())
		}
	}
	return nil
}
