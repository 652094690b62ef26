package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"convocoach/internal/conversation"
)

// SampleTranscript builds a short two-speaker transcript for tests.
func SampleTranscript(conversationID string, turns ...conversation.Turn) *conversation.Transcript {
	started := time.Date(2026, time.March, 14, 15, 4, 0, 0, time.UTC)
	if len(turns) == 0 {
		turns = []conversation.Turn{
			{Index: 0, Speaker: conversation.SpeakerAgent, Text: "Thank you for calling, how can I help?", StartOffsetSec: 0},
			{Index: 1, Speaker: conversation.SpeakerCustomer, Text: "I have a question about my bill.", StartOffsetSec: 4.5},
		}
	}
	return &conversation.Transcript{
		ConversationID: conversationID,
		Channel:        "voice",
		Language:       "en-US",
		StartedAt:      started,
		EndedAt:        started.Add(3 * time.Minute),
		DurationSec:    180,
		Turns:          turns,
	}
}

// SampleMetadata builds minimal valid metadata for tests.
func SampleMetadata(conversationID string) *conversation.Metadata {
	return &conversation.Metadata{
		ConversationID: conversationID,
		Direction:      "inbound",
		BusinessLine:   "collections",
		Queue:          "tier1",
		AgentID:        "agent-007",
		AgentName:      "Sam Doe",
	}
}

// WriteArtifacts serializes a transcript and metadata pair into the layout the
// local object store reads: <root>/<dir>/transcription.json plus metadata.json.
// It returns the artifact directory name, usable as a source URI.
func WriteArtifacts(t testing.TB, root, dir string, transcript *conversation.Transcript, metadata *conversation.Metadata) string {
	t.Helper()

	target := filepath.Join(root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", target, err)
	}
	WriteJSON(t, filepath.Join(target, "transcription.json"), transcript)
	WriteJSON(t, filepath.Join(target, "metadata.json"), metadata)
	return dir
}

// WriteJSON marshals value and writes it to path.
func WriteJSON(t testing.TB, path string, value any) {
	t.Helper()

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
