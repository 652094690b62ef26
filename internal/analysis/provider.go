// Package analysis produces the optional coaching annotation for a
// conversation. The HTTP client speaks the OpenRouter chat completion API;
// deployments without an API key get the noop provider and the pipeline
// carries on without annotations.
package analysis

import (
	"context"
	"time"

	"convocoach/internal/conversation"
)

// Summary is the annotation produced for one conversation.
type Summary struct {
	Text        string
	Model       string
	GeneratedAt time.Time
}

// Provider generates a coaching summary for a transcript.
type Provider interface {
	Analyze(ctx context.Context, transcript *conversation.Transcript, metadata *conversation.Metadata) (Summary, error)
}

// Noop is the provider used when analysis is disabled. It returns an empty
// summary and never fails.
type Noop struct{}

// Analyze implements Provider.
func (Noop) Analyze(context.Context, *conversation.Transcript, *conversation.Metadata) (Summary, error) {
	return Summary{}, nil
}
