// Package objectstore abstracts where conversation artifacts live. The
// pipeline reads a transcript and metadata pair addressed by a source URI;
// the local implementation resolves URIs against a directory root.
package objectstore

import (
	"context"

	"convocoach/internal/conversation"
)

// Reader loads the artifact pair for one conversation.
type Reader interface {
	ReadConversationArtifacts(ctx context.Context, sourceURI string) (*conversation.Transcript, *conversation.Metadata, error)
}
