package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"convocoach/internal/conversation"
	"convocoach/internal/services"
)

const (
	transcriptFileName = "transcription.json"
	metadataFileName   = "metadata.json"
)

// Local reads conversation artifacts from a directory tree. Source URIs are
// relative paths under the root; each one names a directory holding
// transcription.json and metadata.json.
type Local struct {
	root string
}

// NewLocal creates a reader rooted at the given directory.
func NewLocal(root string) (*Local, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("artifact root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact root: %w", err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute artifact root directory.
func (l *Local) Root() string {
	return l.root
}

// ReadConversationArtifacts loads and parses the transcript and metadata for
// one source URI, cross-checking that both name the same conversation.
func (l *Local) ReadConversationArtifacts(ctx context.Context, sourceURI string) (*conversation.Transcript, *conversation.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	dir, err := l.resolve(sourceURI)
	if err != nil {
		return nil, nil, err
	}

	transcriptData, err := readArtifact(filepath.Join(dir, transcriptFileName))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "ingest", "read-transcript", sourceURI, err)
	}
	metadataData, err := readArtifact(filepath.Join(dir, metadataFileName))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "ingest", "read-metadata", sourceURI, err)
	}

	transcript, err := conversation.ParseTranscript(transcriptData)
	if err != nil {
		return nil, nil, err
	}
	metadata, err := conversation.ParseMetadata(metadataData)
	if err != nil {
		return nil, nil, err
	}

	if transcript.ConversationID != metadata.ConversationID {
		return nil, nil, services.Wrap(services.ErrValidation, "ingest", "cross-check",
			fmt.Sprintf("transcript names conversation %q but metadata names %q",
				transcript.ConversationID, metadata.ConversationID), nil)
	}

	return transcript, metadata, nil
}

func (l *Local) resolve(sourceURI string) (string, error) {
	trimmed := strings.TrimSpace(sourceURI)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, "ingest", "resolve", "source uri is required", nil)
	}
	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrValidation, "ingest", "resolve",
			fmt.Sprintf("source uri %q escapes the artifact root", sourceURI), nil)
	}
	return filepath.Join(l.root, cleaned), nil
}

func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("artifact %s not found", filepath.Base(path))
		}
		return nil, err
	}
	return data, nil
}
