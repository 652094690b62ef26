package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed transcripts or metadata. Not retryable;
	// the conversation lands in FAILED_INGEST until the source data is fixed.
	ErrValidation = errors.New("validation error")
	// ErrProvider marks analysis provider failures (timeouts, HTTP errors).
	// Retryable after the conversation is reset.
	ErrProvider = errors.New("provider error")
	// ErrStorage marks registry or enrichment store failures. Retryable; the
	// caller should repeat the whole stage call.
	ErrStorage = errors.New("storage error")
	// ErrPrecondition marks caller errors such as enriching a conversation
	// that was never ingested. Not retryable.
	ErrPrecondition = errors.New("precondition error")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the classification name for an error, or "transient" when the
// error carries no known marker.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	default:
		return "transient"
	}
}

// IsRetryable reports whether repeating the failed stage call can succeed
// without operator intervention.
func IsRetryable(err error) bool {
	switch Kind(err) {
	case "validation", "precondition":
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
