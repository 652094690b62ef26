package testsupport

import (
	"context"
	"testing"

	"convocoach/internal/config"
	"convocoach/internal/enrichment"
	"convocoach/internal/registry"
)

// MustOpenRegistry opens a registry.Store for tests and registers cleanup.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenEnrichment opens an enrichment.Store for tests and registers cleanup.
func MustOpenEnrichment(t testing.TB, cfg *config.Config) *enrichment.Store {
	t.Helper()

	store, err := enrichment.Open(cfg)
	if err != nil {
		t.Fatalf("enrichment.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// RegisterConversation registers a conversation for tests using the provided store.
func RegisterConversation(t testing.TB, store *registry.Store, conversationID, sourceURI string) *registry.ConversationRecord {
	t.Helper()

	record, err := store.Register(context.Background(), conversationID, sourceURI)
	if err != nil {
		t.Fatalf("store.Register: %v", err)
	}
	return record
}
