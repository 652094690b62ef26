package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"convocoach/internal/registry"
	"convocoach/internal/testsupport"
)

func TestRegisterCreatesNewRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	record := testsupport.RegisterConversation(t, store, "conv-100", "calls/conv-100")
	if record.Status != registry.StatusNew {
		t.Fatalf("status = %s, want NEW", record.Status)
	}
	if record.SourceURI != "calls/conv-100" {
		t.Fatalf("source uri = %q", record.SourceURI)
	}
	if record.CreatedAt.IsZero() || record.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %#v", record)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	first := testsupport.RegisterConversation(t, store, "conv-101", "calls/conv-101")
	first.MarkIngested(time.Now())
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	again, err := store.Register(ctx, "conv-101", "calls/other-uri")
	if err != nil {
		t.Fatalf("Register again: %v", err)
	}
	if again.Status != registry.StatusIngested {
		t.Fatalf("re-register clobbered status: %s", again.Status)
	}
	if again.SourceURI != "calls/conv-101" {
		t.Fatalf("re-register clobbered source uri: %q", again.SourceURI)
	}
}

func TestRegisterRequiresConversationID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	if _, err := store.Register(context.Background(), "  ", "calls/x"); err == nil {
		t.Fatal("expected error for blank conversation id")
	}
}

func TestGetMissingConversation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	record, found, err := store.Get(context.Background(), "conv-missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found || record != nil {
		t.Fatalf("expected miss, got %#v", record)
	}
}

func TestUpsertEnforcesTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	record := testsupport.RegisterConversation(t, store, "conv-102", "calls/conv-102")

	record.Status = registry.StatusEnriched
	err := store.Upsert(ctx, record)
	if !errors.Is(err, registry.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for NEW -> ENRICHED, got %v", err)
	}

	stored, found, err := store.Get(ctx, "conv-102")
	if err != nil || !found {
		t.Fatalf("Get after rejected upsert: %v found=%v", err, found)
	}
	if stored.Status != registry.StatusNew {
		t.Fatalf("rejected upsert mutated status: %s", stored.Status)
	}
}

func TestUpsertRoundTripsStageTimestamps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	record := testsupport.RegisterConversation(t, store, "conv-103", "calls/conv-103")

	ingestedAt := time.Date(2026, time.May, 2, 9, 30, 0, 0, time.UTC)
	record.MarkIngested(ingestedAt)
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("Upsert ingested: %v", err)
	}

	record.MarkEnriched(ingestedAt.Add(time.Minute))
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("Upsert enriched: %v", err)
	}

	stored, found, err := store.Get(ctx, "conv-103")
	if err != nil || !found {
		t.Fatalf("Get: %v found=%v", err, found)
	}
	if stored.Status != registry.StatusEnriched {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.IngestedAt == nil || !stored.IngestedAt.Equal(ingestedAt) {
		t.Fatalf("ingested_at = %v", stored.IngestedAt)
	}
	if stored.EnrichedAt == nil || !stored.EnrichedAt.Equal(ingestedAt.Add(time.Minute)) {
		t.Fatalf("enriched_at = %v", stored.EnrichedAt)
	}
	if stored.CoachedAt != nil {
		t.Fatalf("coached_at should be nil, got %v", stored.CoachedAt)
	}
}

func TestUpsertRecordsFailureDetail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	record := testsupport.RegisterConversation(t, store, "conv-104", "calls/conv-104")
	record.MarkFailed(registry.StatusFailedIngest, "transcript malformed: turn 3 index gap")
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("Upsert failed status: %v", err)
	}

	stored, _, err := store.Get(ctx, "conv-104")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != registry.StatusFailedIngest {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.ErrorDetail != "transcript malformed: turn 3 index gap" {
		t.Fatalf("error detail = %q", stored.ErrorDetail)
	}
}

func TestUpsertMissingConversation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	err := store.Upsert(context.Background(), &registry.ConversationRecord{
		ConversationID: "conv-ghost",
		Status:         registry.StatusIngested,
	})
	if !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	a := testsupport.RegisterConversation(t, store, "conv-a", "calls/a")
	testsupport.RegisterConversation(t, store, "conv-b", "calls/b")
	c := testsupport.RegisterConversation(t, store, "conv-c", "calls/c")

	a.MarkIngested(time.Now())
	if err := store.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert a: %v", err)
	}
	c.MarkFailed(registry.StatusFailedIngest, "boom")
	if err := store.Upsert(ctx, c); err != nil {
		t.Fatalf("Upsert c: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List all returned %d records", len(all))
	}

	failed, err := store.List(ctx, registry.StatusFailedIngest)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ConversationID != "conv-c" {
		t.Fatalf("unexpected failed list: %#v", failed)
	}

	active, err := store.List(ctx, registry.StatusNew, registry.StatusIngested)
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("List active returned %d records", len(active))
	}
}

func TestStatsCountsPerStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	testsupport.RegisterConversation(t, store, "conv-s1", "calls/s1")
	testsupport.RegisterConversation(t, store, "conv-s2", "calls/s2")
	s3 := testsupport.RegisterConversation(t, store, "conv-s3", "calls/s3")
	s3.MarkIngested(time.Now())
	if err := store.Upsert(ctx, s3); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[registry.StatusNew] != 2 || stats[registry.StatusIngested] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestOpenRejectsFutureSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening the same database must succeed against the recorded version.
	store, err = registry.Open(cfg)
	if err != nil {
		t.Fatalf("registry.Open reopen: %v", err)
	}
	defer store.Close()

	if _, _, err := store.Get(context.Background(), "anything"); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}
