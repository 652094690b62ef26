package enrichment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"convocoach/internal/config"
	"convocoach/internal/match"
)

// Store manages enrichment persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the enrichment database under the data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "enrichment.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert writes the enrichment record, replacing any previous row for the
// conversation in full.
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	ctx = ensureContext(ctx)
	if record == nil {
		return errors.New("record is required")
	}
	if strings.TrimSpace(record.ConversationID) == "" {
		return errors.New("conversation id is required")
	}

	matchesJSON, err := json.Marshal(record.PhraseMatches)
	if err != nil {
		return fmt.Errorf("marshal phrase matches: %w", err)
	}
	flags := record.Flags
	if flags == nil {
		flags = []string{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	return retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO enrichments (conversation_id, catalog_version, phrase_matches, flags,
				annotation_summary, turn_count, processed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(conversation_id) DO UPDATE SET
				catalog_version = excluded.catalog_version,
				phrase_matches = excluded.phrase_matches,
				flags = excluded.flags,
				annotation_summary = excluded.annotation_summary,
				turn_count = excluded.turn_count,
				processed_at = excluded.processed_at`,
			record.ConversationID,
			record.CatalogVersion,
			string(matchesJSON),
			string(flagsJSON),
			nullableString(record.AnnotationSummary),
			record.TurnCount,
			record.ProcessedAt.UTC().Format(time.RFC3339Nano),
		)
		if execErr != nil {
			return fmt.Errorf("upsert enrichment %s: %w", record.ConversationID, execErr)
		}
		return nil
	})
}

// Get retrieves the stored enrichment for a conversation.
func (s *Store) Get(ctx context.Context, conversationID string) (*Record, bool, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT conversation_id, catalog_version, phrase_matches, flags,
			annotation_summary, turn_count, processed_at
		FROM enrichments WHERE conversation_id = ?`,
		conversationID,
	)

	var (
		record      Record
		matchesJSON string
		flagsJSON   string
		summary     sql.NullString
		processed   string
	)
	err := row.Scan(
		&record.ConversationID,
		&record.CatalogVersion,
		&matchesJSON,
		&flagsJSON,
		&summary,
		&record.TurnCount,
		&processed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get enrichment: %w", err)
	}

	if err := json.Unmarshal([]byte(matchesJSON), &record.PhraseMatches); err != nil {
		return nil, false, fmt.Errorf("decode phrase matches for %s: %w", conversationID, err)
	}
	if record.PhraseMatches == nil {
		record.PhraseMatches = []match.MatcherResult{}
	}
	if err := json.Unmarshal([]byte(flagsJSON), &record.Flags); err != nil {
		return nil, false, fmt.Errorf("decode flags for %s: %w", conversationID, err)
	}
	record.AnnotationSummary = summary.String
	if ts, err := time.Parse(time.RFC3339Nano, processed); err == nil {
		record.ProcessedAt = ts
	}
	return &record, true, nil
}

// Delete removes the stored enrichment for a conversation. It is a no-op if
// no row exists.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM enrichments WHERE conversation_id = ?", conversationID)
		if err != nil {
			return fmt.Errorf("delete enrichment %s: %w", conversationID, err)
		}
		return nil
	})
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
