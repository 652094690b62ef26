package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"convocoach/internal/config"
)

// Store manages conversation registry persistence backed by SQLite.
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

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the registry database under the data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "registry.db")
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

// Path returns the location of the backing database file.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

const conversationColumns = `conversation_id, status, source_uri, error_detail,
	created_at, updated_at, ingested_at, enriched_at, coached_at`

// Register records a conversation in status NEW. Registering an already
// known conversation is a no-op that returns the stored record unchanged.
func (s *Store) Register(ctx context.Context, conversationID, sourceURI string) (*ConversationRecord, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.New("conversation id is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx, `
		INSERT INTO conversations (conversation_id, status, source_uri, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO NOTHING`,
		conversationID,
		string(StatusNew),
		nullableString(sourceURI),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("register conversation: %w", err)
	}

	record, found, err := s.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("register conversation: %w", ErrNotFound)
	}
	return record, nil
}

// Get retrieves a conversation by id.
func (s *Store) Get(ctx context.Context, conversationID string) (*ConversationRecord, bool, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE conversation_id = ?",
		conversationID,
	)
	record, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get conversation: %w", err)
	}
	return record, true, nil
}

// Upsert persists an updated record, enforcing the status transition rules
// against the currently stored status.
func (s *Store) Upsert(ctx context.Context, record *ConversationRecord) error {
	ctx = ensureContext(ctx)
	if record == nil {
		return errors.New("record is required")
	}

	current, found, err := s.Get(ctx, record.ConversationID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("update conversation %s: %w", record.ConversationID, ErrNotFound)
	}
	if !CanTransition(current.Status, record.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, record.Status)
	}

	record.UpdatedAt = time.Now().UTC()
	_, err = s.execWithRetry(ctx, `
		UPDATE conversations SET
			status = ?,
			source_uri = ?,
			error_detail = ?,
			updated_at = ?,
			ingested_at = ?,
			enriched_at = ?,
			coached_at = ?
		WHERE conversation_id = ?`,
		string(record.Status),
		nullableString(record.SourceURI),
		nullableString(record.ErrorDetail),
		record.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(record.IngestedAt),
		nullableTime(record.EnrichedAt),
		nullableTime(record.CoachedAt),
		record.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("update conversation %s: %w", record.ConversationID, err)
	}
	return nil
}

// List returns conversations filtered by the given statuses. With no
// statuses it returns every registered conversation, oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*ConversationRecord, error) {
	ctx = ensureContext(ctx)

	query := "SELECT " + conversationColumns + " FROM conversations"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY created_at ASC, conversation_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*ConversationRecord
	for rows.Next() {
		record, scanErr := scanConversation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan conversation: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return records, nil
}

// Stats returns the number of conversations per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(1) FROM conversations GROUP BY status",
	)
	if err != nil {
		return nil, fmt.Errorf("registry stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(statusStr)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(scanner rowScanner) (*ConversationRecord, error) {
	var (
		conversationID string
		statusStr      string
		sourceURI      sql.NullString
		errorDetail    sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
		ingestedRaw    sql.NullString
		enrichedRaw    sql.NullString
		coachedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&conversationID,
		&statusStr,
		&sourceURI,
		&errorDetail,
		&createdRaw,
		&updatedRaw,
		&ingestedRaw,
		&enrichedRaw,
		&coachedRaw,
	); err != nil {
		return nil, err
	}

	record := &ConversationRecord{
		ConversationID: conversationID,
		Status:         Status(statusStr),
		SourceURI:      sourceURI.String,
		ErrorDetail:    errorDetail.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	record.IngestedAt = parseOptionalTime(ingestedRaw)
	record.EnrichedAt = parseOptionalTime(enrichedRaw)
	record.CoachedAt = parseOptionalTime(coachedRaw)
	return record, nil
}

func parseOptionalTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
