package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"convocoach/internal/match"
)

// FileSink appends entries as JSON lines to a single log file. Appends are
// serialized with a mutex and the file is opened O_APPEND, so concurrent
// writers within one process never interleave lines.
type FileSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewFileSink opens (creating if needed) the audit log at path.
func NewFileSink(path string) (*FileSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("audit log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileSink{path: path, file: file}, nil
}

// Append writes one entry as a JSON line. Missing entry ids and timestamps
// are filled in; existing entries in the file are never touched.
func (s *FileSink) Append(entry *Entry) error {
	if entry == nil {
		return errors.New("entry is required")
	}
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	if entry.Matches == nil {
		entry.Matches = []match.Record{}
	}
	if entry.Flags == nil {
		entry.Flags = []string{}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("audit sink is closed")
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Path returns the audit log location.
func (s *FileSink) Path() string {
	return s.path
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// ReadAll decodes every entry currently in the log file. It is intended for
// inspection commands and tests, not the hot path.
func ReadAll(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
