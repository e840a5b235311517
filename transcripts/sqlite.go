// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transcripts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a SQLite-based implementation of Store.
type SQLiteStore struct {
	sessionID     string
	dbPath        string
	sessionsTable string
	entriesTable  string
	db            *sql.DB
	mu            sync.Mutex
}

type SQLiteStoreParams struct {
	// SessionID is a unique identifier for the conversation.
	SessionID string

	// Optional path or data source name of the SQLite database.
	// Defaults to "file::memory:?cache=shared" (in-memory database).
	DBPath string

	// Optional name of the table to store session metadata.
	// Default: "intake_sessions"
	SessionsTable string

	// Optional name of the table to store transcript entries.
	// Default: "intake_transcripts"
	EntriesTable string
}

// NewSQLiteStore creates a new SQLite transcript store, initializing the
// database schema if needed.
func NewSQLiteStore(params SQLiteStoreParams) (*SQLiteStore, error) {
	dbPath := params.DBPath
	if dbPath == "" {
		dbPath = "file::memory:?cache=shared"
	}

	sessionsTable := params.SessionsTable
	if sessionsTable == "" {
		sessionsTable = "intake_sessions"
	}

	entriesTable := params.EntriesTable
	if entriesTable == "" {
		entriesTable = "intake_transcripts"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{
		sessionID:     params.SessionID,
		dbPath:        dbPath,
		sessionsTable: sessionsTable,
		entriesTable:  entriesTable,
		db:            db,
	}

	if err = s.initDB(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initDB() error {
	_, err := s.db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("failed to set journal mode: %w", err)
	}

	_, err = s.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			session_id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, s.sessionsTable))
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	_, err = s.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			entry_data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES %s (session_id) ON DELETE CASCADE
		)
	`, s.entriesTable, s.sessionsTable))
	if err != nil {
		return fmt.Errorf("failed to create entries table: %w", err)
	}

	_, err = s.db.Exec(fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id, created_at)
	`, s.entriesTable, s.entriesTable))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) SessionID(context.Context) string {
	return s.sessionID
}

// GetEntries retrieves the transcript for this session.
//
// limit is the maximum number of entries to retrieve. If <= 0, retrieves
// all entries. When specified, returns the latest N entries in
// chronological order.
func (s *SQLiteStore) GetEntries(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	var err error

	if limit <= 0 {
		rows, err = s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT entry_data FROM %s
			WHERE session_id = ?
			ORDER BY created_at ASC, id ASC
		`, s.entriesTable), s.sessionID)
	} else {
		rows, err = s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT entry_data FROM %s
			WHERE session_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, s.entriesTable), s.sessionID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var entryData string
		if err = rows.Scan(&entryData); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		entry, err := unmarshalEntryData(entryData)
		if err != nil {
			// Skip entries that cannot be decoded.
			continue
		}
		entries = append(entries, *entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if limit > 0 {
		// The DESC query returned the latest entries newest-first.
		slices.Reverse(entries)
	}

	return entries, nil
}

// AddEntries appends new entries to the transcript.
func (s *SQLiteStore) AddEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR IGNORE INTO %s (session_id) VALUES (?)
	`, s.sessionsTable), s.sessionID)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (session_id, entry_data) VALUES (?, ?)
	`, s.entriesTable))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, entry := range entries {
		entryData, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if _, err = stmt.ExecContext(ctx, s.sessionID, string(entryData)); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET updated_at = CURRENT_TIMESTAMP WHERE session_id = ?
	`, s.sessionsTable), s.sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PopEntry removes and returns the most recent entry.
// It returns nil if the transcript is empty.
func (s *SQLiteStore) PopEntry(ctx context.Context) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entryData string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = (
			SELECT id FROM %s
			WHERE session_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
		RETURNING entry_data
	`, s.entriesTable, s.entriesTable), s.sessionID).Scan(&entryData)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop entry: %w", err)
	}

	entry, err := unmarshalEntryData(entryData)
	if err != nil {
		// The entry was already deleted; report it as unavailable.
		return nil, nil
	}
	return entry, nil
}

// ClearSession deletes all entries for this session.
func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE session_id = ?
	`, s.entriesTable), s.sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE session_id = ?
	`, s.sessionsTable), s.sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func unmarshalEntryData(data string) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
