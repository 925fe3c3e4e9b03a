// Package sqlitestore implements a memory.LongTermStore over a pure-Go
// SQLite database (modernc.org/sqlite), for deployments that want durable
// memory without cgo.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/haasonsaas/agentrunner/internal/memory"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_entries (
	id TEXT PRIMARY KEY,
	entry_type TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	message_json TEXT,
	execution_json TEXT,
	inserted_at DATETIME NOT NULL
);
`

// Store persists Entries to a SQLite database via db/sql. Safe for
// concurrent use; database/sql pools its own connections.
type Store struct {
	db *sql.DB
}

// Open creates or attaches to a SQLite database at dsn (e.g. "file:agent.db").
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenDB wraps an already-opened *sql.DB, applying the schema migration.
// Used by tests that supply a sqlmock-backed *sql.DB.
func OpenDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Append upserts e by id.
func (s *Store) Append(ctx context.Context, e memory.Entry) error {
	var msgJSON, execJSON sql.NullString
	if e.Message != nil {
		b, err := json.Marshal(e.Message)
		if err != nil {
			return fmt.Errorf("sqlitestore: marshal message: %w", err)
		}
		msgJSON = sql.NullString{String: string(b), Valid: true}
	}
	if e.Execution != nil {
		b, err := json.Marshal(e.Execution)
		if err != nil {
			return fmt.Errorf("sqlitestore: marshal execution: %w", err)
		}
		execJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_entries (id, entry_type, timestamp, message_json, execution_json, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entry_type = excluded.entry_type,
			timestamp = excluded.timestamp,
			message_json = excluded.message_json,
			execution_json = excluded.execution_json
	`, e.ID, string(e.Type), e.Timestamp, msgJSON, execJSON, time.Now())
	if err != nil {
		return fmt.Errorf("sqlitestore: append: %w", err)
	}
	return nil
}

// All returns every stored entry ordered by original insertion.
func (s *Store) All(ctx context.Context) ([]memory.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_type, timestamp, message_json, execution_json
		FROM memory_entries
		ORDER BY inserted_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query: %w", err)
	}
	defer rows.Close()

	var out []memory.Entry
	for rows.Next() {
		var (
			id, entryType     string
			timestamp         time.Time
			msgJSON, execJSON sql.NullString
		)
		if err := rows.Scan(&id, &entryType, &timestamp, &msgJSON, &execJSON); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan: %w", err)
		}
		entry := memory.Entry{Type: memory.EntryType(entryType), ID: id, Timestamp: timestamp}
		if msgJSON.Valid {
			var m models.Message
			if err := json.Unmarshal([]byte(msgJSON.String), &m); err != nil {
				return nil, fmt.Errorf("sqlitestore: unmarshal message: %w", err)
			}
			entry.Message = &m
		}
		if execJSON.Valid {
			var e models.ExecutionRecord
			if err := json.Unmarshal([]byte(execJSON.String), &e); err != nil {
				return nil, fmt.Errorf("sqlitestore: unmarshal execution: %w", err)
			}
			entry.Execution = &e
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Close releases the underlying *sql.DB.
func (s *Store) Close() error {
	return s.db.Close()
}
