// Package jsonstore implements a memory.LongTermStore backed by a single
// JSON snapshot file. Every Append rewrites the whole file (an entry whose
// id is already stored replaces it), written atomically via a temp-file
// rename.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/haasonsaas/agentrunner/internal/memory"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

// record is the on-disk shape of one memory.Entry: exactly one of Message
// or Execution is set.
type record struct {
	Type      memory.EntryType        `json:"type"`
	ID        string                  `json:"id"`
	Timestamp time.Time               `json:"timestamp"`
	Message   *models.Message         `json:"message,omitempty"`
	Execution *models.ExecutionRecord `json:"execution,omitempty"`
}

type snapshot struct {
	Version int      `json:"version"`
	Entries []record `json:"entries"`
}

// Store persists Entries to path as a single JSON document. Safe for
// concurrent use.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]record
	order   []string
}

// New opens or creates the snapshot file at path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonstore: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jsonstore: create directory: %w", err)
		}
	}
	s := &Store{path: path, entries: make(map[string]record)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("jsonstore: read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("jsonstore: parse snapshot: %w", err)
	}
	for _, r := range snap.Entries {
		if _, exists := s.entries[r.ID]; !exists {
			s.order = append(s.order, r.ID)
		}
		s.entries[r.ID] = r
	}
	return nil
}

// Append records e, replacing any prior entry with the same id.
func (s *Store) Append(_ context.Context, e memory.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := record{Type: e.Type, ID: e.ID, Timestamp: e.Timestamp, Message: e.Message, Execution: e.Execution}
	if _, exists := s.entries[e.ID]; !exists {
		s.order = append(s.order, e.ID)
	}
	s.entries[e.ID] = r
	return s.persistLocked()
}

// All returns every stored entry, oldest-appended first.
func (s *Store) All(_ context.Context) ([]memory.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]memory.Entry, 0, len(s.order))
	for _, id := range s.order {
		r := s.entries[id]
		out = append(out, memory.Entry{Type: r.Type, ID: r.ID, Timestamp: r.Timestamp, Message: r.Message, Execution: r.Execution})
	}
	return out, nil
}

// Close is a no-op; the store has no open handles between writes.
func (s *Store) Close() error { return nil }

func (s *Store) persistLocked() error {
	snap := snapshot{Version: 1, Entries: make([]record, 0, len(s.order))}
	for _, id := range s.order {
		snap.Entries = append(snap.Entries, s.entries[id])
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonstore: marshal snapshot: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("jsonstore: write temp snapshot: %w", err)
	}
	return os.Rename(tmpPath, s.path)
}
