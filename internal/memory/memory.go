// Package memory implements short-term and long-term conversation memory
// for the agent runner: a capped ring buffer of recent Messages and
// ExecutionRecords, plus an optional durable append-only store.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentrunner/pkg/models"
)

// Memory is single-writer, multi-reader: writers
// serialize via mu, readers obtain a snapshot copy of the short-term ring.
type Memory struct {
	mu       sync.Mutex
	ring     *shortTermRing
	longTerm LongTermStore
}

// New constructs a Memory with the given short-term capacity (0 uses
// DefaultShortTermCapacity) and an optional long-term store (nil disables
// durable persistence).
func New(shortTermCapacity int, longTerm LongTermStore) *Memory {
	return &Memory{
		ring:     newShortTermRing(shortTermCapacity),
		longTerm: longTerm,
	}
}

// AddMessage appends a Message to short-term memory (evicting the oldest
// entry on overflow) and, if configured, to the long-term store. A blank
// ID is assigned a fresh UUID.
func (m *Memory) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return fmt.Errorf("memory: message is required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	entry := entryFromMessage(msg)

	m.mu.Lock()
	m.ring.push(entry)
	m.mu.Unlock()

	if m.longTerm != nil {
		return m.longTerm.Append(ctx, entry)
	}
	return nil
}

// AddExecution appends an ExecutionRecord the same way AddMessage does.
func (m *Memory) AddExecution(ctx context.Context, rec *models.ExecutionRecord) error {
	if rec == nil {
		return fmt.Errorf("memory: execution record is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	entry := entryFromExecution(rec)

	m.mu.Lock()
	m.ring.push(entry)
	m.mu.Unlock()

	if m.longTerm != nil {
		return m.longTerm.Append(ctx, entry)
	}
	return nil
}

// GetConversationHistory returns the short-term ring's Message entries,
// oldest first, either as a slice or flattened to "sender: content" lines
// when asText is true.
func (m *Memory) GetConversationHistory(asText bool) ([]*models.Message, string) {
	m.mu.Lock()
	snapshot := m.ring.snapshot()
	m.mu.Unlock()

	var messages []*models.Message
	for _, e := range snapshot {
		if e.Message != nil {
			messages = append(messages, e.Message)
		}
	}
	if !asText {
		return messages, ""
	}

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", msg.Sender, msg.Content)
	}
	return messages, b.String()
}

// Search returns short-term entries matching q, oldest first. Search
// operates over short-term memory only; long-term history is for
// durability, not query.
func (m *Memory) Search(q Query) []Entry {
	m.mu.Lock()
	snapshot := m.ring.snapshot()
	m.mu.Unlock()

	var out []Entry
	for _, e := range snapshot {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Close releases the long-term store, if configured.
func (m *Memory) Close() error {
	if m.longTerm != nil {
		return m.longTerm.Close()
	}
	return nil
}
