package memory

import (
	"strings"
	"time"

	"github.com/haasonsaas/agentrunner/pkg/models"
)

// EntryType discriminates what an Entry wraps.
type EntryType string

const (
	EntryMessage   EntryType = "message"
	EntryExecution EntryType = "execution"
)

// Entry is the unified unit Memory stores and searches: either a Message
// or an ExecutionRecord, never both.
type Entry struct {
	Type      EntryType
	ID        string
	Timestamp time.Time
	Message   *models.Message
	Execution *models.ExecutionRecord
}

func entryFromMessage(m *models.Message) Entry {
	return Entry{Type: EntryMessage, ID: m.ID, Timestamp: m.Timestamp, Message: m}
}

func entryFromExecution(e *models.ExecutionRecord) Entry {
	return Entry{Type: EntryExecution, ID: e.ID, Timestamp: e.Timestamp, Execution: e}
}

// content returns the entry's searchable text body.
func (e Entry) content() string {
	if e.Message != nil {
		return e.Message.Content
	}
	if e.Execution != nil {
		return e.Execution.Action
	}
	return ""
}

func (e Entry) metadata() map[string]any {
	if e.Message != nil {
		return e.Message.Metadata
	}
	if e.Execution != nil {
		return e.Execution.Metadata
	}
	return nil
}

// Query selects entries by entry_type, sender, status, a content
// substring, and metadata key/value pairs. A zero-value field is
// ignored.
type Query struct {
	EntryType EntryType
	Sender    models.Sender
	Status    models.ExecutionStatus
	Contains  string
	Metadata  map[string]any
}

// Match reports whether entry satisfies every non-zero predicate in q.
func (q Query) Match(e Entry) bool {
	if q.EntryType != "" && e.Type != q.EntryType {
		return false
	}
	if q.Sender != "" {
		if e.Message == nil || e.Message.Sender != q.Sender {
			return false
		}
	}
	if q.Status != "" {
		if e.Execution == nil || e.Execution.Status != q.Status {
			return false
		}
	}
	if q.Contains != "" && !strings.Contains(e.content(), q.Contains) {
		return false
	}
	for k, v := range q.Metadata {
		md := e.metadata()
		if md == nil {
			return false
		}
		mv, ok := md[k]
		if !ok || mv != v {
			return false
		}
	}
	return true
}
