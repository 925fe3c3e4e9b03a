package jsonstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/haasonsaas/agentrunner/internal/memory"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

func TestStoreAppendAndAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	store, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	entry := memory.Entry{
		Type:      memory.EntryMessage,
		ID:        "msg-1",
		Timestamp: time.Now(),
		Message:   &models.Message{ID: "msg-1", Sender: models.SenderUser, Content: "hello"},
	}
	if err := store.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 1 || all[0].Message.Content != "hello" {
		t.Fatalf("unexpected entries: %+v", all)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	store, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	entry := memory.Entry{
		Type:      memory.EntryExecution,
		ID:        "exec-1",
		Timestamp: time.Now(),
		Execution: &models.ExecutionRecord{ID: "exec-1", Action: "adder", Status: models.ExecutionCompleted},
	}
	if err := store.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	all, err := reopened.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 1 || all[0].Execution.Action != "adder" {
		t.Fatalf("expected entry to survive reopen, got %+v", all)
	}
}

func TestStoreAppendReplacesSameID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	store, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	base := memory.Entry{Type: memory.EntryMessage, ID: "msg-1", Message: &models.Message{ID: "msg-1", Content: "v1"}}
	if err := store.Append(context.Background(), base); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	base.Message.Content = "v2"
	if err := store.Append(context.Background(), base); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	all, _ := store.All(context.Background())
	if len(all) != 1 || all[0].Message.Content != "v2" {
		t.Fatalf("expected single updated entry, got %+v", all)
	}
}
