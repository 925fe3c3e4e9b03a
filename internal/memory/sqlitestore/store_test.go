package sqlitestore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/haasonsaas/agentrunner/internal/memory"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

func TestStoreAppendUsesUpsert(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS memory_entries").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := OpenDB(db)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}

	mock.ExpectExec("INSERT INTO memory_entries").
		WithArgs("msg-1", "message", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := memory.Entry{
		Type:      memory.EntryMessage,
		ID:        "msg-1",
		Timestamp: time.Now(),
		Message:   &models.Message{ID: "msg-1", Sender: models.SenderUser, Content: "hello"},
	}
	if err := store.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreAllScansRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS memory_entries").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := OpenDB(db)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "entry_type", "timestamp", "message_json", "execution_json"}).
		AddRow("msg-1", "message", time.Now(), `{"id":"msg-1","content":"hello"}`, nil)
	mock.ExpectQuery("SELECT id, entry_type, timestamp, message_json, execution_json").WillReturnRows(rows)

	entries, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Message == nil || entries[0].Message.Content != "hello" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
