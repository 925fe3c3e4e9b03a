package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/haasonsaas/agentrunner/internal/storage"
)

func TestStorePutGetRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	ref, err := s.Put(ctx, "note-1", strings.NewReader("hello blob"), storage.PutOptions{MimeType: "text/plain"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !strings.HasPrefix(ref, "file://") {
		t.Fatalf("expected a file:// reference, got %q", ref)
	}

	rc, err := s.Get(ctx, "note-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "hello blob" {
		t.Fatalf("unexpected blob contents: %q", data)
	}
}

func TestStoreExistsAndDelete(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if _, err := s.Put(ctx, "gone-soon", strings.NewReader("x"), storage.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ok, err := s.Exists(ctx, "gone-soon"); err != nil || !ok {
		t.Fatalf("Exists() = %v, %v; want true, nil", ok, err)
	}

	if err := s.Delete(ctx, "gone-soon"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "gone-soon"); ok {
		t.Fatalf("expected blob to be gone after Delete")
	}
	if err := s.Delete(ctx, "gone-soon"); err != nil {
		t.Fatalf("Delete() of an absent blob should be a no-op, got %v", err)
	}
}

func TestStoreManifestSurvivesReopen(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	s, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Put(ctx, "keeper", strings.NewReader("durable"), storage.PutOptions{MimeType: "text/plain"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reopened, err := New(root)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	rc, err := reopened.Get(ctx, "keeper")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "durable" {
		t.Fatalf("unexpected contents after reopen: %q", data)
	}
}

func TestSanitizeIDStripsPathCharacters(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "etc-passwd",
		"plain-name":       "plain-name",
		"a b/c":            "a-b-c",
	}
	for in, want := range cases {
		if got := sanitizeID(in); got != want {
			t.Errorf("sanitizeID(%q) = %q, want %q", in, got, want)
		}
	}
}
