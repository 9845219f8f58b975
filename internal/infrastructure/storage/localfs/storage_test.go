package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if err := store.Save(ctx, "d1_handbook.pdf", strings.NewReader("pdf bytes")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	body, err := store.Open(ctx, "d1_handbook.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(raw) != "pdf bytes" {
		t.Fatalf("body = %q", raw)
	}
}

func TestSaveRejectsPathTraversalKeys(t *testing.T) {
	base := t.TempDir()
	store, err := New(base)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	for _, key := range []string{"../escape.txt", "nested/escape.txt", "..", ""} {
		err := store.Save(ctx, key, strings.NewReader("x"))
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("Save(%q) = %v, want invalid input error", key, err)
		}
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(base), "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("traversal key must not create a file outside the base dir")
	}
}

func TestOpenMissingKeyFails(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := store.Open(context.Background(), "absent.txt"); err == nil {
		t.Fatalf("expected error for missing object")
	}
}
