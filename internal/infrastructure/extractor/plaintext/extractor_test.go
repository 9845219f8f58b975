package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

type memoryStorage struct {
	files map[string][]byte
}

func (m *memoryStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[key] = raw
	return nil
}

func (m *memoryStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func TestExtractTrimsText(t *testing.T) {
	storage := &memoryStorage{files: map[string][]byte{"k": []byte("\n  vacation policy text \n")}}
	ex := NewExtractor(storage)

	got, err := ex.Extract(context.Background(), &domain.Document{StoragePath: "k", Filename: "a.txt"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "vacation policy text" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractRejectsBinaryContent(t *testing.T) {
	storage := &memoryStorage{files: map[string][]byte{"k": {0xff, 0xfe, 0x00, 0x80}}}
	ex := NewExtractor(storage)

	if _, err := ex.Extract(context.Background(), &domain.Document{StoragePath: "k", Filename: "a.txt"}); err == nil {
		t.Fatalf("expected error for non-utf8 content")
	}
}
