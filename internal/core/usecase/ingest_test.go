package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.Document
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.err != nil {
		return f.err
	}
	copyDoc := *doc
	f.created = &copyDoc
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	return nil, errors.New("not implemented")
}
func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return errors.New("not implemented")
}
func (f *ingestRepoFake) SetChunkCount(context.Context, string, int) error {
	return errors.New("not implemented")
}

type ingestStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *ingestStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *ingestStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type ingestQueueFake struct {
	published []string
	err       error
}

func (f *ingestQueueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *ingestQueueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestUploadStoresRecordsAndPublishes(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "Annual Report.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if doc.ID == "" || doc.Status != domain.StatusUploaded {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.FileType != "pdf" {
		t.Fatalf("expected file type pdf, got %q", doc.FileType)
	}
	if storage.savedBody != "%PDF-1.7" {
		t.Fatalf("body not saved: %q", storage.savedBody)
	}
	if !strings.HasSuffix(storage.savedKey, "_Annual_Report.pdf") {
		t.Fatalf("unexpected storage key: %q", storage.savedKey)
	}
	if repo.created == nil || repo.created.ID != doc.ID {
		t.Fatalf("metadata not recorded: %+v", repo.created)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("ingestion event not published: %v", queue.published)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	uc := NewIngestDocumentUseCase(&ingestRepoFake{}, &ingestStorageFake{}, &ingestQueueFake{})

	_, err := uc.Upload(context.Background(), "malware.exe", "application/octet-stream", strings.NewReader("MZ"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestUploadPropagatesStorageFailure(t *testing.T) {
	storage := &ingestStorageFake{err: errors.New("disk full")}
	uc := NewIngestDocumentUseCase(&ingestRepoFake{}, storage, &ingestQueueFake{})

	_, err := uc.Upload(context.Background(), "notes.txt", "text/plain", strings.NewReader("hello"))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestUploadBatchIsolatesFailures(t *testing.T) {
	repo := &ingestRepoFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestDocumentUseCase(repo, &ingestStorageFake{}, queue)

	results := uc.UploadBatch(context.Background(), []domain.UploadFile{
		{Filename: "broken.exe", MimeType: "application/octet-stream", Body: strings.NewReader("MZ")},
		{Filename: "notes.txt", MimeType: "text/plain", Body: strings.NewReader("fine")},
	})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Success || !strings.Contains(results[0].Error, "unsupported file type") {
		t.Fatalf("expected first item rejected: %+v", results[0])
	}
	if !results[1].Success || results[1].DocumentID == "" {
		t.Fatalf("expected second item accepted: %+v", results[1])
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected one ingestion event, got %v", queue.published)
	}
}

func TestSanitizeFilenameStripsUnsafeRunes(t *testing.T) {
	got := sanitizeFilename("../étage / report (final).txt")
	if strings.ContainsAny(got, "/() é") {
		t.Fatalf("unsafe runes survived: %q", got)
	}
}
