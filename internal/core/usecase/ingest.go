package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

var allowedUploadTypes = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".xlsx": {},
	".txt":  {},
	".md":   {},
}

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedUploadTypes[ext]; !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("unsupported file type %q", ext))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		FileType:    strings.TrimPrefix(ext, "."),
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

// UploadBatch processes multiple files with per-item isolation: one file's
// parse or storage failure never aborts the rest.
func (uc *IngestDocumentUseCase) UploadBatch(
	ctx context.Context,
	files []domain.UploadFile,
) []domain.UploadItemResult {
	results := make([]domain.UploadItemResult, 0, len(files))
	for _, f := range files {
		doc, err := uc.Upload(ctx, f.Filename, f.MimeType, f.Body)
		if err != nil {
			results = append(results, domain.UploadItemResult{
				Filename: f.Filename,
				Error:    err.Error(),
			})
			continue
		}
		results = append(results, domain.UploadItemResult{
			Filename:   f.Filename,
			DocumentID: doc.ID,
			Success:    true,
		})
	}
	return results
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}

var errEmptyExtraction = errors.New("empty extracted text")
