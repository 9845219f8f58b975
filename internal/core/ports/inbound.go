package ports

import (
	"context"
	"io"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

// ChatService is the inbound contract for question answering.
type ChatService interface {
	Ask(ctx context.Context, question string, top int, sessionID string) (*domain.ChatAnswer, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
// UploadBatch isolates per-item failures; it never returns an error itself.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
	UploadBatch(ctx context.Context, files []domain.UploadFile) []domain.UploadItemResult
}

// DriveSyncService drives the external document-library login flow and the
// pull sync into the ingestion pipeline.
type DriveSyncService interface {
	LoginURL() string
	CompleteLogin(ctx context.Context, code string) (accessToken, userName string, err error)
	Sync(ctx context.Context, accessToken string) ([]domain.UploadItemResult, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// SearchService exposes raw search passthrough for the /v1/search endpoint.
type SearchService interface {
	Search(ctx context.Context, query string, top int) ([]domain.SearchHit, error)
}
