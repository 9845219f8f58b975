package ports

import (
	"context"
	"io"
	"time"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, chunks int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Embedder builds vectors for chunks and query text. Batches internally.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// SearchIndex is the external full-text/vector search engine. Searches return
// possibly-empty lists; an error always means transport or config failure,
// never "no results".
type SearchIndex interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
	HybridSearch(ctx context.Context, query string, vector []float32, limit int) ([]domain.SearchHit, error)
	TextSearch(ctx context.Context, query string, limit int) ([]domain.SearchHit, error)
}

// ChatModel is the language-model collaborator.
type ChatModel interface {
	CompleteChat(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64, timeout time.Duration) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RemoteDrive lists and serves files from an external document library on
// behalf of an authenticated user.
type RemoteDrive interface {
	LoginURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	UserDisplayName(ctx context.Context, accessToken string) (string, error)
	ListFiles(ctx context.Context, accessToken string) ([]domain.RemoteFile, error)
	OpenFile(ctx context.Context, accessToken, fileID string) (io.ReadCloser, error)
}

// ConversationStore is the session-keyed rolling history. Implementations keep
// at most the configured number of turns per session, evicting FIFO.
type ConversationStore interface {
	History(sessionID string) []domain.ConversationTurn
	Append(sessionID string, turns ...domain.ConversationTurn)
}
