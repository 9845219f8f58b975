package domain

import (
	"io"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the ingestion-side metadata record for one uploaded file.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	FileType    string         `json:"file_type,omitempty"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// UploadFile is one file within a multi-file upload request.
type UploadFile struct {
	Filename string
	MimeType string
	Body     io.Reader
}

// RemoteFile is a document listed in an external drive library.
type RemoteFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// UploadItemResult reports the outcome of one file within a multi-file upload.
// Item failures are isolated: the batch succeeds if at least one item did.
type UploadItemResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}
