package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

// Dispatcher routes a document to the extractor registered for its file type.
// The type comes from the stored metadata and falls back to the filename
// extension.
type Dispatcher struct {
	byType map[string]ports.TextExtractor
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{byType: make(map[string]ports.TextExtractor)}
}

// Register binds one or more file types (without the leading dot) to an
// extractor.
func (d *Dispatcher) Register(ex ports.TextExtractor, fileTypes ...string) *Dispatcher {
	for _, ft := range fileTypes {
		d.byType[strings.ToLower(ft)] = ex
	}
	return d
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	fileType := strings.ToLower(doc.FileType)
	if fileType == "" {
		fileType = strings.TrimPrefix(strings.ToLower(filepath.Ext(doc.Filename)), ".")
	}

	ex, ok := d.byType[fileType]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract",
			fmt.Errorf("no extractor for file type %q (%s)", fileType, doc.Filename))
	}
	return ex.Extract(ctx, doc)
}
