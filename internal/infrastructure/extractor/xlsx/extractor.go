package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

// Extractor flattens spreadsheet sheets into tab-separated lines, one sheet
// after another, prefixed with the sheet name so chunking keeps sheet context
// together.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	book, err := excelize.OpenReader(reader)
	if err != nil {
		return "", fmt.Errorf("open workbook %s: %w", doc.Filename, err)
	}
	defer book.Close()

	var b strings.Builder
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		wroteHeader := false
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			if !wroteHeader {
				fmt.Fprintf(&b, "Sheet: %s\n", sheet)
				wroteHeader = true
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		if wroteHeader {
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String()), nil
}
