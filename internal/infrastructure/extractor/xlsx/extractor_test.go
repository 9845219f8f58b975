package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

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

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()

	_ = book.SetCellValue("Sheet1", "A1", "Application")
	_ = book.SetCellValue("Sheet1", "B1", "URL")
	_ = book.SetCellValue("Sheet1", "A2", "Payroll Portal")
	_ = book.SetCellValue("Sheet1", "B2", "https://payroll.internal.example")

	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestExtractFlattensSheetRows(t *testing.T) {
	storage := &memoryStorage{files: map[string][]byte{"d1_apps.xlsx": buildWorkbook(t)}}
	ex := NewExtractor(storage)

	got, err := ex.Extract(context.Background(), &domain.Document{StoragePath: "d1_apps.xlsx", Filename: "apps.xlsx"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !strings.Contains(got, "Sheet: Sheet1") {
		t.Fatalf("missing sheet header: %q", got)
	}
	if !strings.Contains(got, "Application\tURL") {
		t.Fatalf("missing header row: %q", got)
	}
	if !strings.Contains(got, "Payroll Portal\thttps://payroll.internal.example") {
		t.Fatalf("missing data row: %q", got)
	}
}

func TestExtractRejectsNonWorkbookInput(t *testing.T) {
	storage := &memoryStorage{files: map[string][]byte{"k": []byte("not a workbook")}}
	ex := NewExtractor(storage)

	if _, err := ex.Extract(context.Background(), &domain.Document{StoragePath: "k", Filename: "a.xlsx"}); err == nil {
		t.Fatalf("expected error for invalid workbook")
	}
}
