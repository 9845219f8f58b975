package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

type chatFake struct {
	answer *domain.ChatAnswer
	err    error

	lastQuestion  string
	lastTop       int
	lastSessionID string
	calls         int
}

func (f *chatFake) Ask(_ context.Context, question string, top int, sessionID string) (*domain.ChatAnswer, error) {
	f.calls++
	f.lastQuestion = question
	f.lastTop = top
	f.lastSessionID = sessionID
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type ingestFake struct {
	err        error
	calls      int
	batchCalls int
}

func (f *ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	return &domain.Document{
		ID:       "doc-" + filename,
		Filename: filename,
		MimeType: mimeType,
		Status:   domain.StatusUploaded,
	}, nil
}

func (f *ingestFake) UploadBatch(ctx context.Context, files []domain.UploadFile) []domain.UploadItemResult {
	f.batchCalls++
	results := make([]domain.UploadItemResult, 0, len(files))
	for _, file := range files {
		doc, err := f.Upload(ctx, file.Filename, file.MimeType, file.Body)
		if err != nil {
			results = append(results, domain.UploadItemResult{Filename: file.Filename, Error: err.Error()})
			continue
		}
		results = append(results, domain.UploadItemResult{Filename: file.Filename, DocumentID: doc.ID, Success: true})
	}
	return results
}

type searchFake struct {
	hits []domain.SearchHit
	err  error

	lastQuery string
	lastTop   int
}

func (f *searchFake) Search(_ context.Context, query string, top int) ([]domain.SearchHit, error) {
	f.lastQuery = query
	f.lastTop = top
	return f.hits, f.err
}

type docsFake struct {
	doc *domain.Document
	err error
}

func (f *docsFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func newTestRouter(chat *chatFake, ingest *ingestFake, search *searchFake, docs *docsFake) http.Handler {
	if chat == nil {
		chat = &chatFake{}
	}
	if ingest == nil {
		ingest = &ingestFake{}
	}
	if search == nil {
		search = &searchFake{}
	}
	if docs == nil {
		docs = &docsFake{}
	}
	return NewRouter(chat, ingest, search, docs, nil, nil).Handler()
}

func groundedAnswer() *domain.ChatAnswer {
	return &domain.ChatAnswer{
		Question:  "How many vacation days do I get?",
		Response:  "You are entitled to 25 vacation days [1].",
		SessionID: "default",
		Sources: []domain.Source{
			{ID: 1, Filename: "policy.pdf", Page: 3, Section: "Leave", Preview: "Employees are entitled to 25 days."},
		},
		SearchResults: 7,
		Intent:        domain.IntentDocumentQuestion,
	}
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestAskPostReturnsAnswerEnvelope(t *testing.T) {
	chat := &chatFake{answer: groundedAnswer()}
	handler := newTestRouter(chat, nil, nil, nil)

	payload, _ := json.Marshal(map[string]any{
		"question":  "How many vacation days do I get?",
		"top":       3,
		"sessionId": "alice",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if chat.lastTop != 3 || chat.lastSessionID != "alice" {
		t.Fatalf("unexpected Ask args: top=%d session=%q", chat.lastTop, chat.lastSessionID)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["success"] != true {
		t.Fatalf("expected success=true, got %+v", body)
	}
	if body["searchResults"] != float64(7) {
		t.Fatalf("unexpected searchResults: %+v", body["searchResults"])
	}
	sources, ok := body["sources"].([]any)
	if !ok || len(sources) != 1 {
		t.Fatalf("expected one source, got %+v", body["sources"])
	}
	first := sources[0].(map[string]any)
	if first["filename"] != "policy.pdf" || first["id"] != float64(1) {
		t.Fatalf("unexpected source: %+v", first)
	}
}

func TestAskGetReadsQueryParameters(t *testing.T) {
	chat := &chatFake{answer: groundedAnswer()}
	handler := newTestRouter(chat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ask?question=vpn+access&top=2&sessionId=bob", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if chat.lastQuestion != "vpn access" || chat.lastTop != 2 || chat.lastSessionID != "bob" {
		t.Fatalf("unexpected Ask args: %q top=%d session=%q", chat.lastQuestion, chat.lastTop, chat.lastSessionID)
	}
}

func TestAskMissingQuestionRejectedBeforePipeline(t *testing.T) {
	chat := &chatFake{answer: groundedAnswer()}
	handler := newTestRouter(chat, nil, nil, nil)

	payload, _ := json.Marshal(map[string]any{"sessionId": "alice"})
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if chat.calls != 0 {
		t.Fatalf("chat service should not be called, got %d calls", chat.calls)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["success"] != false {
		t.Fatalf("expected success=false, got %+v", body)
	}
}

func TestAskDefaultsSessionID(t *testing.T) {
	chat := &chatFake{answer: groundedAnswer()}
	handler := newTestRouter(chat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ask?question=hello", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if chat.lastSessionID != "default" {
		t.Fatalf("expected default session, got %q", chat.lastSessionID)
	}
}

func TestAskEchoesRequestIDHeader(t *testing.T) {
	handler := newTestRouter(&chatFake{answer: groundedAnswer()}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ask?question=hello", nil)
	req.Header.Set("X-Request-Id", "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestSearchEndpointReturnsHits(t *testing.T) {
	search := &searchFake{hits: []domain.SearchHit{
		{Document: domain.SearchDocument{ID: "doc-1-0", Filename: "handbook.pdf", Content: "VPN setup steps"}, Score: 1.4},
	}}
	handler := newTestRouter(nil, nil, search, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=vpn&top=4", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if search.lastQuery != "vpn" || search.lastTop != 4 {
		t.Fatalf("unexpected search args: %q top=%d", search.lastQuery, search.lastTop)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["count"] != float64(1) {
		t.Fatalf("unexpected count: %+v", body["count"])
	}
}
