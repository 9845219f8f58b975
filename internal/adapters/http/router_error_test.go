package httpadapter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

func TestAskMapsConfigurationErrorTo500(t *testing.T) {
	chat := &chatFake{err: domain.WrapError(domain.ErrConfiguration, "ask", errors.New("search api key missing"))}
	handler := newTestRouter(chat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ask?question=vacation+days", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}

func TestAskMapsTemporaryErrorTo503(t *testing.T) {
	chat := &chatFake{err: domain.WrapError(domain.ErrTemporary, "ask", errors.New("circuit open"))}
	handler := newTestRouter(chat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ask?question=vacation+days", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestGetDocumentByIDReturns404ForNotFound(t *testing.T) {
	docs := &docsFake{err: domain.WrapError(domain.ErrDocumentNotFound, "get_document", errors.New("id=missing"))}
	handler := newTestRouter(nil, nil, nil, docs)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestSearchMapsInvalidInputTo400(t *testing.T) {
	search := &searchFake{err: domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required"))}
	handler := newTestRouter(nil, nil, search, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskRejectsUnsupportedMethod(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/ask", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
