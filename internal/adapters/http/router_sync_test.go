package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

type driveSyncFake struct {
	loginURL string
	token    string
	user     string
	loginErr error
	items    []domain.UploadItemResult
	syncErr  error

	lastCode  string
	lastToken string
}

func (f *driveSyncFake) LoginURL() string { return f.loginURL }

func (f *driveSyncFake) CompleteLogin(_ context.Context, code string) (string, string, error) {
	f.lastCode = code
	if f.loginErr != nil {
		return "", "", f.loginErr
	}
	return f.token, f.user, nil
}

func (f *driveSyncFake) Sync(_ context.Context, accessToken string) ([]domain.UploadItemResult, error) {
	f.lastToken = accessToken
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return f.items, nil
}

func newSyncRouter(sync ports.DriveSyncService) http.Handler {
	return NewRouter(&chatFake{}, &ingestFake{}, &searchFake{}, &docsFake{}, sync, nil).Handler()
}

func TestSharePointSyncReturnsLoginURLWithoutCode(t *testing.T) {
	sync := &driveSyncFake{loginURL: "https://login.test/authorize?client_id=app"}
	handler := newSyncRouter(sync)

	req := httptest.NewRequest(http.MethodGet, "/v1/sharepoint/sync", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp syncLoginResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Action != "login_required" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.LoginURL != sync.loginURL {
		t.Fatalf("loginUrl = %q", resp.LoginURL)
	}
}

func TestSharePointSyncCompletesLoginWithCode(t *testing.T) {
	sync := &driveSyncFake{token: "tok", user: "Dana Reeve"}
	handler := newSyncRouter(sync)

	req := httptest.NewRequest(http.MethodGet, "/v1/sharepoint/sync?code=auth-code", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sync.lastCode != "auth-code" {
		t.Fatalf("code = %q", sync.lastCode)
	}
	var resp syncLoginResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Action != "logged_in" || resp.User != "Dana Reeve" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSharePointSyncPostRunsSync(t *testing.T) {
	sync := &driveSyncFake{items: []domain.UploadItemResult{
		{Filename: "handbook.pdf", DocumentID: "d1", Success: true},
		{Filename: "broken.pdf", Error: "download interrupted"},
	}}
	handler := newSyncRouter(sync)

	body := strings.NewReader(`{"accessToken":"tok-123"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sharepoint/sync", body)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sync.lastToken != "tok-123" {
		t.Fatalf("token = %q", sync.lastToken)
	}
	var resp syncResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Synced != 1 || len(resp.Items) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSharePointSyncExpiredTokenMapsTo401(t *testing.T) {
	sync := &driveSyncFake{
		syncErr: domain.WrapError(domain.ErrUnauthorized, "list_files", errors.New("msgraph status: 401 Unauthorized")),
	}
	handler := newSyncRouter(sync)

	req := httptest.NewRequest(http.MethodPost, "/v1/sharepoint/sync", strings.NewReader(`{"accessToken":"stale"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestSharePointSyncUnconfiguredReturns500(t *testing.T) {
	handler := newSyncRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/sharepoint/sync", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}
