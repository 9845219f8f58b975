package httpadapter

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
	"github.com/askdesk/knowledge-assistant/internal/observability/metrics"
)

const (
	serviceName      = "knowledge-assistant"
	maxUploadMemory  = 32 << 20
	maxBytesPerFile  = 10 << 20
	defaultSessionID = "default"
)

type Router struct {
	chat     ports.ChatService
	ingestor ports.DocumentIngestor
	searcher ports.SearchService
	repo     ports.DocumentReader
	sync     ports.DriveSyncService
	metrics  *metrics.HTTPServerMetrics
}

// NewRouter wires the HTTP surface. sync may be nil when the drive-sync
// integration is not configured; the endpoint then reports a configuration
// error.
func NewRouter(
	chat ports.ChatService,
	ingestor ports.DocumentIngestor,
	searcher ports.SearchService,
	repo ports.DocumentReader,
	sync ports.DriveSyncService,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		chat:     chat,
		ingestor: ingestor,
		searcher: searcher,
		repo:     repo,
		sync:     sync,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.ask)
	mux.HandleFunc("/v1/documents", rt.uploadDocuments)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/sharepoint/sync", rt.sharepointSync)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Question  string `json:"question"`
	Top       int    `json:"top"`
	SessionID string `json:"sessionId"`
}

type askResponse struct {
	Success       bool            `json:"success"`
	Question      string          `json:"question"`
	Response      string          `json:"response"`
	SessionID     string          `json:"sessionId"`
	Sources       []domain.Source `json:"sources"`
	SearchResults int             `json:"searchResults"`
	Intent        domain.Intent   `json:"intent,omitempty"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid json"))
			return
		}
	case http.MethodGet:
		q := r.URL.Query()
		req.Question = q.Get("question")
		req.SessionID = q.Get("sessionId")
		if raw := q.Get("top"); raw != "" {
			top, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, errors.New("top must be an integer"))
				return
			}
			req.Top = top
		}
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}

	start := time.Now()
	answer, err := rt.chat.Ask(r.Context(), req.Question, req.Top, req.SessionID)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}

	rt.recordAsk(answer, time.Since(start))

	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	writeJSON(w, http.StatusOK, askResponse{
		Success:       true,
		Question:      answer.Question,
		Response:      answer.Response,
		SessionID:     answer.SessionID,
		Sources:       sources,
		SearchResults: answer.SearchResults,
		Intent:        answer.Intent,
	})
}

func (rt *Router) recordAsk(answer *domain.ChatAnswer, duration time.Duration) {
	if rt.metrics == nil {
		return
	}

	outcome := ""
	if answer.Intent == domain.IntentDocumentQuestion {
		switch {
		case len(answer.Sources) > 0:
			outcome = "grounded"
		case answer.SearchResults == 0:
			outcome = "no_context"
		default:
			outcome = "ungrounded"
		}
	}
	rt.metrics.RecordAsk(serviceName, string(answer.Intent), outcome,
		len(answer.Sources), answer.SearchResults, duration)
}

type uploadResponse struct {
	Success bool                      `json:"success"`
	Items   []domain.UploadItemResult `json:"items"`
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("multipart form is required"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("multipart field 'files' is required"))
		return
	}

	// Oversized or unreadable parts fail here; everything else goes through
	// the batch upload in one call. slots maps batch results back to their
	// original position.
	results := make([]domain.UploadItemResult, len(headers))
	files := make([]domain.UploadFile, 0, len(headers))
	slots := make([]int, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for i, header := range headers {
		if header.Size > maxBytesPerFile {
			results[i] = domain.UploadItemResult{
				Filename: header.Filename,
				Error:    "file exceeds the 10MB limit",
			}
			continue
		}
		file, err := header.Open()
		if err != nil {
			results[i] = domain.UploadItemResult{Filename: header.Filename, Error: err.Error()}
			continue
		}
		opened = append(opened, file)
		files = append(files, domain.UploadFile{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Body:     file,
		})
		slots = append(slots, i)
	}

	for k, item := range rt.ingestor.UploadBatch(r.Context(), files) {
		results[slots[k]] = item
	}

	anySuccess := false
	for _, item := range results {
		if item.Success {
			anySuccess = true
		}
		if rt.metrics != nil {
			rt.metrics.RecordUploadItem(serviceName, item.Success)
		}
	}

	status := http.StatusAccepted
	if !anySuccess {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, uploadResponse{Success: anySuccess, Items: results})
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, errors.New("document id is required"))
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type searchResponse struct {
	Success bool               `json:"success"`
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Results []domain.SearchHit `json:"results"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		query = q.Get("query")
	}

	top := 0
	if raw := q.Get("top"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("top must be an integer"))
			return
		}
		top = parsed
	}

	hits, err := rt.searcher.Search(r.Context(), query, top)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Success: true,
		Query:   query,
		Count:   len(hits),
		Results: hits,
	})
}

type syncLoginResponse struct {
	Success  bool   `json:"success"`
	Action   string `json:"action"`
	LoginURL string `json:"loginUrl,omitempty"`
	User     string `json:"user,omitempty"`
}

type syncRequest struct {
	AccessToken string `json:"accessToken"`
}

type syncResponse struct {
	Success bool                      `json:"success"`
	Synced  int                       `json:"synced"`
	Items   []domain.UploadItemResult `json:"items"`
}

// sharepointSync runs the document-library integration in three modes: GET
// without a code returns the sign-in URL, GET with ?code= completes the
// login, and POST with an access token pulls the library into the pipeline.
func (rt *Router) sharepointSync(w http.ResponseWriter, r *http.Request) {
	if rt.sync == nil {
		writeError(w, http.StatusInternalServerError, errors.New("sharepoint sync is not configured"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		code := r.URL.Query().Get("code")
		if code == "" {
			writeJSON(w, http.StatusOK, syncLoginResponse{
				Success:  true,
				Action:   "login_required",
				LoginURL: rt.sync.LoginURL(),
			})
			return
		}
		_, user, err := rt.sync.CompleteLogin(r.Context(), code)
		if err != nil {
			writeError(w, mapErrorToHTTPStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, syncLoginResponse{Success: true, Action: "logged_in", User: user})
	case http.MethodPost:
		var req syncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid json"))
			return
		}
		items, err := rt.sync.Sync(r.Context(), req.AccessToken)
		if err != nil {
			writeError(w, mapErrorToHTTPStatus(err), err)
			return
		}
		synced := 0
		for _, item := range items {
			if item.Success {
				synced++
			}
		}
		writeJSON(w, http.StatusOK, syncResponse{Success: true, Synced: synced, Items: items})
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
