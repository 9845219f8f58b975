package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askRequestsTotal *prometheus.CounterVec
	askGroundedTotal *prometheus.CounterVec
	askSnippets      *prometheus.HistogramVec
	askDuration      *prometheus.HistogramVec
	uploadItemsTotal *prometheus.CounterVec
	searchCandidates *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ka",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ka",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ka",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ka",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total answered questions by routed intent.",
		},
		[]string{"service", "intent"},
	)
	askGroundedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ka",
			Subsystem: "ask",
			Name:      "grounded_total",
			Help:      "Total document answers by grounding outcome.",
		},
		[]string{"service", "outcome"},
	)
	askSnippets := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ka",
			Subsystem: "ask",
			Name:      "cited_snippets",
			Help:      "Distribution of cited snippets per document answer.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
		},
		[]string{"service"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ka",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "End-to-end question answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "intent"},
	)
	uploadItemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ka",
			Subsystem: "ingest",
			Name:      "upload_items_total",
			Help:      "Total uploaded files by outcome.",
		},
		[]string{"service", "status"},
	)
	searchCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ka",
			Subsystem: "ask",
			Name:      "search_candidates",
			Help:      "Distribution of merged search candidates per question.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 30, 40, 50},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askRequestsTotal,
		askGroundedTotal,
		askSnippets,
		askDuration,
		uploadItemsTotal,
		searchCandidates,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		askRequestsTotal: askRequestsTotal,
		askGroundedTotal: askGroundedTotal,
		askSnippets:      askSnippets,
		askDuration:      askDuration,
		uploadItemsTotal: uploadItemsTotal,
		searchCandidates: searchCandidates,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordAsk tracks one answered question. outcome is "grounded", "ungrounded",
// or "no_context"; snippetCount and candidateCount are only observed for
// document questions.
func (m *HTTPServerMetrics) RecordAsk(service, intent, outcome string, snippetCount, candidateCount int, duration time.Duration) {
	if intent == "" {
		intent = "unknown"
	}
	m.askRequestsTotal.WithLabelValues(service, intent).Inc()
	m.askDuration.WithLabelValues(service, intent).Observe(duration.Seconds())

	if outcome == "" {
		return
	}
	m.askGroundedTotal.WithLabelValues(service, outcome).Inc()
	m.askSnippets.WithLabelValues(service).Observe(float64(snippetCount))
	m.searchCandidates.WithLabelValues(service).Observe(float64(candidateCount))
}

func (m *HTTPServerMetrics) RecordUploadItem(service string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.uploadItemsTotal.WithLabelValues(service, status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
