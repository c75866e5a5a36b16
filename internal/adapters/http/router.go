package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/docsim/internal/config"
	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/ports"
	"github.com/kirillkom/docsim/internal/observability/metrics"
)

const (
	serviceName         = "api"
	backpressureWait    = 250 * time.Millisecond
	defaultUploadMaxMem = 8 << 20
)

type Router struct {
	cfg     config.Config
	ingest  ports.DocumentIngestor
	docs    ports.DocumentReader
	runs    ports.RunScheduler
	metrics *metrics.HTTPServerMetrics
}

// NewRouter builds the API. m may be nil, in which case /metrics is not served.
func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	docs ports.DocumentReader,
	runs ports.RunScheduler,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		ingest:  ingest,
		docs:    docs,
		runs:    runs,
		metrics: m,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(middleware.Recoverer)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware(serviceName))
	}

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, backpressureWait)
		})

		r.Post("/v1/documents", rt.uploadDocument)
		r.Get("/v1/documents/{id}", rt.getDocumentByID)
		r.Post("/v1/similarity/runs", rt.requestRun)
		r.Get("/v1/similarity/runs/{id}", rt.getRun)
		r.Get("/v1/similarity/runs/{id}/pairs", rt.listPairs)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.APIMaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.APIMaxUploadBytes)
	}
	if err := r.ParseMultipartForm(defaultUploadMaxMem); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName)
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type runRequest struct {
	Threshold *float64 `json:"threshold"`
}

func (rt *Router) requestRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	run, err := rt.runs.RequestRun(r.Context(), req.Threshold)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRunRequested(serviceName)
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (rt *Router) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := rt.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type pairsResponse struct {
	RunID string                    `json:"run_id"`
	Pairs []domain.SimilarityRecord `json:"pairs"`
}

// listPairs serves a run's pairs as JSON, or as report lines with format=text.
func (rt *Router) listPairs(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	minScore := 0.0
	if raw := strings.TrimSpace(r.URL.Query().Get("min_score")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "min_score must be a number"})
			return
		}
		minScore = parsed
	}

	pairs, err := rt.runs.ListResults(r.Context(), runID, minScore)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		for _, rec := range pairs {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", rec.PairKey(), rec.ScoreLabel()); err != nil {
				return
			}
		}
		return
	}
	if pairs == nil {
		pairs = []domain.SimilarityRecord{}
	}
	writeJSON(w, http.StatusOK, pairsResponse{RunID: runID, Pairs: pairs})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_error", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
