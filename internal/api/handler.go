// Package api implements the hosted pagegrade REST API.
// It provides run, payload ingest and report endpoints backed by the run
// store and blob storage.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pagegrade/pagegrade/internal/ingestion"
	"github.com/pagegrade/pagegrade/internal/runs"
)

// Handler is the top-level API handler for the hosted pagegrade service.
type Handler struct {
	store        runs.Store
	ingestionSvc *ingestion.Service
	cache        *ReportCache
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewHandler creates a new API handler. A nil cache is replaced with one
// sized from REPORT_CACHE_SIZE; a nil logger discards logs.
func NewHandler(store runs.Store, ingestionSvc *ingestion.Service, cache *ReportCache, logger *zap.Logger) *Handler {
	if cache == nil {
		cache = NewReportCacheFromEnv()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:        store,
		ingestionSvc: ingestionSvc,
		cache:        cache,
		validate:     validator.New(),
		logger:       logger,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Write endpoints (auth-protected)
	mux.HandleFunc("POST /api/v1/runs", h.handleCreateRun)
	mux.HandleFunc("PUT /api/v1/runs/{runID}/payloads/{kind}", h.handleSubmitPayload)
	mux.HandleFunc("POST /api/v1/runs/{runID}/rescore", h.handleRescore)

	// Read endpoints
	mux.HandleFunc("GET /api/v1/runs", h.handleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{runID}", h.handleGetRun)
	mux.HandleFunc("GET /api/v1/runs/{runID}/report", h.handleGetReport)
	mux.HandleFunc("GET /api/v1/runs/{runID}/scores", h.handleListScores)
}

// RegisterHealth registers the unauthenticated health endpoint. check, when
// non-nil, checks dependencies such as the database.
func RegisterHealth(mux *http.ServeMux, check func(ctx context.Context) error) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "unhealthy: "+err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
