package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pagegrade/pagegrade/internal/ingestion"
	"github.com/pagegrade/pagegrade/internal/runs"
)

// maxBodyBytes caps a callback body; payloads travel inline.
const maxBodyBytes = 32 << 20

// ReportInvalidator drops cached reports of a run.
type ReportInvalidator interface {
	Invalidate(runID string)
}

// Handler processes incoming audit worker callbacks.
type Handler struct {
	secret     []byte
	store      runs.Store
	ingestions *ingestion.Service
	cache      ReportInvalidator
	logger     *zap.Logger
}

// NewHandler creates a new webhook Handler. cache may be nil.
func NewHandler(secret []byte, store runs.Store, ingestions *ingestion.Service, cache ReportInvalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		secret:     secret,
		store:      store,
		ingestions: ingestions,
		cache:      cache,
		logger:     logger,
	}
}

// ServeHTTP handles incoming callback requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxBodyBytes {
		http.Error(w, "callback too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := VerifySignature(body, r.Header.Get(SignatureHeader), h.secret); err != nil {
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get(EventHeader)
	if eventType == "" {
		http.Error(w, "missing "+EventHeader+" header", http.StatusBadRequest)
		return
	}

	event, err := ParseEvent(eventType, body)
	if err != nil {
		h.logger.Warn("webhook parse error", zap.String("event", eventType), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	resp := map[string]string{"status": "accepted"}

	switch e := event.(type) {
	case *RunStartedEvent:
		run, err := h.store.CreateRun(ctx, e.SiteURL)
		if err != nil {
			h.fail(w, eventType, err)
			return
		}
		h.logger.Info("run started", zap.String("run_id", run.ID), zap.String("site_url", run.SiteURL))
		resp["run_id"] = run.ID

	case *PayloadCompletedEvent:
		sub, err := h.handlePayloadCompleted(ctx, e)
		if err != nil {
			h.fail(w, eventType, err)
			return
		}
		resp["run_id"] = sub.RunID
		resp["state"] = string(sub.State)

	case *PayloadFailedEvent:
		if _, err := h.store.GetRun(ctx, e.RunID); err != nil {
			h.fail(w, eventType, err)
			return
		}
		// The run stays at its current readiness; the failed audit's
		// categories keep reporting no score.
		h.logger.Warn("audit payload failed",
			zap.String("run_id", e.RunID),
			zap.String("kind", string(e.Kind)),
			zap.String("error", e.Error),
		)
		resp["run_id"] = e.RunID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handlePayloadCompleted(ctx context.Context, e *PayloadCompletedEvent) (*ingestion.Submission, error) {
	sub, err := h.ingestions.Submit(ctx, e.RunID, e.Kind, e.Payload)
	if err != nil {
		return nil, fmt.Errorf("submit %s payload: %w", e.Kind, err)
	}
	if h.cache != nil {
		h.cache.Invalidate(e.RunID)
	}
	return sub, nil
}

func (h *Handler) fail(w http.ResponseWriter, eventType string, err error) {
	switch {
	case errors.Is(err, runs.ErrNotFound):
		http.Error(w, "run not found", http.StatusNotFound)
	case errors.Is(err, ingestion.ErrInvalidPayload):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("handle webhook event", zap.String("event", eventType), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
