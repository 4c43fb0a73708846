package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pagegrade/pagegrade/internal/ingestion"
	"github.com/pagegrade/pagegrade/internal/runs"
	"github.com/pagegrade/pagegrade/pkg/audit"
)

// maxPayloadBytes caps a decompressed payload body.
const maxPayloadBytes = 32 << 20

// handleSubmitPayload handles PUT /api/v1/runs/{runID}/payloads/{kind}. The
// body is the raw payload JSON, optionally gzip-compressed.
func (h *Handler) handleSubmitPayload(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")
	kind, err := audit.ParsePayloadKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Support gzip-compressed request bodies
	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid gzip body: "+err.Error())
			return
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(io.LimitReader(body, maxPayloadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}
	if len(data) > maxPayloadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	sub, err := h.ingestionSvc.Submit(r.Context(), runID, kind, data)
	switch {
	case errors.Is(err, runs.ErrNotFound):
		writeError(w, http.StatusNotFound, "run not found")
		return
	case errors.Is(err, ingestion.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("submit payload", zap.String("run_id", runID), zap.String("kind", string(kind)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to ingest payload: "+err.Error())
		return
	}

	// Concurrent submissions may finish out of order; the next report read
	// refills the cache from the latest score.
	h.cache.Invalidate(runID)
	writeJSON(w, http.StatusOK, sub)
}
