package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pagegrade/pagegrade/internal/runs"
)

// handleRescore re-runs the scoring engine on a run's stored payloads and
// appends a new score row. Used after the scoring configuration changed.
func (h *Handler) handleRescore(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")

	sub, err := h.ingestionSvc.Recompute(r.Context(), runID)
	if errors.Is(err, runs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("rescore", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to rescore: "+err.Error())
		return
	}

	// Concurrent submissions may finish out of order; the next report read
	// refills the cache from the latest score.
	h.cache.Invalidate(runID)
	writeJSON(w, http.StatusOK, sub)
}
