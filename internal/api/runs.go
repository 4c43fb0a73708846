package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pagegrade/pagegrade/internal/runs"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type createRunRequest struct {
	SiteURL string `json:"site_url" validate:"required,url"`
}

func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	run, err := h.store.CreateRun(r.Context(), req.SiteURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create run: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxListLimit)
	}

	list, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs: "+err.Error())
		return
	}
	if list == nil {
		list = []runs.Run{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), r.PathValue("runID"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleListScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.store.ListScores(r.Context(), r.PathValue("runID"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if scores == nil {
		scores = []runs.Score{}
	}
	writeJSON(w, http.StatusOK, scores)
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")

	if report := h.cache.Get(runID); report != nil {
		writeJSON(w, http.StatusOK, report)
		return
	}

	// Read before loading: a submission landing mid-load bumps it.
	gen := h.cache.Generation(runID)

	if _, err := h.store.GetRun(r.Context(), runID); err != nil {
		h.writeStoreError(w, err)
		return
	}

	report, err := h.ingestionSvc.Report(r.Context(), runID)
	if errors.Is(err, runs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no report computed yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load report: "+err.Error())
		return
	}

	h.cache.PutIfCurrent(runID, gen, report)
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, runs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
