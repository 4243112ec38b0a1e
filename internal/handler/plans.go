package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"storepilot/internal/model"
)

// handlePreview resolves a plan without applying it.
// POST /stores/{store_id}/plans/preview
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := r.PathValue("store_id")

	var plan model.Plan
	if err := decodeJSON(r, &plan); err != nil {
		h.writeError(w, err)
		return
	}

	preview, err := h.svc.Preview(ctx, storeID, &plan)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, preview)
}

// handleApply runs a plan. By default the run is queued and 202 is
// returned at once; ?wait=true runs it inline and returns the result.
// POST /stores/{store_id}/plans
func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := r.PathValue("store_id")

	var plan model.Plan
	if err := decodeJSON(r, &plan); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "applying plan",
		slog.String("store_id", storeID),
		slog.String("summary", plan.Summary()),
	)

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		res, err := h.svc.Execute(ctx, storeID, &plan)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, res)
		return
	}

	if err := h.svc.Apply(ctx, storeID, &plan); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", Summary: plan.Summary()})
}

type acceptedResponse struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

// handleHistory lists a store's plan runs, newest first.
// GET /stores/{store_id}/history?limit=N
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := r.PathValue("store_id")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, model.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		limit = n
	}

	logs, err := h.svc.History(ctx, storeID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, historyResponse{History: logs})
}

type historyResponse struct {
	History []model.HistoryLog `json:"history"`
}

// handleRevert undoes a plan run.
// POST /stores/{store_id}/history/{id}/revert
func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := r.PathValue("store_id")
	historyID := r.PathValue("id")

	h.logger.InfoContext(ctx, "reverting plan run",
		slog.String("store_id", storeID),
		slog.String("history_id", historyID),
	)

	res, err := h.svc.Revert(ctx, storeID, historyID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// handleHealth reports whether the mirror database is reachable.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
