package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/pkg/logger"
)

type resultsRequest struct {
	ScheduleIDs []string `json:"schedule_ids"`
}

// ResultsHandler serves standings, awards and re-derivation.
type ResultsHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	maxSchedules int
	logger       logger.Logger
}

// HandleScheduleResult handles GET /schedules/{id}/result.
func (h *ResultsHandler) HandleScheduleResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.SingleMatchResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleStars handles GET /schedules/{id}/stars.
func (h *ResultsHandler) HandleStars(w http.ResponseWriter, r *http.Request) {
	stars, err := h.deps.StarOfMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, stars)
}

// HandleGroupResult handles GET /groups/{id}/result.
func (h *ResultsHandler) HandleGroupResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.GroupResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleResults handles POST /results over an explicit schedule list.
func (h *ResultsHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.schedule_set_result"
	var req resultsRequest
	if err := decodeBody(w, r, h.maxBodyBytes, op, &req); err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	switch {
	case len(req.ScheduleIDs) == 0:
		writeKindError(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, errors.New("schedule_ids must not be empty")))
		return
	case len(req.ScheduleIDs) > h.maxSchedules:
		writeKindError(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest,
			fmt.Errorf("at most %d schedule_ids per request", h.maxSchedules)))
		return
	}
	res, err := h.deps.ScheduleSetResult(r.Context(), req.ScheduleIDs)
	if err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRederive handles POST /schedules/{id}/rederive.
func (h *ResultsHandler) HandleRederive(w http.ResponseWriter, r *http.Request) {
	st := h.deps.RederiveMatch(r.Context(), r.PathValue("id"))
	if st.Status == model.StatusError {
		h.logger.Error(r.Context(), "re-derivation failed", logger.String("schedule_id", r.PathValue("id")))
	}
	writeJSON(w, statusCode(st, http.StatusOK), st)
}
