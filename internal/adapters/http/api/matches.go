package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/types"
	"github.com/okian/royale/pkg/logger"
)

// matchRequest is the body of every POST /matches* route.
type matchRequest struct {
	ScheduleID string          `json:"schedule_id"`
	Telemetry  json.RawMessage `json:"telemetry"`
}

type acceptedResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

// MatchesHandler serves roster validation and match ingestion.
type MatchesHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	logger       logger.Logger
}

func (h *MatchesHandler) read(w http.ResponseWriter, r *http.Request, op string) (model.Telemetry, string, error) {
	var req matchRequest
	if err := decodeBody(w, r, h.maxBodyBytes, op, &req); err != nil {
		return model.Telemetry{}, "", err
	}
	if model.NormalizeID(req.ScheduleID) == "" {
		return model.Telemetry{}, "", WrapKind(op, ErrBadRequest, errors.New("missing schedule_id"))
	}
	if len(req.Telemetry) == 0 {
		return model.Telemetry{}, "", WrapKind(op, ErrBadRequest, errors.New("missing telemetry"))
	}
	tel, err := model.ParseTelemetry(req.Telemetry)
	if err != nil {
		return model.Telemetry{}, "", err
	}
	return tel, req.ScheduleID, nil
}

// HandleValidate handles POST /matches/validate.
func (h *MatchesHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_roster"
	tel, scheduleID, err := h.read(w, r, op)
	if err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	report, err := h.deps.ValidateRoster(r.Context(), tel, scheduleID)
	if err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleIngest handles POST /matches. The body is always a Status.
func (h *MatchesHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_match"
	tel, scheduleID, err := h.read(w, r, op)
	if err != nil {
		h.rejectRead(w, err)
		return
	}
	st := h.deps.IngestMatch(r.Context(), tel, scheduleID)
	writeJSON(w, statusCode(st, http.StatusCreated), st)
}

// HandleIngestAsync handles POST /matches/async.
func (h *MatchesHandler) HandleIngestAsync(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_match_async"
	tel, scheduleID, err := h.read(w, r, op)
	if err != nil {
		h.rejectRead(w, err)
		return
	}
	job := model.IngestJob{JobID: uuid.NewString(), ScheduleID: scheduleID, Telemetry: tel}
	if !h.deps.Enqueue(r.Context(), job) {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", JobID: job.JobID})
}

func (h *MatchesHandler) rejectRead(w http.ResponseWriter, err error) {
	code, _ := errorStatus(err)
	writeJSON(w, code, types.Status{Status: model.StatusMalformed, Message: model.Detail(err)})
}
