// Package api registers the HTTP routes for ingestion and standings.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/types"
	"github.com/okian/royale/pkg/logger"
)

const (
	defaultMaxBodyBytes       = 8 << 20
	defaultMaxResultSchedules = 64
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ValidateRoster(ctx context.Context, tel model.Telemetry, scheduleID string) (types.RosterReport, error)
	IngestMatch(ctx context.Context, tel model.Telemetry, scheduleID string) types.Status
	// Enqueue pushes a job for async ingestion. Returns false on backpressure.
	Enqueue(ctx context.Context, job model.IngestJob) bool
	RederiveMatch(ctx context.Context, scheduleID string) types.Status

	SingleMatchResult(ctx context.Context, scheduleID string) (types.MatchResult, error)
	GroupResult(ctx context.Context, groupID string) (types.MatchResult, error)
	ScheduleSetResult(ctx context.Context, scheduleIDs []string) (types.MatchResult, error)
	StarOfMatch(ctx context.Context, scheduleID string) (types.StarOfMatch, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	matchesHandler *MatchesHandler
	resultsHandler *ResultsHandler
}

type serverConfig struct {
	maxBodyBytes       int64
	maxResultSchedules int
	logger             logger.Logger
}

// Option configures the Server.
type Option func(*serverConfig)

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithMaxResultSchedules caps the schedule list of POST /results.
func WithMaxResultSchedules(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxResultSchedules = n
		}
	}
}

// WithLogger sets the logger used for internal errors.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{
		maxBodyBytes:       defaultMaxBodyBytes,
		maxResultSchedules: defaultMaxResultSchedules,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		matchesHandler: &MatchesHandler{deps: deps, maxBodyBytes: cfg.maxBodyBytes, logger: cfg.logger},
		resultsHandler: &ResultsHandler{deps: deps, maxBodyBytes: cfg.maxBodyBytes, maxSchedules: cfg.maxResultSchedules, logger: cfg.logger},
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /matches/validate", MetricsMiddleware(s.matchesHandler.HandleValidate, "matches_validate"))
	mux.HandleFunc("POST /matches", MetricsMiddleware(s.matchesHandler.HandleIngest, "matches"))
	mux.HandleFunc("POST /matches/async", MetricsMiddleware(s.matchesHandler.HandleIngestAsync, "matches_async"))

	mux.HandleFunc("POST /schedules/{id}/rederive", MetricsMiddleware(s.resultsHandler.HandleRederive, "schedule_rederive"))
	mux.HandleFunc("GET /schedules/{id}/result", MetricsMiddleware(s.resultsHandler.HandleScheduleResult, "schedule_result"))
	mux.HandleFunc("GET /schedules/{id}/stars", MetricsMiddleware(s.resultsHandler.HandleStars, "schedule_stars"))
	mux.HandleFunc("GET /groups/{id}/result", MetricsMiddleware(s.resultsHandler.HandleGroupResult, "group_result"))
	mux.HandleFunc("POST /results", MetricsMiddleware(s.resultsHandler.HandleResults, "results"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = model.Detail(err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// errorStatus maps an error kind to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrMalformed):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, model.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// statusCode maps an ingestion status to the HTTP status it is served with.
func statusCode(st types.Status, success int) int {
	switch st.Status {
	case model.StatusSuccess:
		return success
	case model.StatusDuplicate:
		return http.StatusConflict
	case model.StatusNotFound:
		return http.StatusNotFound
	case model.StatusMalformed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeKindError(ctx context.Context, l logger.Logger, w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// decodeBody reads a size-limited JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrPayloadTooLarge, err)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
