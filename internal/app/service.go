// Package service wires the tournament registry, ingestion pipeline and
// leaderboard engine into the operations exposed by the HTTP API, the NATS
// subscriber and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/royale/internal/adapters/mq/queue"
	"github.com/okian/royale/internal/adapters/mq/worker"
	"github.com/okian/royale/internal/adapters/repository"
	"github.com/okian/royale/internal/domain/awards"
	"github.com/okian/royale/internal/domain/dedupe"
	"github.com/okian/royale/internal/domain/derive"
	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/pointsystem"
	"github.com/okian/royale/internal/domain/roster"
	"github.com/okian/royale/internal/domain/scoring"
	"github.com/okian/royale/internal/domain/types"
	"github.com/okian/royale/pkg/logger"
	"github.com/okian/royale/pkg/metrics"
)

const rosterLoadConcurrency = 8

// Service implements ingestion and result retrieval over a repository.Store.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	engine  *scoring.Engine
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	weights     scoring.Weights

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the in-flight game id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMVPWeights replaces the MVP weighting. Invalid weights are ignored.
func WithMVPWeights(w scoring.Weights) Option {
	return func(s *Service) {
		if w.Validate() == nil {
			s.weights = w
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		workerCount: runtime.NumCPU(),
		queueSize:   1_000,
		dedupeSize:  10_000,
		weights:     scoring.DefaultWeights(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.engine = scoring.NewEngine(scoring.WithWeights(s.weights))
	return s
}

// Start launches the asynchronous ingestion pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)
	s.started = true

	s.logger.Info(ctx, "ingestion pipeline started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue and waits for queued jobs to finish.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	err := s.pool.Shutdown(ctx)
	s.logger.Info(ctx, "ingestion pipeline stopped", logger.Int64("processed", s.pool.Processed()))
	return err
}

// Enqueue submits a job to the ingestion pipeline. It returns false when the
// pipeline is not running or the queue is full.
func (s *Service) Enqueue(ctx context.Context, job model.IngestJob) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	ok := s.queue.Enqueue(ctx, job)
	if !ok {
		s.logger.Warn(ctx, "ingestion queue rejected job",
			logger.String("job_id", job.JobID),
			logger.String("schedule_id", job.ScheduleID),
		)
	}
	return ok
}

// IngestMatch validates and commits one match for a schedule. The outcome is
// always reported through the returned status.
func (s *Service) IngestMatch(ctx context.Context, tel model.Telemetry, scheduleID string) types.Status {
	start := time.Now()
	matchID, err := s.ingest(ctx, tel, scheduleID)
	st := statusFromError(err)
	if err == nil {
		st.Message = fmt.Sprintf("match %s ingested", matchID)
	}
	metrics.RecordIngestOutcome(st.Status, time.Since(start))

	fields := []logger.Field{
		logger.String("game_id", tel.GameID.String()),
		logger.String("schedule_id", scheduleID),
		logger.String("status", st.Status),
	}
	switch st.Status {
	case model.StatusSuccess:
		s.logger.Info(ctx, "match ingested", append(fields, logger.String("match_id", matchID))...)
	case model.StatusError:
		metrics.RecordErrorByComponent("service", "ingest")
		s.logger.Error(ctx, "match ingestion failed", append(fields, logger.Error(err))...)
	default:
		s.logger.Warn(ctx, "match rejected", append(fields, logger.String("reason", model.Detail(err)))...)
	}
	return st
}

func (s *Service) ingest(ctx context.Context, tel model.Telemetry, scheduleID string) (string, error) {
	const op = "service.ingest_match"

	if err := tel.Validate(); err != nil {
		return "", err
	}
	scheduleID = model.NormalizeID(scheduleID)
	if scheduleID == "" {
		return "", model.WrapKind(op, model.ErrMalformed, errors.New("schedule id is required"))
	}

	gameID := tel.GameID.String()
	if s.deduper.SeenAndRecord(ctx, gameID) {
		return "", model.WrapKind(op, model.ErrDuplicate, fmt.Errorf("game %q is already being ingested", gameID))
	}
	committed := false
	defer func() {
		if !committed {
			s.deduper.Unrecord(ctx, gameID)
		}
	}()

	exists, err := s.store.MatchExists(ctx, gameID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return "", model.WrapKind(op, model.ErrDuplicate, fmt.Errorf("game %q already ingested", gameID))
	}

	sc, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return "", err
	}
	if sc.Played() {
		return "", model.WrapKind(op, model.ErrDuplicate, fmt.Errorf("schedule %q already has match %s", sc.ID, sc.MatchID))
	}
	ps, err := s.eventPointSystem(ctx, sc.EventID)
	if err != nil {
		return "", err
	}
	rosters, err := s.loadRosters(ctx, sc)
	if err != nil {
		return "", err
	}

	m := model.Match{
		ID:            uuid.NewString(),
		GameID:        gameID,
		ScheduleID:    sc.ID,
		PointSystemID: ps.ID,
		GameStart:     tel.GameStart.Time,
		GameEnd:       tel.GameEnd.Time,
		Teams:         tel.Teams,
		Players:       tel.Players,
		CreatedAt:     time.Now().UTC(),
	}
	rows := derive.Derive(m.ID, rosters, tel.Players)
	if err := s.store.CommitMatch(ctx, m, rows.Players, rows.Teams); err != nil {
		return "", err
	}
	committed = true
	return m.ID, nil
}

// ValidateRoster compares the telemetry roster with the players registered
// for the schedule's team groups. It writes nothing.
func (s *Service) ValidateRoster(ctx context.Context, tel model.Telemetry, scheduleID string) (types.RosterReport, error) {
	const op = "service.validate_roster"

	if err := tel.Validate(); err != nil {
		return types.RosterReport{}, err
	}
	exists, err := s.store.MatchExists(ctx, tel.GameID.String())
	if err != nil {
		return types.RosterReport{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return types.RosterReport{}, model.WrapKind(op, model.ErrNotFound,
			fmt.Errorf("game %q already has a committed match", tel.GameID.String()))
	}
	sc, err := s.store.GetSchedule(ctx, model.NormalizeID(scheduleID))
	if err != nil {
		return types.RosterReport{}, err
	}
	rosters, err := s.loadRosters(ctx, sc)
	if err != nil {
		return types.RosterReport{}, err
	}

	var registered []model.Player
	for _, r := range rosters {
		registered = append(registered, r.Players...)
	}
	report := roster.Reconcile(roster.FromTelemetry(tel.Players), roster.FromPlayers(registered))
	metrics.RecordRosterMismatch("game", len(report.GamePlayersUnmatched))
	metrics.RecordRosterMismatch("db", len(report.DBPlayersUnmatched))
	if !report.Clean() {
		s.logger.Info(ctx, "roster mismatch",
			logger.String("schedule_id", sc.ID),
			logger.Int("game_unmatched", len(report.GamePlayersUnmatched)),
			logger.Int("db_unmatched", len(report.DBPlayersUnmatched)),
		)
	}
	return report, nil
}

// RederiveMatch recomputes the stat rows of a schedule's match from the
// stored telemetry snapshot and the current roster.
func (s *Service) RederiveMatch(ctx context.Context, scheduleID string) types.Status {
	const op = "service.rederive_match"

	matchID, err := func() (string, error) {
		sc, err := s.store.GetSchedule(ctx, model.NormalizeID(scheduleID))
		if err != nil {
			return "", err
		}
		if !sc.Played() {
			return "", model.WrapKind(op, model.ErrNotFound, fmt.Errorf("schedule %q has no match", sc.ID))
		}
		m, err := s.store.GetMatch(ctx, sc.MatchID)
		if err != nil {
			return "", err
		}
		rosters, err := s.loadRosters(ctx, sc)
		if err != nil {
			return "", err
		}
		rows := derive.Derive(m.ID, rosters, m.Players)
		return m.ID, s.store.SaveDerivedStats(ctx, m.ID, rows.Players, rows.Teams)
	}()

	st := statusFromError(err)
	switch {
	case err == nil:
		st.Message = fmt.Sprintf("match %s re-derived", matchID)
		s.logger.Info(ctx, "match re-derived", logger.String("schedule_id", scheduleID), logger.String("match_id", matchID))
	case st.Status == model.StatusError:
		metrics.RecordErrorByComponent("service", "rederive")
		s.logger.Error(ctx, "re-derivation failed", logger.String("schedule_id", scheduleID), logger.Error(err))
	}
	return st
}

// SingleMatchResult ranks teams and players over one schedule's match.
func (s *Service) SingleMatchResult(ctx context.Context, scheduleID string) (types.MatchResult, error) {
	const op = "service.single_match_result"

	sc, err := s.store.GetSchedule(ctx, model.NormalizeID(scheduleID))
	if err != nil {
		return types.MatchResult{}, err
	}
	if !sc.Played() {
		return types.MatchResult{}, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("schedule %q has no match", sc.ID))
	}
	return s.aggregate(ctx, "match", []string{sc.MatchID})
}

// GroupResult ranks teams and players over every played schedule of a group.
func (s *Service) GroupResult(ctx context.Context, groupID string) (types.MatchResult, error) {
	const op = "service.group_result"

	g, err := s.store.GetGroup(ctx, model.NormalizeID(groupID))
	if err != nil {
		return types.MatchResult{}, err
	}
	schedules, err := s.store.SchedulesByGroup(ctx, g.ID)
	if err != nil {
		return types.MatchResult{}, err
	}
	matchIDs := playedMatches(schedules)
	if len(matchIDs) == 0 {
		return types.MatchResult{}, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("group %q has no played schedules", g.ID))
	}
	return s.aggregate(ctx, "group", matchIDs)
}

// ScheduleSetResult ranks teams and players over an explicit list of
// schedules. Unplayed schedules are skipped; unknown ones are NotFound.
func (s *Service) ScheduleSetResult(ctx context.Context, scheduleIDs []string) (types.MatchResult, error) {
	const op = "service.schedule_set_result"

	seen := make(map[string]struct{}, len(scheduleIDs))
	schedules := make([]model.Schedule, 0, len(scheduleIDs))
	for _, raw := range scheduleIDs {
		id := model.NormalizeID(raw)
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		sc, err := s.store.GetSchedule(ctx, id)
		if err != nil {
			return types.MatchResult{}, err
		}
		schedules = append(schedules, sc)
	}
	matchIDs := playedMatches(schedules)
	if len(matchIDs) == 0 {
		return types.MatchResult{}, model.WrapKind(op, model.ErrNotFound, errors.New("no played schedule in request"))
	}
	return s.aggregate(ctx, "schedule_set", matchIDs)
}

// StarOfMatch picks the award winners of one schedule's match.
func (s *Service) StarOfMatch(ctx context.Context, scheduleID string) (types.StarOfMatch, error) {
	res, err := s.SingleMatchResult(ctx, scheduleID)
	if err != nil {
		return types.StarOfMatch{}, err
	}
	return awards.StarOfMatch(res.PlayerResults), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"dedupeEntries": s.deduper.Size(),
		"mvpWeights":    s.engine.Weights(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["processed"] = s.pool.Processed()
	}
	if n, err := s.store.CountMatches(ctx); err == nil {
		stats["matches"] = n
	} else {
		s.logger.Warn(ctx, "counting matches failed", logger.Error(err))
	}
	return stats
}

func (s *Service) aggregate(ctx context.Context, scope string, matchIDs []string) (types.MatchResult, error) {
	start := time.Now()

	var (
		teams   []model.TeamStatsRow
		players []model.PlayerStatsRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		teams, err = s.store.TeamStatsForMatches(gctx, matchIDs)
		return err
	})
	g.Go(func() (err error) {
		players, err = s.store.PlayerStatsForMatches(gctx, matchIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.MatchResult{}, err
	}

	systems, err := s.pointSystems(ctx, teams)
	if err != nil {
		return types.MatchResult{}, err
	}
	res, err := s.engine.Aggregate(teams, players, systems)
	if err != nil {
		return types.MatchResult{}, err
	}
	metrics.RecordAggregation(scope, time.Since(start))
	return res, nil
}

func (s *Service) pointSystems(ctx context.Context, rows []model.TeamStatsRow) (map[string]pointsystem.PointSystem, error) {
	systems := make(map[string]pointsystem.PointSystem)
	for _, r := range rows {
		if _, ok := systems[r.PointSystemID]; ok {
			continue
		}
		ps, err := s.store.GetPointSystem(ctx, r.PointSystemID)
		if err != nil {
			return nil, err
		}
		systems[r.PointSystemID] = ps
	}
	return systems, nil
}

func (s *Service) eventPointSystem(ctx context.Context, eventID string) (pointsystem.PointSystem, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return pointsystem.PointSystem{}, err
	}
	return s.store.GetPointSystem(ctx, ev.PointSystemID)
}

// loadRosters resolves the teams of a schedule's team groups and loads
// their players concurrently.
func (s *Service) loadRosters(ctx context.Context, sc model.Schedule) ([]derive.Roster, error) {
	const op = "service.load_rosters"

	if len(sc.TeamGroupIDs) == 0 {
		return nil, model.WrapKind(op, model.ErrMalformed, fmt.Errorf("schedule %q has no team groups", sc.ID))
	}
	for _, id := range sc.TeamGroupIDs {
		if _, err := s.store.GetGroup(ctx, id); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, model.WrapKind(op, model.ErrMalformed, fmt.Errorf("team group %q does not exist", id))
			}
			return nil, err
		}
	}
	teams, err := s.store.TeamsInGroups(ctx, sc.TeamGroupIDs)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, model.WrapKind(op, model.ErrMalformed, fmt.Errorf("schedule %q team groups have no teams", sc.ID))
	}

	rosters := make([]derive.Roster, len(teams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rosterLoadConcurrency)
	for i, t := range teams {
		g.Go(func() error {
			players, err := s.store.PlayersByTeam(gctx, t.ID)
			if err != nil {
				return err
			}
			rosters[i] = derive.Roster{Team: t, Players: players}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rosters, nil
}

func playedMatches(schedules []model.Schedule) []string {
	ids := make([]string, 0, len(schedules))
	for _, sc := range schedules {
		if sc.Played() {
			ids = append(ids, sc.MatchID)
		}
	}
	return ids
}

// statusFromError maps an ingestion error onto the public status vocabulary.
func statusFromError(err error) types.Status {
	switch {
	case err == nil:
		return types.Status{Status: model.StatusSuccess}
	case errors.Is(err, model.ErrDuplicate):
		return types.Status{Status: model.StatusDuplicate, Message: "match already ingested: " + model.Detail(err)}
	case errors.Is(err, model.ErrNotFound):
		return types.Status{Status: model.StatusNotFound, Message: "schedule/point system not found: " + model.Detail(err)}
	case errors.Is(err, model.ErrMalformed):
		return types.Status{Status: model.StatusMalformed, Message: "malformed input: " + model.Detail(err)}
	default:
		return types.Status{Status: model.StatusError, Message: "internal error"}
	}
}
