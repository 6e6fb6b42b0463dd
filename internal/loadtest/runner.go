package loadtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/royale/internal/adapters/repository"
	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/seed"
	"github.com/okian/royale/pkg/logger"
)

// Run generates a tournament, seeds it, submits every game 1+Duplicates
// times concurrently and verifies the group standings.
func Run(ctx context.Context, cfg Config, seeder repository.Seeder, target Target) (*Stats, error) {
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("playersPerTeam", cfg.PlayersPerTeam),
		logger.Int("matches", cfg.Matches),
		logger.Int("duplicates", cfg.Duplicates),
		logger.Int("workers", cfg.Workers))

	t, err := Generate(cfg)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	stats.MatchesGenerated = len(t.Games)

	sum, err := seed.Apply(ctx, seeder, t.Registry)
	if err != nil {
		return nil, fmt.Errorf("seeding failed: %w", err)
	}
	log.Info(ctx, "registry seeded",
		logger.String("runID", t.RunID),
		logger.Int("teams", sum.Teams),
		logger.Int("players", sum.Players),
		logger.Int("schedules", sum.Schedules))

	if err := submit(ctx, cfg, target, t.Games, stats); err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}

	res, err := target.GroupResult(ctx, t.GroupID)
	if err != nil {
		return stats, fmt.Errorf("result retrieval failed: %w", err)
	}
	if err := Verify(t, res); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)
	return stats, nil
}

// submit sends every copy of every game through a bounded errgroup. A
// schedule must end with exactly one success.
func submit(ctx context.Context, cfg Config, target Target, games []Game, stats *Stats) error {
	var submitted, successful, duplicate, failed atomic.Int64
	perSchedule := make([]atomic.Int64, len(games))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for copyIdx := 0; copyIdx <= cfg.Duplicates; copyIdx++ {
		for i, game := range games {
			g.Go(func() error {
				st, err := target.Submit(gctx, game.ScheduleID, game.Telemetry)
				submitted.Add(1)
				switch {
				case err != nil:
					failed.Add(1)
					logger.Get().Warn(gctx, "submission failed", logger.String("scheduleID", game.ScheduleID), logger.Error(err))
				case st.Status == model.StatusSuccess:
					successful.Add(1)
					perSchedule[i].Add(1)
				case st.Status == model.StatusDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
					logger.Get().Warn(gctx, "submission rejected",
						logger.String("scheduleID", game.ScheduleID),
						logger.String("status", st.Status),
						logger.String("message", st.Message))
				}
				if cfg.Verbose {
					logger.Get().Info(gctx, "submitted", logger.String("scheduleID", game.ScheduleID), logger.String("status", st.Status))
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.Submitted = int(submitted.Load())
	stats.Successful = int(successful.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Failed = int(failed.Load())

	for i := range perSchedule {
		if n := perSchedule[i].Load(); n != 1 {
			return fmt.Errorf("schedule %s ingested %d times", games[i].ScheduleID, n)
		}
	}
	return nil
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
