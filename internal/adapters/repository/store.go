// Package repository persists the tournament registry, ingested matches and
// their derived stat rows.
package repository

import (
	"context"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/pointsystem"
)

// Registry provides read access to the tournament registry.
// Lookups of unknown ids return an error of kind model.ErrNotFound.
type Registry interface {
	GetEvent(ctx context.Context, id string) (model.Event, error)
	GetGroup(ctx context.Context, id string) (model.Group, error)
	GetSchedule(ctx context.Context, id string) (model.Schedule, error)
	// SchedulesByGroup returns the schedules owned by a group, by ordinal.
	SchedulesByGroup(ctx context.Context, groupID string) ([]model.Schedule, error)
	GetPointSystem(ctx context.Context, id string) (pointsystem.PointSystem, error)
	// TeamsInGroups returns the distinct teams that belong to any of the
	// given groups, ordered by name.
	TeamsInGroups(ctx context.Context, groupIDs []string) ([]model.Team, error)
	PlayersByTeam(ctx context.Context, teamID string) ([]model.Player, error)
}

// Seeder writes registry entries. It exists for seeding and tests; the
// registry is otherwise maintained outside this service.
type Seeder interface {
	PutPointSystem(ctx context.Context, ps pointsystem.PointSystem) error
	PutEvent(ctx context.Context, e model.Event) error
	PutGroup(ctx context.Context, g model.Group, teamIDs []string) error
	PutTeam(ctx context.Context, t model.Team) error
	PutPlayer(ctx context.Context, p model.Player) error
	PutSchedule(ctx context.Context, s model.Schedule) error
}

// Store provides read/write access to matches and their stat rows.
type Store interface {
	Registry

	// MatchExists reports whether a match with the external game id exists.
	MatchExists(ctx context.Context, gameID string) (bool, error)
	// CommitMatch inserts the match, links it to its schedule and upserts
	// its stat rows in one transaction. A second match for the same game id
	// or schedule fails with model.ErrDuplicate.
	CommitMatch(ctx context.Context, m model.Match, players []model.PlayerStats, teams []model.TeamStats) error
	// SaveDerivedStats replaces the stat rows of one match, so after it
	// returns the match has exactly the given rows, one per (entity, match).
	SaveDerivedStats(ctx context.Context, matchID string, players []model.PlayerStats, teams []model.TeamStats) error
	GetMatch(ctx context.Context, id string) (model.Match, error)
	// TeamStatsForMatches and PlayerStatsForMatches return the rows of the
	// given matches in match chronological order.
	TeamStatsForMatches(ctx context.Context, matchIDs []string) ([]model.TeamStatsRow, error)
	PlayerStatsForMatches(ctx context.Context, matchIDs []string) ([]model.PlayerStatsRow, error)
	CountMatches(ctx context.Context) (int, error)
}
