package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/pkg/metrics"
)

var counterColumns = []string{
	"kill", "damage", "survival_time", "assists", "knockouts", "rescues",
	"headshots", "grenade_kills", "vehicle_kills", "kill_distance",
	"march_distance", "drive_distance", "swim_distance", "heal",
	"health_items_used", "boosts_used", "airdrops_looted", "frag_grenades",
	"smoke_grenades", "molotovs", "flash_grenades", "damage_taken",
	"outside_zone_time", "knocked_down",
}

func counterValues(c model.Counters) []any {
	return []any{
		c.Kill, c.Damage, c.SurvivalTime, c.Assists, c.Knockouts, c.Rescues,
		c.Headshots, c.GrenadeKills, c.VehicleKills, c.KillDistance,
		c.MarchDistance, c.DriveDistance, c.SwimDistance, c.Heal,
		c.HealthItemsUsed, c.BoostsUsed, c.AirdropsLooted, c.FragGrenades,
		c.SmokeGrenades, c.Molotovs, c.FlashGrenades, c.DamageTaken,
		c.OutsideZoneTime, c.KnockedDown,
	}
}

func counterTargets(c *model.Counters) []any {
	return []any{
		&c.Kill, &c.Damage, &c.SurvivalTime, &c.Assists, &c.Knockouts, &c.Rescues,
		&c.Headshots, &c.GrenadeKills, &c.VehicleKills, &c.KillDistance,
		&c.MarchDistance, &c.DriveDistance, &c.SwimDistance, &c.Heal,
		&c.HealthItemsUsed, &c.BoostsUsed, &c.AirdropsLooted, &c.FragGrenades,
		&c.SmokeGrenades, &c.Molotovs, &c.FlashGrenades, &c.DamageTaken,
		&c.OutsideZoneTime, &c.KnockedDown,
	}
}

// upsertSQL builds an insert that overwrites every non-key column on
// conflict, so re-deriving a match leaves one row per key.
func upsertSQL(table string, keys, extra []string) string {
	cols := append(append(append([]string{}, keys...), extra...), counterColumns...)
	sets := make([]string, 0, len(extra)+len(counterColumns))
	for _, c := range append(append([]string{}, extra...), counterColumns...) {
		sets = append(sets, c+" = excluded."+c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		table, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(keys, ", "), strings.Join(sets, ", "))
}

var (
	playerUpsert = upsertSQL("player_stats", []string{"player_id", "match_id"}, []string{"team_id", "rank"})
	teamUpsert   = upsertSQL("team_stats", []string{"team_id", "match_id"}, []string{"rank"})
)

func upsertStats(ctx context.Context, tx *sql.Tx, players []model.PlayerStats, teams []model.TeamStats) error {
	for _, p := range players {
		args := append([]any{p.PlayerID, p.MatchID, p.TeamID, p.Rank}, counterValues(p.Counters)...)
		if _, err := tx.ExecContext(ctx, playerUpsert, args...); err != nil {
			return fmt.Errorf("upserting player %q: %w", p.PlayerID, err)
		}
	}
	for _, t := range teams {
		args := append([]any{t.TeamID, t.MatchID, t.Rank}, counterValues(t.Counters)...)
		if _, err := tx.ExecContext(ctx, teamUpsert, args...); err != nil {
			return fmt.Errorf("upserting team %q: %w", t.TeamID, err)
		}
	}
	metrics.RecordStatRowsWritten("player", len(players))
	metrics.RecordStatRowsWritten("team", len(teams))
	return nil
}

func prefixed(alias string) string {
	cols := make([]string, len(counterColumns))
	for i, c := range counterColumns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// chronological orders rows by the schedule slot of their match, then by
// ingestion order.
const chronological = "s.ordinal, m.created_at, m.rowid"

// TeamStatsForMatches returns team rows joined with team and match data.
func (s *SQLiteStore) TeamStatsForMatches(ctx context.Context, matchIDs []string) (out []model.TeamStatsRow, err error) {
	const op = "repository.team_stats_for_matches"
	defer func(start time.Time) { observe("team_stats_for_matches", start, err) }(time.Now())

	out = []model.TeamStatsRow{}
	if len(matchIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts.team_id, ts.match_id, ts.rank, t.name, t.disqualified, m.point_system_id, `+prefixed("ts")+`
		FROM team_stats ts
		JOIN teams t ON t.id = ts.team_id
		JOIN matches m ON m.id = ts.match_id
		JOIN schedules s ON s.id = m.schedule_id
		WHERE ts.match_id IN (`+placeholders(len(matchIDs))+`)
		ORDER BY `+chronological+`, ts.team_id
	`, stringArgs(matchIDs)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r model.TeamStatsRow
		dest := append([]any{&r.TeamID, &r.MatchID, &r.Rank, &r.TeamName, &r.Disqualified, &r.PointSystemID},
			counterTargets(&r.Counters)...)
		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PlayerStatsForMatches returns player rows joined with player and team data.
func (s *SQLiteStore) PlayerStatsForMatches(ctx context.Context, matchIDs []string) (out []model.PlayerStatsRow, err error) {
	const op = "repository.player_stats_for_matches"
	defer func(start time.Time) { observe("player_stats_for_matches", start, err) }(time.Now())

	out = []model.PlayerStatsRow{}
	if len(matchIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ps.player_id, ps.match_id, ps.team_id, ps.rank, p.name, p.in_game_id, t.name, `+prefixed("ps")+`
		FROM player_stats ps
		JOIN players p ON p.id = ps.player_id
		JOIN teams t ON t.id = ps.team_id
		JOIN matches m ON m.id = ps.match_id
		JOIN schedules s ON s.id = m.schedule_id
		WHERE ps.match_id IN (`+placeholders(len(matchIDs))+`)
		ORDER BY `+chronological+`, ps.player_id
	`, stringArgs(matchIDs)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r model.PlayerStatsRow
		dest := append([]any{&r.PlayerID, &r.MatchID, &r.TeamID, &r.Rank, &r.PlayerName, &r.InGameID, &r.TeamName},
			counterTargets(&r.Counters)...)
		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
