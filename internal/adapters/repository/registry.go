package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/pointsystem"
)

// GetEvent returns an event by id.
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (e model.Event, err error) {
	const op = "repository.get_event"
	defer func(start time.Time) { observe("get_event", start, err) }(time.Now())

	var psID sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT id, name, point_system_id FROM events WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &psID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("event %q", id))
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	e.PointSystemID = psID.String
	return e, nil
}

// GetGroup returns a group by id.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (g model.Group, err error) {
	const op = "repository.get_group"
	defer func(start time.Time) { observe("get_group", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx, `SELECT id, event_id, name FROM stage_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.EventID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Group{}, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("group %q", id))
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// GetSchedule returns a schedule with its team groups.
func (s *SQLiteStore) GetSchedule(ctx context.Context, id string) (sc model.Schedule, err error) {
	const op = "repository.get_schedule"
	defer func(start time.Time) { observe("get_schedule", start, err) }(time.Now())

	var matchID sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT id, group_id, event_id, ordinal, match_id FROM schedules WHERE id = ?
	`, id).Scan(&sc.ID, &sc.GroupID, &sc.EventID, &sc.Ordinal, &matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("schedule %q", id))
	}
	if err != nil {
		return model.Schedule{}, fmt.Errorf("%s: %w", op, err)
	}
	sc.MatchID = matchID.String
	if sc.TeamGroupIDs, err = s.scheduleTeamGroups(ctx, sc.ID); err != nil {
		return model.Schedule{}, fmt.Errorf("%s: %w", op, err)
	}
	return sc, nil
}

// SchedulesByGroup returns every schedule owned by groupID.
func (s *SQLiteStore) SchedulesByGroup(ctx context.Context, groupID string) (out []model.Schedule, err error) {
	const op = "repository.schedules_by_group"
	defer func(start time.Time) { observe("schedules_by_group", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, event_id, ordinal, match_id FROM schedules
		WHERE group_id = ? ORDER BY ordinal, id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for rows.Next() {
		var sc model.Schedule
		var matchID sql.NullString
		if err = rows.Scan(&sc.ID, &sc.GroupID, &sc.EventID, &sc.Ordinal, &matchID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sc.MatchID = matchID.String
		out = append(out, sc)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows.Close()

	// The single connection is free again once rows is closed.
	for i := range out {
		if out[i].TeamGroupIDs, err = s.scheduleTeamGroups(ctx, out[i].ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return out, nil
}

func (s *SQLiteStore) scheduleTeamGroups(ctx context.Context, scheduleID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id FROM schedule_team_groups WHERE schedule_id = ? ORDER BY position
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetPointSystem returns a stored point system.
func (s *SQLiteStore) GetPointSystem(ctx context.Context, id string) (ps pointsystem.PointSystem, err error) {
	const op = "repository.get_point_system"
	defer func(start time.Time) { observe("get_point_system", start, err) }(time.Now())

	var name, raw string
	err = s.db.QueryRowContext(ctx, `SELECT name, entries FROM point_systems WHERE id = ?`, id).Scan(&name, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return pointsystem.PointSystem{}, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("point system %q", id))
	}
	if err != nil {
		return pointsystem.PointSystem{}, fmt.Errorf("%s: %w", op, err)
	}
	var entries []pointsystem.Entry
	if err = json.Unmarshal([]byte(raw), &entries); err != nil {
		return pointsystem.PointSystem{}, fmt.Errorf("%s: decoding entries: %w", op, err)
	}
	return pointsystem.New(id, name, entries)
}

// TeamsInGroups returns the distinct teams of the given groups.
func (s *SQLiteStore) TeamsInGroups(ctx context.Context, groupIDs []string) (out []model.Team, err error) {
	const op = "repository.teams_in_groups"
	defer func(start time.Time) { observe("teams_in_groups", start, err) }(time.Now())

	out = []model.Team{}
	if len(groupIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT t.id, t.name, t.disqualified
		FROM teams t JOIN group_teams gt ON gt.team_id = t.id
		WHERE gt.group_id IN (`+placeholders(len(groupIDs))+`)
		ORDER BY t.name, t.id
	`, stringArgs(groupIDs)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t model.Team
		if err = rows.Scan(&t.ID, &t.Name, &t.Disqualified); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PlayersByTeam returns the registered players of a team.
func (s *SQLiteStore) PlayersByTeam(ctx context.Context, teamID string) (out []model.Player, err error) {
	const op = "repository.players_by_team"
	defer func(start time.Time) { observe("players_by_team", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, in_game_id, team_id FROM players WHERE team_id = ? ORDER BY name, id
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out = []model.Player{}
	for rows.Next() {
		var p model.Player
		if err = rows.Scan(&p.ID, &p.Name, &p.InGameID, &p.TeamID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PutPointSystem stores a point system. Point systems are immutable: storing
// a different table under an existing id fails with model.ErrDuplicate.
func (s *SQLiteStore) PutPointSystem(ctx context.Context, ps pointsystem.PointSystem) error {
	const op = "repository.put_point_system"
	raw, err := json.Marshal(ps.Entries())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO point_systems (id, name, entries, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ps.ID, ps.Name, string(raw), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	stored, err := s.GetPointSystem(ctx, ps.ID)
	if err != nil {
		return err
	}
	if !slices.Equal(stored.Entries(), ps.Entries()) {
		return model.WrapKind(op, model.ErrDuplicate, fmt.Errorf("point system %q already stored with a different table", ps.ID))
	}
	return nil
}

// PutEvent creates or updates an event.
func (s *SQLiteStore) PutEvent(ctx context.Context, e model.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, name, point_system_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, point_system_id = excluded.point_system_id
	`, e.ID, e.Name, sql.NullString{String: e.PointSystemID, Valid: e.PointSystemID != ""})
	if err != nil {
		return fmt.Errorf("repository.put_event: %w", err)
	}
	return nil
}

// PutGroup creates or updates a group and replaces its team membership.
func (s *SQLiteStore) PutGroup(ctx context.Context, g model.Group, teamIDs []string) error {
	const op = "repository.put_group"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stage_groups (id, event_id, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET event_id = excluded.event_id, name = excluded.name
	`, g.ID, g.EventID, g.Name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_teams WHERE group_id = ?`, g.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, teamID := range teamIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_teams (group_id, team_id) VALUES (?, ?) ON CONFLICT DO NOTHING
		`, g.ID, teamID); err != nil {
			return fmt.Errorf("%s: team %q: %w", op, teamID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PutTeam creates or updates a team.
func (s *SQLiteStore) PutTeam(ctx context.Context, t model.Team) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, disqualified) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, disqualified = excluded.disqualified
	`, t.ID, t.Name, t.Disqualified)
	if err != nil {
		return fmt.Errorf("repository.put_team: %w", err)
	}
	return nil
}

// PutPlayer creates or updates a player. An in-game id already held by
// another player fails with model.ErrDuplicate.
func (s *SQLiteStore) PutPlayer(ctx context.Context, p model.Player) error {
	const op = "repository.put_player"
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, in_game_id, team_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			in_game_id = excluded.in_game_id,
			team_id = excluded.team_id
	`, p.ID, p.Name, model.NormalizeID(p.InGameID), p.TeamID)
	if isUniqueViolation(err) {
		return model.WrapKind(op, model.ErrDuplicate, fmt.Errorf("in-game id %q already registered", p.InGameID))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PutSchedule creates or updates a schedule and replaces its team groups.
// The match link is never touched here.
func (s *SQLiteStore) PutSchedule(ctx context.Context, sc model.Schedule) error {
	const op = "repository.put_schedule"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schedules (id, group_id, event_id, ordinal) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_id = excluded.group_id,
			event_id = excluded.event_id,
			ordinal = excluded.ordinal
	`, sc.ID, sc.GroupID, sc.EventID, sc.Ordinal); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_team_groups WHERE schedule_id = ?`, sc.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for i, groupID := range sc.TeamGroupIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schedule_team_groups (schedule_id, group_id, position) VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, sc.ID, groupID, i); err != nil {
			return fmt.Errorf("%s: team group %q: %w", op, groupID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
