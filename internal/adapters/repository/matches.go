package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/royale/internal/domain/model"
)

// MatchExists reports whether gameID already has a committed match.
func (s *SQLiteStore) MatchExists(ctx context.Context, gameID string) (exists bool, err error) {
	defer func(start time.Time) { observe("match_exists", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM matches WHERE game_id = ?)`, gameID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository.match_exists: %w", err)
	}
	return exists, nil
}

// CommitMatch writes a match and its stat rows atomically.
func (s *SQLiteStore) CommitMatch(ctx context.Context, m model.Match, players []model.PlayerStats, teams []model.TeamStats) (err error) {
	const op = "repository.commit_match"
	defer func(start time.Time) { observe("commit_match", start, err) }(time.Now())

	teamJSON, err := json.Marshal(m.Teams)
	if err != nil {
		return fmt.Errorf("%s: encoding team telemetry: %w", op, err)
	}
	playerJSON, err := json.Marshal(m.Players)
	if err != nil {
		return fmt.Errorf("%s: encoding player telemetry: %w", op, err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches (id, game_id, schedule_id, point_system_id, game_start, game_end,
			team_telemetry, player_telemetry, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.GameID, m.ScheduleID, m.PointSystemID, formatTime(m.GameStart), formatTime(m.GameEnd),
		string(teamJSON), string(playerJSON), formatTime(m.CreatedAt))
	if isUniqueViolation(err) {
		return model.WrapKind(op, model.ErrDuplicate, conflictCause(err, m))
	}
	if err != nil {
		return fmt.Errorf("%s: inserting match: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE schedules SET match_id = ? WHERE id = ?`, m.ID, m.ScheduleID)
	if isUniqueViolation(err) {
		return model.WrapKind(op, model.ErrDuplicate, fmt.Errorf("schedule %q already has a match", m.ScheduleID))
	}
	if err != nil {
		return fmt.Errorf("%s: linking schedule: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.WrapKind(op, model.ErrNotFound, fmt.Errorf("schedule %q", m.ScheduleID))
	}

	if err = upsertStats(ctx, tx, players, teams); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func conflictCause(err error, m model.Match) error {
	if strings.Contains(err.Error(), "matches.schedule_id") {
		return fmt.Errorf("schedule %q already has a match", m.ScheduleID)
	}
	return fmt.Errorf("game %q already ingested", m.GameID)
}

// SaveDerivedStats replaces every stat row of a match in one transaction.
// Rows of other matches are rejected.
func (s *SQLiteStore) SaveDerivedStats(ctx context.Context, matchID string, players []model.PlayerStats, teams []model.TeamStats) (err error) {
	const op = "repository.save_derived_stats"
	defer func(start time.Time) { observe("save_derived_stats", start, err) }(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	for _, p := range players {
		if p.MatchID != matchID {
			return model.WrapKind(op, model.ErrMalformed, fmt.Errorf("player row for match %q saved under %q", p.MatchID, matchID))
		}
	}
	for _, t := range teams {
		if t.MatchID != matchID {
			return model.WrapKind(op, model.ErrMalformed, fmt.Errorf("team row for match %q saved under %q", t.MatchID, matchID))
		}
	}
	for _, table := range []string{"player_stats", "team_stats"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE match_id = ?", matchID); err != nil {
			return fmt.Errorf("%s: clearing %s: %w", op, table, err)
		}
	}
	if err = upsertStats(ctx, tx, players, teams); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetMatch returns a stored match with its telemetry snapshot.
func (s *SQLiteStore) GetMatch(ctx context.Context, id string) (m model.Match, err error) {
	const op = "repository.get_match"
	defer func(start time.Time) { observe("get_match", start, err) }(time.Now())

	var start, end, created sql.NullString
	var teamJSON, playerJSON string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, game_id, schedule_id, point_system_id, game_start, game_end,
			team_telemetry, player_telemetry, created_at
		FROM matches WHERE id = ?
	`, id).Scan(&m.ID, &m.GameID, &m.ScheduleID, &m.PointSystemID, &start, &end, &teamJSON, &playerJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("match %q", id))
	}
	if err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal([]byte(teamJSON), &m.Teams); err != nil {
		return model.Match{}, fmt.Errorf("%s: decoding team telemetry: %w", op, err)
	}
	if err = json.Unmarshal([]byte(playerJSON), &m.Players); err != nil {
		return model.Match{}, fmt.Errorf("%s: decoding player telemetry: %w", op, err)
	}
	m.GameStart = parseTime(start)
	m.GameEnd = parseTime(end)
	m.CreatedAt = parseTime(created)
	return m, nil
}

// CountMatches returns the number of committed matches.
func (s *SQLiteStore) CountMatches(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository.count_matches: %w", err)
	}
	return n, nil
}
