// Package scoring folds per-match stat rows into ranked team and player
// leaderboards.
package scoring

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/pointsystem"
	"github.com/okian/royale/internal/domain/types"
)

// Default MVP share weights.
const (
	defaultSurvivalWeight = 0.2
	defaultDamageWeight   = 0.3
	defaultKillWeight     = 0.5
	weightTolerance       = 1e-9
)

// ErrInvalidWeights reports MVP weights that are negative or do not sum to one.
var ErrInvalidWeights = errors.New("invalid mvp weights")

// Weights splits the MVP score between a player's share of survival time,
// damage and kills.
type Weights struct {
	Survival float64 `koanf:"survival"`
	Damage   float64 `koanf:"damage"`
	Kill     float64 `koanf:"kill"`
}

// DefaultWeights returns 0.2 survival, 0.3 damage, 0.5 kill.
func DefaultWeights() Weights {
	return Weights{Survival: defaultSurvivalWeight, Damage: defaultDamageWeight, Kill: defaultKillWeight}
}

// Validate checks the weights are non-negative and sum to one.
func (w Weights) Validate() error {
	if w.Survival < 0 || w.Damage < 0 || w.Kill < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidWeights)
	}
	if sum := w.Survival + w.Damage + w.Kill; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %g", ErrInvalidWeights, sum)
	}
	return nil
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights sets the MVP weights. Invalid weights are ignored.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w.Validate() == nil {
			e.weights = w
		}
	}
}

// Engine aggregates stat rows. It holds no state between calls.
type Engine struct {
	weights Weights
}

// NewEngine creates an engine with default weights unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the MVP weights in use.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Aggregate builds team and player leaderboards over the same window of
// matches. Rows must be supplied in match chronological order.
func (e *Engine) Aggregate(teams []model.TeamStatsRow, players []model.PlayerStatsRow, systems map[string]pointsystem.PointSystem) (types.MatchResult, error) {
	teamResults, err := e.Teams(teams, systems)
	if err != nil {
		return types.MatchResult{}, err
	}
	matches := make(map[string]struct{})
	for _, r := range teams {
		matches[r.MatchID] = struct{}{}
	}
	for _, r := range players {
		matches[r.MatchID] = struct{}{}
	}
	return types.MatchResult{
		Matches:       len(matches),
		TeamResults:   teamResults,
		PlayerResults: e.Players(players),
	}, nil
}

// Teams folds team rows into a ranked leaderboard. Disqualified teams are
// skipped. Each row is scored with the point system its match references;
// a reference missing from systems is a NotFound error.
func (e *Engine) Teams(rows []model.TeamStatsRow, systems map[string]pointsystem.PointSystem) ([]types.TeamResult, error) {
	const op = "scoring.teams"
	index := make(map[string]int)
	out := []types.TeamResult{}
	for _, r := range rows {
		if r.Disqualified {
			continue
		}
		ps, ok := systems[r.PointSystemID]
		if !ok {
			return nil, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("point system %q", r.PointSystemID))
		}
		i, ok := index[r.TeamID]
		if !ok {
			i = len(out)
			index[r.TeamID] = i
			out = append(out, types.TeamResult{TeamID: r.TeamID, TeamName: r.TeamName})
		}
		t := &out[i]
		t.Counters.Add(r.Counters)
		t.PlacePoint += ps.Points(r.Rank)
		t.TotalPoint = t.PlacePoint + t.Kill
		if r.Rank == 1 {
			t.WWCD++
		}
		t.MatchesPlayed++
		t.LastMatchRank = r.Rank
	}

	slices.SortStableFunc(out, compareTeams)
	for i := range out {
		out[i].CRank = i + 1
	}
	return out, nil
}

func compareTeams(a, b types.TeamResult) int {
	if c := cmp.Compare(b.TotalPoint, a.TotalPoint); c != 0 {
		return c
	}
	if c := cmp.Compare(b.WWCD, a.WWCD); c != 0 {
		return c
	}
	if c := cmp.Compare(b.PlacePoint, a.PlacePoint); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Kill, a.Kill); c != 0 {
		return c
	}
	if a.LastMatchRank != 0 && b.LastMatchRank != 0 {
		if c := cmp.Compare(a.LastMatchRank, b.LastMatchRank); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(a.MatchesPlayed, b.MatchesPlayed); c != 0 {
		return c
	}
	return cmp.Compare(a.TeamName, b.TeamName)
}

// Players folds player rows into a ranked leaderboard with MVP scores.
// Disqualification is not applied to players.
func (e *Engine) Players(rows []model.PlayerStatsRow) []types.PlayerResult {
	index := make(map[string]int)
	out := []types.PlayerResult{}
	var totalSurvival, totalDamage float64
	var totalKill int
	for _, r := range rows {
		i, ok := index[r.PlayerID]
		if !ok {
			i = len(out)
			index[r.PlayerID] = i
			out = append(out, types.PlayerResult{
				PlayerID:   r.PlayerID,
				PlayerName: r.PlayerName,
				InGameID:   r.InGameID,
				TeamID:     r.TeamID,
				TeamName:   r.TeamName,
			})
		}
		p := &out[i]
		p.Counters.Add(r.Counters)
		p.MatchesPlayed++
		p.LastMatchRank = r.Rank

		totalSurvival += r.Counters.SurvivalTime
		totalDamage += r.Counters.Damage
		totalKill += r.Counters.Kill
	}

	for i := range out {
		p := &out[i]
		p.AvgSurvivalTime = p.SurvivalTime / float64(p.MatchesPlayed)
		mvp := e.weights.Survival*share(p.SurvivalTime, totalSurvival) +
			e.weights.Damage*share(p.Damage, totalDamage) +
			e.weights.Kill*share(float64(p.Kill), float64(totalKill))
		p.MVP = round2(100 * mvp)
	}

	slices.SortStableFunc(out, comparePlayers)
	for i := range out {
		out[i].CRank = i + 1
	}
	return out
}

func comparePlayers(a, b types.PlayerResult) int {
	if c := cmp.Compare(b.MVP, a.MVP); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Kill, a.Kill); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Damage, a.Damage); c != 0 {
		return c
	}
	if c := cmp.Compare(b.SurvivalTime, a.SurvivalTime); c != 0 {
		return c
	}
	if c := cmp.Compare(a.PlayerName, b.PlayerName); c != 0 {
		return c
	}
	return cmp.Compare(a.PlayerID, b.PlayerID)
}

// share is part/total, or zero when nothing was recorded in the window.
func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
