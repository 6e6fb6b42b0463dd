// Package awards picks the highlighted players of a single match.
package awards

import "github.com/okian/royale/internal/domain/types"

// StarOfMatch selects from a single-match player leaderboard:
//   - goingAllOut: every player tied at the most kills
//   - bestCompanion: every player tied at the most rescues
//   - finishers: every player whose placement in the match was first
//
// A category whose best value is zero is empty. Leaderboard order is kept.
// Over one match LastMatchRank is the player's placement rank, so the
// finishers are the winning team.
func StarOfMatch(players []types.PlayerResult) types.StarOfMatch {
	star := types.StarOfMatch{
		GoingAllOut:   tiedAtMax(players, func(p types.PlayerResult) float64 { return float64(p.Kill) }),
		BestCompanion: tiedAtMax(players, func(p types.PlayerResult) float64 { return float64(p.Rescues) }),
		Finishers:     []types.PlayerResult{},
	}
	for _, p := range players {
		if p.LastMatchRank == 1 {
			star.Finishers = append(star.Finishers, p)
		}
	}
	return star
}

func tiedAtMax(players []types.PlayerResult, value func(types.PlayerResult) float64) []types.PlayerResult {
	var best float64
	for _, p := range players {
		best = max(best, value(p))
	}
	out := []types.PlayerResult{}
	if best == 0 {
		return out
	}
	for _, p := range players {
		if value(p) == best {
			out = append(out, p)
		}
	}
	return out
}
