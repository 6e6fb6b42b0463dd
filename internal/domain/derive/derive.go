// Package derive turns a game's player list into per-match player and team
// stat rows for the registered roster.
package derive

import "github.com/okian/royale/internal/domain/model"

// Roster is a registered team with its players.
type Roster struct {
	Team    model.Team
	Players []model.Player
}

// Result holds the derived rows for one match.
type Result struct {
	Players []model.PlayerStats
	Teams   []model.TeamStats
}

// Derive matches registered players to telemetry lines by normalized
// in-game id. Telemetry lines without a registered player are skipped. Every
// team yields a TeamStats row even when none of its players played; its rank
// is the best non-zero rank among its matched players.
func Derive(matchID string, rosters []Roster, players []model.PlayerTelemetry) Result {
	byID := make(map[string]model.PlayerTelemetry, len(players))
	for _, p := range players {
		byID[p.InGameID.String()] = p
	}

	res := Result{
		Players: make([]model.PlayerStats, 0, len(players)),
		Teams:   make([]model.TeamStats, 0, len(rosters)),
	}
	seenTeams := make(map[string]struct{}, len(rosters))
	for _, r := range rosters {
		if _, dup := seenTeams[r.Team.ID]; dup {
			continue
		}
		seenTeams[r.Team.ID] = struct{}{}

		team := model.TeamStats{TeamID: r.Team.ID, MatchID: matchID}
		for _, reg := range r.Players {
			line, ok := byID[model.NormalizeID(reg.InGameID)]
			if !ok {
				continue
			}
			counters := line.Counters()
			res.Players = append(res.Players, model.PlayerStats{
				PlayerID: reg.ID,
				MatchID:  matchID,
				TeamID:   r.Team.ID,
				Rank:     line.Rank,
				Counters: counters,
			})
			team.Counters.Add(counters)
			if line.Rank > 0 && (team.Rank == 0 || line.Rank < team.Rank) {
				team.Rank = line.Rank
			}
		}
		res.Teams = append(res.Teams, team)
	}
	return res
}
