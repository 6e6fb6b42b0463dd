package loadtest

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/pointsystem"
	"github.com/okian/royale/internal/seed"
)

const (
	maxKillsPerPlayer   = 6
	damagePerKill       = 100
	extraDamageRange    = 250
	matchLengthSeconds  = 1800
	survivalJitterRange = 120
)

// Tournament is a generated registry plus one telemetry payload per
// schedule.
type Tournament struct {
	RunID       string
	GroupID     string
	Registry    *seed.File
	PointSystem pointsystem.PointSystem
	Games       []Game
}

// Game pairs a schedule with the telemetry played in it.
type Game struct {
	ScheduleID string
	Telemetry  model.Telemetry
}

// Generate builds a tournament with unique ids so repeated runs can share
// a database.
func Generate(cfg Config) (*Tournament, error) {
	if cfg.Teams < 1 || cfg.PlayersPerTeam < 1 || cfg.Matches < 1 {
		return nil, fmt.Errorf("teams, players per team and matches must be positive")
	}
	seedValue := cfg.Seed
	if seedValue == 0 {
		seedValue = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seedValue, seedValue>>1|1))

	runID := uuid.NewString()[:8]
	prefix := "lt-" + runID + "-"
	ps := pointsystem.Default(prefix + "ps")

	reg := &seed.File{
		PointSystems: []seed.PointSystem{{ID: ps.ID, Name: ps.Name, Entries: ps.Entries()}},
		Events:       []seed.Event{{ID: prefix + "ev", Name: "Load test " + runID, PointSystem: ps.ID}},
	}
	group := seed.Group{ID: prefix + "g1", Event: prefix + "ev", Name: "Lobby"}
	for t := range cfg.Teams {
		team := seed.Team{ID: prefix + "t" + strconv.Itoa(t+1), Name: fmt.Sprintf("Team %02d", t+1)}
		for p := range cfg.PlayersPerTeam {
			id := team.ID + "-p" + strconv.Itoa(p+1)
			team.Players = append(team.Players, seed.Player{ID: id, Name: fmt.Sprintf("Player %02d-%d", t+1, p+1), InGameID: id})
		}
		reg.Teams = append(reg.Teams, team)
		group.Teams = append(group.Teams, team.ID)
	}
	reg.Groups = []seed.Group{group}

	base := time.Now().UTC().Truncate(time.Second)
	games := make([]Game, cfg.Matches)
	for m := range cfg.Matches {
		scheduleID := prefix + "s" + strconv.Itoa(m+1)
		reg.Schedules = append(reg.Schedules, seed.Schedule{ID: scheduleID, Group: group.ID, Ordinal: m + 1})
		start := base.Add(time.Duration(m) * time.Hour)
		games[m] = Game{
			ScheduleID: scheduleID,
			Telemetry:  generateGame(rng, prefix+"game-"+strconv.Itoa(m+1), start, reg.Teams),
		}
	}

	return &Tournament{RunID: runID, GroupID: group.ID, Registry: reg, PointSystem: ps, Games: games}, nil
}

// generateGame places teams in a random order. Every player of a team
// shares its placement; lower placements survive for less time.
func generateGame(rng *rand.Rand, gameID string, start time.Time, teams []seed.Team) model.Telemetry {
	order := rng.Perm(len(teams))
	tel := model.Telemetry{
		GameID:    model.ID(gameID),
		GameStart: model.Timestamp{Time: start},
		GameEnd:   model.Timestamp{Time: start.Add(matchLengthSeconds * time.Second)},
	}
	for rankIdx, teamIdx := range order {
		team := teams[teamIdx]
		rank := rankIdx + 1
		teamKills := 0
		for _, p := range team.Players {
			kills := rng.IntN(maxKillsPerPlayer)
			teamKills += kills
			survival := float64(matchLengthSeconds) * float64(len(teams)-rankIdx) / float64(len(teams))
			tel.Players = append(tel.Players, model.PlayerTelemetry{
				InGameID:     model.ID(p.InGameID),
				Name:         p.Name,
				TeamName:     team.Name,
				Rank:         rank,
				Kill:         kills,
				Damage:       float64(kills*damagePerKill + rng.IntN(extraDamageRange)),
				SurvivalTime: max(0, survival-float64(rng.IntN(survivalJitterRange))),
				Rescues:      rng.IntN(3),
				Headshots:    rng.IntN(kills + 1),
			})
		}
		tel.Teams = append(tel.Teams, model.TeamTelemetry{TeamName: team.Name, Kill: teamKills})
	}
	return tel
}

// ExpectedTotals computes each team's total points (placement plus kills)
// over the given games.
func (t *Tournament) ExpectedTotals(games []Game) map[string]int {
	teamOf := make(map[string]string)
	for _, team := range t.Registry.Teams {
		for _, p := range team.Players {
			teamOf[p.InGameID] = team.ID
		}
	}
	totals := make(map[string]int, len(t.Registry.Teams))
	for _, g := range games {
		placed := make(map[string]bool)
		for _, p := range g.Telemetry.Players {
			teamID := teamOf[string(p.InGameID)]
			totals[teamID] += p.Kill
			if !placed[teamID] {
				placed[teamID] = true
				totals[teamID] += t.PointSystem.Points(p.Rank)
			}
		}
	}
	return totals
}
