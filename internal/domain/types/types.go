// Package types contains the result shapes returned to API callers.
package types

import "github.com/okian/royale/internal/domain/model"

// Status is the outcome of an ingestion or re-derivation request.
type Status = model.IngestStatus

// Identity names a player by display name and in-game id.
type Identity struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// RosterReport lists the players present on only one side of a
// telemetry/registry comparison.
type RosterReport struct {
	GamePlayersUnmatched []Identity `json:"gamePlayersUnmatched"`
	DBPlayersUnmatched   []Identity `json:"dbPlayersUnmatched"`
}

// Clean reports whether both sides matched exactly.
func (r RosterReport) Clean() bool {
	return len(r.GamePlayersUnmatched) == 0 && len(r.DBPlayersUnmatched) == 0
}

// TeamResult is a team's standing over a window of matches.
type TeamResult struct {
	CRank    int    `json:"cRank"`
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
	model.Counters
	PlacePoint    int `json:"placePoint"`
	TotalPoint    int `json:"totalPoint"`
	WWCD          int `json:"wwcd"`
	MatchesPlayed int `json:"matchesPlayed"`
	LastMatchRank int `json:"lastMatchRank"`
}

// PlayerResult is a player's standing over a window of matches.
type PlayerResult struct {
	CRank      int    `json:"cRank"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	InGameID   string `json:"inGameId"`
	TeamID     string `json:"teamId"`
	TeamName   string `json:"teamName"`
	model.Counters
	MatchesPlayed   int     `json:"matchesPlayed"`
	LastMatchRank   int     `json:"lastMatchRank"`
	AvgSurvivalTime float64 `json:"avgSurvivalTime"`
	MVP             float64 `json:"mvp"`
}

// MatchResult carries team and player standings for a match window.
type MatchResult struct {
	Matches       int            `json:"matches"`
	TeamResults   []TeamResult   `json:"teamResults"`
	PlayerResults []PlayerResult `json:"playerResults"`
}

// StarOfMatch holds the highlighted players of a single match.
type StarOfMatch struct {
	GoingAllOut   []PlayerResult `json:"goingAllOut"`
	BestCompanion []PlayerResult `json:"bestCompanion"`
	Finishers     []PlayerResult `json:"finishers"`
}
