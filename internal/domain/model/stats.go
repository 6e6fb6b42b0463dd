package model

// PlayerStats is one player's derived line for one match.
type PlayerStats struct {
	PlayerID string
	MatchID  string
	TeamID   string
	Rank     int
	Counters Counters
}

// TeamStats is one team's derived line for one match. Rank is the best
// placement among its players.
type TeamStats struct {
	TeamID   string
	MatchID  string
	Rank     int
	Counters Counters
}

// PlayerStatsRow is a stored player line joined with the registry data the
// aggregation needs.
type PlayerStatsRow struct {
	PlayerStats
	PlayerName string
	InGameID   string
	TeamName   string
}

// TeamStatsRow is a stored team line joined with its team and the point
// system of its match.
type TeamStatsRow struct {
	TeamStats
	TeamName      string
	Disqualified  bool
	PointSystemID string
}
