// Package model contains domain models passed between layers.
package model

import "time"

// Event is a tournament. Its point system scores every match played in it.
type Event struct {
	ID            string
	Name          string
	PointSystemID string
}

// Group is a stage bucket of an event, such as a qualifier lobby.
type Group struct {
	ID      string
	EventID string
	Name    string
}

// Team is a registered roster owner. A disqualified team is excluded from
// aggregated standings.
type Team struct {
	ID           string
	Name         string
	Disqualified bool
}

// Player is a registered participant. InGameID is the identifier the game
// reports in telemetry.
type Player struct {
	ID       string
	Name     string
	InGameID string
	TeamID   string
}

// Schedule is a planned match slot. TeamGroupIDs name the groups whose
// teams play in it; MatchID is empty until a match is committed.
type Schedule struct {
	ID           string
	GroupID      string
	EventID      string
	Ordinal      int
	TeamGroupIDs []string
	MatchID      string
}

// Played reports whether a match has been committed for the schedule.
func (s Schedule) Played() bool {
	return s.MatchID != ""
}

// Match is an ingested game. It records the point system in force at
// ingestion time together with the raw telemetry lists.
type Match struct {
	ID            string
	GameID        string
	ScheduleID    string
	PointSystemID string
	GameStart     time.Time
	GameEnd       time.Time
	Teams         []TeamTelemetry
	Players       []PlayerTelemetry
	CreatedAt     time.Time
}
