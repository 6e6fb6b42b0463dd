// Package loadtest drives a synthetic tournament through the ingestion path
// and checks the resulting standings against locally computed totals.
package loadtest

import (
	"runtime"
	"time"
)

// Config holds the shape of the generated tournament and the submission
// concurrency.
type Config struct {
	BaseURL        string        // server to submit to; empty runs in-process
	Teams          int           // teams in the single lobby
	PlayersPerTeam int           // players registered per team
	Matches        int           // schedules played
	Duplicates     int           // extra concurrent copies of every submission
	Workers        int           // concurrent submitters
	Timeout        time.Duration // per-request timeout
	Seed           uint64        // random source seed; zero picks one from the clock
	Verbose        bool          // log every submission outcome
}

// DefaultConfig returns a small tournament that finishes in seconds.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "",
		Teams:          16,
		PlayersPerTeam: 4,
		Matches:        6,
		Duplicates:     2,
		Workers:        runtime.NumCPU() * workerMultiplier,
		Timeout:        30 * time.Second,
	}
}

// Stats summarises a run.
type Stats struct {
	MatchesGenerated int
	Submitted        int
	Successful       int
	Duplicate        int
	Failed           int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

const (
	workerMultiplier     = 2
	percentageMultiplier = 100
)
