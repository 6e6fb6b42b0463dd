// Package pointsystem maps placement ranks to points.
package pointsystem

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrInvalid reports a point system that cannot be used for scoring.
var ErrInvalid = errors.New("invalid point system")

// Entry awards Points to the team placed at Rank.
type Entry struct {
	Rank   int `json:"rank" yaml:"rank"`
	Points int `json:"points" yaml:"points"`
}

// PointSystem is an immutable rank to points table. Ranks it does not list
// are worth zero.
type PointSystem struct {
	ID      string
	Name    string
	entries []Entry
	byRank  map[int]int
}

// New validates entries and builds a point system. Ranks must be positive
// and unique; points must not be negative.
func New(id, name string, entries []Entry) (PointSystem, error) {
	if id == "" {
		return PointSystem{}, fmt.Errorf("%w: missing id", ErrInvalid)
	}
	byRank := make(map[int]int, len(entries))
	for _, e := range entries {
		if e.Rank < 1 {
			return PointSystem{}, fmt.Errorf("%w: rank %d", ErrInvalid, e.Rank)
		}
		if e.Points < 0 {
			return PointSystem{}, fmt.Errorf("%w: negative points for rank %d", ErrInvalid, e.Rank)
		}
		if _, dup := byRank[e.Rank]; dup {
			return PointSystem{}, fmt.Errorf("%w: rank %d listed twice", ErrInvalid, e.Rank)
		}
		byRank[e.Rank] = e.Points
	}
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b Entry) int { return cmp.Compare(a.Rank, b.Rank) })
	return PointSystem{ID: id, Name: name, entries: sorted, byRank: byRank}, nil
}

// Points returns the placement points for rank, or zero when unlisted.
func (p PointSystem) Points(rank int) int {
	return p.byRank[rank]
}

// Entries returns the table ordered by rank.
func (p PointSystem) Entries() []Entry {
	return slices.Clone(p.entries)
}

// Default is a common battle royale table: ten points for the win down to
// one point for seventh and eighth.
func Default(id string) PointSystem {
	ps, _ := New(id, "default", []Entry{
		{Rank: 1, Points: 10},
		{Rank: 2, Points: 6},
		{Rank: 3, Points: 5},
		{Rank: 4, Points: 4},
		{Rank: 5, Points: 3},
		{Rank: 6, Points: 2},
		{Rank: 7, Points: 1},
		{Rank: 8, Points: 1},
	})
	return ps
}
