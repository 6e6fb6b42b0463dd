// Package seed loads a tournament registry from a YAML document and writes
// it through a repository.Seeder.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/royale/internal/adapters/repository"
	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/pointsystem"
)

// File is the seed document.
type File struct {
	PointSystems []PointSystem `yaml:"point_systems"`
	Events       []Event       `yaml:"events"`
	Teams        []Team        `yaml:"teams"`
	Groups       []Group       `yaml:"groups"`
	Schedules    []Schedule    `yaml:"schedules"`
}

// PointSystem is a rank to points table.
type PointSystem struct {
	ID      string              `yaml:"id"`
	Name    string              `yaml:"name"`
	Entries []pointsystem.Entry `yaml:"entries"`
}

// Event names the point system its matches are scored with.
type Event struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	PointSystem string `yaml:"point_system"`
}

// Team carries its players inline.
type Team struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Disqualified bool     `yaml:"disqualified"`
	Players      []Player `yaml:"players"`
}

// Player is a registered participant of the enclosing team.
type Player struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	InGameID string `yaml:"in_game_id"`
}

// Group lists the teams playing in it.
type Group struct {
	ID    string   `yaml:"id"`
	Event string   `yaml:"event"`
	Name  string   `yaml:"name"`
	Teams []string `yaml:"teams"`
}

// Schedule is a match slot. Event defaults to the owning group's event and
// TeamGroups defaults to the owning group.
type Schedule struct {
	ID         string   `yaml:"id"`
	Group      string   `yaml:"group"`
	Event      string   `yaml:"event"`
	Ordinal    int      `yaml:"ordinal"`
	TeamGroups []string `yaml:"team_groups"`
}

// Summary counts what Apply wrote.
type Summary struct {
	PointSystems int
	Events       int
	Teams        int
	Players      int
	Groups       int
	Schedules    int
}

// LoadFile reads and decodes a seed document from path.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a seed document. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	const op = "seed.decode"
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, model.WrapKind(op, model.ErrMalformed, err)
	}
	return &f, nil
}

// Validate checks the references inside the document. Entries may refer to
// ids already stored, so only ids missing from both are caught at Apply.
func (f *File) Validate() error {
	const op = "seed.validate"
	groupEvent := make(map[string]string, len(f.Groups))
	for _, g := range f.Groups {
		groupEvent[g.ID] = g.Event
	}
	checks := []struct {
		kind string
		ids  []string
	}{
		{"point system", collect(f.PointSystems, func(p PointSystem) string { return p.ID })},
		{"event", collect(f.Events, func(e Event) string { return e.ID })},
		{"team", collect(f.Teams, func(t Team) string { return t.ID })},
		{"group", collect(f.Groups, func(g Group) string { return g.ID })},
		{"schedule", collect(f.Schedules, func(s Schedule) string { return s.ID })},
	}
	for _, c := range checks {
		seen := make(map[string]struct{}, len(c.ids))
		for i, id := range c.ids {
			if strings.TrimSpace(id) == "" {
				return model.WrapKind(op, model.ErrMalformed, fmt.Errorf("%s #%d has no id", c.kind, i+1))
			}
			if _, dup := seen[id]; dup {
				return model.WrapKind(op, model.ErrMalformed, fmt.Errorf("%s %q listed twice", c.kind, id))
			}
			seen[id] = struct{}{}
		}
	}
	inGame := make(map[string]string)
	for _, t := range f.Teams {
		for _, p := range t.Players {
			if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.InGameID) == "" {
				return model.WrapKind(op, model.ErrMalformed, fmt.Errorf("team %q has a player without id or in_game_id", t.ID))
			}
			if other, dup := inGame[p.InGameID]; dup {
				return model.WrapKind(op, model.ErrMalformed, fmt.Errorf("in-game id %q used by %q and %q", p.InGameID, other, p.ID))
			}
			inGame[p.InGameID] = p.ID
		}
	}
	for _, s := range f.Schedules {
		if s.Group == "" {
			return model.WrapKind(op, model.ErrMalformed, fmt.Errorf("schedule %q has no group", s.ID))
		}
		if s.Event == "" && groupEvent[s.Group] == "" {
			return model.WrapKind(op, model.ErrMalformed, fmt.Errorf("schedule %q has no event", s.ID))
		}
	}
	return nil
}

// Apply validates the document and writes it in dependency order: point
// systems, events, teams with their players, groups, schedules.
func Apply(ctx context.Context, s repository.Seeder, f *File) (Summary, error) {
	var sum Summary
	if err := f.Validate(); err != nil {
		return sum, err
	}

	for _, p := range f.PointSystems {
		ps, err := pointsystem.New(p.ID, p.Name, p.Entries)
		if err != nil {
			return sum, model.WrapKind("seed.point_system", model.ErrMalformed, err)
		}
		if err := s.PutPointSystem(ctx, ps); err != nil {
			return sum, fmt.Errorf("point system %q: %w", p.ID, err)
		}
		sum.PointSystems++
	}
	for _, e := range f.Events {
		if err := s.PutEvent(ctx, model.Event{ID: e.ID, Name: e.Name, PointSystemID: e.PointSystem}); err != nil {
			return sum, fmt.Errorf("event %q: %w", e.ID, err)
		}
		sum.Events++
	}
	for _, t := range f.Teams {
		if err := s.PutTeam(ctx, model.Team{ID: t.ID, Name: t.Name, Disqualified: t.Disqualified}); err != nil {
			return sum, fmt.Errorf("team %q: %w", t.ID, err)
		}
		sum.Teams++
		for _, p := range t.Players {
			if err := s.PutPlayer(ctx, model.Player{ID: p.ID, Name: p.Name, InGameID: p.InGameID, TeamID: t.ID}); err != nil {
				return sum, fmt.Errorf("player %q: %w", p.ID, err)
			}
			sum.Players++
		}
	}
	groupEvent := make(map[string]string, len(f.Groups))
	for _, g := range f.Groups {
		if err := s.PutGroup(ctx, model.Group{ID: g.ID, EventID: g.Event, Name: g.Name}, g.Teams); err != nil {
			return sum, fmt.Errorf("group %q: %w", g.ID, err)
		}
		groupEvent[g.ID] = g.Event
		sum.Groups++
	}
	for _, sc := range f.Schedules {
		event := sc.Event
		if event == "" {
			event = groupEvent[sc.Group]
		}
		teamGroups := sc.TeamGroups
		if len(teamGroups) == 0 {
			teamGroups = []string{sc.Group}
		}
		err := s.PutSchedule(ctx, model.Schedule{
			ID:           sc.ID,
			GroupID:      sc.Group,
			EventID:      event,
			Ordinal:      sc.Ordinal,
			TeamGroupIDs: teamGroups,
		})
		if err != nil {
			return sum, fmt.Errorf("schedule %q: %w", sc.ID, err)
		}
		sum.Schedules++
	}
	return sum, nil
}

func collect[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}
