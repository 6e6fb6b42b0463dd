// Package report renders standings and roster checks as terminal tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/okian/royale/internal/domain/types"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintMatchResult writes the team standings followed by the player
// standings.
func PrintMatchResult(w io.Writer, res types.MatchResult) error {
	fmt.Fprintf(w, "\nMatches: %d\n\n", res.Matches)
	if err := PrintTeams(w, res.TeamResults); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return PrintPlayers(w, res.PlayerResults)
}

// PrintTeams writes one row per team in standing order.
func PrintTeams(w io.Writer, teams []types.TeamResult) error {
	table := newTable(w)
	table.Header("#", "TEAM", "PLACE", "KILLS", "TOTAL", "WWCD", "PLAYED", "LAST", "DAMAGE")
	for _, t := range teams {
		err := table.Append(
			strconv.Itoa(t.CRank),
			t.TeamName,
			strconv.Itoa(t.PlacePoint),
			strconv.Itoa(t.Kill),
			strconv.Itoa(t.TotalPoint),
			strconv.Itoa(t.WWCD),
			strconv.Itoa(t.MatchesPlayed),
			strconv.Itoa(t.LastMatchRank),
			fmt.Sprintf("%.0f", t.Damage),
		)
		if err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintPlayers writes one row per player in MVP order.
func PrintPlayers(w io.Writer, players []types.PlayerResult) error {
	table := newTable(w)
	table.Header("#", "PLAYER", "IN-GAME ID", "TEAM", "K", "DMG", "AVG SURV", "RESCUES", "MVP")
	for _, p := range players {
		err := table.Append(
			strconv.Itoa(p.CRank),
			p.PlayerName,
			p.InGameID,
			p.TeamName,
			strconv.Itoa(p.Kill),
			fmt.Sprintf("%.0f", p.Damage),
			fmt.Sprintf("%.1f", p.AvgSurvivalTime),
			strconv.Itoa(p.Rescues),
			fmt.Sprintf("%.2f", p.MVP),
		)
		if err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintStars writes the award winners of a match. An award without a
// winner is shown with a dash.
func PrintStars(w io.Writer, s types.StarOfMatch) error {
	table := newTable(w)
	table.Header("AWARD", "PLAYER", "TEAM", "VALUE")
	awards := []struct {
		name    string
		winners []types.PlayerResult
		value   func(types.PlayerResult) string
	}{
		{"Going all out", s.GoingAllOut, func(p types.PlayerResult) string { return strconv.Itoa(p.Kill) + " kills" }},
		{"Best companion", s.BestCompanion, func(p types.PlayerResult) string { return strconv.Itoa(p.Rescues) + " rescues" }},
		{"Finisher", s.Finishers, func(p types.PlayerResult) string { return "rank " + strconv.Itoa(p.LastMatchRank) }},
	}
	for _, a := range awards {
		if len(a.winners) == 0 {
			if err := table.Append(a.name, "-", "-", "-"); err != nil {
				return err
			}
			continue
		}
		for _, p := range a.winners {
			if err := table.Append(a.name, p.PlayerName, p.TeamName, a.value(p)); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

// PrintRosterReport writes the players found on only one side of a roster
// check, or a single line when both sides match.
func PrintRosterReport(w io.Writer, r types.RosterReport) error {
	if r.Clean() {
		_, err := fmt.Fprintln(w, "roster matches: every player is registered")
		return err
	}
	table := newTable(w)
	table.Header("SIDE", "NAME", "ID")
	for _, p := range r.GamePlayersUnmatched {
		if err := table.Append("telemetry only", p.Name, p.ID); err != nil {
			return err
		}
	}
	for _, p := range r.DBPlayersUnmatched {
		if err := table.Append("registry only", p.Name, p.ID); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintStatus writes an ingestion outcome as a single line.
func PrintStatus(w io.Writer, label string, st types.Status) error {
	_, err := fmt.Fprintf(w, "%s: %s (%s)\n", label, st.Status, st.Message)
	return err
}
