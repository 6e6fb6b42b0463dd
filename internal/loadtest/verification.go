package loadtest

import (
	"fmt"

	"github.com/okian/royale/internal/domain/types"
)

// Verify checks fetched standings against the totals computed from the
// generated games: every team present, totals equal, rows ordered by total
// and one chicken dinner per match.
func Verify(t *Tournament, res types.MatchResult) error {
	if res.Matches != len(t.Games) {
		return fmt.Errorf("standings cover %d matches, want %d", res.Matches, len(t.Games))
	}
	if len(res.TeamResults) != len(t.Registry.Teams) {
		return fmt.Errorf("standings list %d teams, want %d", len(res.TeamResults), len(t.Registry.Teams))
	}

	want := t.ExpectedTotals(t.Games)
	wins := 0
	for i, tr := range res.TeamResults {
		if tr.TotalPoint != want[tr.TeamID] {
			return fmt.Errorf("team %s has %d points, want %d", tr.TeamID, tr.TotalPoint, want[tr.TeamID])
		}
		if tr.TotalPoint != tr.PlacePoint+tr.Kill {
			return fmt.Errorf("team %s total %d is not place %d plus kills %d", tr.TeamID, tr.TotalPoint, tr.PlacePoint, tr.Kill)
		}
		if i > 0 && res.TeamResults[i-1].TotalPoint < tr.TotalPoint {
			return fmt.Errorf("standings not ordered: rank %d has fewer points than rank %d", i, i+1)
		}
		if tr.CRank != i+1 {
			return fmt.Errorf("team %s at position %d has rank %d", tr.TeamID, i+1, tr.CRank)
		}
		wins += tr.WWCD
	}
	if wins != len(t.Games) {
		return fmt.Errorf("%d wins recorded over %d matches", wins, len(t.Games))
	}
	return nil
}
