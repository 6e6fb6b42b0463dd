package roster_test

import (
	"testing"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/roster"
	"github.com/okian/royale/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReconcile(t *testing.T) {
	Convey("Given game and registered rosters", t, func() {
		game := []types.Identity{
			{Name: "Alpha", ID: "100"},
			{Name: "Bravo", ID: " 101"},
			{Name: "Smurf", ID: "999"},
			{Name: "Smurf again", ID: "999"},
		}
		registered := []types.Identity{
			{Name: "Alpha", ID: "100"},
			{Name: "Bravo", ID: "101 "},
			{Name: "Charlie", ID: "102"},
		}

		Convey("When reconciled", func() {
			report := roster.Reconcile(game, registered)

			Convey("Then unregistered game players are reported once", func() {
				So(report.GamePlayersUnmatched, ShouldResemble, []types.Identity{{Name: "Smurf", ID: "999"}})
			})

			Convey("Then registered players missing from the game are reported", func() {
				So(report.DBPlayersUnmatched, ShouldResemble, []types.Identity{{Name: "Charlie", ID: "102"}})
			})

			Convey("Then whitespace differences do not cause mismatches", func() {
				for _, id := range report.GamePlayersUnmatched {
					So(id.ID, ShouldNotEqual, "101")
				}
			})
		})

		Convey("When both sides list the same ids", func() {
			report := roster.Reconcile(registered, registered)

			Convey("Then the report is clean", func() {
				So(report.Clean(), ShouldBeTrue)
				So(report.GamePlayersUnmatched, ShouldNotBeNil)
			})
		})

		Convey("When the registry is empty", func() {
			report := roster.Reconcile(game, nil)

			Convey("Then every distinct game player is unmatched in order", func() {
				So(len(report.GamePlayersUnmatched), ShouldEqual, 3)
				So(report.GamePlayersUnmatched[0].ID, ShouldEqual, "100")
				So(report.GamePlayersUnmatched[2].ID, ShouldEqual, "999")
			})
		})
	})
}

func TestIdentityExtraction(t *testing.T) {
	Convey("Given telemetry and registry players", t, func() {
		tel := []model.PlayerTelemetry{{InGameID: "55", Name: "Delta"}}
		reg := []model.Player{{ID: "p1", Name: "Delta", InGameID: "55"}}

		Convey("Both sides produce the same identity", func() {
			So(roster.FromTelemetry(tel), ShouldResemble, roster.FromPlayers(reg))
		})
	})
}
