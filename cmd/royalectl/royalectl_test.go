package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const seedDoc = `
point_systems:
  - id: ps
    name: top two
    entries: [{rank: 1, points: 10}, {rank: 2, points: 6}]
events:
  - {id: ev, name: Cup, point_system: ps}
teams:
  - id: t1
    name: Wolves
    players: [{id: p1, name: Alpha, in_game_id: "100"}]
  - id: t2
    name: Ghosts
    players: [{id: p2, name: Charlie, in_game_id: "200"}]
groups:
  - {id: g1, event: ev, name: Lobby, teams: [t1, t2]}
schedules:
  - {id: s1, group: g1, ordinal: 1}
  - {id: s2, group: g1, ordinal: 2}
`

const gameOne = `{"GameID": "game-1", "TotalPlayerList": [
  {"uId": "100", "playerName": "Alpha", "rank": 1, "killNum": 3, "damage": 300, "survivalTime": 1500, "rescueTimes": 1},
  {"uId": 200, "playerName": "Charlie", "rank": 2, "killNum": 1, "damage": 120, "survivalTime": 900}
]}`

const gameTwo = `{"GameID": "game-2", "TotalPlayerList": [
  {"uId": "200", "playerName": "Charlie", "rank": 1, "killNum": 2, "damage": 250, "survivalTime": 1600},
  {"uId": "100", "playerName": "Alpha", "rank": 2, "damage": 80, "survivalTime": 700}
]}`

// resetFlags restores every flag of the command tree so consecutive
// executions do not leak values into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	convey.So(os.WriteFile(path, []byte(content), 0o600), convey.ShouldBeNil)
	return path
}

func TestRoyalectl(t *testing.T) {
	convey.Convey("Given a seeded database", t, func() {
		dir := t.TempDir()
		db := filepath.Join(dir, "royale.db")
		out, err := execute("seed", writeFile(dir, "seed.yaml", seedDoc), "--db", db)
		convey.So(err, convey.ShouldBeNil)
		convey.So(out, convey.ShouldContainSubstring, "2 teams, 2 players, 1 groups, 2 schedules")

		one := writeFile(dir, "one.json", gameOne)

		convey.Convey("When a telemetry file is validated", func() {
			out, err := execute("validate", one, "--schedule", "s1", "--db", db)

			convey.Convey("Then the rosters match", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "roster matches")
			})
		})

		convey.Convey("When a match is ingested twice", func() {
			first, err := execute("ingest", one, "--schedule", "s1", "--db", db)
			convey.So(err, convey.ShouldBeNil)
			second, dupErr := execute("ingest", one, "--schedule", "s1", "--db", db)

			convey.Convey("Then the second attempt is a duplicate", func() {
				convey.So(first, convey.ShouldContainSubstring, "s1: success")
				convey.So(dupErr, convey.ShouldNotBeNil)
				convey.So(second, convey.ShouldContainSubstring, "duplicate")
			})

			convey.Convey("Then the schedule result and stars print", func() {
				res, err := execute("result", "--schedule", "s1", "--db", db)
				convey.So(err, convey.ShouldBeNil)
				convey.So(res, convey.ShouldContainSubstring, "Wolves")

				stars, err := execute("stars", "--schedule", "s1", "--db", db)
				convey.So(err, convey.ShouldBeNil)
				convey.So(stars, convey.ShouldContainSubstring, "Alpha")
			})

			convey.Convey("Then it can be re-derived", func() {
				out, err := execute("rederive", "--schedule", "s1", "--db", db)
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "success")
			})
		})

		convey.Convey("When a directory is backfilled", func() {
			games := filepath.Join(dir, "games")
			convey.So(os.Mkdir(games, 0o750), convey.ShouldBeNil)
			writeFile(games, "s1.json", gameOne)
			writeFile(games, "s2.json", gameTwo)
			out, err := execute("backfill", games, "--db", db)

			convey.Convey("Then both schedules are ingested and the group ranks them", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "s1: success")
				convey.So(out, convey.ShouldContainSubstring, "s2: success")

				res, err := execute("result", "--group", "g1", "--db", db)
				convey.So(err, convey.ShouldBeNil)
				convey.So(res, convey.ShouldContainSubstring, "Matches: 2")
			})
		})

		convey.Convey("When result gets both selectors", func() {
			_, err := execute("result", "--schedule", "s1", "--group", "g1", "--db", db)

			convey.Convey("Then cobra rejects the combination", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When an in-process load test runs", func() {
			out, err := execute("loadtest", "--teams", "3", "--players", "2", "--matches", "2", "--duplicates", "1", "--seed", "7", "--db", db)

			convey.Convey("Then it reports every submission", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "2 matches, 4 submissions: 2 ingested, 2 duplicate, 0 failed")
			})
		})
	})
}
