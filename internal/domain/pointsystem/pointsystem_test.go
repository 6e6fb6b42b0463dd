package pointsystem_test

import (
	"errors"
	"testing"

	"github.com/okian/royale/internal/domain/pointsystem"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPointSystem(t *testing.T) {
	Convey("Given a point system", t, func() {
		ps, err := pointsystem.New("ps-1", "pro league", []pointsystem.Entry{
			{Rank: 2, Points: 6},
			{Rank: 1, Points: 10},
			{Rank: 3, Points: 5},
		})
		So(err, ShouldBeNil)

		Convey("When looking up a listed rank", func() {
			Convey("Then it returns the configured points", func() {
				So(ps.Points(1), ShouldEqual, 10)
				So(ps.Points(3), ShouldEqual, 5)
			})
		})

		Convey("When looking up an unlisted or unknown rank", func() {
			Convey("Then it returns zero", func() {
				So(ps.Points(4), ShouldEqual, 0)
				So(ps.Points(0), ShouldEqual, 0)
			})
		})

		Convey("When listing entries", func() {
			Convey("Then they are ordered by rank", func() {
				entries := ps.Entries()
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[2].Rank, ShouldEqual, 3)
			})
		})
	})

	Convey("Given invalid tables", t, func() {
		cases := map[string][]pointsystem.Entry{
			"zero rank":       {{Rank: 0, Points: 1}},
			"negative points": {{Rank: 1, Points: -1}},
			"duplicate rank":  {{Rank: 1, Points: 10}, {Rank: 1, Points: 8}},
		}
		for name, entries := range cases {
			Convey("Rejects "+name, func() {
				_, err := pointsystem.New("ps", "bad", entries)
				So(errors.Is(err, pointsystem.ErrInvalid), ShouldBeTrue)
			})
		}

		Convey("Rejects a missing id", func() {
			_, err := pointsystem.New("", "bad", nil)
			So(errors.Is(err, pointsystem.ErrInvalid), ShouldBeTrue)
		})
	})

	Convey("The default table rewards the winner most", t, func() {
		ps := pointsystem.Default("default")
		So(ps.Points(1), ShouldEqual, 10)
		So(ps.Points(8), ShouldEqual, 1)
		So(ps.Points(9), ShouldEqual, 0)
	})
}
