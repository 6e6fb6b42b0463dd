package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/royale/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

const sampleTelemetry = `{
	"GameID": 7312345678901234567,
	"GameStartTime": "2024-05-04 18:30:00",
	"GameEndTime": 1714848600,
	"TotalPlayerList": [
		{"uId": " 5123 ", "playerName": "Alpha", "teamId": 1, "rank": 1, "killNum": 6, "damage": 812.5, "survivalTime": 1800, "maxKillDistance": 210.4},
		{"uId": "5124", "playerName": "Bravo", "teamId": 2, "rank": 3, "killNum": 1, "damage": 140}
	],
	"TeamInfoList": [{"teamId": 1, "teamName": "Wolves", "killNum": 6, "liveMemberNum": 1}]
}`

func TestParseTelemetry(t *testing.T) {
	convey.Convey("Given a telemetry payload from a game source", t, func() {
		convey.Convey("When it is well formed", func() {
			tel, err := model.ParseTelemetry([]byte(sampleTelemetry))

			convey.Convey("Then ids keep their exact digits and are trimmed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(tel.GameID.String(), convey.ShouldEqual, "7312345678901234567")
				convey.So(tel.Players[0].InGameID.String(), convey.ShouldEqual, "5123")
				convey.So(tel.Players[0].TeamID.String(), convey.ShouldEqual, "1")
			})

			convey.Convey("Then timestamps in either form are parsed", func() {
				convey.So(tel.GameStart.Equal(time.Date(2024, 5, 4, 18, 30, 0, 0, time.UTC)), convey.ShouldBeTrue)
				convey.So(tel.GameEnd.Unix(), convey.ShouldEqual, int64(1714848600))
			})

			convey.Convey("Then counters map onto the tracked statistics", func() {
				c := tel.Players[0].Counters()
				convey.So(c.Kill, convey.ShouldEqual, 6)
				convey.So(c.Damage, convey.ShouldEqual, 812.5)
				convey.So(c.KillDistance, convey.ShouldEqual, 210.4)
			})
		})

		convey.Convey("When the JSON cannot be decoded", func() {
			_, err := model.ParseTelemetry([]byte(`{"GameID": true}`))

			convey.Convey("Then the error is malformed", func() {
				convey.So(errors.Is(err, model.ErrMalformed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a timestamp is unreadable", func() {
			_, err := model.ParseTelemetry([]byte(`{"GameID":"g","GameStartTime":"not a date","TotalPlayerList":[{"uId":"1"}]}`))

			convey.Convey("Then the error is malformed", func() {
				convey.So(errors.Is(err, model.ErrMalformed), convey.ShouldBeTrue)
			})
		})
	})
}

func TestTelemetryValidate(t *testing.T) {
	convey.Convey("Given telemetry structural rules", t, func() {
		valid := model.Telemetry{
			GameID:  "g-1",
			Players: []model.PlayerTelemetry{{InGameID: "1"}, {InGameID: "2"}},
		}

		convey.Convey("A valid payload passes", func() {
			convey.So(valid.Validate(), convey.ShouldBeNil)
		})

		cases := map[string]func(model.Telemetry) model.Telemetry{
			"missing game id": func(t model.Telemetry) model.Telemetry { t.GameID = "  "; return t },
			"empty player list": func(t model.Telemetry) model.Telemetry {
				t.Players = nil
				return t
			},
			"blank player id": func(t model.Telemetry) model.Telemetry {
				t.Players = []model.PlayerTelemetry{{InGameID: ""}}
				return t
			},
			"repeated player id": func(t model.Telemetry) model.Telemetry {
				t.Players = []model.PlayerTelemetry{{InGameID: "1"}, {InGameID: " 1"}}
				return t
			},
			"negative counter": func(t model.Telemetry) model.Telemetry {
				t.Players = []model.PlayerTelemetry{{InGameID: "1", Damage: -3}}
				return t
			},
			"end before start": func(t model.Telemetry) model.Telemetry {
				t.GameStart = model.Timestamp{Time: time.Unix(200, 0)}
				t.GameEnd = model.Timestamp{Time: time.Unix(100, 0)}
				return t
			},
		}
		for name, mutate := range cases {
			convey.Convey("Rejects "+name, func() {
				err := mutate(valid).Validate()
				convey.So(errors.Is(err, model.ErrMalformed), convey.ShouldBeTrue)
			})
		}
	})
}

func TestCountersAdd(t *testing.T) {
	convey.Convey("Given two counter sets", t, func() {
		a := model.Counters{Kill: 2, Damage: 100, KillDistance: 80}
		b := model.Counters{Kill: 3, Damage: 50.5, KillDistance: 40, Rescues: 1}

		convey.Convey("Adding sums counters and keeps the longest kill", func() {
			a.Add(b)
			convey.So(a.Kill, convey.ShouldEqual, 5)
			convey.So(a.Damage, convey.ShouldEqual, 150.5)
			convey.So(a.Rescues, convey.ShouldEqual, 1)
			convey.So(a.KillDistance, convey.ShouldEqual, 80.0)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	convey.Convey("Given a classified error", t, func() {
		cause := errors.New("schedule \"s-9\"")
		err := model.WrapKind("service.ingest_match", model.ErrNotFound, cause)

		convey.Convey("Then both kind and cause are visible", func() {
			convey.So(errors.Is(err, model.ErrNotFound), convey.ShouldBeTrue)
			convey.So(errors.Is(err, cause), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldEqual, `service.ingest_match: not found: schedule "s-9"`)
			convey.So(model.Detail(err), convey.ShouldEqual, `schedule "s-9"`)
		})

		convey.Convey("Then wrapping nil yields nil", func() {
			convey.So(model.WrapKind("op", model.ErrMalformed, nil), convey.ShouldBeNil)
		})
	})
}
