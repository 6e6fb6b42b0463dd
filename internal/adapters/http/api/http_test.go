package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/royale/internal/adapters/http/api"
	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/types"
	"github.com/okian/royale/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockDeps struct {
	ingestStatus   types.Status
	rederiveStatus types.Status
	enqueueOK      bool
	err            error

	lastSchedule  string
	lastGameID    string
	lastSchedules []string
	enqueued      []model.IngestJob
}

func (m *mockDeps) ValidateRoster(_ context.Context, tel model.Telemetry, scheduleID string) (types.RosterReport, error) {
	m.lastSchedule, m.lastGameID = scheduleID, tel.GameID.String()
	if m.err != nil {
		return types.RosterReport{}, m.err
	}
	return types.RosterReport{
		GamePlayersUnmatched: []types.Identity{{Name: "Stranger", ID: "999"}},
		DBPlayersUnmatched:   []types.Identity{},
	}, nil
}

func (m *mockDeps) IngestMatch(_ context.Context, tel model.Telemetry, scheduleID string) types.Status {
	m.lastSchedule, m.lastGameID = scheduleID, tel.GameID.String()
	return m.ingestStatus
}

func (m *mockDeps) Enqueue(_ context.Context, job model.IngestJob) bool {
	if !m.enqueueOK {
		return false
	}
	m.enqueued = append(m.enqueued, job)
	return true
}

func (m *mockDeps) RederiveMatch(_ context.Context, scheduleID string) types.Status {
	m.lastSchedule = scheduleID
	return m.rederiveStatus
}

func (m *mockDeps) result() (types.MatchResult, error) {
	if m.err != nil {
		return types.MatchResult{}, m.err
	}
	return types.MatchResult{
		Matches:     1,
		TeamResults: []types.TeamResult{{CRank: 1, TeamID: "t1", TeamName: "Wolves", PlacePoint: 10, TotalPoint: 16, WWCD: 1}},
	}, nil
}

func (m *mockDeps) SingleMatchResult(_ context.Context, scheduleID string) (types.MatchResult, error) {
	m.lastSchedule = scheduleID
	return m.result()
}

func (m *mockDeps) GroupResult(_ context.Context, groupID string) (types.MatchResult, error) {
	m.lastSchedule = groupID
	return m.result()
}

func (m *mockDeps) ScheduleSetResult(_ context.Context, scheduleIDs []string) (types.MatchResult, error) {
	m.lastSchedules = scheduleIDs
	return m.result()
}

func (m *mockDeps) StarOfMatch(_ context.Context, scheduleID string) (types.StarOfMatch, error) {
	m.lastSchedule = scheduleID
	if m.err != nil {
		return types.StarOfMatch{}, m.err
	}
	return types.StarOfMatch{
		GoingAllOut:   []types.PlayerResult{{PlayerName: "Charlie"}},
		BestCompanion: []types.PlayerResult{},
		Finishers:     []types.PlayerResult{{PlayerName: "Alpha"}},
	}, nil
}

type mockStats struct{}

func (mockStats) GetStats(context.Context) map[string]any {
	return map[string]any{"started": true, "matches": 3}
}

const telemetry = `{"GameID": "game-1", "TotalPlayerList": [{"uId": 100, "playerName": "Alpha", "rank": 1}]}`

func matchBody(scheduleID, tel string) string {
	return fmt.Sprintf(`{"schedule_id": %q, "telemetry": %s}`, scheduleID, tel)
}

func newMux(deps *mockDeps, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}, opts...).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDeps{})

		Convey("Then the health endpoint serves metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint serves JSON", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			stats := decode[map[string]any](w)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then wrong methods are rejected", func() {
			w := serve(mux, http.MethodGet, "/matches", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestIngestRoutes(t *testing.T) {
	Convey("Given an API over a mock service", t, func() {
		deps := &mockDeps{ingestStatus: types.Status{Status: model.StatusSuccess, Message: "match m1 ingested"}, enqueueOK: true}
		mux := newMux(deps, api.WithMaxBodyBytes(1024))

		Convey("When a match is ingested", func() {
			w := serve(mux, http.MethodPost, "/matches", matchBody("s1", telemetry))

			Convey("Then it is created with the status body", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				st := decode[types.Status](w)
				So(st.Status, ShouldEqual, model.StatusSuccess)
				So(deps.lastSchedule, ShouldEqual, "s1")
				So(deps.lastGameID, ShouldEqual, "game-1")
			})
		})

		Convey("When the service reports each status", func() {
			cases := map[string]int{
				model.StatusDuplicate: http.StatusConflict,
				model.StatusNotFound:  http.StatusNotFound,
				model.StatusMalformed: http.StatusBadRequest,
				model.StatusError:     http.StatusInternalServerError,
			}
			for status, code := range cases {
				deps.ingestStatus = types.Status{Status: status}
				w := serve(mux, http.MethodPost, "/matches", matchBody("s1", telemetry))
				So(w.Code, ShouldEqual, code)
				So(decode[types.Status](w).Status, ShouldEqual, status)
			}
		})

		Convey("When the body is not JSON", func() {
			w := serve(mux, http.MethodPost, "/matches", "{")

			Convey("Then it is a malformed bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[types.Status](w).Status, ShouldEqual, model.StatusMalformed)
			})
		})

		Convey("When the telemetry fails validation", func() {
			w := serve(mux, http.MethodPost, "/matches", matchBody("s1", `{"GameID": "g", "TotalPlayerList": []}`))

			Convey("Then the service is never called", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[types.Status](w).Message, ShouldContainSubstring, "TotalPlayerList")
				So(deps.lastGameID, ShouldBeEmpty)
			})
		})

		Convey("When the schedule id is missing", func() {
			w := serve(mux, http.MethodPost, "/matches", matchBody(" ", telemetry))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body exceeds the limit", func() {
			big := matchBody("s1", `{"GameID": "`+strings.Repeat("x", 2048)+`"}`)
			w := serve(mux, http.MethodPost, "/matches", big)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("When a match is queued", func() {
			w := serve(mux, http.MethodPost, "/matches/async", matchBody("s2", telemetry))

			Convey("Then it is accepted with a job id", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode[map[string]string](w)
				So(body["status"], ShouldEqual, "accepted")
				So(body["job_id"], ShouldNotBeEmpty)
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].JobID, ShouldEqual, body["job_id"])
				So(deps.enqueued[0].ScheduleID, ShouldEqual, "s2")
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueOK = false
			w := serve(mux, http.MethodPost, "/matches/async", matchBody("s2", telemetry))
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("When validating a roster", func() {
			w := serve(mux, http.MethodPost, "/matches/validate", matchBody("s1", telemetry))

			Convey("Then the report is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				report := decode[types.RosterReport](w)
				So(report.GamePlayersUnmatched, ShouldResemble, []types.Identity{{Name: "Stranger", ID: "999"}})
				So(report.DBPlayersUnmatched, ShouldBeEmpty)
			})
		})

		Convey("When validation hits a committed game", func() {
			deps.err = model.WrapKind("test", model.ErrNotFound, fmt.Errorf("game %q already has a committed match", "game-1"))
			w := serve(mux, http.MethodPost, "/matches/validate", matchBody("s1", telemetry))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode[map[string]string](w)["code"], ShouldEqual, "not_found")
		})
	})
}

func TestResultRoutes(t *testing.T) {
	Convey("Given an API over a mock service", t, func() {
		deps := &mockDeps{rederiveStatus: types.Status{Status: model.StatusSuccess}}
		mux := newMux(deps, api.WithMaxResultSchedules(2))

		Convey("When reading a schedule result", func() {
			w := serve(mux, http.MethodGet, "/schedules/s1/result", "")

			Convey("Then the leaderboard is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastSchedule, ShouldEqual, "s1")
				res := decode[types.MatchResult](w)
				So(res.TeamResults[0].TotalPoint, ShouldEqual, 16)
				So(w.Body.String(), ShouldContainSubstring, `"cRank":1`)
				So(w.Body.String(), ShouldContainSubstring, `"wwcd":1`)
			})
		})

		Convey("When reading a group result", func() {
			w := serve(mux, http.MethodGet, "/groups/g1/result", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastSchedule, ShouldEqual, "g1")
		})

		Convey("When reading stars", func() {
			w := serve(mux, http.MethodGet, "/schedules/s1/stars", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			stars := decode[types.StarOfMatch](w)
			So(stars.GoingAllOut[0].PlayerName, ShouldEqual, "Charlie")
		})

		Convey("When posting a schedule set", func() {
			w := serve(mux, http.MethodPost, "/results", `{"schedule_ids": ["s1", "s2"]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastSchedules, ShouldResemble, []string{"s1", "s2"})
		})

		Convey("When the schedule set is empty or too long", func() {
			So(serve(mux, http.MethodPost, "/results", `{"schedule_ids": []}`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/results", `{"schedule_ids": ["a", "b", "c"]}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service reports error kinds", func() {
			deps.err = model.WrapKind("test", model.ErrNotFound, fmt.Errorf("schedule %q", "zz"))
			So(serve(mux, http.MethodGet, "/schedules/zz/result", "").Code, ShouldEqual, http.StatusNotFound)

			deps.err = model.WrapKind("test", model.ErrMalformed, fmt.Errorf("no team groups"))
			So(serve(mux, http.MethodGet, "/groups/g1/result", "").Code, ShouldEqual, http.StatusBadRequest)

			deps.err = fmt.Errorf("disk on fire")
			w := serve(mux, http.MethodGet, "/schedules/s1/stars", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
		})

		Convey("When re-deriving", func() {
			w := serve(mux, http.MethodPost, "/schedules/s1/rederive", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastSchedule, ShouldEqual, "s1")

			deps.rederiveStatus = types.Status{Status: model.StatusNotFound}
			So(serve(mux, http.MethodPost, "/schedules/s9/rederive", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
