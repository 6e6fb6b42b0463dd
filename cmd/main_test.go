package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/royale/internal/adapters/repository"
	app "github.com/okian/royale/internal/app"
	"github.com/okian/royale/internal/config"
	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/pointsystem"
	"github.com/okian/royale/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func seedStore(ctx context.Context, s *repository.SQLiteStore) {
	convey.So(s.PutPointSystem(ctx, pointsystem.Default("ps")), convey.ShouldBeNil)
	convey.So(s.PutEvent(ctx, model.Event{ID: "ev", Name: "Cup", PointSystemID: "ps"}), convey.ShouldBeNil)
	convey.So(s.PutTeam(ctx, model.Team{ID: "t1", Name: "Wolves"}), convey.ShouldBeNil)
	convey.So(s.PutPlayer(ctx, model.Player{ID: "p1", Name: "Alpha", InGameID: "100", TeamID: "t1"}), convey.ShouldBeNil)
	convey.So(s.PutGroup(ctx, model.Group{ID: "g1", EventID: "ev", Name: "Lobby"}, []string{"t1"}), convey.ShouldBeNil)
	convey.So(s.PutSchedule(ctx, model.Schedule{ID: "s1", GroupID: "g1", EventID: "ev", Ordinal: 1, TeamGroupIDs: []string{"g1"}}), convey.ShouldBeNil)
}

func TestHandler(t *testing.T) {
	convey.Convey("Given the assembled handler over an in-memory store", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, ":memory:")
		convey.So(err, convey.ShouldBeNil)
		seedStore(ctx, store)

		cfg := config.New()
		svc := app.New(store, app.WithWorkerCount(1), app.WithQueueSize(4))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		srv := httptest.NewServer(newHandler(ctx, cfg, svc))

		convey.Reset(func() {
			srv.Close()
			_ = svc.Stop(ctx)
			_ = store.Close()
		})

		convey.Convey("When the health endpoint is requested", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			convey.Convey("Then it answers 200", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When a match is submitted and its result fetched", func() {
			body, err := json.Marshal(map[string]any{
				"schedule_id": "s1",
				"telemetry": map[string]any{
					"GameID":          "g-main",
					"TotalPlayerList": []map[string]any{{"uId": "100", "playerName": "Alpha", "rank": 1, "killNum": 3}},
				},
			})
			convey.So(err, convey.ShouldBeNil)
			resp, err := http.Post(srv.URL+"/matches", "application/json", bytes.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			res, err := http.Get(srv.URL + "/schedules/s1/result")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = res.Body.Close() }()
			var out struct {
				TeamResults []struct {
					TeamName   string `json:"teamName"`
					TotalPoint int    `json:"totalPoint"`
				} `json:"teamResults"`
			}
			convey.So(json.NewDecoder(res.Body).Decode(&out), convey.ShouldBeNil)

			convey.Convey("Then the match is committed and ranked", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)
				convey.So(res.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(out.TeamResults, convey.ShouldHaveLength, 1)
				convey.So(out.TeamResults[0].TeamName, convey.ShouldEqual, "Wolves")
				convey.So(out.TeamResults[0].TotalPoint, convey.ShouldBeGreaterThan, 3)
			})
		})

		convey.Convey("When the root is requested", func() {
			client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
			resp, err := client.Get(srv.URL + "/")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			convey.Convey("Then it redirects to the API docs", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusFound)
				convey.So(resp.Header.Get("Location"), convey.ShouldEqual, "/api-docs")
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration with an in-memory store", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.DBPath = ":memory:"
		cfg.WorkerCount = 1

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(run(ctx, cfg), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the database path cannot be opened", func() {
			cfg.DBPath = os.TempDir() + "/missing-dir/nested/royale.db"

			convey.Convey("Then run fails", func() {
				convey.So(run(context.Background(), cfg), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestStartNATS(t *testing.T) {
	convey.Convey("Given no NATS settings", t, func() {
		cfg := config.New()
		ctx := context.Background()

		convey.Convey("Then startNATS is a no-op", func() {
			closeFn, err := startNATS(ctx, cfg, nil)
			convey.So(err, convey.ShouldBeNil)
			convey.So(func() { closeFn() }, convey.ShouldNotPanic)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("When the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.Convey("Then the loop returns", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
