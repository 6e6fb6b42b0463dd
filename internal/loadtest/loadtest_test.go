package loadtest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/royale/internal/adapters/http/api"
	"github.com/okian/royale/internal/adapters/repository"
	service "github.com/okian/royale/internal/app"
	"github.com/okian/royale/internal/domain/types"
	"github.com/okian/royale/internal/loadtest"
	"github.com/okian/royale/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func smallConfig() loadtest.Config {
	cfg := loadtest.DefaultConfig()
	cfg.Teams = 4
	cfg.PlayersPerTeam = 2
	cfg.Matches = 3
	cfg.Duplicates = 2
	cfg.Workers = 4
	cfg.Seed = 42
	return cfg
}

func TestGenerate(t *testing.T) {
	Convey("Given a small configuration", t, func() {
		cfg := smallConfig()

		Convey("When a tournament is generated", func() {
			tour, err := loadtest.Generate(cfg)
			So(err, ShouldBeNil)

			Convey("Then the registry matches the requested shape", func() {
				So(tour.Registry.Teams, ShouldHaveLength, 4)
				So(tour.Registry.Teams[0].Players, ShouldHaveLength, 2)
				So(tour.Registry.Schedules, ShouldHaveLength, 3)
				So(tour.Games, ShouldHaveLength, 3)
				So(tour.Registry.Validate(), ShouldBeNil)
			})

			Convey("Then every game places each team exactly once", func() {
				for _, g := range tour.Games {
					So(g.Telemetry.Validate(), ShouldBeNil)
					So(g.Telemetry.Players, ShouldHaveLength, 8)
					ranks := map[int]int{}
					for _, p := range g.Telemetry.Players {
						ranks[p.Rank]++
					}
					So(ranks, ShouldHaveLength, 4)
					for _, n := range ranks {
						So(n, ShouldEqual, 2)
					}
				}
			})

			Convey("Then a second run uses different ids", func() {
				again, err := loadtest.Generate(cfg)
				So(err, ShouldBeNil)
				So(again.GroupID, ShouldNotEqual, tour.GroupID)
			})
		})

		Convey("When the shape is empty", func() {
			cfg.Matches = 0
			_, err := loadtest.Generate(cfg)

			Convey("Then generation fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a generated tournament", t, func() {
		tour, err := loadtest.Generate(smallConfig())
		So(err, ShouldBeNil)

		Convey("When the standings cover too few matches", func() {
			err := loadtest.Verify(tour, types.MatchResult{Matches: 1})

			Convey("Then verification fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "want 3")
			})
		})
	})
}

func TestRunInProcess(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-process service", t, func() {
		store, err := repository.Open(ctx, ":memory:")
		So(err, ShouldBeNil)
		svc := service.New(store)
		Reset(func() { _ = store.Close() })

		Convey("When the load test runs with duplicate submissions", func() {
			cfg := smallConfig()
			stats, err := loadtest.Run(ctx, cfg, store, loadtest.NewServiceTarget(svc))

			Convey("Then each schedule is ingested once and the rest are duplicates", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 9)
				So(stats.Successful, ShouldEqual, 3)
				So(stats.Duplicate, ShouldEqual, 6)
				So(stats.Failed, ShouldEqual, 0)
			})
		})
	})
}

func TestRunOverHTTP(t *testing.T) {
	ctx := context.Background()

	Convey("Given a server over an in-memory store", t, func() {
		store, err := repository.Open(ctx, ":memory:")
		So(err, ShouldBeNil)
		svc := service.New(store)
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		Reset(func() {
			srv.Close()
			_ = store.Close()
		})

		target := loadtest.NewHTTPTarget(srv.URL, 5*time.Second)

		Convey("Then the health check passes", func() {
			So(target.Health(ctx), ShouldBeNil)
		})

		Convey("When the load test runs against it", func() {
			cfg := smallConfig()
			cfg.BaseURL = srv.URL
			stats, err := loadtest.Run(ctx, cfg, store, target)

			Convey("Then standings verify", func() {
				So(err, ShouldBeNil)
				So(stats.Successful, ShouldEqual, 3)
			})
		})

		Convey("When an unknown group is requested", func() {
			_, err := target.GroupResult(ctx, "nope")

			Convey("Then the status is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "404")
			})
		})
	})
}
