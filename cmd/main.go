package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/okian/royale/internal/adapters/http/api"
	"github.com/okian/royale/internal/adapters/http/swagger"
	"github.com/okian/royale/internal/adapters/mq/natsingest"
	"github.com/okian/royale/internal/adapters/repository"
	app "github.com/okian/royale/internal/app"
	"github.com/okian/royale/internal/config"
	"github.com/okian/royale/pkg/logger"
	"github.com/okian/royale/pkg/metrics"
)

const (
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then drains every component.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	store, err := repository.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "closing store", logger.Error(err))
		}
	}()

	svc := app.New(store,
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMVPWeights(cfg.MVPWeights),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "stopping service", logger.Error(err))
		}
	}()

	closeNATS, err := startNATS(ctx, cfg, svc)
	if err != nil {
		return err
	}
	defer closeNATS()

	go startSystemMetricsUpdater(ctx)

	timeout := time.Duration(cfg.RequestTimeoutMS) * time.Millisecond
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newHandler builds the route table shared by the server and its tests.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxBodyBytes(cfg.MaxTelemetryBytes),
		api.WithMaxResultSchedules(cfg.MaxResultSchedules),
		api.WithLogger(logger.Get().Named("api")),
	).Register(ctx, mux)
	return mux
}

// startNATS starts the optional embedded broker and the telemetry
// subscriber. The returned func tears both down.
func startNATS(ctx context.Context, cfg *config.Config, svc *app.Service) (func(), error) {
	log := logger.Get()
	var (
		embedded *server.Server
		url      = cfg.NATSURL
	)
	if cfg.NATSEmbeddedPort > 0 {
		ns, err := natsingest.RunEmbedded("127.0.0.1", cfg.NATSEmbeddedPort)
		if err != nil {
			return nil, err
		}
		embedded = ns
		if url == "" {
			url = ns.ClientURL()
		}
		log.Info(ctx, "embedded NATS server started", logger.String("url", ns.ClientURL()))
	}
	if url == "" {
		return func() {}, nil
	}

	var (
		nc  *nats.Conn
		sub *natsingest.Subscriber
	)
	teardown := func() {
		if sub != nil {
			if err := sub.Stop(); err != nil {
				log.Warn(ctx, "stopping NATS subscriber", logger.Error(err))
			}
		}
		if nc != nil {
			_ = nc.Drain()
		}
		if embedded != nil {
			embedded.Shutdown()
		}
	}

	nc, err := natsingest.Connect(url)
	if err != nil {
		teardown()
		return nil, err
	}
	sub = natsingest.New(nc, svc,
		natsingest.WithSubject(cfg.NATSSubject),
		natsingest.WithQueue(cfg.NATSQueue),
		natsingest.WithLogger(log.Named("natsingest")),
	)
	if err := sub.Start(ctx); err != nil {
		teardown()
		return nil, err
	}
	return teardown, nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond)
	}
}
