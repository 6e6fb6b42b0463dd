package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/royale/internal/adapters/repository"
	service "github.com/okian/royale/internal/app"
	"github.com/okian/royale/internal/config"
	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/pkg/logger"
)

var (
	dbPath   string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "royalectl",
	Short:         "Battle royale tournament tool",
	Long:          "Seed a tournament registry, ingest post-game telemetry and print standings.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		if err := logger.SetLevelString(logLevel); err != nil {
			return err
		}
		loaded, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		if dbPath != "" {
			loaded.DBPath = dbPath
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite database (default from ROYALE_DB_PATH or royale.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(rederiveCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(starsCmd)
	rootCmd.AddCommand(loadtestCmd)
}

// openService opens the configured store and builds a service over it.
// The returned func closes the store.
func openService(ctx context.Context, opts ...service.Option) (*service.Service, *repository.SQLiteStore, func(), error) {
	store, err := repository.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open storage: %w", err)
	}
	base := []service.Option{
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMVPWeights(cfg.MVPWeights),
	}
	svc := service.New(store, append(base, opts...)...)
	return svc, store, func() { _ = store.Close() }, nil
}

func readTelemetry(path string) (model.Telemetry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Telemetry{}, fmt.Errorf("reading telemetry: %w", err)
	}
	return model.ParseTelemetry(data)
}

// statusError turns a rejected ingestion into a command error.
func statusError(st model.IngestStatus) error {
	if st.Status == model.StatusSuccess {
		return nil
	}
	return fmt.Errorf("%s: %s", st.Status, st.Message)
}
