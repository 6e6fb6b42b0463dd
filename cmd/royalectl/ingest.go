package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	service "github.com/okian/royale/internal/app"
	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/report"
)

var (
	scheduleID     string
	backfillWait   time.Duration
	backfillQueued int
)

var validateCmd = &cobra.Command{
	Use:   "validate <telemetry.json>",
	Short: "Compare a telemetry file's players with the schedule's registered rosters",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <telemetry.json>",
	Short: "Ingest one telemetry file against a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var rederiveCmd = &cobra.Command{
	Use:   "rederive",
	Short: "Recompute a played schedule's stat rows from its stored telemetry",
	Args:  cobra.NoArgs,
	RunE:  runRederive,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill <dir>",
	Short: "Queue every <scheduleID>.json in a directory and wait for the outcomes",
	Long:  "Queue every <scheduleID>.json in a directory on the async pipeline and wait for\nevery outcome. Already ingested schedules are reported but do not fail the run.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackfill,
}

func init() {
	for _, c := range []*cobra.Command{validateCmd, ingestCmd, rederiveCmd} {
		c.Flags().StringVar(&scheduleID, "schedule", "", "schedule id")
		_ = c.MarkFlagRequired("schedule")
	}
	backfillCmd.Flags().DurationVar(&backfillWait, "timeout", 5*time.Minute, "maximum time to wait for all outcomes")
	backfillCmd.Flags().IntVar(&backfillQueued, "queue-size", 0, "queue capacity (default: number of files)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tel, err := readTelemetry(args[0])
	if err != nil {
		return err
	}
	svc, _, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rep, err := svc.ValidateRoster(ctx, tel, scheduleID)
	if err != nil {
		return err
	}
	return report.PrintRosterReport(cmd.OutOrStdout(), rep)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tel, err := readTelemetry(args[0])
	if err != nil {
		return err
	}
	svc, _, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	st := svc.IngestMatch(ctx, tel, scheduleID)
	if err := report.PrintStatus(cmd.OutOrStdout(), scheduleID, st); err != nil {
		return err
	}
	return statusError(st)
}

func runRederive(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, _, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	st := svc.RederiveMatch(ctx, scheduleID)
	if err := report.PrintStatus(cmd.OutOrStdout(), scheduleID, st); err != nil {
		return err
	}
	return statusError(st)
}

type pending struct {
	scheduleID string
	reply      chan model.IngestStatus
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	files, err := filepath.Glob(filepath.Join(args[0], "*.json"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .json files in %s", args[0])
	}
	sort.Strings(files)

	queueSize := backfillQueued
	if queueSize < 1 {
		queueSize = len(files)
	}
	svc, _, closeStore, err := openService(ctx, service.WithQueueSize(queueSize))
	if err != nil {
		return err
	}
	defer closeStore()
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = svc.Stop(ctx) }()

	out := cmd.OutOrStdout()
	var (
		waiting []pending
		failed  int
	)
	for _, path := range files {
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		tel, err := readTelemetry(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: %s (%s)\n", id, model.StatusMalformed, model.Detail(err))
			continue
		}
		reply := make(chan model.IngestStatus, 1)
		job := model.IngestJob{JobID: uuid.NewString(), ScheduleID: id, Telemetry: tel, Reply: reply}
		if !svc.Enqueue(ctx, job) {
			failed++
			fmt.Fprintf(out, "%s: queue full\n", id)
			continue
		}
		waiting = append(waiting, pending{scheduleID: id, reply: reply})
	}

	deadline := time.After(backfillWait)
	for _, p := range waiting {
		select {
		case st := <-p.reply:
			if st.Status != model.StatusSuccess && st.Status != model.StatusDuplicate {
				failed++
			}
			if err := report.PrintStatus(out, p.scheduleID, st); err != nil {
				return err
			}
		case <-deadline:
			return fmt.Errorf("timed out waiting for %s", p.scheduleID)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files were not ingested", failed, len(files))
	}
	return nil
}
