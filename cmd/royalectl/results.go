package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/royale/internal/domain/types"
	"github.com/okian/royale/internal/report"
)

var (
	resultSchedules []string
	resultGroup     string
	starsSchedule   string
)

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Print team and player standings",
	Long: "Print standings for one schedule, a set of schedules (--schedule repeated)\n" +
		"or every played schedule of a group.",
	Args: cobra.NoArgs,
	RunE: runResult,
}

var starsCmd = &cobra.Command{
	Use:   "stars",
	Short: "Print the star-of-match awards of a played schedule",
	Args:  cobra.NoArgs,
	RunE:  runStars,
}

func init() {
	resultCmd.Flags().StringSliceVar(&resultSchedules, "schedule", nil, "schedule id; repeat for a set")
	resultCmd.Flags().StringVar(&resultGroup, "group", "", "group id")
	resultCmd.MarkFlagsMutuallyExclusive("schedule", "group")
	resultCmd.MarkFlagsOneRequired("schedule", "group")

	starsCmd.Flags().StringVar(&starsSchedule, "schedule", "", "schedule id")
	_ = starsCmd.MarkFlagRequired("schedule")
}

func runResult(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, _, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var res types.MatchResult
	switch {
	case resultGroup != "":
		res, err = svc.GroupResult(ctx, resultGroup)
	case len(resultSchedules) == 1:
		res, err = svc.SingleMatchResult(ctx, resultSchedules[0])
	case len(resultSchedules) > 1:
		res, err = svc.ScheduleSetResult(ctx, resultSchedules)
	default:
		err = errors.New("either --schedule or --group is required")
	}
	if err != nil {
		return err
	}
	return report.PrintMatchResult(cmd.OutOrStdout(), res)
}

func runStars(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, _, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	stars, err := svc.StarOfMatch(ctx, starsSchedule)
	if err != nil {
		return fmt.Errorf("stars of %s: %w", starsSchedule, err)
	}
	return report.PrintStars(cmd.OutOrStdout(), stars)
}
