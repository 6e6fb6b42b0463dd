package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/royale/internal/adapters/repository"
	"github.com/okian/royale/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load point systems, events, teams, groups and schedules from YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f, err := seed.LoadFile(args[0])
	if err != nil {
		return err
	}
	store, err := repository.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	sum, err := seed.Apply(ctx, store, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d point systems, %d events, %d teams, %d players, %d groups, %d schedules\n",
		sum.PointSystems, sum.Events, sum.Teams, sum.Players, sum.Groups, sum.Schedules)
	return nil
}
