package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/royale/internal/loadtest"
)

var ltCfg = loadtest.DefaultConfig()

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Play a synthetic tournament through the ingestion path and verify standings",
	Long: "Generate a tournament, seed it into --db and submit every game concurrently,\n" +
		"including duplicate copies. With --url the games go to a running server that\n" +
		"must share the same database; without it the service runs in-process.",
	Args: cobra.NoArgs,
	RunE: runLoadtest,
}

func init() {
	f := loadtestCmd.Flags()
	f.StringVar(&ltCfg.BaseURL, "url", ltCfg.BaseURL, "base URL of a running server")
	f.IntVar(&ltCfg.Teams, "teams", ltCfg.Teams, "teams in the lobby")
	f.IntVar(&ltCfg.PlayersPerTeam, "players", ltCfg.PlayersPerTeam, "players per team")
	f.IntVar(&ltCfg.Matches, "matches", ltCfg.Matches, "matches to play")
	f.IntVar(&ltCfg.Duplicates, "duplicates", ltCfg.Duplicates, "extra copies of every submission")
	f.IntVar(&ltCfg.Workers, "workers", ltCfg.Workers, "concurrent submitters")
	f.DurationVar(&ltCfg.Timeout, "timeout", ltCfg.Timeout, "HTTP request timeout")
	f.Uint64Var(&ltCfg.Seed, "seed", 0, "random seed (default: time based)")
	f.BoolVar(&ltCfg.Verbose, "verbose", false, "log every submission")
}

func runLoadtest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, store, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var target loadtest.Target = loadtest.NewServiceTarget(svc)
	if ltCfg.BaseURL != "" {
		remote := loadtest.NewHTTPTarget(ltCfg.BaseURL, ltCfg.Timeout)
		if err := remote.Health(ctx); err != nil {
			return err
		}
		target = remote
	}

	stats, err := loadtest.Run(ctx, ltCfg, store, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d matches, %d submissions: %d ingested, %d duplicate, %d failed in %s\n",
		stats.MatchesGenerated, stats.Submitted, stats.Successful, stats.Duplicate, stats.Failed, stats.Duration)
	return nil
}
