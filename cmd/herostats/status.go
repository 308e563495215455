package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"herostats/internal/report"
	"herostats/internal/repository"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection progress and cache sizes",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	var (
		players  *repository.PlayerRepository
		matches  *repository.MatchRepository
		stats    *repository.StatsRepository
		metadata *repository.MetadataRepository
	)
	return runJob(cmd, func(ctx context.Context) error {
		var (
			st  report.Status
			err error
		)
		if st.Players, err = players.Counts(ctx); err != nil {
			return fmt.Errorf("failed to count players: %w", err)
		}
		if st.Matches, err = matches.Counts(ctx); err != nil {
			return fmt.Errorf("failed to count matches: %w", err)
		}
		if st.Cache, err = stats.Counts(ctx); err != nil {
			return fmt.Errorf("failed to count cached stats: %w", err)
		}
		if st.Metadata, err = metadata.List(ctx); err != nil {
			return fmt.Errorf("failed to list metadata: %w", err)
		}
		report.PrintStatus(cmd.OutOrStdout(), st)
		return nil
	}, &players, &matches, &stats, &metadata)
}
