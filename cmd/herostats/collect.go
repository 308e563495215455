package main

import (
	"context"

	"github.com/spf13/cobra"

	"herostats/internal/report"
	"herostats/internal/service"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch match histories of every pending player",
	Long: `collect fetches the match history of every sampled player that has not been
fetched yet. Interrupting it is safe: finished players stay completed and
the next run resumes with the rest.`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	var svc *service.CollectorService
	return runJob(cmd, func(ctx context.Context) error {
		res, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		report.PrintCollection(cmd.OutOrStdout(), res)
		return nil
	}, &svc)
}
