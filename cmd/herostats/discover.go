package main

import (
	"context"

	"github.com/spf13/cobra"

	"herostats/internal/report"
	"herostats/internal/service"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Sample players per rank tier from the leaderboards",
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	var svc *service.DiscoveryService
	return runJob(cmd, func(ctx context.Context) error {
		res, err := svc.Discover(ctx)
		if err != nil {
			return err
		}
		report.PrintDiscovery(cmd.OutOrStdout(), res)
		return nil
	}, &svc)
}
