package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"herostats/internal/config"
	fxmodules "herostats/internal/fx"
	"herostats/internal/logger"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "herostats",
	Short: "Collect hero shooter matches and compute win-rate and synergy statistics",
	Long: `herostats samples ranked players from the public leaderboards, pulls their
match histories into a local SQLite cache and computes per-hero win rates
and teammate synergies with confidence intervals and significance tests.

Configuration is read from the environment (or a .env file). Run the jobs in
order: discover, collect, analyze.`,
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running job
// between units of work.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override DB_PATH")
}

// runJob builds the application graph, fills targets, runs job and stops the
// graph again. Logs go to stderr so tables on stdout stay clean.
func runJob(cmd *cobra.Command, job func(ctx context.Context) error, targets ...any) error {
	app := fx.New(
		fxmodules.Module,
		fx.NopLogger,
		fx.Decorate(logger.Console),
		fx.Decorate(func(cfg *config.Config) *config.Config {
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			return cfg
		}),
		fx.Populate(targets...),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := app.Start(ctx); err != nil {
		return err
	}
	jobErr := job(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && jobErr == nil {
		return err
	}
	return jobErr
}
