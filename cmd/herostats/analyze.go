package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"herostats/internal/report"
	"herostats/internal/service"
)

var (
	analyzeHeroes    string
	analyzeNoSynergy bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute hero win rates, then teammate synergies",
	Long: `analyze recomputes the cached statistics from the stored matches. Character
win rates run first because synergy baselines read the overall rows.

  herostats analyze
  herostats analyze --heroes "Storm,Hulk"`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeHeroes, "heroes", "", "comma-separated hero names (default: all)")
	analyzeCmd.Flags().BoolVar(&analyzeNoSynergy, "no-synergy", false, "only compute character win rates")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	var (
		character *service.CharacterService
		synergy   *service.SynergyService
	)
	heroes := splitHeroes(analyzeHeroes)

	return runJob(cmd, func(ctx context.Context) error {
		winRates, err := analyzeCharacters(ctx, character, heroes)
		if err != nil {
			return err
		}
		report.PrintWinRates(cmd.OutOrStdout(), winRates)
		if analyzeNoSynergy {
			return nil
		}

		synergies, err := analyzeSynergies(ctx, synergy, heroes)
		if err != nil {
			return err
		}
		report.PrintSynergies(cmd.OutOrStdout(), synergies)
		return nil
	}, &character, &synergy)
}

func analyzeCharacters(ctx context.Context, svc *service.CharacterService, heroes []string) ([]service.HeroWinRates, error) {
	if len(heroes) == 0 {
		return svc.AnalyzeAll(ctx)
	}
	out := make([]service.HeroWinRates, 0, len(heroes))
	for _, h := range heroes {
		r, err := svc.AnalyzeHero(ctx, h)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func analyzeSynergies(ctx context.Context, svc *service.SynergyService, heroes []string) ([]service.HeroSynergies, error) {
	if len(heroes) == 0 {
		return svc.AnalyzeAll(ctx)
	}
	out := make([]service.HeroSynergies, 0, len(heroes))
	for _, h := range heroes {
		r, err := svc.AnalyzeHero(ctx, h)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func splitHeroes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
