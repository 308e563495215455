package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"herostats/internal/config"
	"herostats/internal/domain"
	"herostats/internal/metrics"
	"herostats/internal/repository"
	"herostats/internal/stats"
)

const analyzerSynergy = "synergy"

type SynergyService struct {
	stats    *repository.StatsRepository
	metadata *repository.MetadataRepository
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewSynergyService(statsRepo *repository.StatsRepository, metadata *repository.MetadataRepository, cfg *config.Config, logger zerolog.Logger) *SynergyService {
	return &SynergyService{stats: statsRepo, metadata: metadata, cfg: cfg, logger: logger}
}

// HeroSynergies is the synergy analysis of one hero: the retained top
// teammates, strongest first, plus the power context of the sample.
type HeroSynergies struct {
	Hero      string               `json:"hero"`
	SoloRate  float64              `json:"solo_win_rate"`
	Skipped   bool                 `json:"skipped"`
	Teammates int                  `json:"teammates_seen"`
	Qualified int                  `json:"teammates_qualified"`
	NoBase    int                  `json:"teammates_without_baseline"`
	Synergies []domain.SynergyStat `json:"synergies"`
	Power     *stats.PowerAnalysis `json:"power,omitempty"`
}

// AnalyzeAll runs the synergy analysis for every hero that has an overall
// character row. Character analysis must have run first.
func (s *SynergyService) AnalyzeAll(ctx context.Context) ([]HeroSynergies, error) {
	start := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues(analyzerSynergy).Observe(time.Since(start).Seconds())
	}()

	solo, err := s.stats.SoloWinRates(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load solo win rates")
		return nil, fmt.Errorf("failed to load solo win rates: %w", err)
	}
	if len(solo) == 0 {
		s.logger.Warn().Msg("no overall character stats, run character analysis first")
		return nil, nil
	}

	heroes := make([]string, 0, len(solo))
	for h := range solo {
		heroes = append(heroes, h)
	}
	sort.Strings(heroes)

	results := make([]HeroSynergies, 0, len(heroes))
	var stored int
	for _, hero := range heroes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := s.analyzeHero(ctx, hero, solo)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			s.logger.Error().Err(err).Str("hero", hero).Msg("synergy analysis failed")
			continue
		}
		stored += len(r.Synergies)
		results = append(results, r)
	}

	_ = s.metadata.Set(ctx, map[string]string{
		domain.MetaLastSynergyRunAt: time.Now().UTC().Format(time.RFC3339),
	})
	s.logger.Info().Int("heroes", len(heroes)).Int("synergies", stored).Dur("duration", time.Since(start)).Msg("synergy analysis finished")
	return results, nil
}

// AnalyzeHero runs the synergy analysis for a single hero.
func (s *SynergyService) AnalyzeHero(ctx context.Context, hero string) (HeroSynergies, error) {
	solo, err := s.stats.SoloWinRates(ctx)
	if err != nil {
		return HeroSynergies{}, fmt.Errorf("failed to load solo win rates: %w", err)
	}
	return s.analyzeHero(ctx, hero, solo)
}

type pairCounter struct {
	games int
	wins  int
}

func (s *SynergyService) analyzeHero(ctx context.Context, hero string, solo map[string]float64) (HeroSynergies, error) {
	res := HeroSynergies{Hero: hero}

	soloRate, ok := solo[hero]
	if !ok {
		s.logger.Debug().Str("hero", hero).Msg("no solo win rate, skipping hero")
		res.Skipped = true
		metrics.HeroesAnalyzed.WithLabelValues(analyzerSynergy, "skipped").Inc()
		return res, nil
	}
	res.SoloRate = soloRate

	counters, err := s.countTeammates(ctx, hero)
	if err != nil {
		return res, err
	}
	res.Teammates = len(counters)

	var maxGames int
	candidates := make([]domain.SynergyStat, 0, len(counters))
	for teammate, c := range counters {
		maxGames = max(maxGames, c.games)
		if c.games < s.cfg.MinSynergyGames {
			continue
		}
		mateRate, ok := solo[teammate]
		if !ok {
			res.NoBase++
			continue
		}

		syn, err := domain.NewSynergyStat(hero, teammate, nil, c.wins, c.games)
		if err != nil {
			return res, err
		}
		syn.ExpectedWinRate = stats.ExpectedWinRateAverage(soloRate, mateRate)
		syn.SynergyScore = stats.Native(syn.ActualWinRate - syn.ExpectedWinRate)
		syn.CILower, syn.CIUpper = stats.WilsonCI(c.wins, c.games, s.cfg.Confidence)

		bt := stats.BinomialTest(c.wins, c.games, syn.ExpectedWinRate, s.cfg.Alpha)
		syn.PValue = bt.PValue
		syn.Significant = bt.Significant
		syn.ConfidenceLevel = stats.ConfidenceLabel(c.games)
		syn.SampleWarning = stats.SampleWarning(c.games)
		candidates = append(candidates, syn)
	}
	res.Qualified = len(candidates)

	// Correction runs over every qualifying teammate, before top-K.
	corrected := stats.Bonferroni(candidates, func(st domain.SynergyStat) float64 { return st.PValue }, s.cfg.Alpha)
	annotated := make([]domain.SynergyStat, len(corrected))
	for i, c := range corrected {
		syn := c.Record
		syn.CorrectedAlpha = c.CorrectedAlpha
		syn.SignificantCorrected = c.SignificantCorrected
		annotated[i] = syn
	}

	sort.SliceStable(annotated, func(i, j int) bool {
		if annotated[i].SynergyScore != annotated[j].SynergyScore {
			return annotated[i].SynergyScore > annotated[j].SynergyScore
		}
		return annotated[i].Partner(hero) < annotated[j].Partner(hero)
	})
	if len(annotated) > s.cfg.SynergyTopK {
		annotated = annotated[:s.cfg.SynergyTopK]
	}

	now := time.Now().UTC()
	for i := range annotated {
		annotated[i].AnalyzedAt = now
	}

	if maxGames > 0 {
		pa, err := stats.AnalyzePower(soloRate, maxGames, s.cfg.Alpha, stats.DefaultPower)
		if err != nil {
			s.logger.Warn().Err(err).Str("hero", hero).Msg("power analysis failed")
		} else {
			res.Power = &pa
		}
	}

	if err := s.stats.SaveSynergyStats(ctx, annotated); err != nil {
		metrics.HeroesAnalyzed.WithLabelValues(analyzerSynergy, "error").Inc()
		return res, err
	}
	res.Synergies = annotated
	metrics.HeroesAnalyzed.WithLabelValues(analyzerSynergy, "stored").Inc()

	s.logger.Debug().
		Str("hero", hero).
		Int("teammates", res.Teammates).
		Int("qualified", res.Qualified).
		Int("retained", len(annotated)).
		Int("max_games", maxGames).
		Msg("synergies analyzed")
	return res, nil
}

// countTeammates accumulates games and wins with every teammate hero,
// counting a teammate hero at most once per appearance.
func (s *SynergyService) countTeammates(ctx context.Context, hero string) (map[string]*pairCounter, error) {
	appearances, err := s.stats.HeroAppearances(ctx, hero)
	if err != nil {
		return nil, fmt.Errorf("failed to load appearances of %s: %w", hero, err)
	}

	counters := make(map[string]*pairCounter)
	for _, a := range appearances {
		mates, err := s.stats.Teammates(ctx, hero, a)
		if err != nil {
			return nil, fmt.Errorf("failed to load teammates of %s in %s: %w", hero, a.MatchID, err)
		}
		seen := make(map[string]struct{}, len(mates))
		for _, m := range mates {
			if m == hero {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}

			c := counters[m]
			if c == nil {
				c = &pairCounter{}
				counters[m] = c
			}
			c.games++
			if a.Won {
				c.wins++
			}
		}
	}
	return counters, nil
}
