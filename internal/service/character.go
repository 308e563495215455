package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"herostats/internal/config"
	"herostats/internal/domain"
	"herostats/internal/metrics"
	"herostats/internal/repository"
	"herostats/internal/stats"
)

const analyzerCharacter = "character"

type CharacterService struct {
	stats    *repository.StatsRepository
	metadata *repository.MetadataRepository
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewCharacterService(statsRepo *repository.StatsRepository, metadata *repository.MetadataRepository, cfg *config.Config, logger zerolog.Logger) *CharacterService {
	return &CharacterService{stats: statsRepo, metadata: metadata, cfg: cfg, logger: logger}
}

// HeroWinRates is the analysis result of one hero. Skipped heroes have fewer
// than the overall minimum of games and carry no rows.
type HeroWinRates struct {
	Hero       string                 `json:"hero"`
	TotalGames int                    `json:"total_games"`
	Skipped    bool                   `json:"skipped"`
	Overall    *domain.CharacterStat  `json:"overall,omitempty"`
	ByTier     []domain.CharacterStat `json:"by_tier,omitempty"`
}

// AnalyzeAll analyzes every hero seen in participant data, one transaction
// per hero. A hero that fails to persist is logged and left out; cancelling
// ctx stops between heroes and returns what was done so far.
func (s *CharacterService) AnalyzeAll(ctx context.Context) ([]HeroWinRates, error) {
	start := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues(analyzerCharacter).Observe(time.Since(start).Seconds())
	}()

	heroes, err := s.stats.ListHeroes(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list heroes")
		return nil, fmt.Errorf("failed to list heroes: %w", err)
	}

	results := make([]HeroWinRates, 0, len(heroes))
	var skipped int
	for _, hero := range heroes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := s.AnalyzeHero(ctx, hero)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			s.logger.Error().Err(err).Str("hero", hero).Msg("character analysis failed")
			continue
		}
		if r.Skipped {
			skipped++
		}
		results = append(results, r)
	}

	_ = s.metadata.Set(ctx, map[string]string{
		domain.MetaLastCharacterRunAt: time.Now().UTC().Format(time.RFC3339),
	})
	s.logger.Info().Int("heroes", len(heroes)).Int("skipped", skipped).Dur("duration", time.Since(start)).Msg("character analysis finished")
	return results, nil
}

// AnalyzeHero computes and stores the overall row and every per-tier row
// with enough games. Participants of unknown tier only count toward the
// overall row.
func (s *CharacterService) AnalyzeHero(ctx context.Context, hero string) (HeroWinRates, error) {
	obs, err := s.stats.HeroObservations(ctx, hero)
	if err != nil {
		return HeroWinRates{}, fmt.Errorf("failed to load observations for %s: %w", hero, err)
	}

	res := HeroWinRates{Hero: hero, TotalGames: len(obs)}
	if len(obs) < s.cfg.MinGamesOverall {
		s.logger.Debug().Str("hero", hero).Int("games", len(obs)).Int("min", s.cfg.MinGamesOverall).Msg("not enough games, skipping hero")
		res.Skipped = true
		metrics.HeroesAnalyzed.WithLabelValues(analyzerCharacter, "skipped").Inc()
		return res, nil
	}

	type counter struct{ wins, total int }
	var overall counter
	byTier := make(map[domain.RankTier]*counter)
	for _, o := range obs {
		overall.total++
		if o.Won {
			overall.wins++
		}
		if !o.Tier.Known() {
			continue
		}
		c := byTier[o.Tier]
		if c == nil {
			c = &counter{}
			byTier[o.Tier] = c
		}
		c.total++
		if o.Won {
			c.wins++
		}
	}

	now := time.Now().UTC()
	build := func(tier *domain.RankTier, c counter) (domain.CharacterStat, error) {
		row, err := domain.NewCharacterStat(hero, tier, c.wins, c.total)
		if err != nil {
			return row, err
		}
		row.CILower, row.CIUpper = stats.WilsonCI(c.wins, c.total, s.cfg.Confidence)
		row.AnalyzedAt = now
		return row, nil
	}

	all, err := build(nil, overall)
	if err != nil {
		return res, err
	}
	rows := []domain.CharacterStat{all}

	for _, t := range domain.Tiers {
		c, ok := byTier[t]
		if !ok || c.total < s.cfg.MinGamesPerTier {
			continue
		}
		row, err := build(domain.TierPtr(t), *c)
		if err != nil {
			return res, err
		}
		rows = append(rows, row)
	}

	if err := s.stats.SaveCharacterStats(ctx, rows); err != nil {
		metrics.HeroesAnalyzed.WithLabelValues(analyzerCharacter, "error").Inc()
		return res, err
	}

	res.Overall = &rows[0]
	res.ByTier = rows[1:]
	metrics.HeroesAnalyzed.WithLabelValues(analyzerCharacter, "stored").Inc()
	s.logger.Debug().
		Str("hero", hero).
		Int("games", overall.total).
		Float64("win_rate", all.WinRate).
		Int("tiers", len(res.ByTier)).
		Msg("hero analyzed")
	return res, nil
}
