package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"herostats/internal/api"
	"herostats/internal/config"
	"herostats/internal/domain"
	"herostats/internal/ratelimit"
	"herostats/internal/repository"
	"herostats/internal/sampler"
)

// LeaderboardSource is the part of the API client discovery needs.
type LeaderboardSource interface {
	GetLeaderboard(ctx context.Context, limit int) ([]api.LeaderboardEntry, error)
	GetHeroLeaderboard(ctx context.Context, heroID, limit int) ([]api.LeaderboardEntry, error)
}

type DiscoveryService struct {
	source   LeaderboardSource
	limiter  *ratelimit.Limiter
	sampler  *sampler.Stratified
	players  *repository.PlayerRepository
	metadata *repository.MetadataRepository
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewDiscoveryService(
	source LeaderboardSource,
	limiter *ratelimit.Limiter,
	smp *sampler.Stratified,
	players *repository.PlayerRepository,
	metadata *repository.MetadataRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		source:   source,
		limiter:  limiter,
		sampler:  smp,
		players:  players,
		metadata: metadata,
		cfg:      cfg,
		logger:   logger,
	}
}

type DiscoveryResult struct {
	Candidates    int            `json:"candidates"`
	Sampled       int            `json:"sampled"`
	SourcesFailed int            `json:"sources_failed"`
	ByTier        map[string]int `json:"by_tier"`
}

// Discover scans the leaderboards, samples TierQuota players from every
// known tier and stores them as pending. A failing source is skipped; it is
// an error only when every source fails.
func (s *DiscoveryService) Discover(ctx context.Context) (DiscoveryResult, error) {
	now := time.Now().UTC()
	candidates, failed, errs := s.scan(ctx)

	sources := 1 + len(s.cfg.HeroIDs)
	if failed == sources {
		return DiscoveryResult{SourcesFailed: failed}, fmt.Errorf("all %d leaderboard sources failed: %w", sources, errors.Join(errs...))
	}

	pools := make(map[domain.RankTier][]sampler.Candidate)
	for _, c := range candidates {
		pools[c.Tier] = append(pools[c.Tier], c)
	}
	if n := len(pools[domain.TierUnknown]); n > 0 {
		s.logger.Warn().Int("count", n).Msg("candidates without a recognised rank tier are not sampled")
	}

	quotas := make(map[domain.RankTier]int, len(domain.Tiers))
	for _, t := range domain.Tiers {
		quotas[t] = s.cfg.TierQuota
	}

	selected := s.sampler.Sample(pools, quotas)

	res := DiscoveryResult{
		Candidates:    len(candidates),
		Sampled:       len(selected),
		SourcesFailed: failed,
		ByTier:        make(map[string]int),
	}

	players := make([]domain.Player, len(selected))
	for i, c := range selected {
		players[i] = domain.Player{
			Username:     c.Username,
			RankTier:     c.Tier,
			RankScore:    c.RankScore,
			Source:       c.Source,
			DiscoveredAt: now,
		}
		res.ByTier[c.Tier.String()]++
	}
	for _, t := range domain.Tiers {
		if avail, got := len(pools[t]), res.ByTier[t.String()]; got < s.cfg.TierQuota {
			s.logger.Warn().Str("tier", t.String()).Int("available", avail).Int("quota", s.cfg.TierQuota).Msg("tier pool smaller than quota")
		}
	}

	if err := s.players.UpsertDiscovered(ctx, players); err != nil {
		s.logger.Error().Err(err).Msg("failed to store discovered players")
		return res, fmt.Errorf("failed to store discovered players: %w", err)
	}

	_ = s.metadata.Set(ctx, map[string]string{
		domain.MetaLastDiscoveryAt:   now.Format(time.RFC3339),
		domain.MetaPlayersDiscovered: strconv.Itoa(len(players)),
	})

	s.logger.Info().
		Int("candidates", res.Candidates).
		Int("sampled", res.Sampled).
		Int("sources_failed", failed).
		Msg("discovery completed")
	return res, nil
}

// scan reads every source in order and returns the candidates deduplicated
// by username, first seen wins.
func (s *DiscoveryService) scan(ctx context.Context) ([]sampler.Candidate, int, []error) {
	var (
		out    []sampler.Candidate
		errs   []error
		failed int
		seen   = make(map[string]struct{})
	)

	add := func(entries []api.LeaderboardEntry, source string) {
		for _, e := range entries {
			if e.Username == "" {
				continue
			}
			if _, ok := seen[e.Username]; ok {
				continue
			}
			seen[e.Username] = struct{}{}
			out = append(out, sampler.Candidate{
				Username:  e.Username,
				Tier:      domain.ParseRankTier(e.RankTier),
				RankScore: e.RankScore,
				Source:    source,
			})
		}
	}

	fetch := func(name string, call func(context.Context) ([]api.LeaderboardEntry, error)) ([]api.LeaderboardEntry, bool) {
		if err := s.limiter.Acquire(ctx); err != nil {
			errs = append(errs, err)
			failed++
			return nil, false
		}
		entries, err := call(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", name).Bool("transient", api.IsTransient(err)).Msg("leaderboard fetch failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			failed++
			return nil, false
		}
		s.logger.Debug().Str("source", name).Int("entries", len(entries)).Msg("leaderboard fetched")
		return entries, true
	}

	if entries, ok := fetch("leaderboard", func(ctx context.Context) ([]api.LeaderboardEntry, error) {
		return s.source.GetLeaderboard(ctx, s.cfg.LeaderboardLimit)
	}); ok {
		add(entries, domain.SourceLeaderboard)
	}

	for _, id := range s.cfg.HeroIDs {
		name := "hero_leaderboard:" + strconv.Itoa(id)
		if entries, ok := fetch(name, func(ctx context.Context) ([]api.LeaderboardEntry, error) {
			return s.source.GetHeroLeaderboard(ctx, id, s.cfg.HeroLeaderboardLimit)
		}); ok {
			add(entries, domain.SourceHeroLeaderboard)
		}
	}

	return out, failed, errs
}
