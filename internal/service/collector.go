package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"herostats/internal/api"
	"herostats/internal/config"
	"herostats/internal/domain"
	"herostats/internal/metrics"
	"herostats/internal/ratelimit"
	"herostats/internal/repository"
)

// MatchFetcher is the part of the API client the collector needs.
type MatchFetcher interface {
	GetPlayerMatches(ctx context.Context, username string, limit int, mode string, season int) (*api.PlayerMatchesResponse, error)
}

type CollectorService struct {
	fetcher  MatchFetcher
	limiter  *ratelimit.Limiter
	players  *repository.PlayerRepository
	matches  *repository.MatchRepository
	metadata *repository.MetadataRepository
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewCollectorService(
	fetcher MatchFetcher,
	limiter *ratelimit.Limiter,
	players *repository.PlayerRepository,
	matches *repository.MatchRepository,
	metadata *repository.MetadataRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *CollectorService {
	return &CollectorService{
		fetcher:  fetcher,
		limiter:  limiter,
		players:  players,
		matches:  matches,
		metadata: metadata,
		cfg:      cfg,
		logger:   logger,
	}
}

// PlayerResult describes the collection of one player's history.
type PlayerResult struct {
	Username             string                 `json:"username"`
	State                domain.CollectionState `json:"state"`
	MatchesFetched       int                    `json:"matches_fetched"`
	MatchesFiltered      int                    `json:"matches_filtered"`
	MatchesInserted      int                    `json:"matches_inserted"`
	MatchesSkipped       int                    `json:"matches_skipped"`
	ParticipantsInserted int                    `json:"participants_inserted"`
	Malformed            int                    `json:"malformed"`
}

// CollectionResult aggregates one run over the pending players.
type CollectionResult struct {
	RunID                string        `json:"run_id"`
	Pending              int           `json:"pending"`
	Completed            int           `json:"completed"`
	Failed               int           `json:"failed_marked_completed"`
	Errored              int           `json:"errored"`
	MatchesInserted      int           `json:"matches_inserted"`
	MatchesSkipped       int           `json:"matches_skipped"`
	MatchesFiltered      int           `json:"matches_filtered"`
	ParticipantsInserted int           `json:"participants_inserted"`
	Malformed            int           `json:"malformed"`
	Interrupted          bool          `json:"interrupted"`
	Duration             time.Duration `json:"duration"`
}

// Run collects every pending player in discovery order. Cancelling ctx stops
// the run between players; the remaining players stay pending for the next
// run. Per-player failures never abort the run.
func (s *CollectorService) Run(ctx context.Context) (CollectionResult, error) {
	start := time.Now()

	runID, err := gonanoid.New()
	if err != nil {
		return CollectionResult{}, fmt.Errorf("failed to generate run id: %w", err)
	}
	log := s.logger.With().Str("run_id", runID).Logger()

	pending, err := s.players.ListPending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list pending players")
		return CollectionResult{RunID: runID}, fmt.Errorf("failed to list pending players: %w", err)
	}

	res := CollectionResult{RunID: runID, Pending: len(pending)}
	log.Info().Int("pending", len(pending)).Dur("interval", s.limiter.Interval()).Msg("collection started")

	for i, player := range pending {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		pr, err := s.CollectForPlayer(ctx, player)
		if err != nil {
			if ctx.Err() != nil {
				res.Interrupted = true
				break
			}
			log.Error().Err(err).Str("username", player.Username).Msg("failed to persist player history")
			res.Errored++
			continue
		}

		switch pr.State {
		case domain.StateCompleted:
			res.Completed++
		case domain.StateFailedMarkedCompleted:
			res.Failed++
		}
		res.MatchesInserted += pr.MatchesInserted
		res.MatchesSkipped += pr.MatchesSkipped
		res.MatchesFiltered += pr.MatchesFiltered
		res.ParticipantsInserted += pr.ParticipantsInserted
		res.Malformed += pr.Malformed

		if (i+1)%25 == 0 {
			log.Info().Int("done", i+1).Int("pending", len(pending)).Int("matches_inserted", res.MatchesInserted).Msg("collection progress")
		}
	}
	res.Duration = time.Since(start)

	if res.Interrupted {
		log.Warn().Int("completed", res.Completed+res.Failed).Int("pending", len(pending)).Msg("collection interrupted")
	}

	// Bookkeeping must survive a cancelled ctx.
	s.writeRunMetadata(context.WithoutCancel(ctx), res)

	log.Info().
		Int("completed", res.Completed).
		Int("failed", res.Failed).
		Int("errored", res.Errored).
		Int("matches_inserted", res.MatchesInserted).
		Int("matches_skipped", res.MatchesSkipped).
		Int("participants_inserted", res.ParticipantsInserted).
		Dur("duration", res.Duration).
		Msg("collection finished")
	return res, nil
}

func (s *CollectorService) writeRunMetadata(ctx context.Context, res CollectionResult) {
	values := map[string]string{
		domain.MetaLastCollectionRunID:  res.RunID,
		domain.MetaLastCollectionRunAt:  time.Now().UTC().Format(time.RFC3339),
		domain.MetaLastCollectionFailed: strconv.Itoa(res.Failed),
	}
	if counts, err := s.matches.Counts(ctx); err == nil {
		values[domain.MetaTotalMatches] = strconv.Itoa(counts.Matches)
		values[domain.MetaTotalParticipants] = strconv.Itoa(counts.Participants)
	} else {
		s.logger.Warn().Err(err).Msg("failed to count stored matches")
	}
	_ = s.metadata.Set(ctx, values)
}

// CollectForPlayer fetches and stores one player's recent history. API
// failures are logged and the player is still marked fetched so a broken
// account never blocks the queue. A 404 means the player has no history.
// Only persistence errors and cancellation are returned.
func (s *CollectorService) CollectForPlayer(ctx context.Context, player domain.Player) (PlayerResult, error) {
	res := PlayerResult{Username: player.Username, State: domain.StateFetching}
	log := s.logger.With().Str("username", player.Username).Logger()

	if err := s.limiter.Acquire(ctx); err != nil {
		res.State = domain.StatePending
		return res, err
	}

	resp, err := s.fetcher.GetPlayerMatches(ctx, player.Username, s.cfg.MatchHistoryLimit, s.cfg.GameMode, s.cfg.CurrentSeason)
	switch {
	case errors.Is(err, api.ErrNotFound):
		log.Debug().Msg("no match history")
		resp = &api.PlayerMatchesResponse{}
	case err != nil:
		if ctx.Err() != nil {
			res.State = domain.StatePending
			return res, ctx.Err()
		}
		log.Warn().Err(err).Bool("transient", api.IsTransient(err)).Msg("failed to fetch match history, marking player completed")
		if err := s.players.MarkFetched(ctx, player.Username, time.Now()); err != nil {
			return res, fmt.Errorf("failed to mark player %s fetched: %w", player.Username, err)
		}
		res.State = domain.StateFailedMarkedCompleted
		metrics.CollectorPlayers.WithLabelValues(string(res.State)).Inc()
		return res, nil
	}

	res.MatchesFetched = len(resp.Matches)
	batch := make([]repository.MatchWithParticipants, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if !s.inScope(m) {
			res.MatchesFiltered++
			continue
		}
		mp, ok := s.normalizeMatch(log, m)
		if !ok {
			res.MatchesFiltered++
			continue
		}
		if len(mp.Participants) != domain.ExpectedParticipants {
			log.Warn().Str("match_id", m.MatchID).Int("participants", len(mp.Participants)).Msg("unexpected participant count")
			res.Malformed++
			metrics.MalformedMatches.Inc()
		}
		batch = append(batch, mp)
	}

	saved, err := s.matches.SaveForPlayer(ctx, player.Username, batch, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to save match history")
		return res, err
	}

	res.MatchesInserted = saved.MatchesInserted
	res.MatchesSkipped = saved.MatchesSkipped
	res.ParticipantsInserted = saved.ParticipantsInserted
	res.State = domain.StateCompleted

	metrics.CollectorPlayers.WithLabelValues(string(res.State)).Inc()
	metrics.CollectorMatches.WithLabelValues("inserted").Add(float64(res.MatchesInserted))
	metrics.CollectorMatches.WithLabelValues("skipped").Add(float64(res.MatchesSkipped))
	metrics.CollectorMatches.WithLabelValues("filtered").Add(float64(res.MatchesFiltered))
	metrics.CollectorParticipants.Add(float64(res.ParticipantsInserted))

	log.Debug().
		Int("fetched", res.MatchesFetched).
		Int("inserted", res.MatchesInserted).
		Int("skipped", res.MatchesSkipped).
		Int("filtered", res.MatchesFiltered).
		Msg("player collected")
	return res, nil
}

func (s *CollectorService) inScope(m api.MatchData) bool {
	return m.Season == s.cfg.CurrentSeason && m.Mode == s.cfg.GameMode
}

// normalizeMatch maps an API match onto stored rows. Teams are numbered by
// position; a match without a usable id or with more than two teams cannot be
// stored and is dropped.
func (s *CollectorService) normalizeMatch(log zerolog.Logger, m api.MatchData) (repository.MatchWithParticipants, bool) {
	if m.MatchID == "" {
		log.Warn().Msg("match without id dropped")
		return repository.MatchWithParticipants{}, false
	}
	if len(m.Teams) > 2 {
		log.Warn().Str("match_id", m.MatchID).Int("teams", len(m.Teams)).Msg("match with more than two teams dropped")
		return repository.MatchWithParticipants{}, false
	}

	out := repository.MatchWithParticipants{
		Match: domain.Match{
			MatchID:   m.MatchID,
			Mode:      m.Mode,
			Season:    m.Season,
			Timestamp: time.Unix(m.Timestamp, 0).UTC(),
		},
	}
	for team, t := range m.Teams {
		for _, p := range t.Players {
			if p.Username == "" {
				log.Warn().Str("match_id", m.MatchID).Msg("participant without username dropped")
				continue
			}
			role, ok := domain.NormalizeRole(p.Role)
			if !ok {
				log.Warn().Str("match_id", m.MatchID).Str("role", p.Role).Str("hero", p.HeroName).Msg("unknown role")
			}
			out.Participants = append(out.Participants, domain.MatchParticipant{
				MatchID:  m.MatchID,
				Username: p.Username,
				HeroID:   p.HeroID,
				HeroName: p.HeroName,
				Role:     role,
				Team:     team,
				Won:      t.Won,
				Kills:    intOrZero(p.Kills),
				Deaths:   intOrZero(p.Deaths),
				Assists:  intOrZero(p.Assists),
				Damage:   floatOrZero(p.Damage),
				Healing:  floatOrZero(p.Healing),
			})
		}
	}
	out.Match.ParticipantCount = len(out.Participants)
	return out, true
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
