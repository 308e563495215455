// Package server exposes the cached statistics over a read-only JSON API.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"herostats/internal/config"
	"herostats/internal/constants"
	"herostats/internal/domain"
	"herostats/internal/middleware"
	"herostats/internal/repository"
)

var errNoData = errors.New("no data")

type StatsServer struct {
	stats    *repository.StatsRepository
	players  *repository.PlayerRepository
	matches  *repository.MatchRepository
	metadata *repository.MetadataRepository
	logger   zerolog.Logger

	// cache is nil when CACHE_TTL is zero
	cache *cache.Cache
	group singleflight.Group
}

func NewStatsServer(
	statsRepo *repository.StatsRepository,
	players *repository.PlayerRepository,
	matches *repository.MatchRepository,
	metadata *repository.MetadataRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *StatsServer {
	s := &StatsServer{
		stats:    statsRepo,
		players:  players,
		matches:  matches,
		metadata: metadata,
		logger:   logger,
	}
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return s
}

// Routes builds the HTTP handler, metrics endpoint included.
func (s *StatsServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/heroes", s.listHeroes)
		r.Get("/heroes/{hero}/winrates", s.heroWinRates)
		r.Get("/heroes/{hero}/synergies", s.heroSynergies)
		r.Get("/status", s.status)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *StatsServer) listHeroes(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, "heroes", func(ctx context.Context) (any, error) {
		rows, err := s.stats.OverallCharacterStats(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"heroes": nonNil(rows)}, nil
	})
}

func (s *StatsServer) heroWinRates(w http.ResponseWriter, r *http.Request) {
	hero := chi.URLParam(r, "hero")
	s.serveCached(w, r, "winrates:"+hero, func(ctx context.Context) (any, error) {
		rows, err := s.stats.HeroCharacterStats(ctx, hero)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 || !rows[0].IsOverall() {
			return nil, errNoData
		}
		return map[string]any{
			"hero":    hero,
			"overall": rows[0],
			"by_tier": nonNil(rows[1:]),
		}, nil
	})
}

func (s *StatsServer) heroSynergies(w http.ResponseWriter, r *http.Request) {
	hero := chi.URLParam(r, "hero")
	s.serveCached(w, r, "synergies:"+hero, func(ctx context.Context) (any, error) {
		rows, err := s.stats.HeroSynergies(ctx, hero)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errNoData
		}
		type entry struct {
			Teammate string `json:"teammate"`
			domain.SynergyStat
		}
		out := make([]entry, len(rows))
		for i, row := range rows {
			out[i] = entry{Teammate: row.Partner(hero), SynergyStat: row}
		}
		return map[string]any{"hero": hero, "synergies": out}, nil
	})
}

type statusResponse struct {
	Players  repository.PlayerCounts `json:"players"`
	Matches  repository.MatchCounts  `json:"matches"`
	Cache    repository.CacheCounts  `json:"cache"`
	Metadata map[string]string       `json:"metadata"`
}

// status is never cached; it reports collection progress.
func (s *StatsServer) status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	var resp statusResponse
	var err error
	if resp.Players, err = s.players.Counts(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	if resp.Matches, err = s.matches.Counts(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	if resp.Cache, err = s.stats.Counts(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	meta, err := s.metadata.List(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp.Metadata = make(map[string]string, len(meta))
	for _, m := range meta {
		resp.Metadata[m.Key] = m.Value
	}

	body, err := json.Marshal(resp)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// serveCached answers from the TTL cache, coalescing concurrent misses of
// the same key into one database read.
func (s *StatsServer) serveCached(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) (any, error)) {
	if s.cache != nil {
		if body, ok := s.cache.Get(key); ok {
			writeJSON(w, http.StatusOK, body.([]byte))
			return
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), constants.DatabaseTimeout)
		defer cancel()

		data, err := load(ctx)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetDefault(key, body)
		}
		return body, nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v.([]byte))
}

func (s *StatsServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	if errors.Is(err, errNoData) {
		status = http.StatusNotFound
		msg = "no statistics for this hero"
	} else {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	body, _ := json.Marshal(map[string]string{
		"error":      msg,
		"request_id": middleware.GetRequestID(r.Context()),
	})
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Invalidate drops every cached response. Run after an analysis pass when
// the server shares the process with the analyzers.
func (s *StatsServer) Invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}
