package fx

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"herostats/internal/api"
	"herostats/internal/config"
	"herostats/internal/database"
	"herostats/internal/db"
	"herostats/internal/logger"
	"herostats/internal/ratelimit"
	"herostats/internal/repository"
	"herostats/internal/sampler"
	"herostats/internal/server"
	"herostats/internal/service"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideLeaderboardSource(c *api.Client) service.LeaderboardSource {
	return c
}

func ProvideMatchFetcher(c *api.Client) service.MatchFetcher {
	return c
}

// ProvideSampler seeds the sampler from SAMPLE_SEED, or from the clock when
// it is zero.
func ProvideSampler(cfg *config.Config, logger zerolog.Logger) *sampler.Stratified {
	seed := uint64(cfg.SampleSeed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger.Debug().Uint64("seed", seed).Msg("sampler seeded")
	return sampler.NewSeeded(seed)
}

func closeDatabase(lc fx.Lifecycle, sqlDB *sql.DB, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := sqlDB.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
				return err
			}
			return nil
		},
	})
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	fx.Invoke(closeDatabase),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewStatsRepository),
	fx.Provide(repository.NewMetadataRepository),
	// api client
	fx.Provide(api.NewClient),
	fx.Provide(ProvideLeaderboardSource),
	fx.Provide(ProvideMatchFetcher),
	fx.Provide(ratelimit.NewFromConfig),
	fx.Provide(ProvideSampler),
	// svc
	fx.Provide(service.NewDiscoveryService),
	fx.Provide(service.NewCollectorService),
	fx.Provide(service.NewCharacterService),
	fx.Provide(service.NewSynergyService),
	// server
	fx.Provide(server.NewStatsServer),
)
