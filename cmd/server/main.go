package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"herostats/internal/config"
	"herostats/internal/constants"
	fxmodules "herostats/internal/fx"
	"herostats/internal/server"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(serveStats),
	).Run()
}

// serveStats exposes the cached statistics over HTTP. The listener is bound
// in OnStart so a taken port aborts startup.
func serveStats(
	lc fx.Lifecycle,
	statsServer *server.StatsServer,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           statsServer.Routes(),
		ReadHeaderTimeout: constants.RequestTimeout,
		WriteTimeout:      constants.RequestTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			}
			logger.Info().Str("addr", ln.Addr().String()).Dur("cache_ttl", cfg.CacheTTL).Msg("stats server listening")
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Msg("stats server stopped unexpectedly")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("stats server shutdown failed")
				return err
			}
			logger.Info().Msg("stats server stopped")
			return nil
		},
	})
}
