package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"herostats/internal/constants"
	"herostats/internal/db"
	"herostats/internal/domain"
)

var ErrNotFound = errors.New("not found")

type PlayerRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *PlayerRepository) Get(ctx context.Context, username string) (*domain.Player, error) {
	player, err := r.queries.GetPlayer(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := toDomainPlayer(player)
	return &p, nil
}

// UpsertDiscovered stores sampled players as pending, in batches inside one
// transaction.
func (r *PlayerRepository) UpsertDiscovered(ctx context.Context, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	for i := 0; i < len(players); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(players))

		for _, player := range players[i:end] {
			err := qtx.UpsertDiscoveredPlayer(ctx, db.UpsertDiscoveredPlayerParams{
				Username:     player.Username,
				RankTier:     tierParam(player.RankTier),
				RankScore:    int64(player.RankScore),
				Source:       player.Source,
				DiscoveredAt: player.DiscoveredAt.UTC(),
			})
			if err != nil {
				return fmt.Errorf("failed to upsert player %s: %w", player.Username, err)
			}
		}
	}

	return tx.Commit()
}

// ListPending returns players whose history has not been collected, in
// discovery order.
func (r *PlayerRepository) ListPending(ctx context.Context) ([]domain.Player, error) {
	rows, err := r.queries.ListPendingPlayers(ctx)
	if err != nil {
		return nil, err
	}
	players := make([]domain.Player, len(rows))
	for i, row := range rows {
		players[i] = toDomainPlayer(row)
	}
	return players, nil
}

// MarkFetched flips the completion flag outside of any match transaction.
// The collector uses it for players whose fetch failed.
func (r *PlayerRepository) MarkFetched(ctx context.Context, username string, at time.Time) error {
	n, err := r.queries.MarkPlayerFetched(ctx, username, at.UTC())
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to mark player fetched")
		return err
	}
	if n == 0 {
		return fmt.Errorf("mark player %s fetched: %w", username, ErrNotFound)
	}
	return nil
}

type PlayerCounts struct {
	Pending   int            `json:"pending"`
	Completed int            `json:"completed"`
	ByTier    map[string]int `json:"by_tier"`
}

func (r *PlayerRepository) Counts(ctx context.Context) (PlayerCounts, error) {
	row, err := r.queries.CountSampledPlayers(ctx)
	if err != nil {
		return PlayerCounts{}, err
	}
	tiers, err := r.queries.CountPlayersByTier(ctx)
	if err != nil {
		return PlayerCounts{}, err
	}

	counts := PlayerCounts{
		Pending:   int(row.Pending),
		Completed: int(row.Completed),
		ByTier:    make(map[string]int, len(tiers)),
	}
	for _, t := range tiers {
		counts.ByTier[domain.RankTier(t.RankTier).String()] = int(t.Count)
	}
	return counts, nil
}

func toDomainPlayer(p db.Player) domain.Player {
	return domain.Player{
		Username:            p.Username,
		RankTier:            tierValue(p.RankTier),
		RankScore:           int(p.RankScore),
		Source:              p.Source,
		DiscoveredAt:        p.DiscoveredAt,
		MatchHistoryFetched: p.MatchHistoryFetched,
		FetchedAt:           p.FetchedAt,
	}
}

// tierParam maps the unknown tier to NULL.
func tierParam(t domain.RankTier) *string {
	if !t.Known() {
		return nil
	}
	s := string(t)
	return &s
}

func tierValue(s *string) domain.RankTier {
	if s == nil {
		return domain.TierUnknown
	}
	return domain.ParseRankTier(*s)
}

// tierKeyParam maps a nil tier key (all tiers) to NULL.
func tierKeyParam(t *domain.RankTier) *string {
	if t == nil {
		return nil
	}
	return tierParam(*t)
}

func tierKeyValue(s *string) *domain.RankTier {
	if s == nil {
		return nil
	}
	return domain.TierPtr(domain.ParseRankTier(*s))
}
