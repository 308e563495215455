package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"herostats/internal/db"
	"herostats/internal/domain"
	"herostats/internal/stats"
)

type MatchRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// MatchWithParticipants is one match ready to be persisted.
type MatchWithParticipants struct {
	Match        domain.Match
	Participants []domain.MatchParticipant
}

type SaveResult struct {
	MatchesInserted      int
	MatchesSkipped       int
	ParticipantsInserted int
}

// SaveForPlayer persists the matches collected for one player and marks the
// player fetched, all in one transaction. A match whose id is already stored
// is skipped; participants are inserted with ignore-on-duplicate so a match
// rediscovered through another player never produces extra rows.
func (r *MatchRepository) SaveForPlayer(ctx context.Context, username string, matches []MatchWithParticipants, fetchedAt time.Time) (SaveResult, error) {
	var res SaveResult

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := fetchedAt.UTC()

	for _, m := range matches {
		exists, err := qtx.MatchExists(ctx, m.Match.MatchID)
		if err != nil {
			return res, fmt.Errorf("failed to check match %s: %w", m.Match.MatchID, err)
		}
		if exists {
			res.MatchesSkipped++
			continue
		}

		if _, err := qtx.InsertMatch(ctx, db.Match{
			MatchID:          m.Match.MatchID,
			Mode:             m.Match.Mode,
			Season:           int64(m.Match.Season),
			Timestamp:        m.Match.Timestamp.UTC(),
			ParticipantCount: int64(len(m.Participants)),
			CreatedAt:        now,
		}); err != nil {
			return res, fmt.Errorf("failed to insert match %s: %w", m.Match.MatchID, err)
		}
		res.MatchesInserted++

		for _, p := range m.Participants {
			if _, err := qtx.InsertParticipantPlayer(ctx, p.Username, now); err != nil {
				return res, fmt.Errorf("failed to insert participant player %s: %w", p.Username, err)
			}
			n, err := qtx.InsertParticipant(ctx, toDBParticipant(p))
			if err != nil {
				return res, fmt.Errorf("failed to insert participant %s/%s: %w", p.MatchID, p.Username, err)
			}
			res.ParticipantsInserted += int(n)
		}
	}

	if _, err := qtx.MarkPlayerFetched(ctx, username, now); err != nil {
		return res, fmt.Errorf("failed to mark player %s fetched: %w", username, err)
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit matches for %s: %w", username, err)
	}
	return res, nil
}

func (r *MatchRepository) Exists(ctx context.Context, matchID string) (bool, error) {
	return r.queries.MatchExists(ctx, matchID)
}

func (r *MatchRepository) GetParticipants(ctx context.Context, matchID string) ([]domain.MatchParticipant, error) {
	rows, err := r.queries.GetMatchParticipants(ctx, matchID)
	if err != nil {
		return nil, err
	}
	result := make([]domain.MatchParticipant, len(rows))
	for i, p := range rows {
		role, _ := domain.NormalizeRole(p.Role)
		result[i] = domain.MatchParticipant{
			MatchID:  p.MatchID,
			Username: p.Username,
			HeroID:   int(p.HeroID),
			HeroName: p.HeroName,
			Role:     role,
			Team:     int(p.Team),
			Won:      p.Won,
			Kills:    int(p.Kills),
			Deaths:   int(p.Deaths),
			Assists:  int(p.Assists),
			Damage:   p.Damage,
			Healing:  p.Healing,
		}
	}
	return result, nil
}

type MatchCounts struct {
	Matches      int `json:"matches"`
	Participants int `json:"participants"`
}

func (r *MatchRepository) Counts(ctx context.Context) (MatchCounts, error) {
	matches, err := r.queries.CountMatches(ctx)
	if err != nil {
		return MatchCounts{}, err
	}
	participants, err := r.queries.CountParticipants(ctx)
	if err != nil {
		return MatchCounts{}, err
	}
	return MatchCounts{Matches: int(matches), Participants: int(participants)}, nil
}

func toDBParticipant(p domain.MatchParticipant) db.MatchParticipant {
	return db.MatchParticipant{
		MatchID:  p.MatchID,
		Username: p.Username,
		HeroID:   int64(p.HeroID),
		HeroName: p.HeroName,
		Role:     string(p.Role),
		Team:     int64(p.Team),
		Won:      p.Won,
		Kills:    int64(p.Kills),
		Deaths:   int64(p.Deaths),
		Assists:  int64(p.Assists),
		Damage:   stats.Native(p.Damage),
		Healing:  stats.Native(p.Healing),
	}
}
