package db

import (
	"context"
	"time"
)

const playerColumns = `username, rank_tier, rank_score, source, discovered_at, match_history_fetched, fetched_at`

const upsertDiscoveredPlayer = `
INSERT INTO players (username, rank_tier, rank_score, source, discovered_at, match_history_fetched)
VALUES (?, ?, ?, ?, ?, 0)
ON CONFLICT (username) DO UPDATE SET
    rank_tier  = COALESCE(excluded.rank_tier, players.rank_tier),
    rank_score = excluded.rank_score,
    match_history_fetched = CASE WHEN players.source = 'participant' THEN 0 ELSE players.match_history_fetched END,
    source     = CASE WHEN players.source = 'participant' THEN excluded.source ELSE players.source END
`

type UpsertDiscoveredPlayerParams struct {
	Username     string
	RankTier     *string
	RankScore    int64
	Source       string
	DiscoveredAt time.Time
}

// UpsertDiscoveredPlayer stores a sampled player as pending. A user known only
// as a match participant is promoted to a pending sampled player; an already
// sampled player keeps its collection flag.
func (q *Queries) UpsertDiscoveredPlayer(ctx context.Context, arg UpsertDiscoveredPlayerParams) error {
	_, err := q.db.ExecContext(ctx, upsertDiscoveredPlayer,
		arg.Username,
		arg.RankTier,
		arg.RankScore,
		arg.Source,
		arg.DiscoveredAt,
	)
	return err
}

const insertParticipantPlayer = `
INSERT OR IGNORE INTO players (username, rank_tier, rank_score, source, discovered_at, match_history_fetched)
VALUES (?, NULL, 0, 'participant', ?, 1)
`

// InsertParticipantPlayer records a user seen only inside a match so the
// participant foreign key holds. Such users are never queued for collection.
func (q *Queries) InsertParticipantPlayer(ctx context.Context, username string, seenAt time.Time) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, insertParticipantPlayer, username, seenAt))
}

const getPlayer = `SELECT ` + playerColumns + ` FROM players WHERE username = ?`

func (q *Queries) GetPlayer(ctx context.Context, username string) (Player, error) {
	row := q.db.QueryRowContext(ctx, getPlayer, username)
	var p Player
	err := row.Scan(
		&p.Username,
		&p.RankTier,
		&p.RankScore,
		&p.Source,
		&p.DiscoveredAt,
		&p.MatchHistoryFetched,
		&p.FetchedAt,
	)
	return p, err
}

const listPendingPlayers = `
SELECT ` + playerColumns + `
FROM players
WHERE match_history_fetched = 0
ORDER BY discovered_at, rowid
`

func (q *Queries) ListPendingPlayers(ctx context.Context) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listPendingPlayers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(
			&p.Username,
			&p.RankTier,
			&p.RankScore,
			&p.Source,
			&p.DiscoveredAt,
			&p.MatchHistoryFetched,
			&p.FetchedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markPlayerFetched = `
UPDATE players SET match_history_fetched = 1, fetched_at = ? WHERE username = ?
`

func (q *Queries) MarkPlayerFetched(ctx context.Context, username string, fetchedAt time.Time) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, markPlayerFetched, fetchedAt, username))
}

const countSampledPlayers = `
SELECT
    COALESCE(SUM(CASE WHEN match_history_fetched = 0 THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN match_history_fetched = 1 THEN 1 ELSE 0 END), 0)
FROM players
WHERE source <> 'participant'
`

type CountSampledPlayersRow struct {
	Pending   int64
	Completed int64
}

func (q *Queries) CountSampledPlayers(ctx context.Context) (CountSampledPlayersRow, error) {
	var r CountSampledPlayersRow
	err := q.db.QueryRowContext(ctx, countSampledPlayers).Scan(&r.Pending, &r.Completed)
	return r, err
}

const countPlayersByTier = `
SELECT COALESCE(rank_tier, ''), COUNT(*)
FROM players
WHERE source <> 'participant'
GROUP BY COALESCE(rank_tier, '')
`

type CountPlayersByTierRow struct {
	RankTier string
	Count    int64
}

func (q *Queries) CountPlayersByTier(ctx context.Context) ([]CountPlayersByTierRow, error) {
	rows, err := q.db.QueryContext(ctx, countPlayersByTier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CountPlayersByTierRow
	for rows.Next() {
		var r CountPlayersByTierRow
		if err := rows.Scan(&r.RankTier, &r.Count); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
