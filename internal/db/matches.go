package db

import (
	"context"
)

const matchExists = `SELECT EXISTS (SELECT 1 FROM matches WHERE match_id = ?)`

func (q *Queries) MatchExists(ctx context.Context, matchID string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, matchExists, matchID).Scan(&exists)
	return exists, err
}

const insertMatch = `
INSERT OR IGNORE INTO matches (match_id, mode, season, timestamp, participant_count, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

// InsertMatch returns 0 when the match was already stored.
func (q *Queries) InsertMatch(ctx context.Context, arg Match) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, insertMatch,
		arg.MatchID,
		arg.Mode,
		arg.Season,
		arg.Timestamp,
		arg.ParticipantCount,
		arg.CreatedAt,
	))
}

const insertParticipant = `
INSERT OR IGNORE INTO match_participants (
    match_id, username, hero_id, hero_name, role, team, won,
    kills, deaths, assists, damage, healing
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertParticipant returns 0 when (match_id, username) was already stored.
func (q *Queries) InsertParticipant(ctx context.Context, arg MatchParticipant) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, insertParticipant,
		arg.MatchID,
		arg.Username,
		arg.HeroID,
		arg.HeroName,
		arg.Role,
		arg.Team,
		arg.Won,
		arg.Kills,
		arg.Deaths,
		arg.Assists,
		arg.Damage,
		arg.Healing,
	))
}

const getMatchParticipants = `
SELECT match_id, username, hero_id, hero_name, role, team, won, kills, deaths, assists, damage, healing
FROM match_participants
WHERE match_id = ?
ORDER BY team, username
`

func (q *Queries) GetMatchParticipants(ctx context.Context, matchID string) ([]MatchParticipant, error) {
	rows, err := q.db.QueryContext(ctx, getMatchParticipants, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MatchParticipant
	for rows.Next() {
		var p MatchParticipant
		if err := rows.Scan(
			&p.MatchID,
			&p.Username,
			&p.HeroID,
			&p.HeroName,
			&p.Role,
			&p.Team,
			&p.Won,
			&p.Kills,
			&p.Deaths,
			&p.Assists,
			&p.Damage,
			&p.Healing,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const countMatches = `SELECT COUNT(*) FROM matches`

func (q *Queries) CountMatches(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countMatches).Scan(&n)
	return n, err
}

const countParticipants = `SELECT COUNT(*) FROM match_participants`

func (q *Queries) CountParticipants(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countParticipants).Scan(&n)
	return n, err
}

const listHeroes = `SELECT DISTINCT hero_name FROM match_participants ORDER BY hero_name`

func (q *Queries) ListHeroes(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listHeroes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var heroes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		heroes = append(heroes, h)
	}
	return heroes, rows.Err()
}

const listHeroObservations = `
SELECT mp.won, p.rank_tier
FROM match_participants mp
LEFT JOIN players p ON p.username = mp.username
WHERE mp.hero_name = ?
`

type HeroObservationRow struct {
	Won      bool
	RankTier *string
}

// ListHeroObservations returns one (outcome, player tier) pair per
// appearance of hero.
func (q *Queries) ListHeroObservations(ctx context.Context, hero string) ([]HeroObservationRow, error) {
	rows, err := q.db.QueryContext(ctx, listHeroObservations, hero)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []HeroObservationRow
	for rows.Next() {
		var r HeroObservationRow
		if err := rows.Scan(&r.Won, &r.RankTier); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listHeroAppearances = `
SELECT match_id, username, team, won
FROM match_participants
WHERE hero_name = ?
ORDER BY match_id, username
`

type HeroAppearanceRow struct {
	MatchID  string
	Username string
	Team     int64
	Won      bool
}

// ListHeroAppearances returns every match hero appeared in, with its team and
// outcome.
func (q *Queries) ListHeroAppearances(ctx context.Context, hero string) ([]HeroAppearanceRow, error) {
	rows, err := q.db.QueryContext(ctx, listHeroAppearances, hero)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []HeroAppearanceRow
	for rows.Next() {
		var r HeroAppearanceRow
		if err := rows.Scan(&r.MatchID, &r.Username, &r.Team, &r.Won); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listTeammates = `
SELECT hero_name
FROM match_participants
WHERE match_id = ? AND team = ? AND username <> ? AND hero_name <> ?
`

type ListTeammatesParams struct {
	MatchID  string
	Team     int64
	Username string
	HeroName string
}

// ListTeammates returns the heroes on the same side as one appearance,
// excluding the appearance itself and any other copy of its hero.
func (q *Queries) ListTeammates(ctx context.Context, arg ListTeammatesParams) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listTeammates, arg.MatchID, arg.Team, arg.Username, arg.HeroName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var heroes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		heroes = append(heroes, h)
	}
	return heroes, rows.Err()
}
