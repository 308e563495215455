package db

import (
	"context"
)

const characterStatColumns = `hero_name, rank_tier, total_games, wins, losses, win_rate, ci_lower, ci_upper, analyzed_at`

// The unique keys of the cache tables are expression indexes over
// COALESCE(rank_tier, ''), so upserts run as update-then-insert rather than
// ON CONFLICT.

const updateCharacterStat = `
UPDATE character_stats SET
    total_games = ?, wins = ?, losses = ?, win_rate = ?, ci_lower = ?, ci_upper = ?, analyzed_at = ?
WHERE hero_name = ? AND COALESCE(rank_tier, '') = COALESCE(?, '')
`

const insertCharacterStat = `
INSERT INTO character_stats (` + characterStatColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) UpsertCharacterStat(ctx context.Context, arg CharacterStat) error {
	n, err := rowsAffected(q.db.ExecContext(ctx, updateCharacterStat,
		arg.TotalGames,
		arg.Wins,
		arg.Losses,
		arg.WinRate,
		arg.CiLower,
		arg.CiUpper,
		arg.AnalyzedAt,
		arg.HeroName,
		arg.RankTier,
	))
	if err != nil || n > 0 {
		return err
	}
	_, err = q.db.ExecContext(ctx, insertCharacterStat,
		arg.HeroName,
		arg.RankTier,
		arg.TotalGames,
		arg.Wins,
		arg.Losses,
		arg.WinRate,
		arg.CiLower,
		arg.CiUpper,
		arg.AnalyzedAt,
	)
	return err
}

func scanCharacterStats(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close() error
}) ([]CharacterStat, error) {
	defer rows.Close()

	var items []CharacterStat
	for rows.Next() {
		var s CharacterStat
		if err := rows.Scan(
			&s.HeroName,
			&s.RankTier,
			&s.TotalGames,
			&s.Wins,
			&s.Losses,
			&s.WinRate,
			&s.CiLower,
			&s.CiUpper,
			&s.AnalyzedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const listOverallCharacterStats = `
SELECT ` + characterStatColumns + `
FROM character_stats
WHERE rank_tier IS NULL
ORDER BY hero_name
`

func (q *Queries) ListOverallCharacterStats(ctx context.Context) ([]CharacterStat, error) {
	rows, err := q.db.QueryContext(ctx, listOverallCharacterStats)
	if err != nil {
		return nil, err
	}
	return scanCharacterStats(rows)
}

const listCharacterStatsForHero = `
SELECT ` + characterStatColumns + `
FROM character_stats
WHERE hero_name = ?
ORDER BY rank_tier IS NOT NULL, rank_tier
`

func (q *Queries) ListCharacterStatsForHero(ctx context.Context, hero string) ([]CharacterStat, error) {
	rows, err := q.db.QueryContext(ctx, listCharacterStatsForHero, hero)
	if err != nil {
		return nil, err
	}
	return scanCharacterStats(rows)
}

const countCharacterStats = `SELECT COUNT(*) FROM character_stats`

func (q *Queries) CountCharacterStats(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCharacterStats).Scan(&n)
	return n, err
}

const synergyStatColumns = `hero_a, hero_b, rank_tier, games_together, wins_together, actual_win_rate,
    expected_win_rate, synergy_score, ci_lower, ci_upper, p_value, corrected_alpha, significant,
    significant_corrected, confidence_level, sample_warning, baseline_model, analyzed_at`

const updateSynergyStat = `
UPDATE synergy_stats SET
    games_together = ?, wins_together = ?, actual_win_rate = ?, expected_win_rate = ?,
    synergy_score = ?, ci_lower = ?, ci_upper = ?, p_value = ?, corrected_alpha = ?,
    significant = ?, significant_corrected = ?, confidence_level = ?, sample_warning = ?,
    baseline_model = ?, analyzed_at = ?
WHERE hero_a = ? AND hero_b = ? AND COALESCE(rank_tier, '') = COALESCE(?, '')
`

const insertSynergyStat = `
INSERT INTO synergy_stats (` + synergyStatColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) UpsertSynergyStat(ctx context.Context, arg SynergyStat) error {
	n, err := rowsAffected(q.db.ExecContext(ctx, updateSynergyStat,
		arg.GamesTogether,
		arg.WinsTogether,
		arg.ActualWinRate,
		arg.ExpectedWinRate,
		arg.SynergyScore,
		arg.CiLower,
		arg.CiUpper,
		arg.PValue,
		arg.CorrectedAlpha,
		arg.Significant,
		arg.SignificantCorrected,
		arg.ConfidenceLevel,
		arg.SampleWarning,
		arg.BaselineModel,
		arg.AnalyzedAt,
		arg.HeroA,
		arg.HeroB,
		arg.RankTier,
	))
	if err != nil || n > 0 {
		return err
	}
	_, err = q.db.ExecContext(ctx, insertSynergyStat,
		arg.HeroA,
		arg.HeroB,
		arg.RankTier,
		arg.GamesTogether,
		arg.WinsTogether,
		arg.ActualWinRate,
		arg.ExpectedWinRate,
		arg.SynergyScore,
		arg.CiLower,
		arg.CiUpper,
		arg.PValue,
		arg.CorrectedAlpha,
		arg.Significant,
		arg.SignificantCorrected,
		arg.ConfidenceLevel,
		arg.SampleWarning,
		arg.BaselineModel,
		arg.AnalyzedAt,
	)
	return err
}

const listSynergiesForHero = `
SELECT ` + synergyStatColumns + `
FROM synergy_stats
WHERE (hero_a = ? OR hero_b = ?) AND rank_tier IS NULL
ORDER BY synergy_score DESC, hero_a, hero_b
`

func (q *Queries) ListSynergiesForHero(ctx context.Context, hero string) ([]SynergyStat, error) {
	rows, err := q.db.QueryContext(ctx, listSynergiesForHero, hero, hero)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SynergyStat
	for rows.Next() {
		var s SynergyStat
		if err := rows.Scan(
			&s.HeroA,
			&s.HeroB,
			&s.RankTier,
			&s.GamesTogether,
			&s.WinsTogether,
			&s.ActualWinRate,
			&s.ExpectedWinRate,
			&s.SynergyScore,
			&s.CiLower,
			&s.CiUpper,
			&s.PValue,
			&s.CorrectedAlpha,
			&s.Significant,
			&s.SignificantCorrected,
			&s.ConfidenceLevel,
			&s.SampleWarning,
			&s.BaselineModel,
			&s.AnalyzedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const countSynergyStats = `SELECT COUNT(*) FROM synergy_stats`

func (q *Queries) CountSynergyStats(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countSynergyStats).Scan(&n)
	return n, err
}

const columnTypes = `
SELECT typeof(win_rate), typeof(ci_lower), typeof(ci_upper)
FROM character_stats
WHERE hero_name = ? AND COALESCE(rank_tier, '') = COALESCE(?, '')
`

// CharacterStatColumnTypes reports SQLite's storage class for the float
// columns of one row.
func (q *Queries) CharacterStatColumnTypes(ctx context.Context, hero string, tier *string) ([]string, error) {
	types := make([]string, 3)
	err := q.db.QueryRowContext(ctx, columnTypes, hero, tier).Scan(&types[0], &types[1], &types[2])
	return types, err
}
