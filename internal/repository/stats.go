package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"herostats/internal/db"
	"herostats/internal/domain"
	"herostats/internal/stats"
)

// StatsRepository reads participant data for the analyzers and owns the
// character_stats and synergy_stats caches.
type StatsRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewStatsRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *StatsRepository {
	return &StatsRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *StatsRepository) ListHeroes(ctx context.Context) ([]string, error) {
	return r.queries.ListHeroes(ctx)
}

// Observation is one appearance of a hero: its outcome and the tier of the
// player on it.
type Observation struct {
	Won  bool
	Tier domain.RankTier
}

func (r *StatsRepository) HeroObservations(ctx context.Context, hero string) ([]Observation, error) {
	rows, err := r.queries.ListHeroObservations(ctx, hero)
	if err != nil {
		return nil, err
	}
	obs := make([]Observation, len(rows))
	for i, row := range rows {
		obs[i] = Observation{Won: row.Won, Tier: tierValue(row.RankTier)}
	}
	return obs, nil
}

type Appearance struct {
	MatchID  string
	Username string
	Team     int
	Won      bool
}

// HeroAppearances returns each match the hero was played in.
func (r *StatsRepository) HeroAppearances(ctx context.Context, hero string) ([]Appearance, error) {
	rows, err := r.queries.ListHeroAppearances(ctx, hero)
	if err != nil {
		return nil, err
	}
	out := make([]Appearance, len(rows))
	for i, row := range rows {
		out[i] = Appearance{MatchID: row.MatchID, Username: row.Username, Team: int(row.Team), Won: row.Won}
	}
	return out, nil
}

// Teammates returns the heroes on the same team as the appearance, excluding
// hero itself.
func (r *StatsRepository) Teammates(ctx context.Context, hero string, a Appearance) ([]string, error) {
	return r.queries.ListTeammates(ctx, db.ListTeammatesParams{
		MatchID:  a.MatchID,
		Team:     int64(a.Team),
		Username: a.Username,
		HeroName: hero,
	})
}

// SaveCharacterStats upserts all rows of one hero in a single transaction.
func (r *StatsRepository) SaveCharacterStats(ctx context.Context, rows []domain.CharacterStat) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	for _, s := range rows {
		if err := qtx.UpsertCharacterStat(ctx, toDBCharacterStat(s)); err != nil {
			return fmt.Errorf("failed to upsert character stat %s/%s: %w", s.HeroName, tierLabel(s.RankTier), err)
		}
	}
	return tx.Commit()
}

func (r *StatsRepository) OverallCharacterStats(ctx context.Context) ([]domain.CharacterStat, error) {
	rows, err := r.queries.ListOverallCharacterStats(ctx)
	if err != nil {
		return nil, err
	}
	return toDomainCharacterStats(rows), nil
}

// HeroCharacterStats returns the overall row first, then per-tier rows.
func (r *StatsRepository) HeroCharacterStats(ctx context.Context, hero string) ([]domain.CharacterStat, error) {
	rows, err := r.queries.ListCharacterStatsForHero(ctx, hero)
	if err != nil {
		return nil, err
	}
	return toDomainCharacterStats(rows), nil
}

// SoloWinRates maps each hero with an overall row to its win rate.
func (r *StatsRepository) SoloWinRates(ctx context.Context) (map[string]float64, error) {
	overall, err := r.OverallCharacterStats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(overall))
	for _, s := range overall {
		out[s.HeroName] = s.WinRate
	}
	return out, nil
}

// SaveSynergyStats upserts one hero's retained synergies in a single
// transaction. Pairs are keyed (HeroA, HeroB) with HeroA < HeroB.
func (r *StatsRepository) SaveSynergyStats(ctx context.Context, rows []domain.SynergyStat) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	for _, s := range rows {
		if err := qtx.UpsertSynergyStat(ctx, toDBSynergyStat(s)); err != nil {
			return fmt.Errorf("failed to upsert synergy %s/%s: %w", s.HeroA, s.HeroB, err)
		}
	}
	return tx.Commit()
}

func (r *StatsRepository) HeroSynergies(ctx context.Context, hero string) ([]domain.SynergyStat, error) {
	rows, err := r.queries.ListSynergiesForHero(ctx, hero)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SynergyStat, len(rows))
	for i, s := range rows {
		out[i] = domain.SynergyStat{
			HeroA:                s.HeroA,
			HeroB:                s.HeroB,
			RankTier:             tierKeyValue(s.RankTier),
			GamesTogether:        int(s.GamesTogether),
			WinsTogether:         int(s.WinsTogether),
			ActualWinRate:        s.ActualWinRate,
			ExpectedWinRate:      s.ExpectedWinRate,
			SynergyScore:         s.SynergyScore,
			CILower:              s.CiLower,
			CIUpper:              s.CiUpper,
			PValue:               s.PValue,
			CorrectedAlpha:       s.CorrectedAlpha,
			Significant:          s.Significant,
			SignificantCorrected: s.SignificantCorrected,
			ConfidenceLevel:      domain.ConfidenceLevel(s.ConfidenceLevel),
			SampleWarning:        s.SampleWarning,
			BaselineModel:        s.BaselineModel,
			AnalyzedAt:           s.AnalyzedAt,
		}
	}
	return out, nil
}

type CacheCounts struct {
	CharacterStats int `json:"character_stats"`
	SynergyStats   int `json:"synergy_stats"`
}

func (r *StatsRepository) Counts(ctx context.Context) (CacheCounts, error) {
	c, err := r.queries.CountCharacterStats(ctx)
	if err != nil {
		return CacheCounts{}, err
	}
	s, err := r.queries.CountSynergyStats(ctx)
	if err != nil {
		return CacheCounts{}, err
	}
	return CacheCounts{CharacterStats: int(c), SynergyStats: int(s)}, nil
}

// Every float that crosses into SQLite goes through stats.Native so the
// driver only ever binds finite float64 values.
func toDBCharacterStat(s domain.CharacterStat) db.CharacterStat {
	return db.CharacterStat{
		HeroName:   s.HeroName,
		RankTier:   tierKeyParam(s.RankTier),
		TotalGames: int64(s.TotalGames),
		Wins:       int64(s.Wins),
		Losses:     int64(s.Losses),
		WinRate:    stats.Native(s.WinRate),
		CiLower:    stats.Native(s.CILower),
		CiUpper:    stats.Native(s.CIUpper),
		AnalyzedAt: s.AnalyzedAt.UTC(),
	}
}

func toDBSynergyStat(s domain.SynergyStat) db.SynergyStat {
	return db.SynergyStat{
		HeroA:                s.HeroA,
		HeroB:                s.HeroB,
		RankTier:             tierKeyParam(s.RankTier),
		GamesTogether:        int64(s.GamesTogether),
		WinsTogether:         int64(s.WinsTogether),
		ActualWinRate:        stats.Native(s.ActualWinRate),
		ExpectedWinRate:      stats.Native(s.ExpectedWinRate),
		SynergyScore:         stats.Native(s.SynergyScore),
		CiLower:              stats.Native(s.CILower),
		CiUpper:              stats.Native(s.CIUpper),
		PValue:               stats.Native(s.PValue),
		CorrectedAlpha:       stats.Native(s.CorrectedAlpha),
		Significant:          s.Significant,
		SignificantCorrected: s.SignificantCorrected,
		ConfidenceLevel:      string(s.ConfidenceLevel),
		SampleWarning:        s.SampleWarning,
		BaselineModel:        s.BaselineModel,
		AnalyzedAt:           s.AnalyzedAt.UTC(),
	}
}

func toDomainCharacterStats(rows []db.CharacterStat) []domain.CharacterStat {
	out := make([]domain.CharacterStat, len(rows))
	for i, s := range rows {
		out[i] = domain.CharacterStat{
			HeroName:   s.HeroName,
			RankTier:   tierKeyValue(s.RankTier),
			TotalGames: int(s.TotalGames),
			Wins:       int(s.Wins),
			Losses:     int(s.Losses),
			WinRate:    s.WinRate,
			CILower:    s.CiLower,
			CIUpper:    s.CiUpper,
			AnalyzedAt: s.AnalyzedAt,
		}
	}
	return out
}

func tierLabel(t *domain.RankTier) string {
	if t == nil {
		return "all"
	}
	return t.String()
}

// FloatStorageClasses reports how SQLite stored the float columns of a
// character stat row. Used to guard the persistence boundary.
func (r *StatsRepository) FloatStorageClasses(ctx context.Context, hero string, tier *domain.RankTier) ([]string, error) {
	return r.queries.CharacterStatColumnTypes(ctx, hero, tierKeyParam(tier))
}
