package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herostats/internal/database"
	"herostats/internal/db"
	"herostats/internal/domain"
)

type repos struct {
	sql      *sql.DB
	players  *PlayerRepository
	matches  *MatchRepository
	stats    *StatsRepository
	metadata *MetadataRepository
}

func openTestDB(t *testing.T) repos {
	t.Helper()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	q := db.New(sqlDB)
	log := zerolog.Nop()
	return repos{
		sql:      sqlDB,
		players:  NewPlayerRepository(sqlDB, q, log),
		matches:  NewMatchRepository(sqlDB, q, log),
		stats:    NewStatsRepository(sqlDB, q, log),
		metadata: NewMetadataRepository(q, log),
	}
}

func seedPlayer(t *testing.T, r repos, username string, tier domain.RankTier) {
	t.Helper()
	require.NoError(t, r.players.UpsertDiscovered(context.Background(), []domain.Player{{
		Username:     username,
		RankTier:     tier,
		RankScore:    1000,
		Source:       domain.SourceLeaderboard,
		DiscoveredAt: time.Now(),
	}}))
}

func fixtureMatch(id string) MatchWithParticipants {
	m := MatchWithParticipants{
		Match: domain.Match{MatchID: id, Mode: "competitive", Season: 1, Timestamp: time.Unix(1700000000, 0)},
	}
	for team := 0; team < 2; team++ {
		for i := 0; i < 6; i++ {
			m.Participants = append(m.Participants, domain.MatchParticipant{
				MatchID:  id,
				Username: fmt.Sprintf("%s-p%d-%d", id, team, i),
				HeroName: fmt.Sprintf("hero%d", i),
				Role:     domain.RoleDuelist,
				Team:     team,
				Won:      team == 0,
			})
		}
	}
	return m
}

func TestSaveForPlayerIsIdempotent(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()
	seedPlayer(t, r, "alice", domain.TierGold)

	batch := []MatchWithParticipants{fixtureMatch("m1"), fixtureMatch("m2")}

	res, err := r.matches.SaveForPlayer(ctx, "alice", batch, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, res.MatchesInserted)
	assert.Equal(t, 24, res.ParticipantsInserted)

	first, err := r.matches.Counts(ctx)
	require.NoError(t, err)

	res, err = r.matches.SaveForPlayer(ctx, "alice", batch, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, res.MatchesInserted)
	assert.Equal(t, 2, res.MatchesSkipped)

	second, err := r.matches.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, MatchCounts{Matches: 2, Participants: 24}, second)

	p, err := r.players.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, p.MatchHistoryFetched)
	assert.NotNil(t, p.FetchedAt)
}

func TestSaveForPlayerDuplicateWithinBatch(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()
	seedPlayer(t, r, "alice", domain.TierGold)

	res, err := r.matches.SaveForPlayer(ctx, "alice", []MatchWithParticipants{fixtureMatch("m1"), fixtureMatch("m1")}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchesInserted)
	assert.Equal(t, 1, res.MatchesSkipped)
}

func TestParticipantsAreNotQueued(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()
	seedPlayer(t, r, "alice", domain.TierGold)

	_, err := r.matches.SaveForPlayer(ctx, "alice", []MatchWithParticipants{fixtureMatch("m1")}, time.Now())
	require.NoError(t, err)

	pending, err := r.players.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	counts, err := r.players.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Pending)
	assert.Equal(t, 1, counts.Completed)

	// A participant later found on a leaderboard becomes a pending player.
	seedPlayer(t, r, "m1-p0-3", domain.TierDiamond)
	pending, err = r.players.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m1-p0-3", pending[0].Username)
	assert.Equal(t, domain.TierDiamond, pending[0].RankTier)
	assert.Equal(t, domain.SourceLeaderboard, pending[0].Source)
}

func TestRediscoveryKeepsCollectionFlag(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()
	seedPlayer(t, r, "alice", domain.TierGold)
	require.NoError(t, r.players.MarkFetched(ctx, "alice", time.Now()))

	seedPlayer(t, r, "alice", domain.TierPlatinum)

	p, err := r.players.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, p.MatchHistoryFetched)
	assert.Equal(t, domain.TierPlatinum, p.RankTier)
}

func TestListPendingDiscoveryOrder(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	var players []domain.Player
	for i, name := range []string{"carol", "alice", "bob"} {
		players = append(players, domain.Player{
			Username:     name,
			Source:       domain.SourceLeaderboard,
			DiscoveredAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, r.players.UpsertDiscovered(ctx, players))

	pending, err := r.players.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "carol", pending[0].Username)
	assert.Equal(t, "alice", pending[1].Username)
	assert.Equal(t, "bob", pending[2].Username)
	assert.Equal(t, domain.TierUnknown, pending[0].RankTier)
}

func TestMarkFetchedUnknownPlayer(t *testing.T) {
	r := openTestDB(t)
	err := r.players.MarkFetched(context.Background(), "ghost", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSynergyPairStoredOnce(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()

	ba, err := domain.NewSynergyStat("B", "A", nil, 60, 100)
	require.NoError(t, err)
	ba.ConfidenceLevel = domain.ConfidenceMedium
	ba.AnalyzedAt = time.Now()
	require.NoError(t, r.stats.SaveSynergyStats(ctx, []domain.SynergyStat{ba}))

	ab, err := domain.NewSynergyStat("A", "B", nil, 61, 101)
	require.NoError(t, err)
	ab.ConfidenceLevel = domain.ConfidenceMedium
	ab.AnalyzedAt = time.Now()
	require.NoError(t, r.stats.SaveSynergyStats(ctx, []domain.SynergyStat{ab}))

	counts, err := r.stats.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.SynergyStats)

	rows, err := r.stats.HeroSynergies(ctx, "A")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].HeroA)
	assert.Equal(t, "B", rows[0].HeroB)
	assert.Equal(t, 101, rows[0].GamesTogether)
	assert.Equal(t, 61, rows[0].WinsTogether)
}

func TestSynergyCheckConstraint(t *testing.T) {
	r := openTestDB(t)
	q := db.New(r.sql)
	err := q.UpsertSynergyStat(context.Background(), db.SynergyStat{
		HeroA: "Zed", HeroB: "Ann", ConfidenceLevel: "low", BaselineModel: domain.BaselineAverage, AnalyzedAt: time.Now(),
	})
	assert.Error(t, err, "hero_a < hero_b must be enforced by the schema")
}

func TestCharacterStatUpsertOverwrites(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()

	overall, err := domain.NewCharacterStat("Storm", nil, 50, 100)
	require.NoError(t, err)
	overall.AnalyzedAt = time.Now()
	gold, err := domain.NewCharacterStat("Storm", domain.TierPtr(domain.TierGold), 20, 40)
	require.NoError(t, err)
	gold.AnalyzedAt = time.Now()
	require.NoError(t, r.stats.SaveCharacterStats(ctx, []domain.CharacterStat{overall, gold}))

	overall, err = domain.NewCharacterStat("Storm", nil, 70, 120)
	require.NoError(t, err)
	overall.AnalyzedAt = time.Now()
	require.NoError(t, r.stats.SaveCharacterStats(ctx, []domain.CharacterStat{overall}))

	counts, err := r.stats.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.CharacterStats)

	rows, err := r.stats.HeroCharacterStats(ctx, "Storm")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].IsOverall())
	assert.Equal(t, 120, rows[0].TotalGames)
	assert.Equal(t, 50, rows[0].Losses)
	require.NotNil(t, rows[1].RankTier)
	assert.Equal(t, domain.TierGold, *rows[1].RankTier)

	solo, err := r.stats.SoloWinRates(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 70.0/120.0, solo["Storm"], 1e-12)
}

// Floats must reach SQLite as REAL values. Non-finite values are normalized
// instead of being bound as NULL and violating NOT NULL.
func TestFloatsCrossStorageBoundaryAsReal(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()

	s, err := domain.NewCharacterStat("Luna", nil, 1, 3)
	require.NoError(t, err)
	s.CILower = math.NaN()
	s.CIUpper = math.Inf(1)
	s.AnalyzedAt = time.Now()
	require.NoError(t, r.stats.SaveCharacterStats(ctx, []domain.CharacterStat{s}))

	classes, err := r.stats.FloatStorageClasses(ctx, "Luna", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"real", "real", "real"}, classes)

	rows, err := r.stats.HeroCharacterStats(ctx, "Luna")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 1.0/3.0, rows[0].WinRate, 1e-12)
	assert.Equal(t, 0.0, rows[0].CILower)
	assert.Equal(t, 0.0, rows[0].CIUpper)
}

func TestMetadata(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, r.metadata.Set(ctx, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, r.metadata.Set(ctx, map[string]string{"a": "3"}))

	m, err := r.metadata.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "3", m.Value)

	all, err := r.metadata.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = r.metadata.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
