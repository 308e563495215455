package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herostats/internal/api"
	"herostats/internal/domain"
	"herostats/internal/stats"
)

// characterFixture stores 120 Storm games (80 by a gold player, 20 by a
// platinum player, 20 by unsampled players) and 10 Rare games. Storm wins
// every other game.
func characterFixture(t *testing.T, e *env) {
	t.Helper()
	e.seedPlayers(t, domain.TierGold, "gold1")
	e.seedPlayers(t, domain.TierPlatinum, "plat1")

	var matches []api.MatchData
	for i := 0; i < 120; i++ {
		user := fmt.Sprintf("anon%d", i)
		switch {
		case i < 80:
			user = "gold1"
		case i < 100:
			user = "plat1"
		}
		team1 := []slot(nil)
		if i < 10 {
			team1 = []slot{{fmt.Sprintf("rare%d", i), "Rare"}}
		}
		matches = append(matches, apiMatch(fmt.Sprintf("c%03d", i), []slot{{user, "Storm"}}, team1, i%2 == 0))
	}
	e.storeMatches(t, matches)
}

func TestCharacterAnalysis(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	characterFixture(t, e)

	storm, err := e.character.AnalyzeHero(ctx, "Storm")
	require.NoError(t, err)
	require.False(t, storm.Skipped)
	require.NotNil(t, storm.Overall)
	assert.Equal(t, 120, storm.Overall.TotalGames)
	assert.Equal(t, 60, storm.Overall.Wins)
	assert.InDelta(t, 0.5, storm.Overall.WinRate, 1e-12)
	assert.Less(t, storm.Overall.CILower, 0.5)
	assert.Greater(t, storm.Overall.CIUpper, 0.5)

	// platinum has 20 games, below the per-tier minimum
	require.Len(t, storm.ByTier, 1)
	require.NotNil(t, storm.ByTier[0].RankTier)
	assert.Equal(t, domain.TierGold, *storm.ByTier[0].RankTier)
	assert.Equal(t, 80, storm.ByTier[0].TotalGames)

	rare, err := e.character.AnalyzeHero(ctx, "Rare")
	require.NoError(t, err)
	assert.True(t, rare.Skipped)
	assert.Equal(t, 10, rare.TotalGames)

	rows, err := e.stats.HeroCharacterStats(ctx, "Rare")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCharacterAnalysisIsRerunnable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	characterFixture(t, e)

	_, err := e.character.AnalyzeAll(ctx)
	require.NoError(t, err)
	first, err := e.stats.Counts(ctx)
	require.NoError(t, err)

	results, err := e.character.AnalyzeAll(ctx)
	require.NoError(t, err)
	second, err := e.stats.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var stored []string
	for _, r := range results {
		if !r.Skipped {
			stored = append(stored, r.Hero)
		}
	}
	assert.Contains(t, stored, "Storm")
	assert.NotContains(t, stored, "Rare")

	ts, err := e.metadata.Get(ctx, domain.MetaLastCharacterRunAt)
	require.NoError(t, err)
	assert.NotEmpty(t, ts.Value)
}

// synergyFixture stores 207 games in which A and B share a team and win 124,
// with solo baselines of 52% and 55%.
func synergyFixture(t *testing.T, e *env) {
	t.Helper()
	var matches []api.MatchData
	for i := 0; i < 207; i++ {
		id := fmt.Sprintf("s%03d", i)
		team0 := []slot{{id + "-a", "A"}, {id + "-b", "B"}}
		matches = append(matches, apiMatch(id, team0, nil, i < 124))
	}
	e.storeMatches(t, matches)

	now := time.Now()
	for hero, wins := range map[string]int{"A": 52, "B": 55} {
		s, err := domain.NewCharacterStat(hero, nil, wins, 100)
		require.NoError(t, err)
		s.AnalyzedAt = now
		require.NoError(t, e.stats.SaveCharacterStats(context.Background(), []domain.CharacterStat{s}))
	}
}

func TestSynergyScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	synergyFixture(t, e)

	res, err := e.synergy.AnalyzeHero(ctx, "A")
	require.NoError(t, err)
	require.Len(t, res.Synergies, 1)
	assert.Equal(t, 4, res.NoBase, "fillers have no solo baseline")

	s := res.Synergies[0]
	assert.Equal(t, "A", s.HeroA)
	assert.Equal(t, "B", s.HeroB)
	assert.Equal(t, 207, s.GamesTogether)
	assert.Equal(t, 124, s.WinsTogether)
	assert.InDelta(t, 0.535, s.ExpectedWinRate, 1e-12)
	assert.InDelta(t, 0.599, s.ActualWinRate, 0.001)
	assert.InDelta(t, 0.064, s.SynergyScore, 0.001)
	assert.Equal(t, domain.ConfidenceMedium, s.ConfidenceLevel)
	assert.NotEmpty(t, s.SampleWarning)
	assert.Equal(t, domain.BaselineAverage, s.BaselineModel)
	assert.InDelta(t, 0.05, s.CorrectedAlpha, 1e-12)
	assert.Less(t, s.CILower, s.ActualWinRate)
	assert.Greater(t, s.CIUpper, s.ActualWinRate)

	want := stats.BinomialTest(124, 207, 0.535, 0.05)
	assert.InDelta(t, want.PValue, s.PValue, 1e-12)

	require.NotNil(t, res.Power)
	assert.Equal(t, 207, res.Power.MaxGames)
	require.Len(t, res.Power.Requirements, 3)
	assert.False(t, res.Power.Requirements[0].Detectable)

	stored, err := e.stats.HeroSynergies(ctx, "B")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.InDelta(t, s.SynergyScore, stored[0].SynergyScore, 1e-12)
}

func TestSynergyPairStoredOnceAcrossHeroes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	synergyFixture(t, e)

	results, err := e.synergy.AnalyzeAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	counts, err := e.stats.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.SynergyStats)
}

func TestSynergyTopKAndMinimum(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.cfg.SynergyTopK = 1
	e.cfg.MinSynergyGames = 60

	var matches []api.MatchData
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("k%03d", i)
		team0 := []slot{{id + "-h", "H"}, {id + "-x", "X"}}
		if i < 70 {
			team0 = append(team0, slot{id + "-y", "Y"})
		}
		if i < 40 {
			team0 = append(team0, slot{id + "-z", "Z"})
		}
		matches = append(matches, apiMatch(id, team0, nil, i%3 != 0))
	}
	e.storeMatches(t, matches)
	for _, hero := range []string{"H", "X", "Y", "Z"} {
		s, err := domain.NewCharacterStat(hero, nil, 50, 100)
		require.NoError(t, err)
		s.AnalyzedAt = time.Now()
		require.NoError(t, e.stats.SaveCharacterStats(ctx, []domain.CharacterStat{s}))
	}

	res, err := e.synergy.AnalyzeHero(ctx, "H")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Qualified, "Z has only 40 games")
	require.Len(t, res.Synergies, 1)
	// both qualifiers count toward the correction
	assert.InDelta(t, 0.025, res.Synergies[0].CorrectedAlpha, 1e-12)
}

func TestSynergyWithoutSoloBaseline(t *testing.T) {
	e := newEnv(t)
	res, err := e.synergy.AnalyzeHero(context.Background(), "Nobody")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}
