package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"herostats/internal/api"
	"herostats/internal/config"
	"herostats/internal/database"
	"herostats/internal/db"
	"herostats/internal/domain"
	"herostats/internal/ratelimit"
	"herostats/internal/repository"
	"herostats/internal/sampler"
)

const (
	testSeason = 3
	testMode   = "competitive"
)

type env struct {
	cfg       *config.Config
	players   *repository.PlayerRepository
	matches   *repository.MatchRepository
	stats     *repository.StatsRepository
	metadata  *repository.MetadataRepository
	character *CharacterService
	synergy   *SynergyService
}

func testConfig() *config.Config {
	return &config.Config{
		CurrentSeason:        testSeason,
		GameMode:             testMode,
		MatchHistoryLimit:    100,
		LeaderboardLimit:     50,
		HeroLeaderboardLimit: 50,
		HeroIDs:              []int{1011},
		TierQuota:            2,
		MinGamesOverall:      100,
		MinGamesPerTier:      30,
		MinSynergyGames:      50,
		SynergyTopK:          10,
		Alpha:                0.05,
		Confidence:           0.95,
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "herostats.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	q := db.New(sqlDB)
	log := zerolog.Nop()
	cfg := testConfig()
	e := &env{
		cfg:      cfg,
		players:  repository.NewPlayerRepository(sqlDB, q, log),
		matches:  repository.NewMatchRepository(sqlDB, q, log),
		stats:    repository.NewStatsRepository(sqlDB, q, log),
		metadata: repository.NewMetadataRepository(q, log),
	}
	e.character = NewCharacterService(e.stats, e.metadata, cfg, log)
	e.synergy = NewSynergyService(e.stats, e.metadata, cfg, log)
	return e
}

func (e *env) collector(f MatchFetcher) *CollectorService {
	return NewCollectorService(f, ratelimit.Unlimited(), e.players, e.matches, e.metadata, e.cfg, zerolog.Nop())
}

func (e *env) discovery(src LeaderboardSource, seed uint64) *DiscoveryService {
	return NewDiscoveryService(src, ratelimit.Unlimited(), sampler.NewSeeded(seed), e.players, e.metadata, e.cfg, zerolog.Nop())
}

func (e *env) seedPlayers(t *testing.T, tier domain.RankTier, names ...string) {
	t.Helper()
	players := make([]domain.Player, len(names))
	for i, n := range names {
		players[i] = domain.Player{
			Username:     n,
			RankTier:     tier,
			Source:       domain.SourceLeaderboard,
			DiscoveredAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		}
	}
	require.NoError(t, e.players.UpsertDiscovered(context.Background(), players))
}

// slot is one player on one hero.
type slot struct {
	user string
	hero string
}

// apiMatch builds an API match. Teams are padded with filler players to six.
func apiMatch(id string, team0, team1 []slot, team0Won bool) api.MatchData {
	build := func(team int, slots []slot) api.TeamData {
		td := api.TeamData{TeamID: team, Won: (team == 0) == team0Won}
		for i := 0; i < 6; i++ {
			s := slot{user: fmt.Sprintf("%s-t%d-f%d", id, team, i), hero: fmt.Sprintf("Filler%d%d", team, i)}
			if i < len(slots) {
				s = slots[i]
			}
			kills, dmg := 5, 1200.5
			td.Players = append(td.Players, api.PlayerData{
				Username: s.user,
				HeroName: s.hero,
				Role:     "Duelist",
				Kills:    &kills,
				Damage:   &dmg,
			})
		}
		return td
	}
	return api.MatchData{
		MatchID:   id,
		Mode:      testMode,
		Season:    testSeason,
		Timestamp: 1700000000,
		Teams:     []api.TeamData{build(0, team0), build(1, team1)},
	}
}

// storeMatches persists API matches through the collector path for a
// throwaway sampled player.
func (e *env) storeMatches(t *testing.T, matches []api.MatchData) {
	t.Helper()
	e.seedPlayers(t, domain.TierUnknown, "loader")
	f := &fakeFetcher{histories: map[string][]api.MatchData{"loader": matches}}
	res, err := e.collector(f).CollectForPlayer(context.Background(), domain.Player{Username: "loader"})
	require.NoError(t, err)
	require.Equal(t, domain.StateCompleted, res.State)
}

type fakeFetcher struct {
	mu        sync.Mutex
	histories map[string][]api.MatchData
	errs      map[string]error
	calls     []string
	onCall    func(username string)
}

func (f *fakeFetcher) GetPlayerMatches(_ context.Context, username string, _ int, _ string, _ int) (*api.PlayerMatchesResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, username)
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook(username)
	}
	if err, ok := f.errs[username]; ok {
		return nil, err
	}
	return &api.PlayerMatchesResponse{Matches: f.histories[username]}, nil
}

type fakeLeaderboards struct {
	board    []api.LeaderboardEntry
	heroes   map[int][]api.LeaderboardEntry
	boardErr error
	heroErr  error
}

func (f *fakeLeaderboards) GetLeaderboard(context.Context, int) ([]api.LeaderboardEntry, error) {
	if f.boardErr != nil {
		return nil, f.boardErr
	}
	return f.board, nil
}

func (f *fakeLeaderboards) GetHeroLeaderboard(_ context.Context, heroID, _ int) ([]api.LeaderboardEntry, error) {
	if f.heroErr != nil {
		return nil, f.heroErr
	}
	return f.heroes[heroID], nil
}
