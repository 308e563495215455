package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_KEY", "secret")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 7, cfg.RequestsPerMinute)
	assert.Equal(t, 10000, cfg.RequestsPerDay)
	assert.Equal(t, 100, cfg.MinGamesOverall)
	assert.Equal(t, 30, cfg.MinGamesPerTier)
	assert.Equal(t, 50, cfg.MinSynergyGames)
	assert.Equal(t, 0.05, cfg.Alpha)
	assert.Equal(t, 0.95, cfg.Confidence)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.HeroIDs)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")

	_, err := Load(zerolog.Nop())
	assert.ErrorContains(t, err, "API_KEY")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	t.Setenv("API_BASE_URL", "http://localhost:9000/api/")
	t.Setenv("HERO_IDS", "1011, 1014,1022")
	t.Setenv("CURRENT_SEASON", "3")
	t.Setenv("ALPHA", "0.01")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/api", cfg.APIBaseURL)
	assert.Equal(t, []int{1011, 1014, 1022}, cfg.HeroIDs)
	assert.Equal(t, 3, cfg.CurrentSeason)
	assert.Equal(t, 0.01, cfg.Alpha)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("API_KEY", "secret")

	t.Run("not a number", func(t *testing.T) {
		t.Setenv("REQUESTS_PER_MINUTE", "seven")
		_, err := Load(zerolog.Nop())
		assert.ErrorContains(t, err, "REQUESTS_PER_MINUTE")
	})

	t.Run("out of range", func(t *testing.T) {
		t.Setenv("ALPHA", "1.5")
		_, err := Load(zerolog.Nop())
		assert.ErrorContains(t, err, "invalid configuration")
	})
}
