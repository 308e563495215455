package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	APIKey     string `validate:"required"`
	APIBaseURL string `validate:"required,url"`
	DBPath     string `validate:"required"`
	ServerPort string `validate:"required,numeric"`
	LogLevel   string
	CacheTTL   time.Duration

	// collection
	CurrentSeason        int    `validate:"gte=0"`
	GameMode             string `validate:"required"`
	RequestsPerMinute    int    `validate:"gte=1"`
	RequestsPerDay       int    `validate:"gte=1"`
	MatchHistoryLimit    int    `validate:"gte=1,lte=1000"`
	LeaderboardLimit     int    `validate:"gte=1"`
	HeroLeaderboardLimit int    `validate:"gte=1"`
	HeroIDs              []int
	TierQuota            int   `validate:"gte=1"`
	SampleSeed           int64 // 0 seeds from the clock

	// analysis
	MinGamesOverall int     `validate:"gte=1"`
	MinGamesPerTier int     `validate:"gte=1"`
	MinSynergyGames int     `validate:"gte=1"`
	SynergyTopK     int     `validate:"gte=1"`
	Alpha           float64 `validate:"gt=0,lt=1"`
	Confidence      float64 `validate:"gt=0,lt=1"`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	p := &parser{}
	cfg := &Config{
		APIKey:     getEnv("API_KEY", ""),
		APIBaseURL: strings.TrimRight(getEnv("API_BASE_URL", "https://marvelrivalsapi.com/api/v1"), "/"),
		DBPath:     getEnv("DB_PATH", "herostats.db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		CacheTTL:   p.duration("CACHE_TTL", 5*time.Minute),

		CurrentSeason:        p.int("CURRENT_SEASON", 0),
		GameMode:             getEnv("GAME_MODE", "competitive"),
		RequestsPerMinute:    p.int("REQUESTS_PER_MINUTE", 7),
		RequestsPerDay:       p.int("REQUESTS_PER_DAY", 10000),
		MatchHistoryLimit:    p.int("MATCH_HISTORY_LIMIT", 100),
		LeaderboardLimit:     p.int("LEADERBOARD_LIMIT", 500),
		HeroLeaderboardLimit: p.int("HERO_LEADERBOARD_LIMIT", 100),
		HeroIDs:              p.intList("HERO_IDS"),
		TierQuota:            p.int("TIER_QUOTA", 50),
		SampleSeed:           int64(p.int("SAMPLE_SEED", 0)),

		MinGamesOverall: p.int("MIN_GAMES_OVERALL", 100),
		MinGamesPerTier: p.int("MIN_GAMES_PER_TIER", 30),
		MinSynergyGames: p.int("MIN_SYNERGY_GAMES", 50),
		SynergyTopK:     p.int("SYNERGY_TOP_K", 10),
		Alpha:           p.float("ALPHA", 0.05),
		Confidence:      p.float("CONFIDENCE", 0.95),
	}

	if p.err != nil {
		return nil, p.err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("api_base_url", cfg.APIBaseURL).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("season", cfg.CurrentSeason).
		Str("mode", cfg.GameMode).
		Int("requests_per_minute", cfg.RequestsPerMinute).
		Int("requests_per_day", cfg.RequestsPerDay).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func (p *parser) intList(key string) []int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			p.fail(key, v, err)
			return nil
		}
		out = append(out, n)
	}
	return out
}

var Module = fx.Provide(Load)
