package constants

import "time"

const (
	ExternalAPITimeout = 15 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 8
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// API paths, relative to API_BASE_URL.
	LeaderboardPath     = "/leaderboard"
	HeroLeaderboardPath = "/heroes/%d/leaderboard"
	PlayerMatchesPath   = "/players/%s/matches"
)
