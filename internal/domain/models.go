package domain

import (
	"time"
)

type Player struct {
	Username            string
	RankTier            RankTier
	RankScore           int
	Source              string // "leaderboard", "hero_leaderboard", "participant"
	DiscoveredAt        time.Time
	MatchHistoryFetched bool
	FetchedAt           *time.Time
}

const (
	SourceLeaderboard     = "leaderboard"
	SourceHeroLeaderboard = "hero_leaderboard"
	SourceParticipant     = "participant"
)

type Match struct {
	MatchID          string
	Mode             string
	Season           int
	Timestamp        time.Time
	ParticipantCount int
	CreatedAt        time.Time
}

type MatchParticipant struct {
	MatchID  string
	Username string
	HeroID   int
	HeroName string
	Role     Role
	Team     int // 0 or 1
	Won      bool
	Kills    int
	Deaths   int
	Assists  int
	Damage   float64
	Healing  float64
}

// ExpectedParticipants is the size of a well-formed match: two teams of six.
const ExpectedParticipants = 12

type CollectionMetadata struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Metadata keys written by discovery and collection.
const (
	MetaLastDiscoveryAt      = "last_discovery_at"
	MetaPlayersDiscovered    = "players_discovered"
	MetaLastCollectionRunID  = "last_collection_run_id"
	MetaLastCollectionRunAt  = "last_collection_run_at"
	MetaTotalMatches         = "total_matches"
	MetaTotalParticipants    = "total_participants"
	MetaLastCharacterRunAt   = "last_character_analysis_at"
	MetaLastSynergyRunAt     = "last_synergy_analysis_at"
	MetaLastCollectionFailed = "last_collection_players_failed"
)

// CollectionState is a player's position in the collection state machine.
type CollectionState string

const (
	StatePending               CollectionState = "pending"
	StateFetching              CollectionState = "fetching"
	StateCompleted             CollectionState = "completed"
	StateFailedMarkedCompleted CollectionState = "failed_marked_completed"
)
