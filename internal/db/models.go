package db

import (
	"time"
)

type Player struct {
	Username            string
	RankTier            *string
	RankScore           int64
	Source              string
	DiscoveredAt        time.Time
	MatchHistoryFetched bool
	FetchedAt           *time.Time
}

type Match struct {
	MatchID          string
	Mode             string
	Season           int64
	Timestamp        time.Time
	ParticipantCount int64
	CreatedAt        time.Time
}

type MatchParticipant struct {
	MatchID  string
	Username string
	HeroID   int64
	HeroName string
	Role     string
	Team     int64
	Won      bool
	Kills    int64
	Deaths   int64
	Assists  int64
	Damage   float64
	Healing  float64
}

type CharacterStat struct {
	HeroName   string
	RankTier   *string
	TotalGames int64
	Wins       int64
	Losses     int64
	WinRate    float64
	CiLower    float64
	CiUpper    float64
	AnalyzedAt time.Time
}

type SynergyStat struct {
	HeroA                string
	HeroB                string
	RankTier             *string
	GamesTogether        int64
	WinsTogether         int64
	ActualWinRate        float64
	ExpectedWinRate      float64
	SynergyScore         float64
	CiLower              float64
	CiUpper              float64
	PValue               float64
	CorrectedAlpha       float64
	Significant          bool
	SignificantCorrected bool
	ConfidenceLevel      string
	SampleWarning        string
	BaselineModel        string
	AnalyzedAt           time.Time
}

type CollectionMetadatum struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
