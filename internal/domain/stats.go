package domain

import (
	"fmt"
	"time"
)

// CharacterStat is the cached win rate of one hero, either within a tier or
// across all tiers when RankTier is nil.
type CharacterStat struct {
	HeroName   string    `json:"hero_name"`
	RankTier   *RankTier `json:"rank_tier"`
	TotalGames int       `json:"total_games"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	WinRate    float64   `json:"win_rate"`
	CILower    float64   `json:"ci_lower"`
	CIUpper    float64   `json:"ci_upper"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// NewCharacterStat validates the counts and fills the derived fields except
// the confidence interval.
func NewCharacterStat(hero string, tier *RankTier, wins, total int) (CharacterStat, error) {
	if hero == "" {
		return CharacterStat{}, fmt.Errorf("hero name is required")
	}
	if total < 0 || wins < 0 || wins > total {
		return CharacterStat{}, fmt.Errorf("invalid counts for %s: wins=%d total=%d", hero, wins, total)
	}
	s := CharacterStat{
		HeroName:   hero,
		RankTier:   tier,
		TotalGames: total,
		Wins:       wins,
		Losses:     total - wins,
	}
	if total > 0 {
		s.WinRate = float64(wins) / float64(total)
	}
	return s, nil
}

// IsOverall reports whether s aggregates all tiers.
func (s CharacterStat) IsOverall() bool {
	return s.RankTier == nil
}

// BaselineAverage identifies the average baseline model, the only model used
// to compute ExpectedWinRate.
const BaselineAverage = "average"

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// SynergyStat is the cached synergy of an unordered hero pair. HeroA is
// always lexicographically smaller than HeroB.
type SynergyStat struct {
	HeroA                string          `json:"hero_a"`
	HeroB                string          `json:"hero_b"`
	RankTier             *RankTier       `json:"rank_tier"`
	GamesTogether        int             `json:"games_together"`
	WinsTogether         int             `json:"wins_together"`
	ActualWinRate        float64         `json:"actual_win_rate"`
	ExpectedWinRate      float64         `json:"expected_win_rate"`
	SynergyScore         float64         `json:"synergy_score"`
	CILower              float64         `json:"ci_lower"`
	CIUpper              float64         `json:"ci_upper"`
	PValue               float64         `json:"p_value"`
	CorrectedAlpha       float64         `json:"corrected_alpha"`
	Significant          bool            `json:"significant"`
	SignificantCorrected bool            `json:"significant_corrected"`
	ConfidenceLevel      ConfidenceLevel `json:"confidence_level"`
	SampleWarning        string          `json:"sample_warning,omitempty"`
	BaselineModel        string          `json:"baseline_model"`
	AnalyzedAt           time.Time       `json:"analyzed_at"`
}

// NewSynergyStat orders the pair and validates the counts.
func NewSynergyStat(hero, teammate string, tier *RankTier, wins, games int) (SynergyStat, error) {
	if hero == "" || teammate == "" {
		return SynergyStat{}, fmt.Errorf("both heroes are required")
	}
	if hero == teammate {
		return SynergyStat{}, fmt.Errorf("hero %s cannot pair with itself", hero)
	}
	if games < 0 || wins < 0 || wins > games {
		return SynergyStat{}, fmt.Errorf("invalid counts for %s/%s: wins=%d games=%d", hero, teammate, wins, games)
	}
	a, b := OrderPair(hero, teammate)
	s := SynergyStat{
		HeroA:         a,
		HeroB:         b,
		RankTier:      tier,
		GamesTogether: games,
		WinsTogether:  wins,
		BaselineModel: BaselineAverage,
	}
	if games > 0 {
		s.ActualWinRate = float64(wins) / float64(games)
	}
	return s, nil
}

// Partner returns the hero of the pair that is not hero.
func (s SynergyStat) Partner(hero string) string {
	if s.HeroA == hero {
		return s.HeroB
	}
	return s.HeroA
}

// OrderPair returns the two names in lexicographic order.
func OrderPair(x, y string) (string, string) {
	if x < y {
		return x, y
	}
	return y, x
}

// TierPtr is a convenience for building tier-keyed stats.
func TierPtr(t RankTier) *RankTier {
	return &t
}
