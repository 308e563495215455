package stats

import (
	"fmt"

	"herostats/internal/domain"
)

const (
	HighConfidenceGames   = 500
	MediumConfidenceGames = 100
)

// ConfidenceLabel grades a sample by size: high at 500 games or more, medium
// from 100 to 499, low below 100.
func ConfidenceLabel(games int) domain.ConfidenceLevel {
	switch {
	case games >= HighConfidenceGames:
		return domain.ConfidenceHigh
	case games >= MediumConfidenceGames:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// SampleWarning returns a human readable caveat for non-high samples and an
// empty string otherwise.
func SampleWarning(games int) string {
	switch ConfidenceLabel(games) {
	case domain.ConfidenceMedium:
		return fmt.Sprintf("moderate sample (%d games): treat the synergy score as indicative", games)
	case domain.ConfidenceLow:
		return fmt.Sprintf("small sample (%d games): the synergy score may be noise", games)
	default:
		return ""
	}
}

// PowerRequirement is the sample needed to detect one effect size.
type PowerRequirement struct {
	EffectSize float64 `json:"effect_size"`
	RequiredN  int     `json:"required_n"`
	Detectable bool    `json:"detectable"`
}

// PowerAnalysis describes which effect sizes the observed sample can resolve.
type PowerAnalysis struct {
	Baseline     float64            `json:"baseline"`
	MaxGames     int                `json:"max_games"`
	Alpha        float64            `json:"alpha"`
	Power        float64            `json:"power"`
	Requirements []PowerRequirement `json:"requirements"`
}

// ReportedEffectSizes are the synergy effects power analysis is run for.
var ReportedEffectSizes = []float64{0.03, 0.05, 0.10}

// AnalyzePower computes the required sample size of each reported effect and
// whether maxGames reaches it.
func AnalyzePower(baseline float64, maxGames int, alpha, power float64) (PowerAnalysis, error) {
	pa := PowerAnalysis{
		Baseline: Native(baseline),
		MaxGames: maxGames,
		Alpha:    alpha,
		Power:    power,
	}
	for _, effect := range ReportedEffectSizes {
		n, err := RequiredSampleSize(baseline, effect, alpha, power)
		if err != nil {
			return PowerAnalysis{}, fmt.Errorf("power for effect %.2f: %w", effect, err)
		}
		pa.Requirements = append(pa.Requirements, PowerRequirement{
			EffectSize: effect,
			RequiredN:  n,
			Detectable: maxGames >= n,
		})
	}
	return pa, nil
}
