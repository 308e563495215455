package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herostats/internal/domain"
	"herostats/internal/service"
	"herostats/internal/stats"
)

func TestPrintWinRates(t *testing.T) {
	overall, err := domain.NewCharacterStat("Storm", nil, 60, 100)
	require.NoError(t, err)
	gold, err := domain.NewCharacterStat("Storm", domain.TierPtr(domain.TierGold), 30, 40)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintWinRates(&buf, []service.HeroWinRates{
		{Hero: "Storm", TotalGames: 100, Overall: &overall, ByTier: []domain.CharacterStat{gold}},
		{Hero: "Rare", TotalGames: 12, Skipped: true},
	})

	out := buf.String()
	assert.Contains(t, out, "Storm")
	assert.Contains(t, out, "60.0%")
	assert.Contains(t, out, "gold")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "Rare (12)")
}

func TestPrintSynergies(t *testing.T) {
	s, err := domain.NewSynergyStat("B", "A", nil, 124, 207)
	require.NoError(t, err)
	s.ExpectedWinRate = 0.535
	s.SynergyScore = s.ActualWinRate - s.ExpectedWinRate
	s.ConfidenceLevel = domain.ConfidenceMedium
	s.SignificantCorrected = true

	pa, err := stats.AnalyzePower(0.55, 207, 0.05, 0.8)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSynergies(&buf, []service.HeroSynergies{{Hero: "B", Synergies: []domain.SynergyStat{s}, Power: &pa}})

	out := buf.String()
	assert.Contains(t, out, "+6.4%")
	assert.Contains(t, out, "53.5%")
	assert.Contains(t, out, "medium")
	assert.Contains(t, out, "*")
	assert.Contains(t, out, "B: max 207 games together")
}

func TestPrintCollectionInterrupted(t *testing.T) {
	var buf bytes.Buffer
	PrintCollection(&buf, service.CollectionResult{RunID: "run1", Pending: 3, Completed: 1, Interrupted: true})
	assert.Contains(t, buf.String(), "run1")
	assert.Contains(t, buf.String(), "Interrupted")
}
