// Package report renders pipeline results as terminal tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"herostats/internal/domain"
	"herostats/internal/repository"
	"herostats/internal/service"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func pct(x float64) string {
	return fmt.Sprintf("%.1f%%", 100*x)
}

func signedPct(x float64) string {
	return fmt.Sprintf("%+.1f%%", 100*x)
}

// PrintDiscovery prints the sampled players per tier.
func PrintDiscovery(w io.Writer, res service.DiscoveryResult) {
	fmt.Fprintf(w, "\nCandidates: %d  |  Sampled: %d  |  Failed sources: %d\n\n", res.Candidates, res.Sampled, res.SourcesFailed)

	table := newTable(w)
	table.Header("TIER", "SAMPLED")
	for _, t := range domain.Tiers {
		table.Append(t.String(), strconv.Itoa(res.ByTier[t.String()]))
	}
	table.Render()
}

// PrintCollection prints the totals of one collector run.
func PrintCollection(w io.Writer, res service.CollectionResult) {
	table := newTable(w)
	table.Header("RUN", "PENDING", "DONE", "FAILED", "ERRORS", "NEW", "DUP", "FILTERED", "ROWS", "MALFORMED")
	table.Append(
		res.RunID,
		strconv.Itoa(res.Pending),
		strconv.Itoa(res.Completed),
		strconv.Itoa(res.Failed),
		strconv.Itoa(res.Errored),
		strconv.Itoa(res.MatchesInserted),
		strconv.Itoa(res.MatchesSkipped),
		strconv.Itoa(res.MatchesFiltered),
		strconv.Itoa(res.ParticipantsInserted),
		strconv.Itoa(res.Malformed),
	)
	table.Render()
	if res.Interrupted {
		fmt.Fprintln(w, "Interrupted: remaining players stay pending and are picked up by the next run.")
	}
}

// PrintWinRates prints one line per analyzed hero row, overall first.
func PrintWinRates(w io.Writer, results []service.HeroWinRates) {
	table := newTable(w)
	table.Header("HERO", "TIER", "GAMES", "W", "L", "WIN%", "CI LOW", "CI HIGH")

	var skipped []string
	for _, r := range results {
		if r.Skipped || r.Overall == nil {
			skipped = append(skipped, fmt.Sprintf("%s (%d)", r.Hero, r.TotalGames))
			continue
		}
		for _, s := range append([]domain.CharacterStat{*r.Overall}, r.ByTier...) {
			tier := "all"
			if s.RankTier != nil {
				tier = s.RankTier.String()
			}
			table.Append(
				s.HeroName,
				tier,
				strconv.Itoa(s.TotalGames),
				strconv.Itoa(s.Wins),
				strconv.Itoa(s.Losses),
				pct(s.WinRate),
				pct(s.CILower),
				pct(s.CIUpper),
			)
		}
	}
	table.Render()
	if len(skipped) > 0 {
		fmt.Fprintf(w, "Skipped (not enough games): %v\n", skipped)
	}
}

// PrintSynergies prints the retained teammates of every hero. A "*" marks
// significance after correction.
func PrintSynergies(w io.Writer, results []service.HeroSynergies) {
	table := newTable(w)
	table.Header("HERO", "TEAMMATE", "GAMES", "ACTUAL", "EXPECTED", "SYNERGY", "P", "SIG", "CONFIDENCE")
	for _, r := range results {
		for _, s := range r.Synergies {
			sig := ""
			switch {
			case s.SignificantCorrected:
				sig = "*"
			case s.Significant:
				sig = "."
			}
			table.Append(
				r.Hero,
				s.Partner(r.Hero),
				strconv.Itoa(s.GamesTogether),
				pct(s.ActualWinRate),
				pct(s.ExpectedWinRate),
				signedPct(s.SynergyScore),
				fmt.Sprintf("%.4f", s.PValue),
				sig,
				string(s.ConfidenceLevel),
			)
		}
	}
	table.Render()

	for _, r := range results {
		if r.Power == nil {
			continue
		}
		fmt.Fprintf(w, "%s: max %d games together;", r.Hero, r.Power.MaxGames)
		for _, req := range r.Power.Requirements {
			mark := "no"
			if req.Detectable {
				mark = "yes"
			}
			fmt.Fprintf(w, " %.0f%% needs %d (%s)", 100*req.EffectSize, req.RequiredN, mark)
		}
		fmt.Fprintln(w)
	}
}

// Status is the snapshot printed by the status command.
type Status struct {
	Players  repository.PlayerCounts
	Matches  repository.MatchCounts
	Cache    repository.CacheCounts
	Metadata []domain.CollectionMetadata
}

func PrintStatus(w io.Writer, s Status) {
	table := newTable(w)
	table.Header("PENDING", "COMPLETED", "MATCHES", "PARTICIPANTS", "HERO ROWS", "PAIR ROWS")
	table.Append(
		strconv.Itoa(s.Players.Pending),
		strconv.Itoa(s.Players.Completed),
		strconv.Itoa(s.Matches.Matches),
		strconv.Itoa(s.Matches.Participants),
		strconv.Itoa(s.Cache.CharacterStats),
		strconv.Itoa(s.Cache.SynergyStats),
	)
	table.Render()

	tiers := make([]string, 0, len(s.Players.ByTier))
	for t := range s.Players.ByTier {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool {
		return domain.ParseRankTier(tiers[i]).Ordinal() < domain.ParseRankTier(tiers[j]).Ordinal()
	})
	for _, t := range tiers {
		fmt.Fprintf(w, "  %-12s %d\n", t, s.Players.ByTier[t])
	}

	if len(s.Metadata) > 0 {
		meta := newTable(w)
		meta.Header("KEY", "VALUE", "UPDATED")
		for _, m := range s.Metadata {
			meta.Append(m.Key, m.Value, m.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		meta.Render()
	}
}
