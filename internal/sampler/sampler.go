// Package sampler selects a stratified random sample of players per rank
// tier.
package sampler

import (
	"math/rand/v2"
	"sort"

	"herostats/internal/domain"
)

// Candidate is a player eligible for sampling.
type Candidate struct {
	Username  string
	Tier      domain.RankTier
	RankScore int
	Source    string
}

// Stratified draws uniform samples without replacement within each tier.
// It is not safe for concurrent use.
type Stratified struct {
	rng *rand.Rand
}

func New(src rand.Source) *Stratified {
	return &Stratified{rng: rand.New(src)}
}

// NewSeeded returns a sampler whose draws are reproducible for a given seed.
func NewSeeded(seed uint64) *Stratified {
	return New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sample returns min(quota, available) distinct candidates per tier. Tiers
// without a quota contribute nothing. A quota larger than the pool returns
// the whole pool. Tiers are drawn in tier order so a seeded source always
// reproduces the same selection.
func (s *Stratified) Sample(pools map[domain.RankTier][]Candidate, quotas map[domain.RankTier]int) []Candidate {
	var out []Candidate
	for _, tier := range orderedTiers(pools) {
		quota := quotas[tier]
		if quota <= 0 {
			continue
		}
		pool := dedupe(pools[tier])
		k := min(quota, len(pool))

		// partial Fisher-Yates: the first k slots end up a uniform k-subset
		for i := 0; i < k; i++ {
			j := i + s.rng.IntN(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
		}
		out = append(out, pool[:k]...)
	}
	return out
}

// dedupe copies pool keeping the first occurrence of each username.
func dedupe(pool []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(pool))
	out := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if _, ok := seen[c.Username]; ok {
			continue
		}
		seen[c.Username] = struct{}{}
		out = append(out, c)
	}
	return out
}

func orderedTiers(pools map[domain.RankTier][]Candidate) []domain.RankTier {
	tiers := make([]domain.RankTier, 0, len(pools))
	for t := range pools {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool {
		oi, oj := tiers[i].Ordinal(), tiers[j].Ordinal()
		if oi != oj {
			return oi < oj
		}
		return tiers[i] < tiers[j]
	})
	return tiers
}
