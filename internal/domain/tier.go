package domain

import "strings"

// RankTier is a skill bracket. The zero value is TierUnknown.
type RankTier string

const (
	TierUnknown     RankTier = ""
	TierBronze      RankTier = "bronze"
	TierSilver      RankTier = "silver"
	TierGold        RankTier = "gold"
	TierPlatinum    RankTier = "platinum"
	TierDiamond     RankTier = "diamond"
	TierGrandmaster RankTier = "grandmaster"
	TierCelestial   RankTier = "celestial"
	TierEternity    RankTier = "eternity"
)

// Tiers lists the known tiers from lowest to highest.
var Tiers = []RankTier{
	TierBronze,
	TierSilver,
	TierGold,
	TierPlatinum,
	TierDiamond,
	TierGrandmaster,
	TierCelestial,
	TierEternity,
}

// ParseRankTier accepts API strings such as "Gold 2" or "CELESTIAL I".
// Anything unrecognised is TierUnknown.
func ParseRankTier(s string) RankTier {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return TierUnknown
	}
	name := fields[0]
	if name == "one" || name == "oaa" {
		// "One Above All" sits above Eternity and is folded into it.
		return TierEternity
	}
	for _, t := range Tiers {
		if string(t) == name {
			return t
		}
	}
	return TierUnknown
}

func (t RankTier) Known() bool {
	return t != TierUnknown
}

// Ordinal returns the 1-based position of t in Tiers, 0 for unknown.
func (t RankTier) Ordinal() int {
	for i, known := range Tiers {
		if known == t {
			return i + 1
		}
	}
	return 0
}

func (t RankTier) String() string {
	if t == TierUnknown {
		return "unknown"
	}
	return string(t)
}

// Role is one of the three hero categories.
type Role string

const (
	RoleUnknown    Role = "unknown"
	RoleVanguard   Role = "vanguard"
	RoleDuelist    Role = "duelist"
	RoleStrategist Role = "strategist"
)

var roleAliases = map[string]Role{
	"vanguard":   RoleVanguard,
	"tank":       RoleVanguard,
	"duelist":    RoleDuelist,
	"dps":        RoleDuelist,
	"damage":     RoleDuelist,
	"strategist": RoleStrategist,
	"support":    RoleStrategist,
	"healer":     RoleStrategist,
}

// NormalizeRole maps an API role string onto the fixed vocabulary. The
// second return value is false when the input was not recognised.
func NormalizeRole(s string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return RoleUnknown, false
	}
	return r, true
}
