package api

type LeaderboardResponse struct {
	Players []LeaderboardEntry `json:"players"`
}

type LeaderboardEntry struct {
	Username  string `json:"username"`
	RankTier  string `json:"rank_tier"`
	RankScore int    `json:"rank_score"`
}

type PlayerMatchesResponse struct {
	Matches []MatchData `json:"matches"`
}

type MatchData struct {
	MatchID   string     `json:"match_id"`
	Mode      string     `json:"mode"`
	Season    int        `json:"season"`
	Timestamp int64      `json:"timestamp"` // unix seconds
	Teams     []TeamData `json:"teams"`
}

type TeamData struct {
	TeamID  int          `json:"team_id"`
	Won     bool         `json:"won"`
	Players []PlayerData `json:"players"`
}

// PlayerData counters are pointers because the API omits or nulls them for
// some matches; the collector stores missing counters as zero.
type PlayerData struct {
	Username string   `json:"username"`
	HeroID   int      `json:"hero_id"`
	HeroName string   `json:"hero_name"`
	Role     string   `json:"role"`
	Kills    *int     `json:"kills"`
	Deaths   *int     `json:"deaths"`
	Assists  *int     `json:"assists"`
	Damage   *float64 `json:"damage"`
	Healing  *float64 `json:"healing"`
}
