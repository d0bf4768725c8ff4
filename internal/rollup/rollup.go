// Package rollup summarizes a player's already-scored matches.
package rollup

import (
	"math"
	"sort"
	"time"

	"riftstats/internal/scoring"
)

const (
	PoolSize              = 5
	AffinityWindow        = 20
	AffinitySize          = 5
	HeatmapDays           = 120
	ConsistencyMinMatches = 5

	dateLayout = "2006-01-02"
)

// Teammate identifies an allied player by Riot ID.
type Teammate struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// ScoredMatch is one of the player's matches with its computed score.
type ScoredMatch struct {
	MatchID   string                     `json:"matchId"`
	PlayedAt  time.Time                  `json:"playedAt"`
	Champion  string                     `json:"champion"`
	Win       bool                       `json:"win"`
	Kills     int                        `json:"kills"`
	Deaths    int                        `json:"deaths"`
	Assists   int                        `json:"assists"`
	CS        int                        `json:"cs"`
	Gold      int                        `json:"gold"`
	Damage    int                        `json:"damage"`
	Score     float64                    `json:"score"`
	Breakdown map[scoring.Metric]float64 `json:"breakdown,omitempty"`
	Teammates []Teammate                 `json:"teammates,omitempty"`
}

// ChampionStat is the player's record on one champion.
type ChampionStat struct {
	Champion string  `json:"champion"`
	Matches  int     `json:"matches"`
	Wins     int     `json:"wins"`
	Kills    int     `json:"kills"`
	Deaths   int     `json:"deaths"`
	Assists  int     `json:"assists"`
	CS       int     `json:"cs"`
	Gold     int     `json:"gold"`
	Damage   int     `json:"damage"`
	KDA      float64 `json:"kda"`
	WinRate  float64 `json:"winRate"`
}

// TeammateStat is the player's record alongside one teammate.
type TeammateStat struct {
	Teammate
	Matches int     `json:"matches"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"winRate"`
}

// HeatmapDay is one calendar day of activity.
type HeatmapDay struct {
	Date      string `json:"date"`
	Games     int    `json:"games"`
	Wins      int    `json:"wins"`
	Intensity int    `json:"intensity"`
}

// Profile holds the five 0..100 performance axes.
type Profile struct {
	Combat     float64 `json:"combat"`
	Objectives float64 `json:"objectives"`
	Vision     float64 `json:"vision"`
	Farming    float64 `json:"farming"`
	Survival   float64 `json:"survival"`
}

// Consistency labels how much a player's scores swing.
type Consistency struct {
	Label  string  `json:"label"`
	StdDev float64 `json:"stdDev"`
	// Rated is false when there were too few matches to judge.
	Rated bool `json:"rated"`
}

const (
	LabelRockSolid = "Rock Solid"
	LabelBalanced  = "Balanced"
	LabelCoinflip  = "Coinflip"
)

// Summary is the full rollup of a player's matches.
type Summary struct {
	Matches       int            `json:"matches"`
	ChampionPool  []ChampionStat `json:"championPool"`
	Teammates     []TeammateStat `json:"teammates"`
	Heatmap       []HeatmapDay   `json:"heatmap"`
	Profile       Profile        `json:"profile"`
	Consistency   Consistency    `json:"consistency"`
	AverageScore  float64        `json:"averageScore"`
	OverallWinPct float64        `json:"overallWinPct"`
}

// Build computes every rollup. matches must be ordered most recent first;
// now anchors the heatmap window.
func Build(matches []ScoredMatch, now time.Time) Summary {
	s := Summary{
		Matches:      len(matches),
		ChampionPool: ChampionPool(matches, PoolSize),
		Teammates:    TeammateAffinity(matches, AffinityWindow, AffinitySize),
		Heatmap:      Heatmap(matches, now, HeatmapDays),
		Profile:      BuildProfile(matches),
		Consistency:  Classify(matches),
	}
	if len(matches) > 0 {
		var total float64
		var wins int
		for _, m := range matches {
			total += m.Score
			if m.Win {
				wins++
			}
		}
		s.AverageScore = total / float64(len(matches))
		s.OverallWinPct = float64(wins) / float64(len(matches)) * 100
	}
	return s
}

// ChampionPool groups matches by champion and returns the limit most played.
func ChampionPool(matches []ScoredMatch, limit int) []ChampionStat {
	byChampion := make(map[string]*ChampionStat)
	for _, m := range matches {
		c, ok := byChampion[m.Champion]
		if !ok {
			c = &ChampionStat{Champion: m.Champion}
			byChampion[m.Champion] = c
		}
		c.Matches++
		if m.Win {
			c.Wins++
		}
		c.Kills += m.Kills
		c.Deaths += m.Deaths
		c.Assists += m.Assists
		c.CS += m.CS
		c.Gold += m.Gold
		c.Damage += m.Damage
	}

	pool := make([]ChampionStat, 0, len(byChampion))
	for _, c := range byChampion {
		c.KDA = float64(c.Kills+c.Assists) / float64(max(c.Deaths, 1))
		c.WinRate = float64(c.Wins) / float64(c.Matches)
		pool = append(pool, *c)
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Matches != pool[j].Matches {
			return pool[i].Matches > pool[j].Matches
		}
		if pool[i].Wins != pool[j].Wins {
			return pool[i].Wins > pool[j].Wins
		}
		return pool[i].Champion < pool[j].Champion
	})
	return truncate(pool, limit)
}

// TeammateAffinity groups the first window matches by teammate Riot ID and
// returns the limit most frequent.
func TeammateAffinity(matches []ScoredMatch, window, limit int) []TeammateStat {
	if len(matches) > window {
		matches = matches[:window]
	}

	byTeammate := make(map[Teammate]*TeammateStat)
	for _, m := range matches {
		for _, tm := range m.Teammates {
			if tm.Name == "" {
				continue
			}
			s, ok := byTeammate[tm]
			if !ok {
				s = &TeammateStat{Teammate: tm}
				byTeammate[tm] = s
			}
			s.Matches++
			if m.Win {
				s.Wins++
			}
		}
	}

	out := make([]TeammateStat, 0, len(byTeammate))
	for _, s := range byTeammate {
		s.WinRate = float64(s.Wins) / float64(s.Matches)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Matches != out[j].Matches {
			return out[i].Matches > out[j].Matches
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Tag < out[j].Tag
	})
	return truncate(out, limit)
}

// Heatmap returns one entry per day for the days ending on now's UTC date,
// oldest first. Matches outside the window are ignored.
func Heatmap(matches []ScoredMatch, now time.Time, days int) []HeatmapDay {
	if days <= 0 {
		return nil
	}
	end := now.UTC()
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -(days - 1))

	out := make([]HeatmapDay, days)
	index := make(map[string]int, days)
	for i := range out {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		out[i].Date = date
		index[date] = i
	}

	for _, m := range matches {
		i, ok := index[m.PlayedAt.UTC().Format(dateLayout)]
		if !ok {
			continue
		}
		out[i].Games++
		if m.Win {
			out[i].Wins++
		}
	}
	for i := range out {
		out[i].Intensity = Intensity(out[i].Games, out[i].Wins)
	}
	return out
}

// Intensity maps a day's games and wins onto 0..4. Fewer than three games
// only distinguish a winning day from a losing one.
func Intensity(games, wins int) int {
	if games <= 0 {
		return 0
	}
	winRate := float64(wins) / float64(games)
	if games < 3 {
		if winRate >= 0.5 {
			return 2
		}
		return 1
	}
	switch {
	case winRate < 0.4:
		return 2
	case winRate <= 0.6:
		return 3
	default:
		return 4
	}
}

var profileAxes = map[string][]scoring.Metric{
	"combat":     {scoring.MetricDamage},
	"objectives": {scoring.MetricObjective},
	"vision":     {scoring.MetricVision},
	"farming":    {scoring.MetricCS, scoring.MetricGold},
	"survival":   {scoring.MetricKDA},
}

// BuildProfile averages the per-match z-scores behind each axis and maps the
// average onto 0..100. An axis with no data sits at 50.
func BuildProfile(matches []ScoredMatch) Profile {
	axis := func(name string) float64 {
		var sum float64
		var n int
		for _, m := range matches {
			for _, metric := range profileAxes[name] {
				if z, ok := m.Breakdown[metric]; ok {
					sum += z
					n++
				}
			}
		}
		var avg float64
		if n > 0 {
			avg = sum / float64(n)
		}
		return math.Min(100, math.Max(0, 50+20*avg))
	}
	return Profile{
		Combat:     axis("combat"),
		Objectives: axis("objectives"),
		Vision:     axis("vision"),
		Farming:    axis("farming"),
		Survival:   axis("survival"),
	}
}

// Classify labels the spread of final scores using the population
// standard deviation.
func Classify(matches []ScoredMatch) Consistency {
	if len(matches) < ConsistencyMinMatches {
		return Consistency{Label: LabelBalanced}
	}

	var mean float64
	for _, m := range matches {
		mean += m.Score
	}
	mean /= float64(len(matches))

	var variance float64
	for _, m := range matches {
		d := m.Score - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(matches)))

	c := Consistency{Label: LabelBalanced, StdDev: stddev, Rated: true}
	switch {
	case stddev < 8:
		c.Label = LabelRockSolid
	case stddev > 18:
		c.Label = LabelCoinflip
	}
	return c
}

func truncate[T any](s []T, limit int) []T {
	if limit >= 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
