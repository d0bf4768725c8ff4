package rollup

import (
	"fmt"
	"testing"
	"time"

	"riftstats/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)

func match(champion string, win bool, daysAgo int, score float64) ScoredMatch {
	return ScoredMatch{
		MatchID:  fmt.Sprintf("NA1_%s_%d_%v", champion, daysAgo, score),
		PlayedAt: now.AddDate(0, 0, -daysAgo),
		Champion: champion,
		Win:      win,
		Score:    score,
	}
}

func TestHeatmap_NoMatches(t *testing.T) {
	days := Heatmap(nil, now, HeatmapDays)

	require.Len(t, days, 120)
	assert.Equal(t, "2024-11-11", days[0].Date)
	assert.Equal(t, "2025-03-10", days[119].Date)
	for _, d := range days {
		assert.Zero(t, d.Games)
		assert.Zero(t, d.Intensity)
	}
}

func TestHeatmap_Intensity(t *testing.T) {
	matches := []ScoredMatch{
		// today: 3 games, 2 wins -> 66% -> 4
		match("Ahri", true, 0, 50), match("Ahri", true, 0, 50), match("Ahri", false, 0, 50),
		// yesterday: one loss -> 1
		match("Ahri", false, 1, 50),
		// two days ago: 1-1 -> 2
		match("Ahri", true, 2, 50), match("Ahri", false, 2, 50),
		// three days ago: 1 win of 4 -> 25% -> 2
		match("Ahri", true, 3, 50), match("Ahri", false, 3, 50), match("Ahri", false, 3, 50), match("Ahri", false, 3, 50),
		// outside the window
		match("Ahri", true, 200, 50),
	}
	days := Heatmap(matches, now, HeatmapDays)
	require.Len(t, days, 120)

	last := days[len(days)-4:]
	assert.Equal(t, HeatmapDay{Date: "2025-03-07", Games: 4, Wins: 1, Intensity: 2}, last[0])
	assert.Equal(t, HeatmapDay{Date: "2025-03-08", Games: 2, Wins: 1, Intensity: 2}, last[1])
	assert.Equal(t, HeatmapDay{Date: "2025-03-09", Games: 1, Wins: 0, Intensity: 1}, last[2])
	assert.Equal(t, HeatmapDay{Date: "2025-03-10", Games: 3, Wins: 2, Intensity: 4}, last[3])

	var games int
	for _, d := range days {
		games += d.Games
	}
	assert.Equal(t, 10, games)
}

func TestIntensity(t *testing.T) {
	assert.Equal(t, 0, Intensity(0, 0))
	assert.Equal(t, 2, Intensity(1, 1))
	assert.Equal(t, 1, Intensity(2, 0))
	assert.Equal(t, 2, Intensity(5, 1))
	assert.Equal(t, 3, Intensity(5, 2))
	assert.Equal(t, 3, Intensity(5, 3))
	assert.Equal(t, 4, Intensity(5, 4))
}

func TestChampionPool(t *testing.T) {
	var matches []ScoredMatch
	for i, champ := range []string{"Ahri", "Ahri", "Ahri", "Lux", "Lux", "Zed", "Jinx", "Orianna", "Syndra"} {
		m := match(champ, i%2 == 0, i, 50)
		m.Kills, m.Deaths, m.Assists = 4, 2, 6
		matches = append(matches, m)
	}
	pool := ChampionPool(matches, PoolSize)

	require.Len(t, pool, 5)
	assert.Equal(t, "Ahri", pool[0].Champion)
	assert.Equal(t, 3, pool[0].Matches)
	assert.Equal(t, 2, pool[0].Wins)
	assert.Equal(t, 12, pool[0].Kills)
	assert.InDelta(t, 5.0, pool[0].KDA, 1e-9)
	assert.Equal(t, "Lux", pool[1].Champion)

	deathless := ChampionPool([]ScoredMatch{{Champion: "Ahri", Kills: 3, Assists: 4}}, PoolSize)
	assert.InDelta(t, 7.0, deathless[0].KDA, 1e-9)
}

func TestTeammateAffinity_Window(t *testing.T) {
	duo := Teammate{Name: "Duo", Tag: "NA1"}
	old := Teammate{Name: "Old", Tag: "EUW"}

	var matches []ScoredMatch
	for i := 0; i < 25; i++ {
		m := match("Ahri", i < 3, i, 50)
		if i < AffinityWindow {
			m.Teammates = []Teammate{duo}
		} else {
			m.Teammates = []Teammate{old, old}
		}
		matches = append(matches, m)
	}
	out := TeammateAffinity(matches, AffinityWindow, AffinitySize)

	require.Len(t, out, 1)
	assert.Equal(t, duo, out[0].Teammate)
	assert.Equal(t, 20, out[0].Matches)
	assert.Equal(t, 3, out[0].Wins)
}

func TestBuildProfile(t *testing.T) {
	matches := []ScoredMatch{
		{Breakdown: map[scoring.Metric]float64{
			scoring.MetricDamage: 1, scoring.MetricKDA: -1, scoring.MetricCS: 1, scoring.MetricGold: 0,
			scoring.MetricVision: 3, scoring.MetricObjective: -3,
		}},
		{Breakdown: map[scoring.Metric]float64{
			scoring.MetricDamage: 0, scoring.MetricKDA: -1, scoring.MetricCS: 0, scoring.MetricGold: 0,
			scoring.MetricVision: 3, scoring.MetricObjective: -3,
		}},
	}
	p := BuildProfile(matches)

	assert.InDelta(t, 60.0, p.Combat, 1e-9)
	assert.InDelta(t, 30.0, p.Survival, 1e-9)
	assert.InDelta(t, 55.0, p.Farming, 1e-9)
	assert.InDelta(t, 100.0, p.Vision, 1e-9)
	assert.InDelta(t, 0.0, p.Objectives, 1e-9)

	empty := BuildProfile(nil)
	assert.Equal(t, Profile{Combat: 50, Objectives: 50, Vision: 50, Farming: 50, Survival: 50}, empty)
}

func TestClassify(t *testing.T) {
	few := Classify([]ScoredMatch{{Score: 10}, {Score: 90}})
	assert.False(t, few.Rated)
	assert.Equal(t, LabelBalanced, few.Label)

	scores := func(values ...float64) []ScoredMatch {
		out := make([]ScoredMatch, len(values))
		for i, v := range values {
			out[i].Score = v
		}
		return out
	}

	solid := Classify(scores(60, 62, 58, 61, 59))
	assert.True(t, solid.Rated)
	assert.Equal(t, LabelRockSolid, solid.Label)

	coinflip := Classify(scores(10, 90, 10, 90, 10, 90))
	assert.InDelta(t, 40.0, coinflip.StdDev, 1e-9)
	assert.Equal(t, LabelCoinflip, coinflip.Label)

	// stddev exactly 10
	balanced := Classify(scores(40, 60, 40, 60, 40, 60))
	assert.InDelta(t, 10.0, balanced.StdDev, 1e-9)
	assert.Equal(t, LabelBalanced, balanced.Label)
}

func TestBuild(t *testing.T) {
	matches := []ScoredMatch{
		match("Ahri", true, 0, 80),
		match("Ahri", false, 1, 40),
	}
	s := Build(matches, now)

	assert.Equal(t, 2, s.Matches)
	assert.Len(t, s.Heatmap, HeatmapDays)
	assert.InDelta(t, 60.0, s.AverageScore, 1e-9)
	assert.InDelta(t, 50.0, s.OverallWinPct, 1e-9)
	require.Len(t, s.ChampionPool, 1)
	assert.False(t, s.Consistency.Rated)

	empty := Build(nil, now)
	assert.Len(t, empty.Heatmap, HeatmapDays)
	assert.Empty(t, empty.ChampionPool)
	assert.Zero(t, empty.AverageScore)
}
