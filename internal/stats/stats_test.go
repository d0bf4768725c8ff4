package stats

import (
	"errors"
	"testing"

	"riftstats/internal/riot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketForDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    DurationBucket
	}{
		{-10, DurationShort},
		{0, DurationShort},
		{1199, DurationShort},
		{1200, DurationMedium},
		{1799, DurationMedium},
		{1800, DurationLong},
		{2399, DurationLong},
		{2400, DurationVeryLong},
		{7200, DurationVeryLong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketForDuration(tt.seconds), "BucketForDuration(%d)", tt.seconds)
	}
}

func TestNormalizeRole(t *testing.T) {
	tests := map[string]Role{
		"TOP":     RoleTop,
		"JUNGLE":  RoleJungle,
		"MIDDLE":  RoleMid,
		"BOTTOM":  RoleADC,
		"UTILITY": RoleSupport,
		"utility": RoleSupport,
		" mid ":   RoleMid,
	}
	for raw, want := range tests {
		got, ok := NormalizeRole(raw)
		assert.True(t, ok, "NormalizeRole(%q) should be valid", raw)
		assert.Equal(t, want, got, "NormalizeRole(%q)", raw)
	}

	for _, raw := range []string{"", "Invalid", "NONE", "ALL"} {
		_, ok := NormalizeRole(raw)
		assert.False(t, ok, "NormalizeRole(%q) should be excluded", raw)
	}
}

func TestIsDuoPair(t *testing.T) {
	assert.True(t, IsDuoPair(RoleMid, RoleJungle))
	assert.True(t, IsDuoPair(RoleJungle, RoleMid))
	assert.True(t, IsDuoPair(RoleADC, RoleSupport))
	assert.True(t, IsDuoPair(RoleSupport, RoleADC))
	assert.True(t, IsDuoPair(RoleTop, RoleJungle))

	assert.False(t, IsDuoPair(RoleMid, RoleTop))
	assert.False(t, IsDuoPair(RoleADC, RoleJungle))
	assert.False(t, IsDuoPair(RoleMid, RoleMid))
}

func TestFrequencyMapMerge_CommutativeAndAssociative(t *testing.T) {
	a := FrequencyMap{"x": {Wins: 1, Matches: 2}, "y": {Wins: 0, Matches: 1}}
	b := FrequencyMap{"y": {Wins: 3, Matches: 4}, "z": {Wins: 1, Matches: 1}}
	c := FrequencyMap{"x": {Wins: 5, Matches: 5}}

	assert.Equal(t, a.Merge(b), b.Merge(a))
	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))

	merged := a.Merge(b)
	assert.Equal(t, Counter{Wins: 3, Matches: 5}, merged["y"])
	assert.Equal(t, Counter{Wins: 1, Matches: 1}, merged["z"], "key absent on one side is created")

	// Inputs are untouched
	assert.Equal(t, Counter{Wins: 0, Matches: 1}, a["y"])
}

func TestFrequencyMap_RecordAndTop(t *testing.T) {
	m := make(FrequencyMap)
	m.Record("a", true)
	m.Record("b", false)
	m.Record("b", true)
	m.Record("c", false)

	assert.Equal(t, Counter{Wins: 1, Matches: 2}, m["b"])
	assert.Equal(t, []string{"b", "a"}, m.Top(2))
	assert.InDelta(t, 0.5, m["b"].WinRate(), 1e-9)
}

func TestDuoKey_Symmetric(t *testing.T) {
	k1 := DuoKey("Ahri", RoleMid, "LeeSin", RoleJungle, "GOLD", "14.3")
	k2 := DuoKey("LeeSin", RoleJungle, "Ahri", RoleMid, "GOLD", "14.3")
	assert.Equal(t, k1, k2)
	assert.Equal(t, k1.ID(), k2.ID())
	require.NoError(t, k1.Validate())
}

func TestBucketKey_Validate(t *testing.T) {
	valid := ChampionKey("Ahri", RoleMid, "GOLD", "14.3", DurationMedium)
	assert.NoError(t, valid.Validate())

	noDuration := ChampionKey("Ahri", RoleMid, "GOLD", "14.3", "")
	assert.Error(t, noDuration.Validate())

	noOpponent := MatchupKey("Ahri", RoleMid, "", "GOLD", "14.3", DurationMedium)
	assert.Error(t, noOpponent.Validate())

	ban := BanKey("Zed", "GOLD", "14.3", DurationLong)
	assert.NoError(t, ban.Validate())
	assert.Equal(t, RoleAll, ban.Role)
}

func TestKeyFromParams(t *testing.T) {
	params := func(kv map[string]string) func(string) string {
		return func(name string) string { return kv[name] }
	}

	key, err := KeyFromParams(params(map[string]string{
		"kind": "matchup", "champion": "Ahri", "role": "middle", "tier": "gold",
		"patch": "14.3", "duration": "medium", "opponent": "Zed",
	}))
	require.NoError(t, err)
	assert.Equal(t, MatchupKey("Ahri", RoleMid, "Zed", "GOLD", "14.3", DurationMedium), key)

	key, err = KeyFromParams(params(map[string]string{
		"kind": "duo", "champion": "Lulu", "role": "SUPPORT", "partner": "Jinx",
		"partnerRole": "bottom", "tier": "GOLD", "patch": "14.3",
	}))
	require.NoError(t, err)
	assert.Equal(t, DuoKey("Jinx", RoleADC, "Lulu", RoleSupport, "GOLD", "14.3"), key)

	for _, bad := range []map[string]string{
		{"kind": "flavour"},
		{"kind": "champion", "champion": "Ahri", "tier": "GOLD", "patch": "14.3", "duration": "SHORT"},
		{"kind": "champion", "champion": "Ahri", "role": "ROAM", "tier": "GOLD", "patch": "14.3", "duration": "SHORT"},
		{"kind": "ban", "champion": "Zed", "tier": "GOLD", "patch": "14.3"},
	} {
		_, err := KeyFromParams(params(bad))
		assert.Error(t, err, "%v", bad)
	}
}

func TestMerge_OrderIndependent(t *testing.T) {
	key := ChampionKey("Ahri", RoleMid, "GOLD", "14.3", DurationMedium)
	d1 := Delta{Key: key, Totals: Totals{Matches: 1, Wins: 1, Kills: 5, DamageShare: 0.25},
		Freq: FrequencyMaps{MapItems: {"3157": {Wins: 1, Matches: 1}}}}
	d2 := Delta{Key: key, Totals: Totals{Matches: 1, Kills: 2, DamageShare: 0.5},
		Freq: FrequencyMaps{MapItems: {"3157": {Matches: 1}}, MapSpells: {"4_14": {Matches: 1}}}}
	d3 := Delta{Key: key, Totals: Totals{Matches: 2, Wins: 2, Kills: 9, DamageShare: 0.125}}

	base := NewBucket(key)

	ab, err := Merge(base, d1, d2)
	require.NoError(t, err)
	ba, err := Merge(base, d2, d1)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	left, err := Merge(ab, d3)
	require.NoError(t, err)
	d23, err := Merge(base, d2, d3)
	require.NoError(t, err)
	right, err := Merge(base, d1, Delta{Key: key, Totals: d23.Totals, Freq: d23.Freq})
	require.NoError(t, err)
	assert.Equal(t, left, right)

	assert.Equal(t, int64(4), left.Totals.Matches)
	assert.Equal(t, int64(3), left.Totals.Wins)
	assert.Equal(t, Counter{Wins: 1, Matches: 2}, left.Freq[MapItems]["3157"])
}

func TestMerge_IntegrityViolation(t *testing.T) {
	key := ChampionKey("Ahri", RoleMid, "GOLD", "14.3", DurationMedium)

	_, err := Merge(NewBucket(key), Delta{Key: key, Totals: Totals{Matches: 1, Wins: 2}})
	assert.True(t, errors.Is(err, ErrIntegrity), "wins > matches must surface, got %v", err)

	bad := Delta{Key: key, Totals: Totals{Matches: 1}, Freq: FrequencyMaps{MapRunes: {"8112": {Wins: 1}}}}
	_, err = Merge(NewBucket(key), bad)
	assert.True(t, errors.Is(err, ErrIntegrity))

	other := ChampionKey("Zed", RoleMid, "GOLD", "14.3", DurationMedium)
	_, err = Merge(NewBucket(key), Delta{Key: other, Totals: Totals{Matches: 1}})
	assert.True(t, errors.Is(err, ErrIntegrity), "delta for another key")
}

func TestExtract_SupportScenario(t *testing.T) {
	p := &riot.MatchParticipant{
		Kills: 10, Deaths: 2, Assists: 8,
		TotalDamageDealtToChampions:    12000,
		GoldEarned:                     9000,
		TotalMinionsKilled:             30,
		NeutralMinionsKilled:           0,
		VisionScore:                    60,
		DragonKills:                    1,
		TurretTakedowns:                2,
		TotalHealsOnTeammates:          3000,
		TotalDamageShieldedOnTeammates: 2000,
		TimeCCingOthers:                40,
	}
	team := riot.TeamTotals{Damage: 48000, Gold: 45000}

	f := Extract(p, team, 30*60, FeatureOptions{})

	assert.InDelta(t, 9.0, f.KDA, 1e-9)
	assert.InDelta(t, 0.25, f.DamageShare, 1e-9)
	assert.InDelta(t, 0.2, f.GoldShare, 1e-9)
	assert.InDelta(t, 1.0, f.CSPerMinute, 1e-9)
	assert.InDelta(t, 2.0, f.VisionPerMinute, 1e-9)
	assert.InDelta(t, 400.0, f.DamagePerMinute, 1e-9)
	assert.Equal(t, 3, f.Objectives)
	assert.InDelta(t, 5.0+4.0, f.Utility, 1e-9)
	assert.Nil(t, f.Lane)
}

func TestExtract_Guards(t *testing.T) {
	p := &riot.MatchParticipant{Kills: 3, Deaths: 0, Assists: 1, TotalDamageDealtToChampions: 500}

	f := Extract(p, riot.TeamTotals{}, 0, FeatureOptions{})
	assert.InDelta(t, 4.0, f.KDA, 1e-9, "zero deaths divides by 1")
	assert.InDelta(t, 500.0, f.DamageShare, 1e-9, "team denominator floored at 1")
	assert.InDelta(t, 500.0, f.DamagePerMinute, 1e-9, "duration floored at one minute")

	weighted := 4.0
	f = Extract(&riot.MatchParticipant{Kills: 6, Deaths: 2, Assists: 2}, riot.TeamTotals{}, 600,
		FeatureOptions{WeightedDeaths: &weighted})
	assert.InDelta(t, 2.0, f.KDA, 1e-9, "weighted deaths override raw deaths")
}

func TestFeaturesTotals(t *testing.T) {
	f := Features{Kills: 2, Deaths: 1, CS: 100, DurationSeconds: 1500, Lane: &LaneDeltas{CS: 10, Gold: 300}}

	won := f.Totals(true)
	assert.Equal(t, int64(1), won.Matches)
	assert.Equal(t, int64(1), won.Wins)
	assert.Equal(t, int64(1), won.LaneSamples)
	assert.InDelta(t, 300.0, won.LaneGold, 1e-9)
	require.NoError(t, won.Validate())

	lost := Features{}.Totals(false)
	assert.Equal(t, int64(0), lost.Wins)
	assert.Equal(t, int64(0), lost.LaneSamples)
}

func TestLaneDeltasAt15(t *testing.T) {
	timeline := &riot.TimelineResponse{Info: riot.TimelineInfo{Frames: []riot.TimelineFrame{
		{Timestamp: 900_100, ParticipantFrames: map[string]riot.ParticipantFrame{
			"3": {MinionsKilled: 120, JungleMinionsKilled: 4, TotalGold: 6000, XP: 7000},
			"8": {MinionsKilled: 100, TotalGold: 5200, XP: 6500},
		}},
	}}}

	lane, ok := LaneDeltasAt15(timeline, 3, 8)
	require.True(t, ok)
	assert.Equal(t, LaneDeltas{CS: 24, Gold: 800, XP: 500}, lane)

	_, ok = LaneDeltasAt15(timeline, 3, 9)
	assert.False(t, ok)
}
