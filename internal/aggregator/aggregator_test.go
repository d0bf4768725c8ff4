package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"riftstats/internal/db"
	"riftstats/internal/riot"
	"riftstats/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCatalog struct{}

func (testCatalog) IsBoots(id int) bool        { return id == 3020 }
func (testCatalog) HasUpgrade(id int) bool     { return id == 1052 }
func (testCatalog) ChampionName(id int) string { return fmt.Sprintf("Champ%d", id) }

func staticCatalog(ctx context.Context, patch string) (Catalog, error) {
	return testCatalog{}, nil
}

type participantSpec struct {
	id       int
	champion string
	position string
	team     int
}

// fixtureMatch builds a 10-player match where the blue team (100) wins.
func fixtureMatch(matchID string) *riot.MatchResponse {
	specs := []participantSpec{
		{1, "Garen", "TOP", 100},
		{2, "LeeSin", "JUNGLE", 100},
		{3, "Ahri", "MIDDLE", 100},
		{4, "Jinx", "BOTTOM", 100},
		{5, "Lulu", "UTILITY", 100},
		{6, "Darius", "TOP", 200},
		{7, "Vi", "JUNGLE", 200},
		{8, "Zed", "MIDDLE", 200},
		{9, "Caitlyn", "BOTTOM", 200},
		{10, "Thresh", "", 200}, // remake / unknown position
	}

	participants := make([]riot.MatchParticipant, 0, len(specs))
	for _, s := range specs {
		participants = append(participants, riot.MatchParticipant{
			ParticipantID:               s.id,
			ChampionName:                s.champion,
			TeamPosition:                s.position,
			TeamID:                      s.team,
			Win:                         s.team == 100,
			Kills:                       s.id,
			Deaths:                      2,
			Assists:                     3,
			TotalDamageDealtToChampions: 1000 * s.id,
			GoldEarned:                  800 * s.id,
			Item0:                       3157,
			Item1:                       3020,
			Item2:                       3089,
			Summoner1ID:                 4,
			Summoner2ID:                 14,
		})
	}

	return &riot.MatchResponse{
		Metadata: riot.MatchMetadata{MatchID: matchID},
		Info: riot.MatchInfo{
			GameDuration:     1700,
			GameEndTimestamp: 1,
			GameVersion:      "14.3.561.1234",
			Participants:     participants,
			Teams: []riot.MatchTeam{
				{TeamID: 100, Win: true, Bans: []riot.MatchBan{{ChampionID: 238}, {ChampionID: -1}}},
				{TeamID: 200, Win: false, Bans: []riot.MatchBan{{ChampionID: 238}, {ChampionID: 555}}},
			},
		},
	}
}

func fixtureTimeline() *riot.TimelineResponse {
	var events []riot.TimelineEvent
	for pid := 1; pid <= 10; pid++ {
		events = append(events,
			riot.TimelineEvent{Type: riot.EventItemPurchased, ParticipantID: pid, Timestamp: 5_000, ItemID: 1056},
			riot.TimelineEvent{Type: riot.EventItemPurchased, ParticipantID: pid, Timestamp: 300_000, ItemID: 3020},
			riot.TimelineEvent{Type: riot.EventItemPurchased, ParticipantID: pid, Timestamp: 600_000, ItemID: 3157},
			riot.TimelineEvent{Type: riot.EventItemPurchased, ParticipantID: pid, Timestamp: 900_000, ItemID: 3089},
			riot.TimelineEvent{Type: riot.EventSkillLevelUp, ParticipantID: pid, SkillSlot: 1, LevelUpType: "NORMAL"},
		)
	}
	frames := map[string]riot.ParticipantFrame{
		"3": {MinionsKilled: 130, TotalGold: 6000, XP: 7000},
		"8": {MinionsKilled: 110, TotalGold: 5500, XP: 6600},
	}
	return &riot.TimelineResponse{Info: riot.TimelineInfo{Frames: []riot.TimelineFrame{
		{Timestamp: 0, Events: events},
		{Timestamp: 900_500, ParticipantFrames: frames},
	}}}
}

func newAggregator(t *testing.T) (*Aggregator, *db.MemoryStore) {
	t.Helper()
	store := db.NewMemoryStore()
	return New(store, staticCatalog), store
}

func findBucket(t *testing.T, store db.Store, key stats.BucketKey) stats.Bucket {
	t.Helper()
	b, err := store.FindBucket(context.Background(), key)
	require.NoError(t, err, "bucket %s", key)
	return b
}

func TestProcessMatch_ChampionAndMatchupBuckets(t *testing.T) {
	agg, store := newAggregator(t)
	ctx := context.Background()

	res, err := agg.ProcessMatch(ctx, fixtureMatch("NA1_1"), riot.TimelinePresent(fixtureTimeline()), "GOLD")
	require.NoError(t, err)

	assert.Equal(t, 9, res.Aggregated)
	assert.Equal(t, 1, res.Excluded)
	assert.Equal(t, stats.DurationMedium, res.Duration)
	assert.True(t, res.TimelinePresent)

	ahri := findBucket(t, store, stats.ChampionKey("Ahri", stats.RoleMid, "GOLD", "14.3", stats.DurationMedium))
	assert.Equal(t, int64(1), ahri.Totals.Matches)
	assert.Equal(t, int64(1), ahri.Totals.Wins)
	assert.Equal(t, int64(3), ahri.Totals.Kills)
	assert.Equal(t, int64(1), ahri.Totals.LaneSamples)
	assert.InDelta(t, 500.0, ahri.Totals.LaneGold, 1e-9)

	items := ahri.Freq[stats.MapItems]
	assert.Equal(t, stats.Counter{Wins: 1, Matches: 1}, items["build_3020_3089_3157"])
	assert.Equal(t, stats.Counter{Wins: 1, Matches: 1}, items["start_1056"])
	assert.Equal(t, stats.Counter{Wins: 1, Matches: 1}, items["core_3020-3157-3089"])
	assert.Equal(t, stats.Counter{Wins: 1, Matches: 1}, ahri.Freq[stats.MapSpells]["4_14"])
	assert.Equal(t, stats.Counter{Wins: 1, Matches: 1}, ahri.Freq[stats.MapSkillOrder]["Q"])

	zed := findBucket(t, store, stats.ChampionKey("Zed", stats.RoleMid, "GOLD", "14.3", stats.DurationMedium))
	assert.Equal(t, int64(0), zed.Totals.Wins)

	matchup := findBucket(t, store, stats.MatchupKey("Ahri", stats.RoleMid, "Zed", "GOLD", "14.3", stats.DurationMedium))
	assert.Equal(t, int64(1), matchup.Totals.Matches)
	assert.Equal(t, int64(1), matchup.Totals.Wins)

	// Lulu has no lane opponent: Thresh was excluded
	_, err = store.FindBucket(ctx, stats.MatchupKey("Lulu", stats.RoleSupport, "Thresh", "GOLD", "14.3", stats.DurationMedium))
	assert.True(t, errors.Is(err, db.ErrNotFound))
	_, err = store.FindBucket(ctx, stats.ChampionKey("Thresh", stats.RoleSupport, "GOLD", "14.3", stats.DurationMedium))
	assert.True(t, errors.Is(err, db.ErrNotFound), "invalid position is excluded")
}

func TestProcessMatch_DuoBuckets(t *testing.T) {
	agg, store := newAggregator(t)
	ctx := context.Background()

	_, err := agg.ProcessMatch(ctx, fixtureMatch("NA1_1"), riot.TimelineAbsent(errors.New("down")), "GOLD")
	require.NoError(t, err)

	midJungle := findBucket(t, store, stats.DuoKey("LeeSin", stats.RoleJungle, "Ahri", stats.RoleMid, "GOLD", "14.3"))
	assert.Equal(t, stats.DuoKey("Ahri", stats.RoleMid, "LeeSin", stats.RoleJungle, "GOLD", "14.3"), midJungle.Key)
	assert.Equal(t, int64(1), midJungle.Totals.Matches, "pair counted once")
	assert.Equal(t, int64(1), midJungle.Totals.Wins)

	findBucket(t, store, stats.DuoKey("Jinx", stats.RoleADC, "Lulu", stats.RoleSupport, "GOLD", "14.3"))
	findBucket(t, store, stats.DuoKey("Garen", stats.RoleTop, "LeeSin", stats.RoleJungle, "GOLD", "14.3"))

	// MID/TOP is not a lane pairing
	_, err = store.FindBucket(ctx, stats.DuoKey("Ahri", stats.RoleMid, "Garen", stats.RoleTop, "GOLD", "14.3"))
	assert.True(t, errors.Is(err, db.ErrNotFound))

	duos, err := store.TopBuckets(ctx, db.TopQuery{Kind: stats.KindDuo, Limit: 50})
	require.NoError(t, err)
	assert.Len(t, duos, 5, "3 blue pairs, 2 red pairs (no red support)")
}

func TestProcessMatch_BanBuckets(t *testing.T) {
	agg, store := newAggregator(t)

	_, err := agg.ProcessMatch(context.Background(), fixtureMatch("NA1_1"), riot.TimelineAbsent(nil), "GOLD")
	require.NoError(t, err)

	zed := findBucket(t, store, stats.BanKey("Champ238", "GOLD", "14.3", stats.DurationMedium))
	assert.Equal(t, int64(2), zed.Totals.Bans, "banned by both teams")
	assert.Equal(t, int64(2), zed.Totals.Matches)
	assert.Equal(t, int64(1), zed.Totals.Wins)
	assert.Equal(t, stats.RoleAll, zed.Key.Role)

	other := findBucket(t, store, stats.BanKey("Champ555", "GOLD", "14.3", stats.DurationMedium))
	assert.Equal(t, int64(1), other.Totals.Bans)
	assert.Equal(t, int64(0), other.Totals.Wins)
}

func TestProcessMatch_AbsentTimelineSkipsPathMining(t *testing.T) {
	agg, store := newAggregator(t)

	res, err := agg.ProcessMatch(context.Background(), fixtureMatch("NA1_1"), riot.TimelineAbsent(errors.New("503")), "GOLD")
	require.NoError(t, err)
	assert.False(t, res.TimelinePresent)

	ahri := findBucket(t, store, stats.ChampionKey("Ahri", stats.RoleMid, "GOLD", "14.3", stats.DurationMedium))
	assert.Equal(t, []string{"3020", "3089", "3157", "build_3020_3089_3157"}, ahri.Freq[stats.MapItems].Keys())
	assert.Empty(t, ahri.Freq[stats.MapSkillOrder])
	assert.Equal(t, int64(0), ahri.Totals.LaneSamples)
}

// Processing the same match twice leaves buckets unchanged
func TestProcessMatch_IdempotentSkip(t *testing.T) {
	agg, store := newAggregator(t)
	ctx := context.Background()
	match := fixtureMatch("NA1_1")

	_, err := agg.ProcessMatch(ctx, match, riot.TimelinePresent(fixtureTimeline()), "GOLD")
	require.NoError(t, err)
	key := stats.ChampionKey("Ahri", stats.RoleMid, "GOLD", "14.3", stats.DurationMedium)
	before := findBucket(t, store, key)

	_, err = agg.ProcessMatch(ctx, match, riot.TimelinePresent(fixtureTimeline()), "GOLD")
	assert.True(t, errors.Is(err, ErrAlreadyScanned), "got %v", err)

	assert.Equal(t, before, findBucket(t, store, key))

	rec, err := store.FindScanned(ctx, "NA1_1")
	require.NoError(t, err)
	assert.Equal(t, "14.3", rec.Patch)
	assert.Equal(t, "GOLD", rec.Tier)
}

// failingStore fails the nth upsert of a match transaction.
type failingStore struct {
	*db.MemoryStore
	failAt int
}

func (s *failingStore) WithinMatch(ctx context.Context, fn func(db.Tx) error) error {
	return s.MemoryStore.WithinMatch(ctx, func(tx db.Tx) error {
		return fn(&failingTx{Tx: tx, failAt: s.failAt})
	})
}

type failingTx struct {
	db.Tx
	failAt int
	calls  int
}

func (t *failingTx) UpsertIncrement(ctx context.Context, d stats.Delta) error {
	t.calls++
	if t.calls == t.failAt {
		return fmt.Errorf("store unavailable")
	}
	return t.Tx.UpsertIncrement(ctx, d)
}

// A mid-match store failure leaves no marker and no partial buckets
func TestProcessMatch_AllOrNothing(t *testing.T) {
	store := &failingStore{MemoryStore: db.NewMemoryStore(), failAt: 5}
	agg := New(store, staticCatalog)
	ctx := context.Background()

	_, err := agg.ProcessMatch(ctx, fixtureMatch("NA1_1"), riot.TimelineAbsent(nil), "GOLD")
	require.Error(t, err)

	_, err = store.FindScanned(ctx, "NA1_1")
	assert.True(t, errors.Is(err, db.ErrNotFound), "no marker after failure")

	all, err := store.TopBuckets(ctx, db.TopQuery{Limit: 500})
	require.NoError(t, err)
	assert.Empty(t, all, "no partial bucket updates")

	// The match is reprocessable once the store recovers
	store.failAt = 0
	_, err = agg.ProcessMatch(ctx, fixtureMatch("NA1_1"), riot.TimelineAbsent(nil), "GOLD")
	require.NoError(t, err)
}

func TestProcessMatch_CatalogFailure(t *testing.T) {
	store := db.NewMemoryStore()
	agg := New(store, func(ctx context.Context, patch string) (Catalog, error) {
		return nil, fmt.Errorf("ddragon down")
	})

	_, err := agg.ProcessMatch(context.Background(), fixtureMatch("NA1_1"), riot.TimelineAbsent(nil), "GOLD")
	require.Error(t, err)

	_, err = store.FindScanned(context.Background(), "NA1_1")
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

// Aggregating matches in different orders yields identical buckets
func TestProcessMatch_OrderIndependent(t *testing.T) {
	ctx := context.Background()
	m1 := fixtureMatch("NA1_1")
	m2 := fixtureMatch("NA1_2")
	m2.Info.Participants[2].Win = false
	m2.Info.Participants[2].Kills = 11

	aggA, storeA := newAggregator(t)
	aggB, storeB := newAggregator(t)

	for _, m := range []*riot.MatchResponse{m1, m2} {
		_, err := aggA.ProcessMatch(ctx, m, riot.TimelineAbsent(nil), "GOLD")
		require.NoError(t, err)
	}
	for _, m := range []*riot.MatchResponse{m2, m1} {
		_, err := aggB.ProcessMatch(ctx, m, riot.TimelineAbsent(nil), "GOLD")
		require.NoError(t, err)
	}

	key := stats.ChampionKey("Ahri", stats.RoleMid, "GOLD", "14.3", stats.DurationMedium)
	a := findBucket(t, storeA, key)
	assert.Equal(t, a, findBucket(t, storeB, key))
	assert.Equal(t, int64(2), a.Totals.Matches)
	assert.Equal(t, int64(1), a.Totals.Wins)
	assert.Equal(t, int64(14), a.Totals.Kills)
}
