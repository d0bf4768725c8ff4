package collector

import (
	"context"
	"fmt"
	"testing"

	"riftstats/internal/riot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorld is a tiny ladder: match participants, histories and tiers.
type fakeWorld struct {
	participants map[string][]string
	history      map[string][]string
	tiers        map[string]string
}

func (w fakeWorld) GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error) {
	players, ok := w.participants[matchID]
	if !ok {
		return nil, fmt.Errorf("get match %s: %w", matchID, riot.ErrNotFound)
	}
	return &riot.MatchResponse{
		Metadata: riot.MatchMetadata{MatchID: matchID, Participants: players},
		Info:     riot.MatchInfo{GameVersion: "14.3.1", GameDuration: 1500, GameEndTimestamp: 1},
	}, nil
}

func (w fakeWorld) FetchTimeline(ctx context.Context, matchID string) riot.TimelineResult {
	return riot.TimelinePresent(&riot.TimelineResponse{})
}

func (w fakeWorld) GetMatchHistory(ctx context.Context, puuid string, count int) ([]string, error) {
	return w.history[puuid], nil
}

func (w fakeWorld) GetSoloTier(ctx context.Context, platform, puuid string) (string, error) {
	if tier, ok := w.tiers[puuid]; ok {
		return tier, nil
	}
	return riot.UnrankedTier, nil
}

func newFakeWorld() fakeWorld {
	return fakeWorld{
		participants: map[string][]string{
			"NA1_1": {"p0", "p1", "p2"},
			"NA1_2": {"p0", "p3"},
			"NA1_3": {"p1", "p4"},
			"NA1_4": {"p4"},
		},
		history: map[string][]string{
			"p0": {"NA1_1", "NA1_2"},
			"p1": {"NA1_1", "NA1_3"},
			"p2": {"NA1_1"},
			"p4": {"NA1_4"},
		},
		tiers: map[string]string{"p0": "DIAMOND", "p1": "GOLD", "p2": "IRON", "p4": "GOLD"},
	}
}

func TestSpider_CrawlsParticipants(t *testing.T) {
	proc := newFakeProcessor()
	s := NewSpider(newFakeWorld(), proc, Config{Concurrency: 2}, SpiderConfig{MaxPlayers: 10, MinTier: "SILVER"})

	summary, err := s.Crawl(context.Background(), "p0")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Players, "p0, p1 and p4")
	assert.Equal(t, 2, summary.PlayersSkipped, "p2 is below the floor and p3 has no history")
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 1, summary.Skipped, "NA1_1 is seen again through p1")
	assert.NotEmpty(t, summary.RunID)

	assert.Equal(t, "DIAMOND", proc.seen["NA1_1"])
	assert.Equal(t, "GOLD", proc.seen["NA1_3"])
	assert.Equal(t, "GOLD", proc.seen["NA1_4"])
}

func TestSpider_StopsAtMaxPlayers(t *testing.T) {
	proc := newFakeProcessor()
	s := NewSpider(newFakeWorld(), proc, Config{Concurrency: 2}, SpiderConfig{MaxPlayers: 1})

	summary, err := s.Crawl(context.Background(), "p0")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Players)
	assert.Equal(t, 2, summary.Processed)
	assert.Len(t, proc.seen, 2)
}

func TestSpider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSpider(newFakeWorld(), newFakeProcessor(), Config{}, SpiderConfig{})
	summary, err := s.Crawl(ctx, "p0")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Players)
}
