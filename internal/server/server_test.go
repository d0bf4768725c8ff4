package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"riftstats/internal/analysis"
	"riftstats/internal/db"
	"riftstats/internal/metrics"
	"riftstats/internal/riot"
	"riftstats/internal/rollup"
	"riftstats/internal/stats"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScorer struct{}

func (fakeScorer) ScoreMatch(ctx context.Context, matchID string) (analysis.MatchScores, error) {
	switch matchID {
	case "NA1_1":
		return analysis.MatchScores{MatchID: matchID, Patch: "14.3", Participants: []analysis.ParticipantScore{{Champion: "Ahri"}}}, nil
	case "NA1_2":
		return analysis.MatchScores{}, fmt.Errorf("get match: %w", riot.ErrNotFound)
	}
	return analysis.MatchScores{}, errors.New("upstream 500")
}

func seededStore(t *testing.T) *db.MemoryStore {
	t.Helper()
	store := db.NewMemoryStore()
	ahri := stats.ChampionKey("Ahri", stats.RoleMid, "GOLD", "14.3", stats.DurationMedium)
	lux := stats.ChampionKey("Lux", stats.RoleSupport, "GOLD", "14.3", stats.DurationMedium)
	duo := stats.DuoKey("Jinx", stats.RoleADC, "Lulu", stats.RoleSupport, "GOLD", "14.3")

	err := store.WithinMatch(context.Background(), func(tx db.Tx) error {
		for i := 0; i < 3; i++ {
			freq := stats.FrequencyMaps{}
			freq.Map(stats.MapItems).Record("build_3020_3089_3157", i < 2)
			if err := tx.UpsertIncrement(context.Background(), stats.Delta{
				Key:    ahri,
				Totals: stats.Totals{Matches: 1, Wins: int64(1 - i/2), Kills: 6, Deaths: 2, Assists: 4},
				Freq:   freq,
			}); err != nil {
				return err
			}
		}
		if err := tx.UpsertIncrement(context.Background(), stats.Delta{Key: lux, Totals: stats.Totals{Matches: 1}}); err != nil {
			return err
		}
		return tx.UpsertIncrement(context.Background(), stats.Delta{Key: duo, Totals: stats.Totals{Matches: 1, Wins: 1}})
	})
	require.NoError(t, err)
	return store
}

func newTestServer(t *testing.T) *Server {
	reg := prometheus.NewRegistry()
	metrics.NewService(reg).IncMatchesProcessed()
	return NewServer(seededStore(t), fakeScorer{}, Config{
		MetricsHandler: metrics.NewMetricsHandler(reg),
		Now:            func() time.Time { return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) },
	})
}

func get(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	rec := get(t, newTestServer(t), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "riftstats_matches_processed_total 1")
}

func TestGetBucket(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/buckets/champion?champion=Ahri&role=middle&tier=gold&patch=14.3&duration=medium")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view BucketView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, int64(3), view.Totals.Matches)
	assert.Equal(t, int64(2), view.Totals.Wins)
	assert.InDelta(t, 2.0/3.0, view.WinRate, 1e-9)
	assert.InDelta(t, 5.0, view.KDA, 1e-9)
	require.Len(t, view.Top[stats.MapItems], 1)
	assert.Equal(t, FrequencyEntry{Key: "build_3020_3089_3157", Matches: 3, Wins: 2, WinRate: 2.0 / 3.0}, view.Top[stats.MapItems][0])
}

func TestGetBucket_DuoIsOrderIndependent(t *testing.T) {
	s := newTestServer(t)

	for _, url := range []string{
		"/api/buckets/duo?champion=Jinx&role=ADC&partner=Lulu&partnerRole=SUPPORT&tier=GOLD&patch=14.3",
		"/api/buckets/duo?champion=Lulu&role=UTILITY&partner=Jinx&partnerRole=BOTTOM&tier=GOLD&patch=14.3",
	} {
		rec := get(t, s, url)
		assert.Equal(t, http.StatusOK, rec.Code, url)
	}
}

func TestGetBucket_Errors(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]int{
		"/api/buckets/flavour?champion=Ahri":                                                 http.StatusBadRequest,
		"/api/buckets/champion?champion=Ahri&tier=GOLD&patch=14.3&duration=MEDIUM":           http.StatusBadRequest,
		"/api/buckets/champion?champion=Ahri&role=ROAM&tier=GOLD&patch=14.3&duration=MEDIUM": http.StatusBadRequest,
		"/api/buckets/champion?champion=Ahri&role=MID&tier=GOLD&patch=14.3&duration=FOREVER": http.StatusBadRequest,
		"/api/buckets/matchup?champion=Ahri&role=MID&tier=GOLD&patch=14.3&duration=MEDIUM":   http.StatusBadRequest,
		"/api/buckets/champion?champion=Zed&role=MID&tier=GOLD&patch=14.3&duration=MEDIUM":   http.StatusNotFound,
		"/api/buckets/ban?champion=Zed&tier=GOLD&patch=14.3&duration=MEDIUM":                 http.StatusNotFound,
		"/api/buckets/duo?champion=Jinx&role=ADC&partner=Lulu&tier=GOLD&patch=14.3":          http.StatusBadRequest,
	}
	for url, status := range cases {
		rec := get(t, s, url)
		assert.Equal(t, status, rec.Code, url)
	}
}

func TestTopBuckets(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/buckets/top?kind=champion&tier=gold&patch=14.3")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []BucketView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "Ahri", views[0].Key.Champion)
	assert.Equal(t, "Lux", views[1].Key.Champion)

	rec = get(t, s, "/api/buckets/top?kind=champion&role=SUPPORT&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Lux", views[0].Key.Champion)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/buckets/top?limit=ten").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/buckets/top?role=ROAM").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/buckets/top?kind=flavour").Code)
}

func TestMatchScores(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/matches/NA1_1/scores")
	require.Equal(t, http.StatusOK, rec.Code)
	var scores analysis.MatchScores
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	assert.Equal(t, "NA1_1", scores.MatchID)
	require.Len(t, scores.Participants, 1)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/matches/NA1_2/scores").Code)
	assert.Equal(t, http.StatusBadGateway, get(t, s, "/api/matches/NA1_3/scores").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/matches/garbage/scores").Code)
}

func TestRollup(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(RollupRequest{Matches: []rollup.ScoredMatch{
		{MatchID: "NA1_1", Champion: "Ahri", Win: true, Score: 70, PlayedAt: time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)},
		{MatchID: "NA1_2", Champion: "Ahri", Win: false, Score: 50, PlayedAt: time.Date(2025, 3, 9, 13, 0, 0, 0, time.UTC)},
	}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rollup", strings.NewReader(string(body))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary rollup.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Matches)
	require.Len(t, summary.Heatmap, rollup.HeatmapDays)
	assert.Equal(t, "2025-03-10", summary.Heatmap[len(summary.Heatmap)-1].Date)
	assert.Equal(t, 2, summary.Heatmap[len(summary.Heatmap)-2].Games)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rollup", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
