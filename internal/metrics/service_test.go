package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.IncMatchesProcessed()
	s.IncMatchesProcessed()
	s.IncMatchesSkipped()
	s.AddBucketUpserts(12)
	s.AddBucketUpserts(-3)
	s.ObserveProcessingDuration(0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.MatchesProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.MatchesSkipped))
	assert.Equal(t, 12.0, testutil.ToFloat64(s.BucketUpserts))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.MatchesFailed))
	assert.Equal(t, 1, testutil.CollectAndCount(s.ProcessingDuration))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)
	s.IncScoresComputed()

	rec := httptest.NewRecorder()
	NewMetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "riftstats_scores_computed_total 1")
}

func TestMock(t *testing.T) {
	m := NewMock()
	m.IncMatchesFailed()
	m.IncTimelinesUnavailable()
	m.AddBucketUpserts(4)
	m.AddBucketUpserts(3)
	m.IncContributionFailures()
	m.ObserveProcessingDuration(1.5)

	assert.Equal(t, 1, m.MatchesFailed())
	assert.Equal(t, 1, m.TimelinesUnavailable())
	assert.Equal(t, 7, m.BucketUpserts())
	assert.Equal(t, 1, m.ContributionFailures())
	assert.Equal(t, []float64{1.5}, m.ProcessingDurations())
}
