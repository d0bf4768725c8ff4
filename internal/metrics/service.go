package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		MatchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftstats_matches_processed_total",
			Help: "Matches whose bucket deltas were committed.",
		}),
		MatchesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftstats_matches_skipped_total",
			Help: "Matches skipped because they were already scanned or seen.",
		}),
		MatchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftstats_matches_failed_total",
			Help: "Matches that failed to fetch or aggregate.",
		}),
		TimelinesUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftstats_timelines_unavailable_total",
			Help: "Matches aggregated without a timeline.",
		}),
		BucketUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftstats_bucket_upserts_total",
			Help: "Bucket deltas written to the store.",
		}),
		ScoresComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftstats_scores_computed_total",
			Help: "Participant scores computed.",
		}),
		ContributionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftstats_contribution_failures_total",
			Help: "Scores computed without a marginal contribution because the model failed.",
		}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riftstats_match_processing_duration_seconds",
			Help:    "The duration of fetching and aggregating one match.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	reg.MustRegister(
		s.MatchesProcessed,
		s.MatchesSkipped,
		s.MatchesFailed,
		s.TimelinesUnavailable,
		s.BucketUpserts,
		s.ScoresComputed,
		s.ContributionFailures,
		s.ProcessingDuration,
	)

	return s
}

func (s *Service) IncMatchesProcessed() {
	s.MatchesProcessed.Inc()
}

func (s *Service) IncMatchesSkipped() {
	s.MatchesSkipped.Inc()
}

func (s *Service) IncMatchesFailed() {
	s.MatchesFailed.Inc()
}

func (s *Service) IncTimelinesUnavailable() {
	s.TimelinesUnavailable.Inc()
}

func (s *Service) AddBucketUpserts(n int) {
	if n > 0 {
		s.BucketUpserts.Add(float64(n))
	}
}

func (s *Service) IncScoresComputed() {
	s.ScoresComputed.Inc()
}

func (s *Service) IncContributionFailures() {
	s.ContributionFailures.Inc()
}

func (s *Service) ObserveProcessingDuration(seconds float64) {
	s.ProcessingDuration.Observe(seconds)
}
