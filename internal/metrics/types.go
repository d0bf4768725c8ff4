package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for riftstats.
type Service struct {
	MatchesProcessed     prometheus.Counter
	MatchesSkipped       prometheus.Counter
	MatchesFailed        prometheus.Counter
	TimelinesUnavailable prometheus.Counter
	BucketUpserts        prometheus.Counter
	ScoresComputed       prometheus.Counter
	ContributionFailures prometheus.Counter
	ProcessingDuration   prometheus.Histogram
}
