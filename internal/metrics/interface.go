package metrics

// Metrics defines the interface for collecting pipeline metrics.
// Ingestion and scoring depend on this rather than on Prometheus directly.
type Metrics interface {
	IncMatchesProcessed()
	IncMatchesSkipped()
	IncMatchesFailed()
	IncTimelinesUnavailable()
	AddBucketUpserts(n int)
	IncScoresComputed()
	IncContributionFailures()
	ObserveProcessingDuration(seconds float64)
}

// Nop discards every metric.
type Nop struct{}

var _ Metrics = Nop{}

func (Nop) IncMatchesProcessed()              {}
func (Nop) IncMatchesSkipped()                {}
func (Nop) IncMatchesFailed()                 {}
func (Nop) IncTimelinesUnavailable()          {}
func (Nop) AddBucketUpserts(int)              {}
func (Nop) IncScoresComputed()                {}
func (Nop) IncContributionFailures()          {}
func (Nop) ObserveProcessingDuration(float64) {}
