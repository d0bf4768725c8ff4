package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                   sync.Mutex
	matchesProcessed     int
	matchesSkipped       int
	matchesFailed        int
	timelinesUnavailable int
	bucketUpserts        int
	scoresComputed       int
	contributionFailures int
	processingDurations  []float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		processingDurations: make([]float64, 0),
	}
}

func (m *Mock) IncMatchesProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesProcessed++
}

func (m *Mock) IncMatchesSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesSkipped++
}

func (m *Mock) IncMatchesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesFailed++
}

func (m *Mock) IncTimelinesUnavailable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timelinesUnavailable++
}

func (m *Mock) AddBucketUpserts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucketUpserts += n
}

func (m *Mock) IncScoresComputed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoresComputed++
}

func (m *Mock) IncContributionFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contributionFailures++
}

func (m *Mock) ObserveProcessingDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processingDurations = append(m.processingDurations, seconds)
}

// MatchesProcessed returns the number of times IncMatchesProcessed was called.
func (m *Mock) MatchesProcessed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesProcessed
}

// MatchesSkipped returns the number of times IncMatchesSkipped was called.
func (m *Mock) MatchesSkipped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesSkipped
}

// MatchesFailed returns the number of times IncMatchesFailed was called.
func (m *Mock) MatchesFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesFailed
}

// TimelinesUnavailable returns the number of times IncTimelinesUnavailable was called.
func (m *Mock) TimelinesUnavailable() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timelinesUnavailable
}

// BucketUpserts returns the sum passed to AddBucketUpserts.
func (m *Mock) BucketUpserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bucketUpserts
}

// ScoresComputed returns the number of times IncScoresComputed was called.
func (m *Mock) ScoresComputed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scoresComputed
}

// ContributionFailures returns the number of times IncContributionFailures was called.
func (m *Mock) ContributionFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contributionFailures
}

// ProcessingDurations returns a copy of every observed duration.
func (m *Mock) ProcessingDurations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.processingDurations...)
}
