// Package collector fetches ranked matches and feeds them to the aggregator.
package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"riftstats/internal/aggregator"
	"riftstats/internal/metrics"
	"riftstats/internal/riot"
	"riftstats/internal/storage"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency          = 8
	DefaultTimelineSamplingRate = 1.0

	bloomCapacity = 500000
	bloomFPRate   = 0.001
)

// ErrNotSampled is the absence cause for timelines skipped by sampling.
var ErrNotSampled = errors.New("timeline not sampled")

// MatchSource fetches raw match data.
type MatchSource interface {
	GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error)
	FetchTimeline(ctx context.Context, matchID string) riot.TimelineResult
}

// Processor aggregates one match.
type Processor interface {
	ProcessMatch(ctx context.Context, match *riot.MatchResponse, timeline riot.TimelineResult, tier string) (aggregator.Result, error)
}

// Archive stores raw matches for replay.
type Archive interface {
	WriteMatch(rec storage.ArchivedMatch) error
}

// MatchRef identifies a match to collect and the tier it is bucketed under.
type MatchRef struct {
	MatchID string
	Tier    string
}

// Status is the outcome of collecting one match.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// MatchOutcome records what happened to one match.
type MatchOutcome struct {
	MatchID string
	Status  Status
	Err     error
	Result  aggregator.Result
}

// Summary totals a collection run.
type Summary struct {
	RunID            string
	Processed        int
	Skipped          int
	Failed           int
	TimelinesMissing int
	Elapsed          time.Duration
	Outcomes         []MatchOutcome
}

// Config holds collector settings.
type Config struct {
	Concurrency          int
	TimelineSamplingRate float64 // 0.0-1.0
	Seed                 int64   // 0 seeds from the clock
}

// Collector runs matches through fetch, archive and aggregation with
// bounded concurrency. Match ids that were processed (or found already
// scanned) in this process are skipped; failed ones are retried.
type Collector struct {
	source    MatchSource
	processor Processor
	archive   Archive
	metrics   metrics.Metrics
	logger    *log.Logger

	concurrency  int
	samplingRate float64

	rngMu sync.Mutex
	rng   *rand.Rand

	settledMu sync.Mutex
	settled   *bloom.BloomFilter
}

// Option configures a Collector.
type Option func(*Collector)

// WithArchive stores every fetched match before it is aggregated.
func WithArchive(a Archive) Option {
	return func(c *Collector) {
		c.archive = a
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// New creates a collector.
func New(source MatchSource, processor Processor, cfg Config, opts ...Option) *Collector {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	rate := cfg.TimelineSamplingRate
	if rate <= 0 {
		rate = DefaultTimelineSamplingRate
	}
	if rate > 1 {
		rate = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	c := &Collector{
		source:       source,
		processor:    processor,
		metrics:      metrics.Nop{},
		logger:       log.WithPrefix("[Collector]"),
		concurrency:  cfg.Concurrency,
		samplingRate: rate,
		rng:          rand.New(rand.NewSource(seed)),
		settled:      bloom.NewWithEstimates(bloomCapacity, bloomFPRate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run collects every ref. Per-match failures are recorded in the summary and
// do not stop the run; only context cancellation does.
func (c *Collector) Run(ctx context.Context, refs []MatchRef) (Summary, error) {
	start := time.Now()
	outcomes := make([]MatchOutcome, len(refs))
	timelineMissing := make([]bool, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	queued := make(map[string]bool, len(refs))
	for i, ref := range refs {
		if gctx.Err() != nil {
			break
		}
		if queued[ref.MatchID] || c.isSettled(ref.MatchID) {
			outcomes[i] = MatchOutcome{MatchID: ref.MatchID, Status: StatusSkipped}
			c.metrics.IncMatchesSkipped()
			continue
		}
		queued[ref.MatchID] = true

		g.Go(func() error {
			outcome, missing := c.collect(gctx, ref)
			c.settle(outcome)
			outcomes[i] = outcome
			timelineMissing[i] = missing
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{RunID: uuid.NewString(), Elapsed: time.Since(start)}
	for i, o := range outcomes {
		if o.MatchID == "" {
			// Never dispatched because the context was cancelled.
			continue
		}
		switch o.Status {
		case StatusProcessed:
			summary.Processed++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
		if timelineMissing[i] {
			summary.TimelinesMissing++
		}
		summary.Outcomes = append(summary.Outcomes, o)
	}

	c.logger.Info("Collection finished",
		"run", summary.RunID,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"timelinesMissing", summary.TimelinesMissing,
		"elapsed", summary.Elapsed.Round(time.Millisecond))

	return summary, ctx.Err()
}

// collect fetches, archives and aggregates one match.
func (c *Collector) collect(ctx context.Context, ref MatchRef) (MatchOutcome, bool) {
	start := time.Now()
	outcome := MatchOutcome{MatchID: ref.MatchID}

	match, err := c.source.GetMatch(ctx, ref.MatchID)
	if err != nil {
		c.logger.Warn("Failed to fetch match", "match", ref.MatchID, "err", err)
		c.metrics.IncMatchesFailed()
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome, false
	}

	timeline := riot.TimelineAbsent(ErrNotSampled)
	if c.shouldFetchTimeline() {
		timeline = c.source.FetchTimeline(ctx, ref.MatchID)
	}

	if c.archive != nil {
		rec := storage.ArchivedMatch{
			MatchID:    ref.MatchID,
			Tier:       ref.Tier,
			ArchivedAt: time.Now().UTC(),
			Match:      match,
		}
		rec.Timeline, _ = timeline.Get()
		if err := c.archive.WriteMatch(rec); err != nil {
			c.logger.Warn("Failed to archive match", "match", ref.MatchID, "err", err)
		}
	}

	return c.process(ctx, match, timeline, ref.Tier, start)
}

// process aggregates an already fetched match and records metrics.
func (c *Collector) process(ctx context.Context, match *riot.MatchResponse, timeline riot.TimelineResult, tier string, start time.Time) (MatchOutcome, bool) {
	outcome := MatchOutcome{MatchID: match.Metadata.MatchID}
	missing := !timeline.Present()

	res, err := c.processor.ProcessMatch(ctx, match, timeline, tier)
	outcome.Result = res
	switch {
	case errors.Is(err, aggregator.ErrAlreadyScanned):
		c.logger.Debug("Match already scanned", "match", outcome.MatchID)
		c.metrics.IncMatchesSkipped()
		outcome.Status = StatusSkipped
		return outcome, false
	case err != nil:
		c.logger.Error("Failed to aggregate match", "match", outcome.MatchID, "err", err)
		c.metrics.IncMatchesFailed()
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome, false
	}

	c.metrics.IncMatchesProcessed()
	c.metrics.AddBucketUpserts(res.Deltas)
	if missing {
		c.metrics.IncTimelinesUnavailable()
	}
	c.metrics.ObserveProcessingDuration(time.Since(start).Seconds())

	c.logger.Debug("Aggregated match",
		"match", outcome.MatchID,
		"patch", res.Patch,
		"tier", res.Tier,
		"deltas", res.Deltas,
		"timeline", res.TimelinePresent)

	outcome.Status = StatusProcessed
	return outcome, missing
}

// Replay aggregates every archived match under dir without calling the API.
func (c *Collector) Replay(ctx context.Context, dir string) (Summary, error) {
	start := time.Now()
	files, err := storage.ArchiveFiles(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list archive: %w", err)
	}

	summary := Summary{RunID: uuid.NewString()}
	for _, path := range files {
		_, err := storage.Replay(ctx, path, func(rec storage.ArchivedMatch) error {
			if rec.Match == nil || c.isSettled(rec.MatchID) {
				summary.Skipped++
				c.metrics.IncMatchesSkipped()
				return nil
			}
			outcome, missing := c.process(ctx, rec.Match, rec.TimelineResult(), rec.Tier, time.Now())
			c.settle(outcome)
			switch outcome.Status {
			case StatusProcessed:
				summary.Processed++
			case StatusSkipped:
				summary.Skipped++
			case StatusFailed:
				summary.Failed++
			}
			if missing {
				summary.TimelinesMissing++
			}
			summary.Outcomes = append(summary.Outcomes, outcome)
			return nil
		})
		if err != nil {
			return summary, fmt.Errorf("failed to replay %s: %w", path, err)
		}
		c.logger.Info("Replayed archive file", "run", summary.RunID, "file", path)
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

func (c *Collector) shouldFetchTimeline() bool {
	if c.samplingRate >= 1 {
		return true
	}
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.rng.Float64() < c.samplingRate
}

func (c *Collector) isSettled(matchID string) bool {
	c.settledMu.Lock()
	defer c.settledMu.Unlock()
	return c.settled.TestString(matchID)
}

// settle remembers a match once it has a final outcome. Failures are left
// out so a later run retries them.
func (c *Collector) settle(o MatchOutcome) {
	if o.Status != StatusProcessed && o.Status != StatusSkipped {
		return
	}
	c.settledMu.Lock()
	defer c.settledMu.Unlock()
	c.settled.AddString(o.MatchID)
}
