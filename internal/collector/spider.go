package collector

import (
	"context"
	"sync"
	"time"

	"riftstats/internal/riot"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	DefaultMatchesPerPlayer = 20
	DefaultMaxPlayers       = 100

	puuidCapacity = 1000000
)

// SpiderSource is the API surface a crawl needs.
type SpiderSource interface {
	MatchSource
	GetMatchHistory(ctx context.Context, puuid string, count int) ([]string, error)
	GetSoloTier(ctx context.Context, platform, puuid string) (string, error)
}

// SpiderConfig bounds a crawl.
type SpiderConfig struct {
	MatchesPerPlayer int
	MaxPlayers       int
	// MinTier skips players below this solo queue tier. Empty accepts all.
	MinTier string
}

// CrawlSummary totals a crawl across every visited player.
type CrawlSummary struct {
	Summary
	Players        int
	PlayersSkipped int
}

// Spider snowballs from one player to the participants of their matches,
// collecting each player's recent matches under that player's tier.
type Spider struct {
	source    SpiderSource
	collector *Collector
	recorder  *participantRecorder
	logger    *log.Logger

	matchesPerPlayer int
	maxPlayers       int
	minTier          string
	visited          *bloom.BloomFilter
}

// NewSpider creates a spider. cfg and opts configure the underlying collector.
func NewSpider(source SpiderSource, processor Processor, cfg Config, scfg SpiderConfig, opts ...Option) *Spider {
	if scfg.MatchesPerPlayer <= 0 {
		scfg.MatchesPerPlayer = DefaultMatchesPerPlayer
	}
	if scfg.MaxPlayers <= 0 {
		scfg.MaxPlayers = DefaultMaxPlayers
	}
	rec := &participantRecorder{MatchSource: source}
	return &Spider{
		source:           source,
		collector:        New(rec, processor, cfg, opts...),
		recorder:         rec,
		logger:           log.WithPrefix("[Spider]"),
		matchesPerPlayer: scfg.MatchesPerPlayer,
		maxPlayers:       scfg.MaxPlayers,
		minTier:          scfg.MinTier,
		visited:          bloom.NewWithEstimates(puuidCapacity, bloomFPRate),
	}
}

// Crawl visits players breadth-first from startPUUID until MaxPlayers have
// been collected or the queue runs dry.
func (s *Spider) Crawl(ctx context.Context, startPUUID string) (CrawlSummary, error) {
	start := time.Now()
	total := CrawlSummary{Summary: Summary{RunID: uuid.NewString()}}

	queue := []string{startPUUID}
	s.visited.AddString(startPUUID)

	for len(queue) > 0 && total.Players < s.maxPlayers {
		if ctx.Err() != nil {
			break
		}
		puuid := queue[0]
		queue = queue[1:]

		refs, tier, err := s.playerRefs(ctx, puuid)
		if err != nil {
			s.logger.Warn("Skipping player", "puuid", shortID(puuid), "err", err)
			total.PlayersSkipped++
			continue
		}
		if len(refs) == 0 {
			s.logger.Debug("Skipping player", "puuid", shortID(puuid), "tier", tier)
			total.PlayersSkipped++
			continue
		}
		total.Players++

		summary, runErr := s.collector.Run(ctx, refs)
		total.add(summary)

		for _, p := range s.recorder.drain() {
			if !s.visited.TestOrAddString(p) {
				queue = append(queue, p)
			}
		}

		s.logger.Info("Crawled player",
			"run", total.RunID,
			"player", total.Players,
			"max", s.maxPlayers,
			"tier", tier,
			"processed", summary.Processed,
			"queue", len(queue))

		if runErr != nil {
			break
		}
	}

	total.Elapsed = time.Since(start)
	s.logger.Info("Crawl finished",
		"run", total.RunID,
		"players", total.Players,
		"playersSkipped", total.PlayersSkipped,
		"processed", total.Processed,
		"failed", total.Failed,
		"elapsed", total.Elapsed.Round(time.Millisecond))
	return total, ctx.Err()
}

// playerRefs returns the player's recent matches and tier. No refs are
// returned for players below the minimum tier.
func (s *Spider) playerRefs(ctx context.Context, puuid string) ([]MatchRef, string, error) {
	ids, err := s.source.GetMatchHistory(ctx, puuid, s.matchesPerPlayer)
	if err != nil || len(ids) == 0 {
		return nil, "", err
	}

	tier := riot.UnrankedTier
	if platform, err := riot.PlatformForMatchID(ids[0]); err == nil {
		if t, err := s.source.GetSoloTier(ctx, platform, puuid); err == nil {
			tier = t
		}
	}
	if !riot.AtLeastTier(tier, s.minTier) {
		return nil, tier, nil
	}

	refs := make([]MatchRef, len(ids))
	for i, id := range ids {
		refs[i] = MatchRef{MatchID: id, Tier: tier}
	}
	return refs, tier, nil
}

func (s *Summary) add(o Summary) {
	s.Processed += o.Processed
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.TimelinesMissing += o.TimelinesMissing
	s.Outcomes = append(s.Outcomes, o.Outcomes...)
}

// participantRecorder remembers the participants of every fetched match.
type participantRecorder struct {
	MatchSource

	mu     sync.Mutex
	puuids []string
}

func (r *participantRecorder) GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error) {
	match, err := r.MatchSource.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.puuids = append(r.puuids, match.Metadata.Participants...)
	r.mu.Unlock()
	return match, nil
}

func (r *participantRecorder) drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.puuids
	r.puuids = nil
	return out
}

func shortID(puuid string) string {
	if len(puuid) > 16 {
		return puuid[:16]
	}
	return puuid
}
