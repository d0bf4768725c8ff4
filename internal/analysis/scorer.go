// Package analysis is the read path: it scores matches against the stored
// buckets and builds player rollups.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"riftstats/internal/db"
	"riftstats/internal/metrics"
	"riftstats/internal/riot"
	"riftstats/internal/rollup"
	"riftstats/internal/scoring"
	"riftstats/internal/stats"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Source fetches the raw data the read path needs.
type Source interface {
	GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*riot.AccountResponse, error)
	GetMatchHistory(ctx context.Context, puuid string, count int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error)
	FetchTimeline(ctx context.Context, matchID string) riot.TimelineResult
}

// ClassCatalog maps a champion name to its archetype.
type ClassCatalog interface {
	ChampionClass(champion string) string
}

// ClassFunc resolves the class catalog for a patch.
type ClassFunc func(ctx context.Context, patch string) (ClassCatalog, error)

// ParticipantScore is one scored participant of a match.
type ParticipantScore struct {
	ParticipantID int            `json:"participantId"`
	PUUID         string         `json:"puuid"`
	GameName      string         `json:"gameName,omitempty"`
	TagLine       string         `json:"tagLine,omitempty"`
	TeamID        int            `json:"teamId"`
	Champion      string         `json:"champion"`
	Role          stats.Role     `json:"role,omitempty"`
	Class         string         `json:"class,omitempty"`
	Opponent      string         `json:"opponent,omitempty"`
	Win           bool           `json:"win"`
	Features      stats.Features `json:"features"`
	Result        scoring.Result `json:"result"`
}

// MatchScores holds every participant score of one match.
type MatchScores struct {
	MatchID      string               `json:"matchId"`
	Patch        string               `json:"patch"`
	Tier         string               `json:"tier"`
	Duration     stats.DurationBucket `json:"duration"`
	PlayedAt     time.Time            `json:"playedAt"`
	Timeline     bool                 `json:"timeline"`
	Participants []ParticipantScore   `json:"participants"`
}

// Participant returns the score of the player with puuid.
func (m MatchScores) Participant(puuid string) (ParticipantScore, bool) {
	for _, p := range m.Participants {
		if p.PUUID == puuid {
			return p, true
		}
	}
	return ParticipantScore{}, false
}

// PlayerProfile is a player's recent scored matches and their rollup.
type PlayerProfile struct {
	RiotID  string               `json:"riotId"`
	PUUID   string               `json:"puuid"`
	Matches []rollup.ScoredMatch `json:"matches"`
	Failed  []string             `json:"failed,omitempty"`
	Summary rollup.Summary       `json:"summary"`
}

// Scorer scores matches on demand.
type Scorer struct {
	source      Source
	store       db.Store
	engine      *scoring.Engine
	classes     ClassFunc
	metrics     metrics.Metrics
	logger      *log.Logger
	defaultTier string
	concurrency int
	now         func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClasses enables class modifiers.
func WithClasses(fn ClassFunc) Option {
	return func(s *Scorer) {
		s.classes = fn
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(s *Scorer) {
		s.metrics = m
	}
}

// WithDefaultTier sets the bucket tier used for matches that were never
// aggregated.
func WithDefaultTier(tier string) Option {
	return func(s *Scorer) {
		s.defaultTier = tier
	}
}

// WithConcurrency bounds concurrent match scoring in Profile.
func WithConcurrency(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock sets the time source anchoring the heatmap.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer creates a scorer.
func NewScorer(source Source, store db.Store, engine *scoring.Engine, opts ...Option) *Scorer {
	s := &Scorer{
		source:      source,
		store:       store,
		engine:      engine,
		metrics:     metrics.Nop{},
		logger:      log.WithPrefix("[Scorer]"),
		defaultTier: riot.UnrankedTier,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreMatch fetches a match and scores every participant.
func (s *Scorer) ScoreMatch(ctx context.Context, matchID string) (MatchScores, error) {
	match, err := s.source.GetMatch(ctx, matchID)
	if err != nil {
		return MatchScores{}, err
	}
	timeline := s.source.FetchTimeline(ctx, matchID)
	return s.Score(ctx, match, timeline)
}

// Score scores every participant of an already fetched match. Participants
// without a recognised role are scored with the default weights and no
// bucket baselines.
func (s *Scorer) Score(ctx context.Context, match *riot.MatchResponse, timeline riot.TimelineResult) (MatchScores, error) {
	info := &match.Info
	patch := info.Patch()
	seconds := info.DurationSeconds()

	out := MatchScores{
		MatchID:  match.Metadata.MatchID,
		Patch:    patch,
		Tier:     s.tierFor(ctx, match.Metadata.MatchID),
		Duration: stats.BucketForDuration(seconds),
		PlayedAt: playedAt(info),
		Timeline: timeline.Present(),
	}

	var classes ClassCatalog
	if s.classes != nil {
		c, err := s.classes(ctx, patch)
		if err != nil {
			s.logger.Warn("Class catalog unavailable, scoring without class modifiers", "patch", patch, "err", err)
		} else {
			classes = c
		}
	}

	roles := make([]stats.Role, len(info.Participants))
	for i := range info.Participants {
		roles[i], _ = stats.NormalizeRole(info.Participants[i].TeamPosition)
	}

	teamTotals := make(map[int]riot.TeamTotals)
	for i := range info.Participants {
		p := &info.Participants[i]
		role := roles[i]

		totals, ok := teamTotals[p.TeamID]
		if !ok {
			totals = info.TeamTotals(p.TeamID)
			teamTotals[p.TeamID] = totals
		}

		var opponent *riot.MatchParticipant
		if role != "" {
			for j := range info.Participants {
				if roles[j] == role && info.Participants[j].TeamID != p.TeamID {
					opponent = &info.Participants[j]
					break
				}
			}
		}

		var opts stats.FeatureOptions
		if t, ok := timeline.Get(); ok && opponent != nil {
			if lane, ok := stats.LaneDeltasAt15(t, p.ParticipantID, opponent.ParticipantID); ok {
				opts.Lane = &lane
			}
		}
		features := stats.Extract(p, totals, seconds, opts)

		input := scoring.Input{
			Features: features,
			Role:     string(role),
			Win:      p.Win,
		}
		if classes != nil {
			input.Class = classes.ChampionClass(p.ChampionName)
		}

		ps := ParticipantScore{
			ParticipantID: p.ParticipantID,
			PUUID:         p.PUUID,
			GameName:      p.RiotIdGameName,
			TagLine:       p.RiotIdTagline,
			TeamID:        p.TeamID,
			Champion:      p.ChampionName,
			Role:          role,
			Class:         input.Class,
			Win:           p.Win,
			Features:      features,
		}
		if opponent != nil {
			ps.Opponent = opponent.ChampionName
		}

		baseline, winRate, err := s.baselines(ctx, ps, out)
		if err != nil {
			return MatchScores{}, err
		}
		input.Baseline = baseline
		input.MatchupWinRate = winRate

		ps.Result = s.engine.Score(ctx, input)
		s.metrics.IncScoresComputed()
		if ps.Result.ContributionError != "" {
			s.metrics.IncContributionFailures()
		}
		out.Participants = append(out.Participants, ps)
	}
	return out, nil
}

// baselines looks up the champion and matchup buckets behind a participant.
func (s *Scorer) baselines(ctx context.Context, ps ParticipantScore, m MatchScores) (scoring.Baselines, *float64, error) {
	cfg := s.engine.Config()
	if ps.Role == "" {
		return cfg.Estimate(nil, nil), nil, nil
	}

	champion, err := s.findTotals(ctx, stats.ChampionKey(ps.Champion, ps.Role, m.Tier, m.Patch, m.Duration))
	if err != nil {
		return scoring.Baselines{}, nil, err
	}

	var matchup *stats.Totals
	var winRate *float64
	if ps.Opponent != "" {
		matchup, err = s.findTotals(ctx, stats.MatchupKey(ps.Champion, ps.Role, ps.Opponent, m.Tier, m.Patch, m.Duration))
		if err != nil {
			return scoring.Baselines{}, nil, err
		}
		if matchup != nil && matchup.Matches > 0 {
			wr := matchup.WinRate()
			winRate = &wr
		}
	}
	return cfg.Estimate(champion, matchup), winRate, nil
}

func (s *Scorer) findTotals(ctx context.Context, key stats.BucketKey) (*stats.Totals, error) {
	b, err := s.store.FindBucket(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bucket %s: %w", key, err)
	}
	return &b.Totals, nil
}

// tierFor returns the tier a match was aggregated under, falling back to
// the default tier.
func (s *Scorer) tierFor(ctx context.Context, matchID string) string {
	rec, err := s.store.FindScanned(ctx, matchID)
	if err == nil && rec.Tier != "" {
		return rec.Tier
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		s.logger.Warn("Failed to read scanned marker", "match", matchID, "err", err)
	}
	return s.defaultTier
}

// Profile scores a player's count most recent ranked matches and rolls them
// up. Matches that fail to load are listed in Failed and left out.
func (s *Scorer) Profile(ctx context.Context, riotID string, count int) (PlayerProfile, error) {
	gameName, tagLine, err := riot.ParseRiotID(riotID)
	if err != nil {
		return PlayerProfile{}, err
	}
	account, err := s.source.GetAccountByRiotID(ctx, gameName, tagLine)
	if err != nil {
		return PlayerProfile{}, err
	}
	ids, err := s.source.GetMatchHistory(ctx, account.PUUID, count)
	if err != nil {
		return PlayerProfile{}, err
	}

	scored := make([]*rollup.ScoredMatch, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			scores, err := s.ScoreMatch(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("Failed to score match", "match", id, "err", err)
				return nil
			}
			if m, ok := ToScoredMatch(scores, account.PUUID); ok {
				scored[i] = &m
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PlayerProfile{}, err
	}

	profile := PlayerProfile{
		RiotID: gameName + "#" + tagLine,
		PUUID:  account.PUUID,
	}
	for i, m := range scored {
		if m == nil {
			profile.Failed = append(profile.Failed, ids[i])
			continue
		}
		profile.Matches = append(profile.Matches, *m)
	}
	profile.Summary = rollup.Build(profile.Matches, s.now())
	return profile, nil
}

// ToScoredMatch converts one player's view of a scored match into a rollup row.
func ToScoredMatch(scores MatchScores, puuid string) (rollup.ScoredMatch, bool) {
	me, ok := scores.Participant(puuid)
	if !ok {
		return rollup.ScoredMatch{}, false
	}

	m := rollup.ScoredMatch{
		MatchID:   scores.MatchID,
		PlayedAt:  scores.PlayedAt,
		Champion:  me.Champion,
		Win:       me.Win,
		Kills:     me.Features.Kills,
		Deaths:    me.Features.Deaths,
		Assists:   me.Features.Assists,
		CS:        me.Features.CS,
		Gold:      me.Features.Gold,
		Damage:    me.Features.Damage,
		Score:     me.Result.Score,
		Breakdown: me.Result.Breakdown,
	}
	for _, p := range scores.Participants {
		if p.TeamID == me.TeamID && p.PUUID != puuid {
			m.Teammates = append(m.Teammates, rollup.Teammate{Name: p.GameName, Tag: p.TagLine})
		}
	}
	return m, true
}

func playedAt(info *riot.MatchInfo) time.Time {
	ms := info.GameStartTime
	if ms == 0 {
		ms = info.GameCreation
	}
	return time.UnixMilli(ms).UTC()
}
