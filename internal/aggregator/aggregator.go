package aggregator

import (
	"context"
	"errors"
	"fmt"

	"riftstats/internal/build"
	"riftstats/internal/db"
	"riftstats/internal/riot"
	"riftstats/internal/stats"

	"github.com/charmbracelet/log"
)

// ErrAlreadyScanned is returned when a match was aggregated before.
var ErrAlreadyScanned = db.ErrAlreadyScanned

// Catalog is the reference data needed to aggregate one match.
type Catalog interface {
	build.ItemCatalog
	ChampionName(id int) string
}

// CatalogFunc resolves the catalog for a match patch.
type CatalogFunc func(ctx context.Context, patch string) (Catalog, error)

// Aggregator merges match contributions into the bucket store.
type Aggregator struct {
	store    db.Store
	catalogs CatalogFunc
	logger   *log.Logger
}

// New creates an aggregator.
func New(store db.Store, catalogs CatalogFunc) *Aggregator {
	return &Aggregator{
		store:    store,
		catalogs: catalogs,
		logger:   log.WithPrefix("[Aggregator]"),
	}
}

// Result summarises one aggregated match.
type Result struct {
	MatchID         string
	Patch           string
	Tier            string
	Duration        stats.DurationBucket
	Aggregated      int // participants with a valid role
	Excluded        int
	Deltas          int
	TimelinePresent bool
}

// ProcessMatch aggregates a match exactly once. A match with a scanned
// marker returns ErrAlreadyScanned before any bucket is touched. All bucket
// increments and the marker are committed together or not at all.
func (a *Aggregator) ProcessMatch(ctx context.Context, match *riot.MatchResponse, timeline riot.TimelineResult, tier string) (Result, error) {
	matchID := match.Metadata.MatchID
	if matchID == "" {
		return Result{}, fmt.Errorf("match has no id")
	}

	_, err := a.store.FindScanned(ctx, matchID)
	switch {
	case err == nil:
		return Result{MatchID: matchID}, fmt.Errorf("match %s: %w", matchID, ErrAlreadyScanned)
	case !errors.Is(err, db.ErrNotFound):
		return Result{MatchID: matchID}, fmt.Errorf("failed to check marker: %w", err)
	}

	patch := match.Info.Patch()
	catalog, err := a.catalogs(ctx, patch)
	if err != nil {
		return Result{MatchID: matchID}, fmt.Errorf("failed to load catalog for %s: %w", patch, err)
	}

	deltas, res := BuildDeltas(match, timeline, tier, catalog)

	err = a.store.WithinMatch(ctx, func(tx db.Tx) error {
		for _, d := range deltas {
			if err := tx.UpsertIncrement(ctx, d); err != nil {
				return err
			}
		}
		return tx.CreateScanned(ctx, db.ScannedMatch{MatchID: matchID, Patch: patch, Tier: tier})
	})
	if err != nil {
		return res, fmt.Errorf("match %s: %w", matchID, err)
	}

	a.logger.Debug("match aggregated", "match", matchID, "patch", patch, "tier", tier,
		"participants", res.Aggregated, "excluded", res.Excluded, "deltas", res.Deltas, "timeline", res.TimelinePresent)
	return res, nil
}

type slot struct {
	p    *riot.MatchParticipant
	role stats.Role
}

// BuildDeltas computes every bucket contribution of a match without touching
// any store.
func BuildDeltas(match *riot.MatchResponse, timeline riot.TimelineResult, tier string, catalog Catalog) ([]stats.Delta, Result) {
	info := &match.Info
	patch := info.Patch()
	seconds := info.DurationSeconds()
	duration := stats.BucketForDuration(seconds)

	res := Result{
		MatchID:         match.Metadata.MatchID,
		Patch:           patch,
		Tier:            tier,
		Duration:        duration,
		TimelinePresent: timeline.Present(),
	}

	var valid []slot
	for i := range info.Participants {
		p := &info.Participants[i]
		role, ok := stats.NormalizeRole(p.TeamPosition)
		if !ok {
			res.Excluded++
			continue
		}
		valid = append(valid, slot{p: p, role: role})
	}
	res.Aggregated = len(valid)

	teamTotals := make(map[int]riot.TeamTotals)
	var deltas []stats.Delta

	for _, s := range valid {
		p := s.p
		totals, ok := teamTotals[p.TeamID]
		if !ok {
			totals = info.TeamTotals(p.TeamID)
			teamTotals[p.TeamID] = totals
		}

		opponent := laneOpponent(valid, s)

		var opts stats.FeatureOptions
		if t, ok := timeline.Get(); ok && opponent != nil {
			if lane, ok := stats.LaneDeltasAt15(t, p.ParticipantID, opponent.ParticipantID); ok {
				opts.Lane = &lane
			}
		}
		features := stats.Extract(p, totals, seconds, opts)
		contribution := features.Totals(p.Win)

		loadout := build.MineLoadout(p, timeline, catalog)
		deltas = append(deltas, stats.Delta{
			Key:    stats.ChampionKey(p.ChampionName, s.role, tier, patch, duration),
			Totals: contribution,
			Freq:   loadout.FrequencyMaps(p.Win),
		})

		if opponent != nil {
			deltas = append(deltas, stats.Delta{
				Key:    stats.MatchupKey(p.ChampionName, s.role, opponent.ChampionName, tier, patch, duration),
				Totals: contribution,
			})
		}
	}

	deltas = append(deltas, duoDeltas(valid, tier, patch)...)
	deltas = append(deltas, banDeltas(info, tier, patch, duration, catalog)...)

	res.Deltas = len(deltas)
	return deltas, res
}

// laneOpponent returns the enemy participant in the same role, if any.
func laneOpponent(valid []slot, s slot) *riot.MatchParticipant {
	for _, other := range valid {
		if other.role == s.role && other.p.TeamID != s.p.TeamID {
			return other.p
		}
	}
	return nil
}

// duoDeltas emits one increment per same-team pair forming a tracked lane pairing.
func duoDeltas(valid []slot, tier, patch string) []stats.Delta {
	var deltas []stats.Delta
	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			a, b := valid[i], valid[j]
			if a.p.TeamID != b.p.TeamID || !stats.IsDuoPair(a.role, b.role) {
				continue
			}
			t := stats.Totals{Matches: 1}
			if a.p.Win {
				t.Wins = 1
			}
			deltas = append(deltas, stats.Delta{
				Key:    stats.DuoKey(a.p.ChampionName, a.role, b.p.ChampionName, b.role, tier, patch),
				Totals: t,
			})
		}
	}
	return deltas
}

// banDeltas emits one increment per banned champion per team. Skipped bans
// (championId -1 or 0) are ignored.
func banDeltas(info *riot.MatchInfo, tier, patch string, duration stats.DurationBucket, catalog Catalog) []stats.Delta {
	var deltas []stats.Delta
	for _, team := range info.Teams {
		for _, ban := range team.Bans {
			if ban.ChampionID <= 0 {
				continue
			}
			t := stats.Totals{Matches: 1, Bans: 1}
			if team.Win {
				t.Wins = 1
			}
			deltas = append(deltas, stats.Delta{
				Key:    stats.BanKey(catalog.ChampionName(ban.ChampionID), tier, patch, duration),
				Totals: t,
			})
		}
	}
	return deltas
}
