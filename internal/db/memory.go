package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"riftstats/internal/stats"
)

// MemoryStore is an in-process Store. Match transactions are staged and
// applied under one lock, so they are all-or-nothing like the SQL stores.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]stats.Bucket
	scanned map[string]ScannedMatch
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]stats.Bucket),
		scanned: make(map[string]ScannedMatch),
	}
}

func (s *MemoryStore) FindBucket(ctx context.Context, key stats.BucketKey) (stats.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[key.ID()]
	if !ok {
		return stats.Bucket{}, fmt.Errorf("bucket %s: %w", key, ErrNotFound)
	}
	// Merge with no deltas returns a deep copy.
	return stats.Merge(b)
}

func (s *MemoryStore) FindScanned(ctx context.Context, matchID string) (ScannedMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.scanned[matchID]
	if !ok {
		return ScannedMatch{}, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore) TopBuckets(ctx context.Context, q TopQuery) ([]stats.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []stats.Bucket
	for _, b := range s.buckets {
		k := b.Key
		if (q.Kind != "" && k.Kind != q.Kind) ||
			(q.Champion != "" && k.Champion != q.Champion) ||
			(q.Role != "" && k.Role != q.Role) ||
			(q.Tier != "" && k.Tier != q.Tier) ||
			(q.Patch != "" && k.Patch != q.Patch) {
			continue
		}
		out = append(out, stats.Bucket{Key: b.Key, Totals: b.Totals})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Totals.Matches != out[j].Totals.Matches {
			return out[i].Totals.Matches > out[j].Totals.Matches
		}
		return out[i].Key.ID() < out[j].Key.ID()
	})
	if limit := defaultLimit(q.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) WithinMatch(ctx context.Context, fn func(Tx) error) error {
	tx := &memTx{}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range tx.scanned {
		if _, ok := s.scanned[rec.MatchID]; ok {
			return fmt.Errorf("match %s: %w", rec.MatchID, ErrAlreadyScanned)
		}
	}

	staged := make(map[string]stats.Bucket)
	for _, d := range tx.deltas {
		id := d.Key.ID()
		current, ok := staged[id]
		if !ok {
			if current, ok = s.buckets[id]; !ok {
				current = stats.NewBucket(d.Key)
			}
		}
		merged, err := stats.Merge(current, d)
		if err != nil {
			return err
		}
		staged[id] = merged
	}

	for id, b := range staged {
		s.buckets[id] = b
	}
	for _, rec := range tx.scanned {
		s.scanned[rec.MatchID] = rec
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

type memTx struct {
	deltas  []stats.Delta
	scanned []ScannedMatch
}

func (t *memTx) UpsertIncrement(ctx context.Context, delta stats.Delta) error {
	if err := delta.Validate(); err != nil {
		return err
	}
	t.deltas = append(t.deltas, delta)
	return nil
}

func (t *memTx) CreateScanned(ctx context.Context, rec ScannedMatch) error {
	for _, r := range t.scanned {
		if r.MatchID == rec.MatchID {
			return fmt.Errorf("match %s: %w", rec.MatchID, ErrAlreadyScanned)
		}
	}
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now()
	}
	t.scanned = append(t.scanned, rec)
	return nil
}
