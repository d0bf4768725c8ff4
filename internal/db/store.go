package db

import (
	"context"
	"errors"
	"time"

	"riftstats/internal/stats"
)

var (
	// ErrNotFound is returned for a missing bucket or scanned marker.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyScanned is returned when a match marker already exists.
	ErrAlreadyScanned = errors.New("match already scanned")
)

// ScannedMatch marks a match whose contributions have been committed.
type ScannedMatch struct {
	MatchID   string    `json:"matchId"`
	Patch     string    `json:"patch"`
	Tier      string    `json:"tier"`
	ScannedAt time.Time `json:"scannedAt"`
}

// TopQuery selects buckets ordered by match count. Empty fields match anything.
type TopQuery struct {
	Kind     stats.Kind
	Champion string
	Role     stats.Role
	Tier     string
	Patch    string
	Limit    int
}

// Store holds buckets and scanned markers.
type Store interface {
	FindBucket(ctx context.Context, key stats.BucketKey) (stats.Bucket, error)
	FindScanned(ctx context.Context, matchID string) (ScannedMatch, error)
	TopBuckets(ctx context.Context, q TopQuery) ([]stats.Bucket, error)

	// WithinMatch runs fn in one transaction: either every write made through
	// the Tx is committed or none is.
	WithinMatch(ctx context.Context, fn func(Tx) error) error

	Close() error
}

// Tx is the write side of a match transaction.
type Tx interface {
	// UpsertIncrement creates the bucket from the delta when absent and adds
	// the delta to it otherwise, atomically per key.
	UpsertIncrement(ctx context.Context, delta stats.Delta) error
	// CreateScanned writes the marker, failing with ErrAlreadyScanned if present.
	CreateScanned(ctx context.Context, rec ScannedMatch) error
}

func defaultLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 20
	}
	return limit
}
