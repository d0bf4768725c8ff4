package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"riftstats/internal/stats"
)

// SQLStore implements Store over database/sql for SQLite, libSQL and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	onClose func()
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an already migrated database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// DB returns the underlying handle for custom queries
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.onClose != nil {
		s.onClose()
	}
	return err
}

const bucketColumns = `bucket_id, kind, champion, role, tier, patch, duration_bucket, opponent, partner, partner_role,
	matches, wins, bans, kills, deaths, assists, damage, gold, cs, vision, duration_seconds, objectives,
	damage_share, gold_share, utility, lane_samples, lane_cs, lane_gold, lane_xp`

// Every counter column is incremented on conflict, never overwritten.
var upsertBucketSQL = `INSERT INTO buckets (` + bucketColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (bucket_id) DO UPDATE SET ` + incrementList(
	"matches", "wins", "bans", "kills", "deaths", "assists", "damage", "gold", "cs", "vision",
	"duration_seconds", "objectives", "damage_share", "gold_share", "utility",
	"lane_samples", "lane_cs", "lane_gold", "lane_xp")

const upsertFrequencySQL = `INSERT INTO bucket_frequencies (bucket_id, map_name, entry_key, wins, matches)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (bucket_id, map_name, entry_key) DO UPDATE SET
		wins = bucket_frequencies.wins + excluded.wins,
		matches = bucket_frequencies.matches + excluded.matches`

func incrementList(cols ...string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = buckets.%s + excluded.%s", c, c, c)
	}
	return strings.Join(sets, ", ")
}

func bucketArgs(key stats.BucketKey, t stats.Totals) []interface{} {
	return []interface{}{
		key.ID(), string(key.Kind), key.Champion, string(key.Role), key.Tier, key.Patch,
		string(key.Duration), key.Opponent, key.Partner, string(key.PartnerRole),
		t.Matches, t.Wins, t.Bans, t.Kills, t.Deaths, t.Assists, t.Damage, t.Gold, t.CS, t.Vision,
		t.DurationSeconds, t.Objectives, t.DamageShare, t.GoldShare, t.Utility,
		t.LaneSamples, t.LaneCS, t.LaneGold, t.LaneXP,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBucket(row rowScanner) (stats.Bucket, error) {
	var (
		b                                     stats.Bucket
		id, kind, role, duration, partnerRole string
	)
	t := &b.Totals
	err := row.Scan(&id, &kind, &b.Key.Champion, &role, &b.Key.Tier, &b.Key.Patch,
		&duration, &b.Key.Opponent, &b.Key.Partner, &partnerRole,
		&t.Matches, &t.Wins, &t.Bans, &t.Kills, &t.Deaths, &t.Assists, &t.Damage, &t.Gold, &t.CS, &t.Vision,
		&t.DurationSeconds, &t.Objectives, &t.DamageShare, &t.GoldShare, &t.Utility,
		&t.LaneSamples, &t.LaneCS, &t.LaneGold, &t.LaneXP)
	if err != nil {
		return b, err
	}
	b.Key.Kind = stats.Kind(kind)
	b.Key.Role = stats.Role(role)
	b.Key.Duration = stats.DurationBucket(duration)
	b.Key.PartnerRole = stats.Role(partnerRole)
	return b, nil
}

// FindBucket loads a bucket with its frequency maps.
func (s *SQLStore) FindBucket(ctx context.Context, key stats.BucketKey) (stats.Bucket, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+bucketColumns+` FROM buckets WHERE bucket_id = ?`), key.ID())
	b, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.Bucket{}, fmt.Errorf("bucket %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return stats.Bucket{}, fmt.Errorf("failed to load bucket %s: %w", key, err)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT map_name, entry_key, wins, matches FROM bucket_frequencies WHERE bucket_id = ?`), key.ID())
	if err != nil {
		return stats.Bucket{}, fmt.Errorf("failed to load frequencies %s: %w", key, err)
	}
	defer rows.Close()

	b.Freq = make(stats.FrequencyMaps)
	for rows.Next() {
		var (
			name, entry string
			c           stats.Counter
		)
		if err := rows.Scan(&name, &entry, &c.Wins, &c.Matches); err != nil {
			return stats.Bucket{}, err
		}
		b.Freq.Map(stats.MapName(name))[entry] = c
	}
	return b, rows.Err()
}

// FindScanned returns the marker of a match.
func (s *SQLStore) FindScanned(ctx context.Context, matchID string) (ScannedMatch, error) {
	var (
		rec       ScannedMatch
		scannedAt string
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT match_id, patch, tier, scanned_at FROM scanned_matches WHERE match_id = ?`), matchID).
		Scan(&rec.MatchID, &rec.Patch, &rec.Tier, &scannedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ScannedMatch{}, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return ScannedMatch{}, fmt.Errorf("failed to load marker %s: %w", matchID, err)
	}
	rec.ScannedAt, err = time.Parse(time.RFC3339, scannedAt)
	if err != nil {
		return ScannedMatch{}, fmt.Errorf("marker %s: invalid scanned_at: %w", matchID, err)
	}
	return rec, nil
}

// TopBuckets lists buckets by match count, without frequency maps.
func (s *SQLStore) TopBuckets(ctx context.Context, q TopQuery) ([]stats.Bucket, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(col, val string) {
		if val != "" {
			conds = append(conds, col+" = ?")
			args = append(args, val)
		}
	}
	add("kind", string(q.Kind))
	add("champion", q.Champion)
	add("role", string(q.Role))
	add("tier", q.Tier)
	add("patch", q.Patch)

	query := `SELECT ` + bucketColumns + ` FROM buckets`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY matches DESC, bucket_id LIMIT ?`
	args = append(args, defaultLimit(q.Limit))

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer rows.Close()

	var buckets []stats.Bucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// WithinMatch runs fn inside a database transaction.
func (s *SQLStore) WithinMatch(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTx) UpsertIncrement(ctx context.Context, delta stats.Delta) error {
	if err := delta.Validate(); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, t.dialect.rebind(upsertBucketSQL), bucketArgs(delta.Key, delta.Totals)...); err != nil {
		return fmt.Errorf("failed to upsert bucket %s: %w", delta.Key, err)
	}

	stmt, err := t.tx.PrepareContext(ctx, t.dialect.rebind(upsertFrequencySQL))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	id := delta.Key.ID()
	for name, m := range delta.Freq {
		for entry, c := range m {
			if _, err := stmt.ExecContext(ctx, id, string(name), entry, c.Wins, c.Matches); err != nil {
				return fmt.Errorf("failed to upsert %s %s/%s: %w", delta.Key, name, entry, err)
			}
		}
	}
	return nil
}

func (t *sqlTx) CreateScanned(ctx context.Context, rec ScannedMatch) error {
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now()
	}
	res, err := t.tx.ExecContext(ctx, t.dialect.rebind(
		`INSERT INTO scanned_matches (match_id, patch, tier, scanned_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (match_id) DO NOTHING`),
		rec.MatchID, rec.Patch, rec.Tier, rec.ScannedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert marker %s: %w", rec.MatchID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("match %s: %w", rec.MatchID, ErrAlreadyScanned)
	}
	return nil
}
