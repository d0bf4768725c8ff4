package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const pingTimeout = 10 * time.Second

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}

// OpenSQLite opens (creating if needed) a local SQLite database file and
// applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if _, err := Migrate(ctx, db, DialectSQLite); err != nil {
		db.Close()
		return nil, err
	}

	// SQLite has a single writer; serialise match transactions in-process.
	db.SetMaxOpenConns(1)
	return NewSQLStore(db, DialectSQLite), nil
}

// tursoDSN adds authToken to the query of a libSQL URL, keeping any
// parameters already present.
func tursoDSN(rawURL, authToken string) (string, error) {
	if authToken == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid Turso URL: %w", err)
	}
	q := u.Query()
	q.Set("authToken", authToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// OpenTurso connects to a Turso/libSQL database and applies migrations.
func OpenTurso(ctx context.Context, databaseURL, authToken string) (*SQLStore, error) {
	connStr, err := tursoDSN(databaseURL, authToken)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Turso: %w", err)
	}
	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping Turso: %w", err)
	}
	if _, err := Migrate(ctx, db, DialectSQLite); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLStore(db, DialectSQLite), nil
}

// OpenPostgres creates a pgx pool for databaseURL, exposes it through
// database/sql and applies migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*SQLStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if _, err := Migrate(ctx, db, DialectPostgres); err != nil {
		db.Close()
		pool.Close()
		return nil, err
	}

	store := NewSQLStore(db, DialectPostgres)
	store.onClose = pool.Close
	return store, nil
}
