package cmd

import (
	"context"
	"fmt"

	"riftstats/internal/aggregator"
	"riftstats/internal/analysis"
	"riftstats/internal/config"
	"riftstats/internal/db"
	"riftstats/internal/ddragon"
	"riftstats/internal/metrics"
	"riftstats/internal/riot"
	"riftstats/internal/scoring"
)

func openStore(ctx context.Context) (db.Store, error) {
	var (
		store *db.SQLStore
		err   error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return db.NewMemoryStore(), nil
	case config.DriverTurso:
		store, err = db.OpenTurso(ctx, cfg.TursoDatabaseURL, cfg.TursoAuthToken)
	case config.DriverPostgres:
		store, err = db.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		store, err = db.OpenSQLite(ctx, cfg.SQLitePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	return store, nil
}

func newRiotClient(region string) (*riot.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return riot.NewClient(cfg.RiotAPIKey, region)
}

// catalogs resolves Data Dragon reference data per patch, or always for one
// version when pinned.
type catalogs struct {
	client *ddragon.Client
	pinned string
}

func newCatalogs() catalogs {
	return catalogs{client: ddragon.NewClient(""), pinned: cfg.DDragonVersion}
}

func (c catalogs) load(ctx context.Context, patch string) (*ddragon.Catalog, error) {
	if c.pinned != "" {
		return c.client.Catalog(ctx, c.pinned)
	}
	return c.client.ForPatch(ctx, patch)
}

func (c catalogs) forAggregator(ctx context.Context, patch string) (aggregator.Catalog, error) {
	catalog, err := c.load(ctx, patch)
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c catalogs) forScorer(ctx context.Context, patch string) (analysis.ClassCatalog, error) {
	catalog, err := c.load(ctx, patch)
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

func newScorer(client *riot.Client, store db.Store, m metrics.Metrics) *analysis.Scorer {
	engine := scoring.NewEngine(scoring.DefaultConfig(), scoring.DefaultLinearModel())
	return analysis.NewScorer(client, store, engine,
		analysis.WithClasses(newCatalogs().forScorer),
		analysis.WithMetrics(m),
		analysis.WithDefaultTier(cfg.DefaultTier),
		analysis.WithConcurrency(cfg.IngestConcurrency),
	)
}
