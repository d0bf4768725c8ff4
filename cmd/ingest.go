package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"riftstats/internal/aggregator"
	"riftstats/internal/collector"
	"riftstats/internal/discord"
	"riftstats/internal/metrics"
	"riftstats/internal/report"
	"riftstats/internal/riot"
	"riftstats/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	ingestRiotID      string
	ingestCount       int
	ingestMatchIDs    []string
	ingestTier        string
	ingestReplayDir   string
	ingestCompress    bool
	ingestMetricsAddr string

	ingestSpider     bool
	ingestMaxPlayers int
	ingestMinTier    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Aggregate ranked matches into buckets",
	Long: `Fetch matches from the Riot API (or an archive) and merge them into the bucket store.

  riftstats ingest --riot-id 'Player#NA1' --count 20
  riftstats ingest --riot-id 'Player#NA1' --spider --max-players 200 --min-tier EMERALD
  riftstats ingest --match NA1_5012345678 --match NA1_5012345679 --tier GOLD
  riftstats ingest --replay ./archive/warm

Each match is committed in one transaction together with its scanned marker,
so re-running over the same matches is a no-op.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestRiotID, "riot-id", "", "ingest the recent ranked matches of this player (Name#TAG)")
	ingestCmd.Flags().IntVar(&ingestCount, "count", 20, "number of matches to fetch with --riot-id")
	ingestCmd.Flags().StringSliceVar(&ingestMatchIDs, "match", nil, "match id to ingest (repeatable)")
	ingestCmd.Flags().StringVar(&ingestTier, "tier", "", "tier for --match ids (default DEFAULT_TIER)")
	ingestCmd.Flags().StringVar(&ingestReplayDir, "replay", "", "aggregate archived matches from this directory instead of the API")
	ingestCmd.Flags().BoolVar(&ingestCompress, "compress", false, "gzip closed archive files into cold storage when done")
	ingestCmd.Flags().StringVar(&ingestMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while ingesting")
	ingestCmd.Flags().BoolVar(&ingestSpider, "spider", false, "snowball from --riot-id to the players in their matches")
	ingestCmd.Flags().IntVar(&ingestMaxPlayers, "max-players", collector.DefaultMaxPlayers, "players to crawl with --spider")
	ingestCmd.Flags().StringVar(&ingestMinTier, "min-tier", "", "skip crawled players below this tier")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestRiotID == "" && len(ingestMatchIDs) == 0 && ingestReplayDir == "" {
		return errors.New("one of --riot-id, --match or --replay is required")
	}
	logger := log.WithPrefix("[Ingest]")
	ctx := collector.SetupSignalHandler(nil)

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	m := metrics.NewService(registry)
	if ingestMetricsAddr != "" {
		go serveMetrics(ctx, ingestMetricsAddr, metrics.NewMetricsHandler(registry))
	}

	agg := aggregator.New(store, newCatalogs().forAggregator)
	collectCfg := collector.Config{
		Concurrency:          cfg.IngestConcurrency,
		TimelineSamplingRate: cfg.TimelineSamplingRate,
	}

	if ingestReplayDir != "" {
		c := collector.New(nil, agg, collectCfg, collector.WithMetrics(m))
		summary, err := c.Replay(ctx, ingestReplayDir)
		return finishIngest(cmd, "replay "+ingestReplayDir, summary, err)
	}

	client, err := newRiotClient(cfg.RiotRegion)
	if err != nil {
		return err
	}
	if valid, err := client.ValidateKey(ctx); err != nil {
		logger.Warn("Could not validate API key", "err", err)
	} else if !valid {
		return riot.ErrForbidden
	}

	opts := []collector.Option{collector.WithMetrics(m)}
	var rotator *storage.FileRotator
	if cfg.ArchiveDir != "" {
		rotator, err = storage.NewFileRotator(cfg.ArchiveDir)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		opts = append(opts, collector.WithArchive(rotator))
	}
	defer func() {
		if rotator == nil {
			return
		}
		if err := rotator.Close(); err != nil {
			logger.Error("Failed to close archive", "error", err)
		}
		if ingestCompress {
			compressWarm(rotator, logger)
		}
	}()

	if ingestSpider {
		if ingestRiotID == "" {
			return errors.New("--spider needs --riot-id")
		}
		name, tag, err := riot.ParseRiotID(ingestRiotID)
		if err != nil {
			return err
		}
		account, err := client.GetAccountByRiotID(ctx, name, tag)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", ingestRiotID, err)
		}
		spider := collector.NewSpider(client, agg, collectCfg, collector.SpiderConfig{
			MatchesPerPlayer: ingestCount,
			MaxPlayers:       ingestMaxPlayers,
			MinTier:          strings.ToUpper(ingestMinTier),
		}, opts...)
		crawl, err := spider.Crawl(ctx, account.PUUID)
		fmt.Fprintf(cmd.OutOrStdout(), "players crawled: %d, skipped: %d\n", crawl.Players, crawl.PlayersSkipped)
		return finishIngest(cmd, "spider from "+ingestRiotID, crawl.Summary, err)
	}

	var refs []collector.MatchRef
	if ingestRiotID != "" {
		puuid, discovered, err := collector.Discover(ctx, client, ingestRiotID, ingestCount)
		if err != nil {
			return fmt.Errorf("failed to discover matches for %s: %w", ingestRiotID, err)
		}
		logger.Info("Discovered matches", "player", ingestRiotID, "puuid", puuid, "matches", len(discovered))
		refs = append(refs, discovered...)
	}
	tier := strings.ToUpper(ingestTier)
	if tier == "" {
		tier = cfg.DefaultTier
	}
	for _, id := range ingestMatchIDs {
		refs = append(refs, collector.MatchRef{MatchID: strings.TrimSpace(id), Tier: tier})
	}

	source := fmt.Sprintf("%d match ids", len(ingestMatchIDs))
	if ingestRiotID != "" {
		source = "riot-id " + ingestRiotID
	}
	summary, err := collector.New(client, agg, collectCfg, opts...).Run(ctx, refs)
	return finishIngest(cmd, source, summary, err)
}

// finishIngest prints the run summary and posts it to Discord when a webhook
// is configured. runErr is returned unchanged.
func finishIngest(cmd *cobra.Command, source string, summary collector.Summary, runErr error) error {
	report.PrintCollectSummary(cmd.OutOrStdout(), summary)
	if cfg.DiscordWebhookURL == "" {
		return runErr
	}

	run := discord.RunReport{
		RunID:            summary.RunID,
		Source:           source,
		Processed:        summary.Processed,
		Skipped:          summary.Skipped,
		Failed:           summary.Failed,
		TimelinesMissing: summary.TimelinesMissing,
		Elapsed:          summary.Elapsed,
		FinishedAt:       time.Now(),
	}
	for _, o := range summary.Outcomes {
		if errors.Is(o.Err, riot.ErrForbidden) {
			run.KeyRejected = true
			break
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := discord.NewWebhookClient(cfg.DiscordWebhookURL).NotifyRun(ctx, run); err != nil {
		log.Warn("Failed to post Discord notification", "err", err)
	}
	return runErr
}

func compressWarm(rotator *storage.FileRotator, logger *log.Logger) {
	files, err := storage.ArchiveFiles(rotator.WarmDir())
	if err != nil {
		logger.Error("Failed to list warm archive", "error", err)
		return
	}
	for _, path := range files {
		if filepath.Ext(path) != ".jsonl" {
			continue
		}
		coldPath, err := storage.CompressToCold(path, rotator.ColdDir())
		if err != nil {
			logger.Error("Failed to compress archive file", "file", path, "error", err)
			continue
		}
		logger.Info("Compressed archive file", "file", coldPath)
	}
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics server failed", "error", err)
	}
}
