package cmd

import (
	"fmt"
	"strings"

	"riftstats/internal/collector"
	"riftstats/internal/metrics"
	"riftstats/internal/server"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve buckets, match scores and rollups over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := collector.SetupSignalHandler(nil)

	client, err := newRiotClient(cfg.RiotRegion)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.NewService()
	srv := server.NewServer(store, newScorer(client, store, m), server.Config{
		MetricsHandler: metrics.NewMetricsHandler(),
	})

	addr := serveAddr
	if addr == "" {
		addr = ":" + strings.TrimPrefix(cfg.Port, ":")
	}
	log.Debug("Server config", "store", cfg.StoreDriver, "region", cfg.RiotRegion)
	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
