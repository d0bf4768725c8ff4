package cmd

import (
	"fmt"

	"riftstats/internal/collector"
	"riftstats/internal/metrics"
	"riftstats/internal/report"

	"github.com/spf13/cobra"
)

var (
	profileCount int
	profileJSON  bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <Name#TAG>",
	Short: "Score a player's recent matches and summarize them",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

func init() {
	profileCmd.Flags().IntVar(&profileCount, "count", 20, "number of recent ranked matches to score")
	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "print JSON instead of tables")
}

func runProfile(cmd *cobra.Command, args []string) error {
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

	profile, err := newScorer(client, store, metrics.Nop{}).Profile(ctx, args[0], profileCount)
	if err != nil {
		return fmt.Errorf("failed to build profile for %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if profileJSON {
		return writeJSON(out, profile)
	}
	report.PrintProfile(out, profile)
	if len(profile.Failed) > 0 {
		fmt.Fprintf(out, "\n%d matches could not be scored: %v\n", len(profile.Failed), profile.Failed)
	}
	return nil
}
