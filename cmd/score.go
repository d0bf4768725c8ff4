package cmd

import (
	"fmt"
	"io"
	"strings"

	"riftstats/internal/analysis"
	"riftstats/internal/collector"
	"riftstats/internal/metrics"
	"riftstats/internal/report"
	"riftstats/internal/riot"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	scorePlayer    string
	scoreBreakdown bool
	scoreJSON      bool
)

var scoreCmd = &cobra.Command{
	Use:   "score <match-id>",
	Short: "Score every participant of a match against the stored buckets",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scorePlayer, "player", "", "highlight this player (Name#TAG)")
	scoreCmd.Flags().BoolVar(&scoreBreakdown, "breakdown", false, "print the per-metric z-scores of --player")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print JSON instead of tables")
}

func runScore(cmd *cobra.Command, args []string) error {
	matchID := strings.TrimSpace(args[0])
	region, err := riot.RegionForMatchID(matchID)
	if err != nil {
		return err
	}

	ctx := collector.SetupSignalHandler(nil)
	client, err := newRiotClient(region)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	scores, err := newScorer(client, store, metrics.Nop{}).ScoreMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to score %s: %w", matchID, err)
	}

	out := cmd.OutOrStdout()
	if scoreJSON {
		return writeJSON(out, scores)
	}

	focus, err := findPlayer(scores, scorePlayer)
	if err != nil {
		return err
	}
	report.PrintMatchScores(out, scores, focus.PUUID)
	if scoreBreakdown && focus.PUUID != "" {
		fmt.Fprintf(out, "\n%s on %s\n", scorePlayer, focus.Champion)
		report.PrintBreakdown(out, focus)
	}
	return nil
}

// findPlayer returns the participant whose Riot ID matches riotID, compared
// case-insensitively. An empty riotID returns a zero participant.
func findPlayer(scores analysis.MatchScores, riotID string) (analysis.ParticipantScore, error) {
	if riotID == "" {
		return analysis.ParticipantScore{}, nil
	}
	name, tag, err := riot.ParseRiotID(riotID)
	if err != nil {
		return analysis.ParticipantScore{}, err
	}
	for _, p := range scores.Participants {
		if strings.EqualFold(p.GameName, name) && strings.EqualFold(p.TagLine, tag) {
			return p, nil
		}
	}
	return analysis.ParticipantScore{}, fmt.Errorf("%s did not play in %s", riotID, scores.MatchID)
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
