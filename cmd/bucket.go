package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"riftstats/internal/db"
	"riftstats/internal/report"
	"riftstats/internal/stats"

	"github.com/spf13/cobra"
)

// bucketParams holds the key flags shared by the bucket subcommands.
var bucketParams = map[string]*string{}

var (
	bucketTop   int
	bucketLimit int
	bucketJSON  bool
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Inspect aggregated buckets",
}

var bucketShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print one bucket and its most common builds, runes, spells and skill orders",
	Long: `Print one bucket. Required flags depend on --kind:

  champion  --champion --role --tier --patch --duration
  matchup   --champion --role --opponent --tier --patch --duration
  duo       --champion --role --partner --partner-role --tier --patch
  ban       --champion --tier --patch --duration`,
	Args: cobra.NoArgs,
	RunE: runBucketShow,
}

var bucketTopCmd = &cobra.Command{
	Use:   "top",
	Short: "List the most played buckets matching the filters",
	Args:  cobra.NoArgs,
	RunE:  runBucketTop,
}

func init() {
	for _, f := range []struct{ name, param, usage string }{
		{"kind", "kind", "bucket kind (champion, matchup, duo, ban)"},
		{"champion", "champion", "champion name"},
		{"role", "role", "role (TOP, JUNGLE, MID, ADC, SUPPORT)"},
		{"tier", "tier", "ranked tier"},
		{"patch", "patch", "major.minor patch"},
		{"duration", "duration", "duration bucket (SHORT, MEDIUM, LONG, VERY_LONG)"},
		{"opponent", "opponent", "lane opponent (matchup)"},
		{"partner", "partner", "partner champion (duo)"},
		{"partner-role", "partnerRole", "partner role (duo)"},
	} {
		v := new(string)
		bucketParams[f.param] = v
		bucketShowCmd.Flags().StringVar(v, f.name, "", f.usage)
		if f.param == "kind" || f.param == "champion" || f.param == "role" || f.param == "tier" || f.param == "patch" {
			bucketTopCmd.Flags().StringVar(v, f.name, "", f.usage)
		}
	}
	bucketShowCmd.Flags().IntVar(&bucketTop, "top", 5, "entries to print per frequency map")
	bucketTopCmd.Flags().IntVar(&bucketLimit, "limit", 20, "maximum buckets to list")
	bucketCmd.PersistentFlags().BoolVar(&bucketJSON, "json", false, "print JSON instead of tables")

	bucketCmd.AddCommand(bucketShowCmd)
	bucketCmd.AddCommand(bucketTopCmd)
}

func param(name string) string {
	if v, ok := bucketParams[name]; ok {
		return strings.TrimSpace(*v)
	}
	return ""
}

func runBucketShow(cmd *cobra.Command, args []string) error {
	key, err := stats.KeyFromParams(param)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := store.FindBucket(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("no bucket for %s", key)
	}
	if err != nil {
		return err
	}

	if bucketJSON {
		return writeJSON(cmd.OutOrStdout(), b)
	}
	report.PrintBucket(cmd.OutOrStdout(), b, bucketTop)
	return nil
}

func topQueryFromParams() (db.TopQuery, error) {
	q := db.TopQuery{
		Champion: param("champion"),
		Tier:     strings.ToUpper(param("tier")),
		Patch:    param("patch"),
		Limit:    bucketLimit,
	}
	if raw := param("kind"); raw != "" {
		kind, ok := stats.ParseKind(raw)
		if !ok {
			return q, fmt.Errorf("unknown bucket kind %q", raw)
		}
		q.Kind = kind
	}
	if raw := param("role"); raw != "" {
		role, ok := stats.ParseRole(raw)
		if !ok {
			return q, fmt.Errorf("unknown role %q", raw)
		}
		q.Role = role
	}
	return q, nil
}

func runBucketTop(cmd *cobra.Command, args []string) error {
	q, err := topQueryFromParams()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	buckets, err := store.TopBuckets(ctx, q)
	if err != nil {
		return err
	}
	if bucketJSON {
		return writeJSON(cmd.OutOrStdout(), buckets)
	}
	report.PrintBucketList(cmd.OutOrStdout(), buckets)
	return nil
}
