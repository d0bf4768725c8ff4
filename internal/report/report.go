// Package report renders scores, buckets and rollups as terminal tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"riftstats/internal/analysis"
	"riftstats/internal/collector"
	"riftstats/internal/rollup"
	"riftstats/internal/scoring"
	"riftstats/internal/stats"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// PrintMatchScores prints one row per participant. focusPUUID marks a row with ">".
func PrintMatchScores(w io.Writer, m analysis.MatchScores, focusPUUID string) {
	fmt.Fprintf(w, "\nMatch: %s  |  Patch: %s  |  Tier: %s  |  Duration: %s  |  Timeline: %v\n\n",
		m.MatchID, m.Patch, m.Tier, m.Duration, m.Timeline)

	table := newTable(w)
	table.Header(" ", "PLAYER", "TEAM", "CHAMPION", "ROLE", "K/D/A", "KDA", "SCORE", "GRADE", "LABEL", "SAMPLES")
	for _, p := range m.Participants {
		marker := " "
		if focusPUUID != "" && p.PUUID == focusPUUID {
			marker = ">"
		}
		name := p.GameName
		if p.TagLine != "" {
			name += "#" + p.TagLine
		}
		role := string(p.Role)
		if role == "" {
			role = "-"
		}
		table.Append(
			marker,
			name,
			strconv.Itoa(p.TeamID),
			p.Champion,
			role,
			fmt.Sprintf("%d/%d/%d", p.Features.Kills, p.Features.Deaths, p.Features.Assists),
			fmt.Sprintf("%.2f", p.Features.KDA),
			fmt.Sprintf("%.1f", p.Result.Score),
			p.Result.Grade,
			p.Result.ComparisonLabel,
			strconv.FormatInt(p.Result.SampleSize, 10),
		)
	}
	table.Render()
}

// PrintBreakdown prints the per-metric z-scores of one participant.
func PrintBreakdown(w io.Writer, p analysis.ParticipantScore) {
	table := newTable(w)
	table.Header("METRIC", "Z")
	for _, metric := range scoring.Metrics {
		z, ok := p.Result.Breakdown[metric]
		if !ok {
			continue
		}
		table.Append(string(metric), fmt.Sprintf("%+.2f", z))
	}
	if p.Result.LaneZ != nil {
		table.Append("lane", fmt.Sprintf("%+.2f", *p.Result.LaneZ))
	}
	table.Render()
}

// PrintBucket prints a bucket's totals and its most common frequency entries.
func PrintBucket(w io.Writer, b stats.Bucket, top int) {
	t := b.Totals
	fmt.Fprintf(w, "\nBucket: %s\n\n", b.Key)

	table := newTable(w)
	table.Header("MATCHES", "WINS", "WIN%", "BANS", "KDA", "DMG/MIN", "GOLD/MIN", "CS/MIN")
	perMinute := func(sum int64) string {
		if m := t.Minutes(); m > 0 {
			return fmt.Sprintf("%.1f", float64(sum)/m)
		}
		return "-"
	}
	table.Append(
		strconv.FormatInt(t.Matches, 10),
		strconv.FormatInt(t.Wins, 10),
		pct(t.WinRate()),
		strconv.FormatInt(t.Bans, 10),
		fmt.Sprintf("%.2f", t.KDA()),
		perMinute(t.Damage),
		perMinute(t.Gold),
		perMinute(t.CS),
	)
	table.Render()

	names := make([]string, 0, len(b.Freq))
	for name := range b.Freq {
		names = append(names, string(name))
	}
	sort.Strings(names)
	for _, name := range names {
		m := b.Freq[stats.MapName(name)]
		if len(m) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", name)
		ft := newTable(w)
		ft.Header("KEY", "MATCHES", "WIN%")
		for _, key := range m.Top(top) {
			c := m[key]
			ft.Append(key, strconv.FormatInt(c.Matches, 10), pct(c.WinRate()))
		}
		ft.Render()
	}
}

// PrintBucketList prints one row per bucket.
func PrintBucketList(w io.Writer, buckets []stats.Bucket) {
	table := newTable(w)
	table.Header("KIND", "CHAMPION", "ROLE", "TIER", "PATCH", "DURATION", "VS/WITH", "MATCHES", "WIN%")
	for _, b := range buckets {
		k := b.Key
		other := k.Opponent
		if k.Partner != "" {
			other = k.Partner + " (" + string(k.PartnerRole) + ")"
		}
		table.Append(
			string(k.Kind), k.Champion, string(k.Role), k.Tier, k.Patch, string(k.Duration), other,
			strconv.FormatInt(b.Totals.Matches, 10), pct(b.Totals.WinRate()),
		)
	}
	table.Render()
}

// PrintProfile prints a player's rollup.
func PrintProfile(w io.Writer, p analysis.PlayerProfile) {
	s := p.Summary
	fmt.Fprintf(w, "\nPlayer: %s  |  Matches: %d  |  Avg score: %.1f  |  Win: %.1f%%  |  Consistency: %s\n\n",
		p.RiotID, s.Matches, s.AverageScore, s.OverallWinPct, s.Consistency.Label)

	pool := newTable(w)
	pool.Header("CHAMPION", "GAMES", "WIN%", "KDA", "CS", "GOLD", "DAMAGE")
	for _, c := range s.ChampionPool {
		pool.Append(c.Champion, strconv.Itoa(c.Matches), pct(c.WinRate), fmt.Sprintf("%.2f", c.KDA),
			strconv.Itoa(c.CS), strconv.Itoa(c.Gold), strconv.Itoa(c.Damage))
	}
	pool.Render()

	axes := newTable(w)
	axes.Header("COMBAT", "OBJECTIVES", "VISION", "FARMING", "SURVIVAL")
	axes.Append(
		fmt.Sprintf("%.0f", s.Profile.Combat),
		fmt.Sprintf("%.0f", s.Profile.Objectives),
		fmt.Sprintf("%.0f", s.Profile.Vision),
		fmt.Sprintf("%.0f", s.Profile.Farming),
		fmt.Sprintf("%.0f", s.Profile.Survival),
	)
	axes.Render()

	if len(s.Teammates) > 0 {
		mates := newTable(w)
		mates.Header("TEAMMATE", "GAMES", "WIN%")
		for _, t := range s.Teammates {
			mates.Append(t.Name+"#"+t.Tag, strconv.Itoa(t.Matches), pct(t.WinRate))
		}
		mates.Render()
	}

	printRecent(w, p.Matches)
}

func printRecent(w io.Writer, matches []rollup.ScoredMatch) {
	if len(matches) == 0 {
		return
	}
	table := newTable(w)
	table.Header("MATCH", "DATE", "CHAMPION", "RESULT", "K/D/A", "SCORE")
	for _, m := range matches {
		result := "L"
		if m.Win {
			result = "W"
		}
		table.Append(m.MatchID, m.PlayedAt.Format("2006-01-02"), m.Champion, result,
			fmt.Sprintf("%d/%d/%d", m.Kills, m.Deaths, m.Assists), fmt.Sprintf("%.1f", m.Score))
	}
	table.Render()
}

// PrintCollectSummary prints the totals of an ingest run and any failures.
func PrintCollectSummary(w io.Writer, s collector.Summary) {
	if s.RunID != "" {
		fmt.Fprintf(w, "\nRun: %s\n\n", s.RunID)
	}
	table := newTable(w)
	table.Header("PROCESSED", "SKIPPED", "FAILED", "NO TIMELINE", "ELAPSED")
	table.Append(strconv.Itoa(s.Processed), strconv.Itoa(s.Skipped), strconv.Itoa(s.Failed),
		strconv.Itoa(s.TimelinesMissing), s.Elapsed.Round(time.Millisecond).String())
	table.Render()

	for _, o := range s.Outcomes {
		if o.Status == collector.StatusFailed {
			fmt.Fprintf(w, "  failed %s: %v\n", o.MatchID, o.Err)
		}
	}
}
