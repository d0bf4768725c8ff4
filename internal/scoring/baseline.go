package scoring

import "riftstats/internal/stats"

// Baselines are the expected values a participant is compared against.
type Baselines struct {
	Values      Weights
	DamageShare float64
	GoldShare   float64
	// SampleSize is the champion-level match count behind the baselines.
	SampleSize int64
}

// MetricValue extracts a metric from one participant's features.
func MetricValue(m Metric, f stats.Features) float64 {
	switch m {
	case MetricKDA:
		return f.KDA
	case MetricDamage:
		return f.DamagePerMinute
	case MetricGold:
		return f.GoldPerMinute
	case MetricVision:
		return f.VisionPerMinute
	case MetricCS:
		return f.CSPerMinute
	case MetricObjective:
		return float64(f.Objectives)
	case MetricUtility:
		return f.Utility
	}
	return 0
}

// MetricMean extracts the empirical mean of a metric from bucket totals.
// ok is false when the bucket cannot support a mean.
func MetricMean(m Metric, t stats.Totals) (float64, bool) {
	if t.Matches <= 0 {
		return 0, false
	}
	matches := float64(t.Matches)
	minutes := t.Minutes()
	perMinute := func(sum int64) (float64, bool) {
		if minutes <= 0 {
			return 0, false
		}
		return float64(sum) / minutes, true
	}

	switch m {
	case MetricKDA:
		return t.KDA(), true
	case MetricDamage:
		return perMinute(t.Damage)
	case MetricGold:
		return perMinute(t.Gold)
	case MetricVision:
		return perMinute(t.Vision)
	case MetricCS:
		return perMinute(t.CS)
	case MetricObjective:
		return float64(t.Objectives) / matches, true
	case MetricUtility:
		return t.Utility / matches, true
	}
	return 0, false
}

// Shrink blends a specific mean toward a general one with weight
// alpha = n / (n + prior).
func Shrink(specific, general float64, n int64, prior float64) float64 {
	if n <= 0 {
		return general
	}
	alpha := float64(n) / (float64(n) + prior)
	return alpha*specific + (1-alpha)*general
}

// EstimateMetric returns the shrunk baseline of one metric. champion and
// matchup may be nil when no bucket exists.
func (c Config) EstimateMetric(m Metric, champion, matchup *stats.Totals) float64 {
	value := c.DefaultBaselines[m]
	if champion != nil {
		if mean, ok := MetricMean(m, *champion); ok {
			value = mean
		}
	}
	if matchup != nil {
		if mean, ok := MetricMean(m, *matchup); ok {
			value = Shrink(mean, value, matchup.Matches, c.PriorStrength)
		}
	}
	return value
}

// Estimate computes every metric baseline plus share baselines.
func (c Config) Estimate(champion, matchup *stats.Totals) Baselines {
	b := Baselines{
		Values:      make(Weights, len(Metrics)),
		DamageShare: c.DefaultDamageShare,
		GoldShare:   c.DefaultGoldShare,
	}
	for _, m := range Metrics {
		b.Values[m] = c.EstimateMetric(m, champion, matchup)
	}

	if champion != nil && champion.Matches > 0 {
		n := float64(champion.Matches)
		b.DamageShare = champion.DamageShare / n
		b.GoldShare = champion.GoldShare / n
		b.SampleSize = champion.Matches
	}
	if matchup != nil && matchup.Matches > 0 {
		n := float64(matchup.Matches)
		b.DamageShare = Shrink(matchup.DamageShare/n, b.DamageShare, matchup.Matches, c.PriorStrength)
		b.GoldShare = Shrink(matchup.GoldShare/n, b.GoldShare, matchup.Matches, c.PriorStrength)
	}
	return b
}
