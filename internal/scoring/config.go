package scoring

import "riftstats/internal/stats"

// Metric is one scored dimension of a participant's game.
type Metric string

const (
	MetricKDA       Metric = "kda"
	MetricDamage    Metric = "damage"
	MetricGold      Metric = "gold"
	MetricVision    Metric = "vision"
	MetricCS        Metric = "cs"
	MetricObjective Metric = "objective"
	MetricUtility   Metric = "utility"
)

// Metrics lists the scored metrics in a fixed order.
var Metrics = []Metric{MetricKDA, MetricDamage, MetricGold, MetricVision, MetricCS, MetricObjective, MetricUtility}

// Weights maps metrics to weights or multipliers.
type Weights map[Metric]float64

func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Threshold maps a minimum score to a name.
type Threshold struct {
	Min  float64
	Name string
}

// Config holds every table and constant used by the scoring engine.
// Treat a Config as immutable once handed to an Engine.
type Config struct {
	RoleWeights    map[stats.Role]Weights
	DefaultWeights Weights
	ClassModifiers map[string]Weights

	// Global fallback baselines per metric, and for team shares.
	DefaultBaselines   Weights
	DefaultDamageShare float64
	DefaultGoldShare   float64

	// Shrinkage prior strength in sample-equivalents.
	PriorStrength float64

	// stddev = max(baseline * DispersionRatio, MinStdDev), z clipped to ±ZClip.
	DispersionRatio float64
	MinStdDev       float64
	ZClip           float64

	// Laning z = mean(cs/LaneCSNorm, gold/LaneGoldNorm, xp/LaneXPNorm), blended at LaneWeight.
	LaneWeight   float64
	LaneCSNorm   float64
	LaneGoldNorm float64
	LaneXPNorm   float64

	Steepness float64
	WinBonus  float64

	// multiplier = clamp(MatchupPivot / max(MatchupFloor, winRate), MatchupMin, MatchupMax)
	MatchupPivot float64
	MatchupFloor float64
	MatchupMin   float64
	MatchupMax   float64

	ContributionThreshold float64
	ContributionBonus     float64

	// Descending by Min; the last entry is the fallback.
	Grades []Threshold
	Labels []Threshold
}

// DefaultConfig returns a fresh copy of the tuned defaults. The constants are
// empirical; recalibrate them against data rather than editing in place.
func DefaultConfig() Config {
	return Config{
		RoleWeights: map[stats.Role]Weights{
			stats.RoleTop: {
				MetricKDA: 0.20, MetricDamage: 0.20, MetricGold: 0.15, MetricVision: 0.05,
				MetricCS: 0.20, MetricObjective: 0.15, MetricUtility: 0.05,
			},
			stats.RoleJungle: {
				MetricKDA: 0.20, MetricDamage: 0.15, MetricGold: 0.10, MetricVision: 0.15,
				MetricCS: 0.10, MetricObjective: 0.25, MetricUtility: 0.05,
			},
			stats.RoleMid: {
				MetricKDA: 0.20, MetricDamage: 0.25, MetricGold: 0.15, MetricVision: 0.05,
				MetricCS: 0.20, MetricObjective: 0.10, MetricUtility: 0.05,
			},
			stats.RoleADC: {
				MetricKDA: 0.20, MetricDamage: 0.25, MetricGold: 0.20, MetricVision: 0.05,
				MetricCS: 0.20, MetricObjective: 0.10, MetricUtility: 0.00,
			},
			stats.RoleSupport: {
				MetricKDA: 0.20, MetricDamage: 0.05, MetricGold: 0.05, MetricVision: 0.30,
				MetricCS: 0.00, MetricObjective: 0.10, MetricUtility: 0.30,
			},
		},
		DefaultWeights: Weights{
			MetricKDA: 1, MetricDamage: 1, MetricGold: 1, MetricVision: 1,
			MetricCS: 1, MetricObjective: 1, MetricUtility: 1,
		},
		ClassModifiers: map[string]Weights{
			"Mage":     {MetricDamage: 1.2, MetricCS: 1.1},
			"Assassin": {MetricKDA: 1.2, MetricDamage: 1.2, MetricVision: 0.8},
			"Tank":     {MetricKDA: 0.8, MetricDamage: 0.7, MetricObjective: 1.2, MetricUtility: 1.3},
			"Fighter":  {MetricDamage: 1.1, MetricObjective: 1.1},
			"Marksman": {MetricDamage: 1.2, MetricCS: 1.2, MetricUtility: 0.7},
			"Support":  {MetricDamage: 0.8, MetricVision: 1.2, MetricUtility: 1.2},
		},
		DefaultBaselines: Weights{
			MetricKDA:       3.0,
			MetricDamage:    600, // per minute
			MetricGold:      400, // per minute
			MetricVision:    1.0, // per minute
			MetricCS:        6.0, // per minute
			MetricObjective: 3.0,
			MetricUtility:   5.0,
		},
		DefaultDamageShare: 0.2,
		DefaultGoldShare:   0.2,

		PriorStrength:   10,
		DispersionRatio: 0.4,
		MinStdDev:       0.1,
		ZClip:           3,

		LaneWeight:   0.15,
		LaneCSNorm:   20,
		LaneGoldNorm: 1000,
		LaneXPNorm:   1000,

		Steepness: 1.7,
		WinBonus:  10,

		MatchupPivot: 0.5,
		MatchupFloor: 0.3,
		MatchupMin:   0.8,
		MatchupMax:   1.2,

		ContributionThreshold: 0.10,
		ContributionBonus:     5,

		Grades: []Threshold{
			{95, "S+"}, {85, "S"}, {75, "A"}, {60, "B"}, {40, "C"}, {0, "D"},
		},
		Labels: []Threshold{
			{75, "EXCELLENT"}, {60, "GOOD"}, {40, "AVERAGE"}, {0, "POOR"},
		},
	}
}

// WeightsFor returns the role weights adjusted by a class modifier.
// Unknown roles use the default vector; an unknown or empty class leaves
// weights unchanged.
func (c Config) WeightsFor(role, class string) Weights {
	base := c.DefaultWeights
	if r, ok := stats.NormalizeRole(role); ok {
		if w, ok := c.RoleWeights[r]; ok {
			base = w
		}
	}

	w := base.clone()
	for metric, mult := range c.ClassModifiers[class] {
		if _, ok := w[metric]; ok {
			w[metric] *= mult
		}
	}
	return w
}

// Grade maps a score to its letter grade.
func (c Config) Grade(score float64) string {
	return pick(c.Grades, score)
}

// Label maps a score to its comparison label.
func (c Config) Label(score float64) string {
	return pick(c.Labels, score)
}

func pick(thresholds []Threshold, score float64) string {
	for _, t := range thresholds {
		if score >= t.Min {
			return t.Name
		}
	}
	if len(thresholds) == 0 {
		return ""
	}
	return thresholds[len(thresholds)-1].Name
}
