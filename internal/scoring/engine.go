package scoring

import (
	"context"
	"math"

	"riftstats/internal/stats"
)

// Input is everything needed to score one participant.
type Input struct {
	Features stats.Features
	Role     string // raw or canonical position
	Class    string // champion archetype, optional
	Win      bool
	Baseline Baselines
	// MatchupWinRate is the historical win rate of the participant's
	// champion against this opponent, when known.
	MatchupWinRate *float64
}

// Result is a participant's comparative performance score.
type Result struct {
	Score                 float64            `json:"score"`
	Grade                 string             `json:"grade"`
	ComparisonLabel       string             `json:"comparisonLabel"`
	Breakdown             map[Metric]float64 `json:"breakdown"`
	LaneZ                 *float64           `json:"laneZ,omitempty"`
	WeightedZ             float64            `json:"weightedZ"`
	MarginalContribution  float64            `json:"marginalContribution"`
	ContributionAvailable bool               `json:"contributionAvailable"`
	ContributionError     string             `json:"contributionError,omitempty"`
	SampleSize            int64              `json:"sampleSize"`
}

// Engine scores participants. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	cfg   Config
	model ContributionModel
}

// NewEngine creates an engine. A nil model disables the contribution bonus.
func NewEngine(cfg Config, model ContributionModel) *Engine {
	return &Engine{cfg: cfg, model: model}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Z returns the clipped z-score of value against baseline.
func (c Config) Z(value, baseline float64) float64 {
	stddev := math.Max(baseline*c.DispersionRatio, c.MinStdDev)
	return clamp((value-baseline)/stddev, -c.ZClip, c.ZClip)
}

// LaneZ combines laning deltas into one clipped z-score.
func (c Config) LaneZ(lane stats.LaneDeltas) float64 {
	z := (lane.CS/c.LaneCSNorm + lane.Gold/c.LaneGoldNorm + lane.XP/c.LaneXPNorm) / 3
	return clamp(z, -c.ZClip, c.ZClip)
}

// MatchupMultiplier scales a score by historical matchup difficulty.
func (c Config) MatchupMultiplier(winRate float64) float64 {
	return clamp(c.MatchupPivot/math.Max(c.MatchupFloor, winRate), c.MatchupMin, c.MatchupMax)
}

// Logistic maps a weighted z onto 0..100.
func (c Config) Logistic(z float64) float64 {
	return 100 / (1 + math.Exp(-c.Steepness*z))
}

// Score computes the participant's score. A failing contribution model only
// removes the contribution bonus; the failure is reported in the result.
func (e *Engine) Score(ctx context.Context, in Input) Result {
	cfg := e.cfg
	weights := cfg.WeightsFor(in.Role, in.Class)

	res := Result{
		Breakdown:  make(map[Metric]float64, len(Metrics)),
		SampleSize: in.Baseline.SampleSize,
	}

	var weighted, total float64
	for _, m := range Metrics {
		baseline, ok := in.Baseline.Values[m]
		if !ok {
			baseline = cfg.DefaultBaselines[m]
		}
		z := cfg.Z(MetricValue(m, in.Features), baseline)
		res.Breakdown[m] = z

		w := weights[m]
		weighted += w * z
		total += w
	}
	var z float64
	if total > 0 {
		z = weighted / total
	}

	if in.Features.Lane != nil {
		laneZ := cfg.LaneZ(*in.Features.Lane)
		res.LaneZ = &laneZ
		z = (1-cfg.LaneWeight)*z + cfg.LaneWeight*laneZ
	}
	res.WeightedZ = z

	score := cfg.Logistic(z)
	if in.Win {
		score += cfg.WinBonus
	}
	if in.MatchupWinRate != nil {
		score *= cfg.MatchupMultiplier(*in.MatchupWinRate)
	}
	score = clamp(score, 0, 100)

	if e.model != nil {
		contribution, err := e.model.Contribution(ctx, in.Features, in.Baseline)
		if err != nil {
			res.ContributionError = err.Error()
		} else {
			res.ContributionAvailable = true
			res.MarginalContribution = contribution
			if contribution > cfg.ContributionThreshold {
				score = clamp(score+cfg.ContributionBonus, 0, 100)
			}
		}
	}

	res.Score = score
	res.Grade = cfg.Grade(score)
	res.ComparisonLabel = cfg.Label(score)
	return res
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
