package scoring

import (
	"context"
	"math"

	"riftstats/internal/stats"
)

// ContributionModel estimates how much a participant moved their team's
// win probability, roughly in [-1, 1].
type ContributionModel interface {
	Contribution(ctx context.Context, f stats.Features, b Baselines) (float64, error)
}

// LinearModel is a weighted sum of share and KDA excesses over baseline,
// squashed with tanh.
type LinearModel struct {
	Bias        float64
	DamageShare float64
	GoldShare   float64
	KDA         float64
}

// DefaultLinearModel returns hand-set weights.
func DefaultLinearModel() LinearModel {
	return LinearModel{
		DamageShare: 2.0,
		GoldShare:   1.0,
		KDA:         0.05,
	}
}

// Vector returns the model inputs in weight order.
func (m LinearModel) Vector(f stats.Features, b Baselines) []float64 {
	baselineKDA := b.Values[MetricKDA]
	return []float64{
		f.DamageShare - b.DamageShare,
		f.GoldShare - b.GoldShare,
		f.KDA - baselineKDA,
	}
}

func (m LinearModel) Contribution(ctx context.Context, f stats.Features, b Baselines) (float64, error) {
	weights := []float64{m.DamageShare, m.GoldShare, m.KDA}
	x := m.Bias
	for i, v := range m.Vector(f, b) {
		x += weights[i] * v
	}
	return math.Tanh(x), nil
}
