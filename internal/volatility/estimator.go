// Package volatility estimates portfolio-level volatility from position
// weights and per-position implied volatility.
package volatility

import "math"

// OptionsVolMultiplier scales option-position implied volatility relative to
// the equity-only figure to reflect leverage.
const OptionsVolMultiplier = 5.0

// WeightedVol is one position's contribution to portfolio variance.
type WeightedVol struct {
	Weight     float64
	ImpliedVol float64
	IsOption   bool
}

// Portfolio computes sqrt(sum_i sum_j wi*wj*si*sj). The full double sum is
// intentional: with no cross-asset correlation matrix it reduces to the
// weighted-average volatility (sum wi*si), not a diversification-aware
// figure. Option positions have their vol amplified by OptionsVolMultiplier.
func Portfolio(positions []WeightedVol) float64 {
	vols := make([]float64, len(positions))
	for i, p := range positions {
		vols[i] = p.ImpliedVol
		if p.IsOption {
			vols[i] *= OptionsVolMultiplier
		}
	}
	variance := 0.0
	for i, a := range positions {
		for j, b := range positions {
			variance += a.Weight * b.Weight * vols[i] * vols[j]
		}
	}
	return math.Sqrt(variance)
}
