package volatility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortfolioEqualsWeightedAverage(t *testing.T) {
	two := []WeightedVol{
		{Weight: 0.4, ImpliedVol: 0.25},
		{Weight: 0.6, ImpliedVol: 0.10},
	}
	// 0.4*0.25 + 0.6*0.10 = 0.16
	assert.InDelta(t, 0.16, Portfolio(two), 1e-12)

	four := []WeightedVol{
		{Weight: 0.25, ImpliedVol: 0.30},
		{Weight: 0.25, ImpliedVol: 0.20},
		{Weight: 0.25, ImpliedVol: 0.10},
		{Weight: 0.15, ImpliedVol: 0.40},
	}
	want := 0.25*0.30 + 0.25*0.20 + 0.25*0.10 + 0.15*0.40
	assert.InDelta(t, want, Portfolio(four), 1e-12)
}

func TestPortfolioAmplifiesOptions(t *testing.T) {
	equity := []WeightedVol{{Weight: 0.5, ImpliedVol: 0.2}}
	option := []WeightedVol{{Weight: 0.5, ImpliedVol: 0.2, IsOption: true}}
	assert.InDelta(t, OptionsVolMultiplier*Portfolio(equity), Portfolio(option), 1e-12)
}

func TestPortfolioEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Portfolio(nil))
}
