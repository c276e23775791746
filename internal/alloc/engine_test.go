package alloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbabilityOfProfit(t *testing.T) {
	assert.Equal(t, 0.5333, ProbabilityOfProfit(10, 5, 0.1, 0.6))

	// No signals at all: +Inf means "no usable signal", not confidence.
	assert.True(t, math.IsInf(ProbabilityOfProfit(0, 0, 0.1, 0.5), 1))

	// All-bullish with a perfect score saturates at 1.
	assert.Equal(t, 1.0, ProbabilityOfProfit(7, 0, 0.2, 1.0))
}

func TestKellyCriterion(t *testing.T) {
	got, err := KellyCriterion(0.6, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, got, 1e-9)

	got, err = KellyCriterion(0.5, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	// Negative edge floors at zero rather than going short.
	got, err = KellyCriterion(0.3, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestKellyCriterionValidation(t *testing.T) {
	cases := []struct {
		name string
		p, b float64
	}{
		{"probability below zero", -0.1, 1},
		{"probability above one", 1.1, 1},
		{"zero gain", 0.5, 0},
		{"negative gain", 0.5, -2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := KellyCriterion(tc.p, tc.b)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestKellyNotional(t *testing.T) {
	assert.Equal(t, 200.0, KellyNotional(1000, 0.2, 0))
	assert.Equal(t, 150.0, KellyNotional(1000, 0.2, 150)) // capped
	assert.Equal(t, 0.0, KellyNotional(1000, -0.1, 0))
}
