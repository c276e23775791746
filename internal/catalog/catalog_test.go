package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

var ladder = []float64{0.01, 0.02, 0.05}

func newTestCatalog(t *testing.T, st store.Store) *Catalog {
	t.Helper()
	c, err := New(st, ladder)
	require.NoError(t, err)
	return c
}

func TestChangeWrapsAround(t *testing.T) {
	c := newTestCatalog(t, store.NewMem())
	n := len(Variants())

	assert.Equal(t, Daytrade, c.Current().Name())
	for i := 0; i < n-1; i++ {
		c.Change()
	}
	assert.Equal(t, OptionsStrangle, c.Current().Name())
	assert.Equal(t, Daytrade, c.Change().Name())
}

func TestRiskCursorClamps(t *testing.T) {
	c := newTestCatalog(t, store.NewMem())

	c.DecreaseRisk() // below zero is a no-op
	assert.Equal(t, 0, c.RiskCursor())
	assert.Equal(t, 0.01, c.RiskFraction())

	for i := 0; i < 10; i++ {
		c.IncreaseRisk()
	}
	assert.Equal(t, len(ladder)-1, c.RiskCursor())
	assert.Equal(t, 0.05, c.RiskFraction())
}

func TestCursorsSurviveRestart(t *testing.T) {
	st := store.NewMem()
	c := newTestCatalog(t, st)
	c.Change() // Swingtrade
	c.Change() // Short
	c.IncreaseRisk()
	require.NoError(t, c.Persist(123.45))

	reloaded := newTestCatalog(t, st)
	assert.Equal(t, Short, reloaded.Current().Name())
	assert.Equal(t, 1, reloaded.RiskCursor())

	var snap Snapshot
	ok, err := st.Get(store.NSProfitLoss, "last", &snap)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 123.45, snap.Profit)
}

func TestRestoreFallsBackOnUnknownStrategy(t *testing.T) {
	st := store.NewMem()
	require.NoError(t, st.Put(store.NSProfitLoss, "last", Snapshot{
		LastStrategy:      "RetiredVariant",
		LastRiskTolerance: 99,
	}))

	c := newTestCatalog(t, st)
	assert.Equal(t, Daytrade, c.Current().Name())
	assert.Equal(t, len(ladder)-1, c.RiskCursor(), "risk cursor clamps into the ladder")
}

func TestShortVariantTerminates(t *testing.T) {
	c := newTestCatalog(t, store.NewMem())
	s, ok := c.Lookup(Short)
	require.True(t, ok)

	// Bearish consensus sells.
	assert.Equal(t, AdviceSell, s.Evaluate(Input{
		Recommendation: upstream.RecommendationSell, SellML: 0.8,
	}))
	// Anything else holds; Short never borrows another variant's rule.
	assert.Equal(t, AdviceHold, s.Evaluate(Input{
		Recommendation: upstream.RecommendationBuy, MLScore: 0.99,
	}))
}

func TestTrimHoldingsSellsOverweightPositions(t *testing.T) {
	c := newTestCatalog(t, store.NewMem())
	s, _ := c.Lookup(TrimHoldings)

	assert.Equal(t, AdviceSell, s.Evaluate(Input{AllocationWeight: 0.12, RiskFraction: 0.05}))
	assert.Equal(t, AdviceHold, s.Evaluate(Input{AllocationWeight: 0.03, RiskFraction: 0.05}))
}
