package holdings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/tradepilot/internal/upstream"
)

func TestBuildGroupsOptionLegsUnderUnderlying(t *testing.T) {
	entries := []upstream.PortfolioEntry{
		{Instrument: upstream.Instrument{AssetType: "EQUITY", Symbol: "AAPL"},
			LongQuantity: 10, AveragePrice: 150, MarketValue: 1600},
		{Instrument: upstream.Instrument{AssetType: "OPTION", Symbol: "AAPL_0918C170",
			PutCall: "CALL", UnderlyingSymbol: "AAPL"}, LongQuantity: 1, AveragePrice: 2, MarketValue: 250},
		{Instrument: upstream.Instrument{AssetType: "OPTION", Symbol: "AAPL_0918P130",
			PutCall: "PUT", UnderlyingSymbol: "AAPL"}, LongQuantity: 1, AveragePrice: 1.5, MarketValue: 120},
	}
	hs := Build(entries, upstream.Balance{LiquidationValue: 10000})

	require.Len(t, hs, 1)
	h := hs[0]
	assert.Equal(t, "AAPL", h.Symbol)
	assert.Equal(t, 10.0, h.Shares)
	assert.InDelta(t, 1970.0/10000, h.AllocationWeight, 1e-9)
	assert.True(t, h.IsStrangle())
}

func TestIsStrangleNeedsOpposingSense(t *testing.T) {
	h := &Holding{
		PrimaryLeg:   &upstream.OptionLeg{PutCall: "CALL"},
		SecondaryLeg: &upstream.OptionLeg{PutCall: "CALL"},
	}
	assert.False(t, h.IsStrangle())

	h.SecondaryLeg = &upstream.OptionLeg{PutCall: "PUT"}
	assert.True(t, h.IsStrangle())

	h.SecondaryLeg = nil
	assert.False(t, h.IsStrangle())
}

func TestBuildKeepsPortfolioOrder(t *testing.T) {
	entries := []upstream.PortfolioEntry{
		{Instrument: upstream.Instrument{AssetType: "EQUITY", Symbol: "MSFT"}, MarketValue: 100},
		{Instrument: upstream.Instrument{AssetType: "EQUITY", Symbol: "AAPL"}, MarketValue: 200},
	}
	hs := Build(entries, upstream.Balance{})
	require.Len(t, hs, 2)
	assert.Equal(t, "MSFT", hs[0].Symbol)
	assert.Equal(t, "AAPL", hs[1].Symbol)
	assert.Zero(t, hs[0].AllocationWeight, "no weights without a liquidation value")
}
