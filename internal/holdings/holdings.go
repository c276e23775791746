// Package holdings builds the per-cycle view of the brokerage portfolio. The
// orchestrator owns the slice for the duration of one cycle, mutates it as
// analysis accrues, and discards it at cycle end.
package holdings

import (
	"github.com/quantdesk/tradepilot/internal/upstream"
)

// Holding is one position under analysis. Option legs are attached when the
// portfolio carries options on the same underlying.
type Holding struct {
	Symbol           string
	RealizedPL       float64
	NetLiq           float64
	Shares           float64
	AllocationWeight float64
	BuyConfidence    float64
	SellConfidence   float64
	PrimaryLeg       *upstream.OptionLeg
	SecondaryLeg     *upstream.OptionLeg
}

// IsStrangle reports whether the holding carries both legs with opposing
// put/call sense.
func (h *Holding) IsStrangle() bool {
	if h.PrimaryLeg == nil || h.SecondaryLeg == nil {
		return false
	}
	return (h.PrimaryLeg.IsCall() && h.SecondaryLeg.IsPut()) ||
		(h.PrimaryLeg.IsPut() && h.SecondaryLeg.IsCall())
}

// Build folds a portfolio snapshot into holdings keyed by underlying symbol.
// Equity entries become the position body; option entries attach as legs of
// their underlying, creating the holding if the equity side is absent.
func Build(entries []upstream.PortfolioEntry, balance upstream.Balance) []*Holding {
	bysymbol := map[string]*Holding{}
	var order []string

	get := func(symbol string) *Holding {
		if h, ok := bysymbol[symbol]; ok {
			return h
		}
		h := &Holding{Symbol: symbol}
		bysymbol[symbol] = h
		order = append(order, symbol)
		return h
	}

	for _, e := range entries {
		if e.Instrument.AssetType == "OPTION" {
			underlying := e.Instrument.UnderlyingSymbol
			if underlying == "" {
				underlying = e.Instrument.Symbol
			}
			h := get(underlying)
			leg := &upstream.OptionLeg{
				Symbol:           e.Instrument.Symbol,
				PutCall:          e.Instrument.PutCall,
				UnderlyingSymbol: underlying,
			}
			if h.PrimaryLeg == nil {
				h.PrimaryLeg = leg
			} else if h.SecondaryLeg == nil {
				h.SecondaryLeg = leg
			}
			h.NetLiq += e.MarketValue
			h.RealizedPL += e.MarketValue - e.AveragePrice*e.LongQuantity*100
			continue
		}

		h := get(e.Instrument.Symbol)
		h.Shares += e.LongQuantity
		h.NetLiq += e.MarketValue
		h.RealizedPL += e.MarketValue - e.AveragePrice*e.LongQuantity
	}

	if balance.LiquidationValue > 0 {
		for _, h := range bysymbol {
			h.AllocationWeight = h.NetLiq / balance.LiquidationValue
		}
	}

	out := make([]*Holding, 0, len(order))
	for _, s := range order {
		out = append(out, bysymbol[s])
	}
	return out
}
