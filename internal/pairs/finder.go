// Package pairs finds statistically co-moving symbols by comparing their
// backtest trade-signal timelines.
package pairs

import (
	"context"
	"math"
	"time"

	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

// TradingPair records a correlated symbol for an anchor symbol, persisted per
// anchor and deduplicated by correlated symbol.
type TradingPair struct {
	Symbol      string  `json:"symbol"`
	Correlated  string  `json:"correlatedSymbol"`
	Correlation float64 `json:"correlation"`
}

type Finder struct {
	store      store.Store
	threshold  float64
	windowDays int
}

func NewFinder(st store.Store, threshold float64, windowDays int) *Finder {
	return &Finder{store: st, threshold: threshold, windowDays: windowDays}
}

// Correlate walks both timelines from the most recent entry backward. Entries
// whose dates fall within the window count as one co-occurrence and advance
// both cursors; otherwise only the more recent cursor advances. The result is
// co-occurrences over the mean timeline length, rounded to two decimals.
func (f *Finder) Correlate(a, b []upstream.HistoryEntry) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	window := time.Duration(f.windowDays) * 24 * time.Hour

	i, j := len(a)-1, len(b)-1
	co := 0
	for i >= 0 && j >= 0 {
		da, db := a[i].Date, b[j].Date
		gap := da.Sub(db)
		if gap < 0 {
			gap = -gap
		}
		if gap < window {
			co++
			i--
			j--
			continue
		}
		if da.After(db) {
			i--
		} else {
			j--
		}
	}

	mean := float64(len(a)+len(b)) / 2
	return math.Round(float64(co)/mean*100) / 100
}

// Find correlates the anchor's timeline against each candidate and persists
// pairs above the threshold, deduped by correlated symbol.
func (f *Finder) Find(ctx context.Context, symbol string, anchor []upstream.HistoryEntry, candidates map[string][]upstream.HistoryEntry) ([]TradingPair, error) {
	var existing []TradingPair
	if _, err := f.store.Get(store.NSTradingPairs, symbol, &existing); err != nil {
		return nil, err
	}

	seen := map[string]int{}
	for idx, p := range existing {
		seen[p.Correlated] = idx
	}

	changed := false
	for other, history := range candidates {
		if other == symbol {
			continue
		}
		corr := f.Correlate(anchor, history)
		if corr <= f.threshold {
			continue
		}
		pair := TradingPair{Symbol: symbol, Correlated: other, Correlation: corr}
		if idx, dup := seen[other]; dup {
			existing[idx] = pair
		} else {
			seen[other] = len(existing)
			existing = append(existing, pair)
		}
		changed = true
		observ.Log("trading_pair_found", map[string]any{
			"symbol": symbol, "correlated": other, "correlation": corr,
		})
	}

	if changed {
		if err := f.store.Put(store.NSTradingPairs, symbol, existing); err != nil {
			return nil, err
		}
		observ.IncCounter("trading_pairs_persisted_total", map[string]string{"symbol": symbol})
	}
	return existing, nil
}
