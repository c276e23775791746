// Package backtest memoizes per-symbol backtest results with a freshness
// window so the upstream compute service is only hit when data goes stale.
package backtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

// Cache is a write-through memo over the backtest namespace. A result older
// than the freshness window is treated as absent; the caller refetches and
// calls Put.
type Cache struct {
	mu        sync.Mutex
	store     store.Store
	freshness time.Duration
	mem       map[string]upstream.BacktestData
	now       func() time.Time
}

func NewCache(st store.Store, freshnessDays int) (*Cache, error) {
	c := &Cache{
		store:     st,
		freshness: time.Duration(freshnessDays) * 24 * time.Hour,
		mem:       map[string]upstream.BacktestData{},
		now:       time.Now,
	}
	if err := c.warm(); err != nil {
		return nil, fmt.Errorf("warm backtest cache: %w", err)
	}
	return c, nil
}

func (c *Cache) warm() error {
	keys, err := c.store.Keys(store.NSBacktest)
	if err != nil {
		return err
	}
	for _, k := range keys {
		var d upstream.BacktestData
		if ok, err := c.store.Get(store.NSBacktest, k, &d); err != nil {
			return err
		} else if ok {
			c.mem[k] = d
		}
	}
	return nil
}

// Get returns the cached result when present and fresh. A false return is a
// cache miss, not an error: the caller must fetch and Put.
func (c *Cache) Get(symbol string) (upstream.BacktestData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.mem[symbol]
	if !ok || c.now().Sub(d.BacktestDate) >= c.freshness {
		observ.IncCounter("backtest_cache_miss_total", map[string]string{"symbol": symbol})
		return upstream.BacktestData{}, false
	}
	observ.IncCounter("backtest_cache_hit_total", map[string]string{"symbol": symbol})
	return d, true
}

// Put stores the result, reducing indeterminate-and-weak results to a stub
// record so low-quality symbols cannot bloat the store.
func (c *Cache) Put(symbol string, d upstream.BacktestData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isWeak(d) {
		d = upstream.BacktestData{
			Symbol:         d.Symbol,
			Recommendation: d.Recommendation,
			BacktestDate:   d.BacktestDate,
		}
		observ.IncCounter("backtest_cache_reduced_total", map[string]string{"symbol": symbol})
	}

	c.mem[symbol] = d
	return c.store.Put(store.NSBacktest, symbol, d)
}

// isWeak identifies indeterminate results with nothing worth keeping: flat
// P/L, no returns, and at most one signal either way.
func isWeak(d upstream.BacktestData) bool {
	return d.Recommendation == upstream.RecommendationNone &&
		d.Net <= 1 &&
		d.Returns <= 0 &&
		len(d.BuySignals)+len(d.SellSignals) <= 1
}

// Prune drops entries past the freshness window from memory and the store.
func (c *Cache) Prune() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for symbol, d := range c.mem {
		if c.now().Sub(d.BacktestDate) < c.freshness {
			continue
		}
		delete(c.mem, symbol)
		if err := c.store.Delete(store.NSBacktest, symbol); err != nil {
			return err
		}
		pruned++
	}
	if pruned > 0 {
		observ.Log("backtest_cache_pruned", map[string]any{"count": pruned})
	}
	return nil
}
