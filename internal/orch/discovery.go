package orch

import (
	"context"
	"math"

	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

// discoverTrades scans the new-stock watchlist plus the standing always-buy
// list for candidates, skipping anything blacklisted or already queued. It
// stops as soon as the queue reaches the open-order cap.
func (o *Orchestrator) discoverTrades(ctx context.Context) {
	blacklist := o.symbolSet(store.NSBlacklist)
	queued := o.queuedSymbols()

	candidates := o.listSymbols(store.NSNewStocks)
	for _, s := range o.listSymbols(store.NSAlwaysBuy) {
		candidates = append(candidates, s)
	}

	risk := o.deps.Catalog.RiskFraction()
	balance, err := o.deps.Broker.GetBalance(ctx)
	if err != nil {
		observ.LogError("balance_fetch_failed", err, nil)
		observ.IncCounter("upstream_unavailable_total", map[string]string{"op": "balance"})
		return
	}

	found := 0
	for _, symbol := range candidates {
		if o.openOrderCount() >= o.cfg.Orders.MaxOpen {
			break
		}
		if blacklist[symbol] || queued[symbol] {
			continue
		}
		queued[symbol] = true

		d, err := o.reconcile(ctx, symbol)
		if err != nil {
			observ.LogError("candidate_skipped", err, map[string]any{"symbol": symbol})
			continue
		}
		if d.Recommendation != upstream.RecommendationBuy {
			continue
		}

		if d.ImpliedMovement > 0 && o.queueStrangle(ctx, symbol) {
			found++
			continue
		}
		if o.queueCandidateBuy(ctx, symbol, balance, risk) {
			found++
		}
	}
	if found > 0 {
		observ.Log("trades_discovered", map[string]any{"count": found})
		observ.IncCounterBy("trades_discovered_total", nil, int64(found))
	}
}

// queueCandidateBuy stages a plain equity entry sized by the risk ladder
// alone; candidates have no position history to Kelly-size against.
func (o *Orchestrator) queueCandidateBuy(ctx context.Context, symbol string, balance upstream.Balance, risk float64) bool {
	price, err := o.deps.Market.GetPrice(ctx, symbol)
	if err != nil {
		observ.LogError("price_fetch_failed", err, map[string]any{"symbol": symbol})
		observ.IncCounter("upstream_unavailable_total", map[string]string{"op": "price"})
		return false
	}
	if price <= 0 {
		return false
	}
	qty := math.Floor(balance.LiquidationValue * risk / price)
	if qty < 1 {
		return false
	}
	o.enqueue(o.newIntent(symbol, "BUY", qty, price, "candidate entry"))
	return true
}

// stageAlwaysBuys carts one share of every always-buy symbol during the
// closing window; the cart executes with the next session's first fill.
func (o *Orchestrator) stageAlwaysBuys(ctx context.Context) {
	for _, symbol := range o.listSymbols(store.NSAlwaysBuy) {
		price, err := o.deps.Market.GetPrice(ctx, symbol)
		if err != nil {
			observ.LogError("price_fetch_failed", err, map[string]any{"symbol": symbol})
			continue
		}
		intent := o.newIntent(symbol, "BUY", 1, price, "end of day standing buy")
		if err := o.deps.Gateway.AddToCart(ctx, intent); err != nil {
			observ.LogError("cart_failed", err, map[string]any{"symbol": symbol})
			observ.IncCounter("upstream_unavailable_total", map[string]string{"op": "cart"})
			continue
		}
		if err := o.deps.Outbox.Record(intent, "carted"); err != nil {
			observ.LogError("outbox_write_failed", err, nil)
		}
		observ.IncCounter("orders_carted_total", nil)
	}
}

func (o *Orchestrator) listSymbols(ns string) []string {
	keys, err := o.deps.Store.Keys(ns)
	if err != nil {
		observ.LogError("store_keys_failed", err, map[string]any{"namespace": ns})
		return nil
	}
	return keys
}

func (o *Orchestrator) symbolSet(ns string) map[string]bool {
	set := map[string]bool{}
	for _, s := range o.listSymbols(ns) {
		set[s] = true
	}
	return set
}

func (o *Orchestrator) queuedSymbols() map[string]bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	set := map[string]bool{}
	for _, q := range o.queue {
		set[q.intent.Symbol] = true
	}
	return set
}
