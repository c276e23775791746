package orch

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/quantdesk/tradepilot/internal/alloc"
	"github.com/quantdesk/tradepilot/internal/catalog"
	"github.com/quantdesk/tradepilot/internal/holdings"
	"github.com/quantdesk/tradepilot/internal/ledger"
	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/options"
	"github.com/quantdesk/tradepilot/internal/upstream"
	"github.com/quantdesk/tradepilot/internal/volatility"
)

func findLegPrice(leg *upstream.OptionLeg) float64 {
	return options.FindOptionsPrice(leg.Bid, leg.Ask)
}

// developStrategy is the once-per-session decision pass: snapshot the
// portfolio, reconcile each holding against backtest data, and queue orders
// per the active strategy variant. A failed holding is skipped, never fatal.
func (o *Orchestrator) developStrategy(ctx context.Context) {
	portfolio, err := o.deps.Broker.GetPortfolio(ctx)
	if err != nil {
		observ.LogError("portfolio_fetch_failed", err, nil)
		observ.IncCounter("upstream_unavailable_total", map[string]string{"op": "portfolio"})
		return
	}
	balance, err := o.deps.Broker.GetBalance(ctx)
	if err != nil {
		observ.LogError("balance_fetch_failed", err, nil)
		observ.IncCounter("upstream_unavailable_total", map[string]string{"op": "balance"})
		return
	}

	o.adjustRisk(ctx)

	hs := holdings.Build(portfolio, balance)
	strategy := o.deps.Catalog.Current()
	risk := o.deps.Catalog.RiskFraction()

	var vols []volatility.WeightedVol
	acted := 0
	for _, h := range hs {
		d, err := o.reconcile(ctx, h.Symbol)
		if err != nil {
			observ.LogError("holding_skipped", err, map[string]any{"symbol": h.Symbol})
			observ.IncCounter("holdings_skipped_total", map[string]string{"symbol": h.Symbol})
			continue
		}

		h.BuyConfidence = d.MLScore
		h.SellConfidence = d.SellML
		vols = append(vols, volatility.WeightedVol{
			Weight:     h.AllocationWeight,
			ImpliedVol: d.ImpliedMovement,
			IsOption:   h.IsStrangle(),
		})

		prob := alloc.ProbabilityOfProfit(len(d.BuySignals), len(d.SellSignals), d.ImpliedMovement, d.MLScore)
		advice := strategy.Evaluate(catalog.Input{
			Symbol:           h.Symbol,
			Recommendation:   d.Recommendation,
			MLScore:          d.MLScore,
			SellML:           d.SellML,
			BuySignals:       len(d.BuySignals),
			SellSignals:      len(d.SellSignals),
			Probability:      prob,
			AllocationWeight: h.AllocationWeight,
			RiskFraction:     risk,
			ImpliedMovement:  d.ImpliedMovement,
			IsStrangle:       h.IsStrangle(),
		})
		if o.actOn(ctx, h, d, advice, balance, prob, risk) {
			acted++
		}
	}

	observ.SetGauge("portfolio_volatility", volatility.Portfolio(vols), nil)
	observ.Log("strategy_developed", map[string]any{
		"strategy": strategy.Name(), "holdings": len(hs), "orders_queued": acted,
	})
}

// reconcile serves backtest data cache-first, refetching on a miss.
func (o *Orchestrator) reconcile(ctx context.Context, symbol string) (upstream.BacktestData, error) {
	if d, ok := o.deps.Cache.Get(symbol); ok {
		return d, nil
	}
	now := o.now()
	d, err := o.deps.Backtest.GetBacktestData(ctx, symbol, now.AddDate(-1, 0, 0), now)
	if err != nil {
		return upstream.BacktestData{}, err
	}
	if err := o.deps.Cache.Put(symbol, d); err != nil {
		observ.LogError("backtest_cache_put_failed", err, map[string]any{"symbol": symbol})
	}
	return d, nil
}

// adjustRisk moves the risk cursor off the benchmark's model score: a strong
// benchmark widens the ladder position, a weak one tightens it.
func (o *Orchestrator) adjustRisk(ctx context.Context) {
	d, err := o.reconcile(ctx, o.cfg.Risk.Benchmark)
	if err != nil {
		observ.LogError("benchmark_fetch_failed", err, nil)
		return
	}
	switch {
	case d.ML > 0.7:
		o.deps.Catalog.IncreaseRisk()
	case d.ML < 0.3:
		o.deps.Catalog.DecreaseRisk()
	}
}

func (o *Orchestrator) actOn(ctx context.Context, h *holdings.Holding, d upstream.BacktestData, advice catalog.Advice, balance upstream.Balance, prob, risk float64) bool {
	switch advice {
	case catalog.AdviceBuy:
		return o.queueBuy(ctx, h.Symbol, d, balance, prob, risk)
	case catalog.AdviceSell:
		if h.IsStrangle() {
			return o.teardownStrangle(h)
		}
		if h.Shares < 1 {
			return false
		}
		intent := o.newIntent(h.Symbol, "SELL", math.Floor(h.Shares), 0, "strategy sell")
		o.enqueue(intent)
		return o.recordLedger(ledger.Strategy{
			Name: string(o.deps.Catalog.Current().Name()), Type: "equity",
			Key: h.Symbol, Sell: []string{h.Symbol}, Reason: "strategy sell",
		})
	case catalog.AdviceHedge:
		return o.queueStrangle(ctx, h.Symbol)
	}
	return false
}

// queueBuy sizes an equity buy with the Kelly fraction, capped by the risk
// ladder against liquidation value. A +Inf probability means no usable
// signal: nothing is queued.
func (o *Orchestrator) queueBuy(ctx context.Context, symbol string, d upstream.BacktestData, balance upstream.Balance, prob, risk float64) bool {
	if math.IsInf(prob, 1) {
		observ.Log("buy_skipped_no_signal", map[string]any{"symbol": symbol})
		return false
	}
	payoff := d.Net
	if payoff <= 0 {
		payoff = 1
	}
	fraction, err := alloc.KellyCriterion(prob, payoff)
	if err != nil {
		observ.LogError("kelly_rejected", err, map[string]any{"symbol": symbol})
		return false
	}
	notional := alloc.KellyNotional(balance.AvailableFunds, fraction, balance.LiquidationValue*risk)
	if notional <= 0 {
		return false
	}

	price, err := o.deps.Market.GetPrice(ctx, symbol)
	if err != nil {
		observ.LogError("price_fetch_failed", err, map[string]any{"symbol": symbol})
		observ.IncCounter("upstream_unavailable_total", map[string]string{"op": "price"})
		return false
	}
	if price <= 0 {
		return false
	}
	qty := math.Floor(notional / price)
	if qty < 1 {
		return false
	}

	o.enqueue(o.newIntent(symbol, "BUY", qty, price, "strategy buy"))
	return o.recordLedger(ledger.Strategy{
		Name: string(o.deps.Catalog.Current().Name()), Type: "equity",
		Key: symbol, Buy: []string{symbol}, Reason: "strategy buy",
	})
}

// queueStrangle scans for a call strangle and queues the two-leg order when
// both legs fill, registering the position as an assembling complex strategy.
func (o *Orchestrator) queueStrangle(ctx context.Context, symbol string) bool {
	st, err := o.deps.Selector.CallStrangle(ctx, symbol)
	if err != nil {
		observ.LogError("strangle_scan_failed", err, map[string]any{"symbol": symbol})
		observ.IncCounter("upstream_unavailable_total", map[string]string{"op": "strangle_scan"})
		return false
	}
	if !st.Complete() {
		return false
	}

	limit := findLegPrice(st.Call) + findLegPrice(st.Put)
	intent := o.newIntent(symbol, "BUY", 1, limit, "strangle hedge")
	intent.PrimaryLeg = st.Call
	intent.SecondaryLeg = st.Put
	o.enqueue(intent)

	if err := o.deps.Complex.Upsert(ledger.ComplexStrategy{
		Key:    symbol,
		State:  ledger.StateAssembling,
		Orders: []upstream.OrderIntent{intent},
	}); err != nil {
		observ.LogError("complex_upsert_failed", err, map[string]any{"symbol": symbol})
	}
	return o.recordLedger(ledger.Strategy{
		Name: string(catalog.OptionsStrangle), Type: "strangle",
		Key: symbol, Buy: []string{st.Call.Symbol, st.Put.Symbol}, Reason: "strangle hedge",
	})
}

// teardownStrangle queues a sell per leg and walks the complex strategy
// toward disassembled as each leg's orders are dropped from the book.
func (o *Orchestrator) teardownStrangle(h *holdings.Holding) bool {
	for _, leg := range []*upstream.OptionLeg{h.PrimaryLeg, h.SecondaryLeg} {
		intent := o.newIntent(leg.Symbol, "SELL", 1, 0, "strangle teardown")
		intent.PrimaryLeg = leg
		o.enqueue(intent)
		if err := o.deps.Complex.Disassemble(h.Symbol, leg.Symbol); err != nil {
			observ.LogError("complex_disassemble_failed", err, map[string]any{
				"symbol": h.Symbol, "leg": leg.Symbol,
			})
		}
	}
	return o.recordLedger(ledger.Strategy{
		Name: string(catalog.OptionsStrangle), Type: "strangle",
		Key: h.Symbol, Sell: []string{h.PrimaryLeg.Symbol, h.SecondaryLeg.Symbol},
		Reason: "strangle teardown",
	})
}

func (o *Orchestrator) recordLedger(s ledger.Strategy) bool {
	if err := o.deps.Ledger.Add(s); err != nil {
		observ.LogError("ledger_add_failed", err, map[string]any{"key": s.Key})
	}
	return true
}

func (o *Orchestrator) newIntent(symbol, side string, qty, limit float64, reason string) upstream.OrderIntent {
	now := o.now()
	return upstream.OrderIntent{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Side:           side,
		Quantity:       qty,
		LimitPrice:     limit,
		Reason:         reason,
		CreatedAt:      now,
		IdempotencyKey: fmt.Sprintf("%s-%s-%s", symbol, side, now.Format("2006-01-02")),
	}
}

// endOfDay runs once per session inside the closing window: stop execution,
// stage the standing buys, persist the day's snapshot, and sweep the ledger.
func (o *Orchestrator) endOfDay(ctx context.Context) {
	o.stopExecutor()

	profit := 0.0
	if portfolio, err := o.deps.Broker.GetPortfolio(ctx); err != nil {
		observ.LogError("portfolio_fetch_failed", err, nil)
	} else {
		var balance upstream.Balance
		balance, err = o.deps.Broker.GetBalance(ctx)
		if err != nil {
			observ.LogError("balance_fetch_failed", err, nil)
		}
		for _, h := range holdings.Build(portfolio, balance) {
			profit += h.RealizedPL
		}
	}

	o.stageAlwaysBuys(ctx)

	if err := o.deps.Catalog.Persist(profit); err != nil {
		observ.LogError("snapshot_persist_failed", err, nil)
	}
	if err := o.deps.Ledger.Sweep(); err != nil {
		observ.LogError("ledger_sweep_failed", err, nil)
	}
	observ.Log("end_of_day", map[string]any{
		"profit": profit, "strategy": o.deps.Catalog.Current().Name(),
	})
	observ.SetGauge("session_profit", profit, nil)
}
