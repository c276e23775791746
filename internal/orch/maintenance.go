package orch

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

// ScheduleMaintenance registers the nightly housekeeping job on the given
// cron expression and starts the scheduler. Stop shuts it down.
func (o *Orchestrator) ScheduleMaintenance(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		o.runMaintenance(context.Background())
	}); err != nil {
		return err
	}
	c.Start()
	o.cron = c
	observ.Log("maintenance_scheduled", map[string]any{"schedule": schedule})
	return nil
}

// runMaintenance prunes stale backtest entries, sweeps the strategy ledger
// with the loose age bound, and refreshes the benchmark's trading pairs.
func (o *Orchestrator) runMaintenance(ctx context.Context) {
	if err := o.deps.Cache.Prune(); err != nil {
		observ.LogError("maintenance_prune_failed", err, nil)
	}
	if err := o.deps.Ledger.Sweep(); err != nil {
		observ.LogError("maintenance_sweep_failed", err, nil)
	}
	o.refreshPairs(ctx)
	observ.IncCounter("maintenance_runs_total", nil)
	observ.Log("maintenance_complete", nil)
}

// refreshPairs re-correlates the benchmark's trade timeline against every
// persisted backtest history.
func (o *Orchestrator) refreshPairs(ctx context.Context) {
	anchor := o.cfg.Risk.Benchmark
	anchorData, err := o.reconcile(ctx, anchor)
	if err != nil {
		observ.LogError("pair_refresh_failed", err, nil)
		return
	}
	if len(anchorData.OrderHistory) == 0 {
		return
	}

	keys, err := o.deps.Store.Keys(store.NSBacktest)
	if err != nil {
		observ.LogError("store_keys_failed", err, map[string]any{"namespace": store.NSBacktest})
		return
	}

	candidates := map[string][]upstream.HistoryEntry{}
	for _, k := range keys {
		if k == anchor {
			continue
		}
		var d upstream.BacktestData
		if ok, err := o.deps.Store.Get(store.NSBacktest, k, &d); err != nil || !ok {
			continue
		}
		if len(d.OrderHistory) > 0 {
			candidates[k] = d.OrderHistory
		}
	}
	if len(candidates) == 0 {
		return
	}

	pairsFound, err := o.deps.Pairs.Find(ctx, anchor, anchorData.OrderHistory, candidates)
	if err != nil {
		observ.LogError("pair_refresh_failed", err, nil)
		return
	}
	observ.SetGauge("trading_pairs", float64(len(pairsFound)), map[string]string{"symbol": anchor})
}
