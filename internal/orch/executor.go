package orch

import (
	"context"
	"time"

	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

// startExecutor launches the secondary execution timer. Any live timer is
// cancelled first so two can never run at once.
func (o *Orchestrator) startExecutor(parent context.Context) {
	o.stopExecutor()

	ctx, cancel := context.WithCancel(parent)
	o.mu.Lock()
	o.execCancel = cancel
	o.mu.Unlock()

	interval := time.Duration(o.cfg.Timers.ExecIntervalSeconds) * time.Second
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.executeNext(ctx)
			}
		}
	}()
	observ.Log("executor_started", map[string]any{"interval_s": o.cfg.Timers.ExecIntervalSeconds})
}

// stopExecutor cancels the execution timer if one is live. Idempotent.
func (o *Orchestrator) stopExecutor() {
	o.mu.Lock()
	cancel := o.execCancel
	o.execCancel = nil
	o.mu.Unlock()
	if cancel != nil {
		cancel()
		observ.Log("executor_stopped", nil)
	}
}

// executeNext dispatches one queued order per timer fire, walking the queue
// round-robin. Nothing is dispatched unless market hours confirm open.
// Duplicates inside the outbox window are dropped unsent; a failed dispatch
// stays queued for a later pass until stale pruning drops it.
//
// The queue can shrink between the snapshot and the removal (the poll
// goroutine prunes concurrently), so entries are removed by intent ID, never
// by index.
func (o *Orchestrator) executeNext(ctx context.Context) {
	if !o.confirmMarketOpen(ctx, o.now()) {
		return
	}

	o.mu.Lock()
	if len(o.queue) == 0 {
		o.mu.Unlock()
		return
	}
	if o.execNext >= len(o.queue) {
		o.execNext = 0
	}
	entry := o.queue[o.execNext]
	o.mu.Unlock()

	seen, err := o.deps.Outbox.HasRecent(entry.intent.IdempotencyKey)
	if err != nil {
		observ.LogError("outbox_read_failed", err, nil)
	}
	if seen {
		o.removeIntent(entry.intent.ID)
		observ.Log("order_deduped", map[string]any{
			"symbol": entry.intent.Symbol, "key": entry.intent.IdempotencyKey,
		})
		observ.IncCounter("orders_deduped_total", nil)
		return
	}

	if err := o.dispatch(ctx, entry.intent); err != nil {
		observ.LogError("order_dispatch_failed", err, map[string]any{
			"symbol": entry.intent.Symbol, "side": entry.intent.Side,
		})
		observ.IncCounter("orders_failed_total", map[string]string{"side": entry.intent.Side})
		if rerr := o.deps.Outbox.Record(entry.intent, "failed"); rerr != nil {
			observ.LogError("outbox_write_failed", rerr, nil)
		}
		o.mu.Lock()
		if n := len(o.queue); n > 0 {
			o.execNext = (o.execNext + 1) % n
		} else {
			o.execNext = 0
		}
		o.mu.Unlock()
		return
	}

	if err := o.deps.Outbox.Record(entry.intent, "submitted"); err != nil {
		observ.LogError("outbox_write_failed", err, nil)
	}
	o.removeIntent(entry.intent.ID)
	observ.Log("order_submitted", map[string]any{
		"symbol": entry.intent.Symbol, "side": entry.intent.Side, "quantity": entry.intent.Quantity,
	})
	observ.IncCounter("orders_submitted_total", map[string]string{"side": entry.intent.Side})
}

func (o *Orchestrator) dispatch(ctx context.Context, intent upstream.OrderIntent) error {
	if intent.Side == "SELL" {
		return o.deps.Gateway.SubmitSell(ctx, intent)
	}
	return o.deps.Gateway.SubmitBuy(ctx, intent)
}

// removeIntent drops the queue entry carrying id. A miss is fine: the entry
// may already have been pruned while the dispatch was in flight.
func (o *Orchestrator) removeIntent(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, q := range o.queue {
		if q.intent.ID != id {
			continue
		}
		o.queue = append(o.queue[:i], o.queue[i+1:]...)
		if o.execNext >= len(o.queue) {
			o.execNext = 0
		}
		observ.SetGauge("order_queue_depth", float64(len(o.queue)), nil)
		return
	}
}
