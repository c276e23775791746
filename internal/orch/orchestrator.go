// Package orch drives the decision loop: a single polling state machine that
// reads market-session state, develops a strategy once per session, and
// dispatches queued orders through a secondary execution timer.
package orch

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/quantdesk/tradepilot/internal/backtest"
	"github.com/quantdesk/tradepilot/internal/catalog"
	"github.com/quantdesk/tradepilot/internal/config"
	"github.com/quantdesk/tradepilot/internal/ledger"
	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/options"
	"github.com/quantdesk/tradepilot/internal/outbox"
	"github.com/quantdesk/tradepilot/internal/pairs"
	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

type State string

const (
	StateIdle       State = "Idle"
	StateDeveloping State = "Developing"
	StateLive       State = "Live"
	StateClosing    State = "Closing"
)

// Deps bundles the collaborators and owned components the orchestrator
// coordinates. All upstream calls are awaited sequentially per decision path;
// nothing here is shared with another writer.
type Deps struct {
	Backtest upstream.BacktestService
	Market   upstream.MarketData
	Broker   upstream.Brokerage
	Gateway  upstream.OrderGateway

	Cache    *backtest.Cache
	Catalog  *catalog.Catalog
	Ledger   *ledger.Ledger
	Complex  *ledger.ComplexBook
	Pairs    *pairs.Finder
	Selector *options.Selector
	Outbox   *outbox.Outbox
	Store    store.Store
}

type queuedOrder struct {
	intent   upstream.OrderIntent
	queuedAt time.Time
}

type Orchestrator struct {
	deps Deps
	cfg  config.Root

	mu        sync.Mutex
	state     State
	developed bool // latch: one development pass per session
	eodDone   bool // latch: end-of-day logic runs once
	queue     []queuedOrder
	execNext  int // round-robin cursor into queue

	lastCredRefresh time.Time
	lastHoursPoll   time.Time
	marketOpen      bool
	lastOffHours    time.Time

	limiter *rate.Limiter
	loc     *time.Location
	now     func() time.Time

	cancel     context.CancelFunc // session cancellation
	execCancel context.CancelFunc // secondary execution timer
	cron       *cron.Cron
	wg         sync.WaitGroup
}

func New(cfg config.Root, deps Deps) (*Orchestrator, error) {
	loc, err := time.LoadLocation(cfg.Session.TimeZone)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		deps:    deps,
		cfg:     cfg,
		state:   StateIdle,
		limiter: rate.NewLimiter(rate.Limit(cfg.Strangle.ScansPerSecond), 1),
		loc:     loc,
		now:     time.Now,
	}, nil
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	if o.state != s {
		observ.Log("orchestrator_state", map[string]any{"from": o.state, "to": s})
	}
	o.state = s
	o.mu.Unlock()
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. It owns scheduling; every other component is called from here.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(time.Duration(o.cfg.Timers.PollIntervalSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.tick(ctx)
			}
		}
	}()
	observ.Log("orchestrator_started", map[string]any{
		"poll_interval_s": o.cfg.Timers.PollIntervalSeconds,
	})
}

// Stop cancels the session, flushes the execution timer, and returns the
// machine to Idle.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.stopExecutor()
	if o.cron != nil {
		o.cron.Stop()
	}
	o.wg.Wait()
	o.setState(StateIdle)
	observ.Log("orchestrator_stopped", nil)
}

// tick is one pass of the state machine. Order matters: credential upkeep
// short-circuits everything, then the closing window, then the live window,
// then off-hours work.
func (o *Orchestrator) tick(ctx context.Context) {
	now := o.now()

	credInterval := time.Duration(o.cfg.Timers.CredentialRefreshMinutes) * time.Minute
	if now.Sub(o.lastCredRefresh) >= credInterval {
		o.lastCredRefresh = now
		o.refreshCredentials(ctx)
		return
	}

	start, end := o.sessionWindow(now)
	closingStart := end.Add(-time.Duration(o.cfg.Session.ClosingBufferMinutes) * time.Minute)

	switch {
	case !now.Before(closingStart) && now.Before(end):
		o.setState(StateClosing)
		if !o.eodDone {
			o.eodDone = true
			o.endOfDay(ctx)
		}

	case !now.Before(start) && now.Before(closingStart):
		if !o.developed {
			o.setState(StateDeveloping)
			o.developStrategy(ctx)
			o.mu.Lock()
			o.developed = true
			o.mu.Unlock()
			o.setState(StateLive)
			o.startExecutor(ctx)
			return
		}
		if !o.confirmMarketOpen(ctx, now) {
			return
		}
		if o.openOrderCount() < o.cfg.Orders.MaxOpen {
			o.discoverTrades(ctx)
		} else {
			o.pruneStaleOrders(now)
		}

	default:
		// Outside the session: reset the per-session latches and stop the
		// execution timer so the next session starts clean.
		o.setState(StateIdle)
		o.mu.Lock()
		o.developed = false
		o.eodDone = false
		o.mu.Unlock()
		o.stopExecutor()

		offInterval := time.Duration(o.cfg.Timers.OffHoursIntervalMinutes) * time.Minute
		if now.Sub(o.lastOffHours) >= offInterval {
			o.lastOffHours = now
			o.refreshCredentials(ctx)
			o.discoverTrades(ctx)
		}
	}
}

// sessionWindow resolves today's trading window in the configured zone.
func (o *Orchestrator) sessionWindow(now time.Time) (start, end time.Time) {
	local := now.In(o.loc)
	start = atClock(local, o.cfg.Session.Start)
	end = atClock(local, o.cfg.Session.End)
	return start, end
}

func atClock(day time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}

// refreshCredentials fires a lightweight backtest call to keep the upstream
// session warm; the result is cached opportunistically.
func (o *Orchestrator) refreshCredentials(ctx context.Context) {
	now := o.now()
	d, err := o.deps.Backtest.GetBacktestData(ctx, o.cfg.Risk.Benchmark, now.AddDate(0, -1, 0), now)
	if err != nil {
		observ.LogError("credential_refresh_failed", err, nil)
		observ.IncCounter("upstream_unavailable_total", map[string]string{"op": "credential_refresh"})
		return
	}
	if err := o.deps.Cache.Put(o.cfg.Risk.Benchmark, d); err != nil {
		observ.LogError("backtest_cache_put_failed", err, nil)
	}
	observ.IncCounter("credential_refresh_total", nil)
}

// confirmMarketOpen polls equity market hours at most every HoursPollMinutes
// and reuses the last answer in between. Both the poll loop and the executor
// consult it, so the cached answer lives under the mutex.
func (o *Orchestrator) confirmMarketOpen(ctx context.Context, now time.Time) bool {
	pollEvery := time.Duration(o.cfg.Timers.HoursPollMinutes) * time.Minute

	o.mu.Lock()
	due := now.Sub(o.lastHoursPoll) >= pollEvery
	if due {
		o.lastHoursPoll = now
	}
	cached := o.marketOpen
	o.mu.Unlock()
	if !due {
		return cached
	}

	hours, err := o.deps.Market.GetEquityMarketHours(ctx, now)
	if err != nil {
		observ.LogError("market_hours_failed", err, nil)
		observ.IncCounter("upstream_unavailable_total", map[string]string{"op": "market_hours"})
		return cached
	}
	o.mu.Lock()
	o.marketOpen = hours.IsOpen
	o.mu.Unlock()
	return hours.IsOpen
}

func (o *Orchestrator) openOrderCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// pruneStaleOrders drops queue entries older than the order timeout.
func (o *Orchestrator) pruneStaleOrders(now time.Time) {
	timeout := time.Duration(o.cfg.Timers.OrderTimeoutMinutes) * time.Minute
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.queue[:0]
	pruned := 0
	for _, q := range o.queue {
		if now.Sub(q.queuedAt) > timeout {
			pruned++
			continue
		}
		kept = append(kept, q)
	}
	o.queue = kept
	if o.execNext >= len(o.queue) {
		o.execNext = 0
	}
	if pruned > 0 {
		observ.Log("orders_pruned", map[string]any{"count": pruned})
		observ.IncCounterBy("orders_pruned_total", nil, int64(pruned))
	}
}

func (o *Orchestrator) enqueue(intent upstream.OrderIntent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = append(o.queue, queuedOrder{intent: intent, queuedAt: o.now()})
	observ.SetGauge("order_queue_depth", float64(len(o.queue)), nil)
}
