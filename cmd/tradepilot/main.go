package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/quantdesk/tradepilot/internal/backtest"
	"github.com/quantdesk/tradepilot/internal/catalog"
	"github.com/quantdesk/tradepilot/internal/config"
	"github.com/quantdesk/tradepilot/internal/ledger"
	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/options"
	"github.com/quantdesk/tradepilot/internal/orch"
	"github.com/quantdesk/tradepilot/internal/outbox"
	"github.com/quantdesk/tradepilot/internal/pairs"
	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

func main() {
	var cfgPath string
	var dryRun bool
	var maintenanceSpec string
	flag.StringVar(&cfgPath, "config", "", "config path (defaults apply when empty)")
	flag.BoolVar(&dryRun, "dry-run", false, "in-memory store instead of sqlite (upstream collaborators are stubbed in every mode until real adapters land)")
	flag.StringVar(&maintenanceSpec, "maintenance", "15 2 * * *", "cron expression for nightly maintenance")
	flag.Parse()

	var cfg config.Root
	var err error
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			log.Fatalf("load config: %v (did you copy config.example.yaml?)", err)
		}
	} else {
		cfg = config.Default()
	}
	if dryRun {
		cfg.DryRun = true
	}

	// A corrupt or unopenable store is the one fatal persistence error; after
	// startup, store failures degrade the affected component only.
	var st store.Store
	if cfg.DryRun {
		st = store.NewMem()
	} else {
		st, err = store.OpenSQLite(cfg.StorePath)
		if err != nil {
			log.Fatalf("open store %s: %v", cfg.StorePath, err)
		}
	}
	defer st.Close()

	// Upstream services are stubbed until real adapters land; the stub keeps
	// every decision path exercisable end to end.
	stub := upstream.NewStub()

	cache, err := backtest.NewCache(st, cfg.Cache.FreshnessDays)
	if err != nil {
		log.Fatalf("backtest cache: %v", err)
	}
	cat, err := catalog.New(st, cfg.Risk.Ladder)
	if err != nil {
		log.Fatalf("strategy catalog: %v", err)
	}
	led, err := ledger.New(st, cfg.Ledger.MaxAgeDays, cfg.Ledger.SweepAgeDays)
	if err != nil {
		log.Fatalf("strategy ledger: %v", err)
	}
	book, err := ledger.NewComplexBook(st)
	if err != nil {
		log.Fatalf("complex book: %v", err)
	}
	ob, err := outbox.New(cfg.Orders.OutboxPath, time.Duration(cfg.Timers.OrderTimeoutMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("order outbox: %v", err)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.Strangle.ScansPerSecond), 1)
	selector := options.NewSelector(stub, limiter, options.Config{
		MaxImpliedMove:    cfg.Strangle.MaxImpliedMove,
		MinExpirationDays: cfg.Strangle.MinExpirationDays,
	})

	o, err := orch.New(cfg, orch.Deps{
		Backtest: stub,
		Market:   stub,
		Broker:   stub,
		Gateway:  stub,
		Cache:    cache,
		Catalog:  cat,
		Ledger:   led,
		Complex:  book,
		Pairs:    pairs.NewFinder(st, cfg.Pairs.Threshold, cfg.Pairs.WindowDays),
		Selector: selector,
		Outbox:   ob,
		Store:    st,
	})
	if err != nil {
		log.Fatalf("orchestrator: %v", err)
	}

	observ.Log("startup", map[string]any{
		"dry_run":    cfg.DryRun,
		"store_path": cfg.StorePath,
		"benchmark":  cfg.Risk.Benchmark,
		"session":    cfg.Session.Start + "-" + cfg.Session.End,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", observ.Handler())
	go func() {
		observ.Log("metrics_listen", map[string]any{"addr": cfg.MetricsAddr})
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			observ.LogError("metrics_server_failed", err, nil)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o.Start(ctx)
	if err := o.ScheduleMaintenance(maintenanceSpec); err != nil {
		log.Fatalf("schedule maintenance: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	observ.Log("shutdown", map[string]any{"signal": s.String()})
	o.Stop()
}
