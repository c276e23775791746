// Package catalog tracks the ordered strategy list and the risk-tolerance
// ladder, with both cursors surviving restarts through the profitLoss
// snapshot.
package catalog

import (
	"sync"
	"time"

	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/store"
)

// Snapshot is the persisted end-of-session summary that also carries the
// cursor state restored on startup.
type Snapshot struct {
	Date              string  `json:"date"`
	Profit            float64 `json:"profit"`
	LastStrategy      string  `json:"lastStrategy"`
	LastRiskTolerance int     `json:"lastRiskTolerance"`
}

const snapshotKey = "last"

type Catalog struct {
	mu         sync.Mutex
	store      store.Store
	variants   []Strategy
	byName     map[Variant]Strategy
	cursor     int
	ladder     []float64
	riskCursor int
}

// New restores both cursors from the persisted snapshot; an unknown strategy
// name falls back to index 0 and the risk cursor is clamped to the ladder.
func New(st store.Store, ladder []float64) (*Catalog, error) {
	c := &Catalog{
		store:    st,
		variants: Variants(),
		byName:   map[Variant]Strategy{},
		ladder:   ladder,
	}
	for _, v := range c.variants {
		c.byName[v.Name()] = v
	}

	var snap Snapshot
	ok, err := st.Get(store.NSProfitLoss, snapshotKey, &snap)
	if err != nil {
		return nil, err
	}
	if ok {
		c.cursor = c.resolve(snap.LastStrategy)
		c.riskCursor = clamp(snap.LastRiskTolerance, len(ladder))
		observ.Log("catalog_restored", map[string]any{
			"strategy": c.variants[c.cursor].Name(), "risk_cursor": c.riskCursor,
		})
	}
	return c, nil
}

func (c *Catalog) resolve(name string) int {
	for i, v := range c.variants {
		if string(v.Name()) == name {
			return i
		}
	}
	return 0
}

// Current returns the strategy under the cursor.
func (c *Catalog) Current() Strategy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.variants[c.cursor]
}

// Change advances the strategy cursor, wrapping to the first variant.
func (c *Catalog) Change() Strategy {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = (c.cursor + 1) % len(c.variants)
	observ.Log("strategy_changed", map[string]any{"strategy": c.variants[c.cursor].Name()})
	return c.variants[c.cursor]
}

// Lookup fetches a variant by name; the boolean reports whether it exists.
func (c *Catalog) Lookup(name Variant) (Strategy, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// RiskFraction returns the allocation fraction under the risk cursor.
func (c *Catalog) RiskFraction() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ladder[c.riskCursor]
}

// IncreaseRisk moves the cursor up one step, clamped at the last index.
func (c *Catalog) IncreaseRisk() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.riskCursor < len(c.ladder)-1 {
		c.riskCursor++
	}
	observ.SetGauge("risk_tolerance_cursor", float64(c.riskCursor), nil)
}

// DecreaseRisk moves the cursor down one step; below zero is a no-op.
func (c *Catalog) DecreaseRisk() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.riskCursor > 0 {
		c.riskCursor--
	}
	observ.SetGauge("risk_tolerance_cursor", float64(c.riskCursor), nil)
}

// RiskCursor exposes the current ladder position.
func (c *Catalog) RiskCursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.riskCursor
}

// Persist writes the end-of-session snapshot carrying both cursors.
func (c *Catalog) Persist(profit float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Date:              time.Now().UTC().Format("2006-01-02"),
		Profit:            profit,
		LastStrategy:      string(c.variants[c.cursor].Name()),
		LastRiskTolerance: c.riskCursor,
	}
	return c.store.Put(store.NSProfitLoss, snapshotKey, snap)
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n-1 {
		return n - 1
	}
	return v
}
