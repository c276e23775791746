// Package ledger keeps the durable record of active and candidate multi-leg
// strategies, merged on arrival and pruned by age.
package ledger

import (
	"sync"
	"time"

	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/store"
)

// Strategy is one persisted strategy entry. Entries sharing (Key, Type) are
// merged, never duplicated.
type Strategy struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	Buy       []string  `json:"buy"`
	Sell      []string  `json:"sell"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

const allKey = "all"

// Ledger owns the tradingStrategy namespace exclusively.
type Ledger struct {
	mu       sync.Mutex
	store    store.Store
	maxAge   time.Duration
	sweepAge time.Duration
	entries  []Strategy
	now      func() time.Time
}

func New(st store.Store, maxAgeDays, sweepAgeDays int) (*Ledger, error) {
	l := &Ledger{
		store:    st,
		maxAge:   time.Duration(maxAgeDays) * 24 * time.Hour,
		sweepAge: time.Duration(sweepAgeDays) * 24 * time.Hour,
		now:      time.Now,
	}
	if _, err := st.Get(store.NSStrategy, allKey, &l.entries); err != nil {
		return nil, err
	}
	return l, nil
}

// Add merges s into an existing entry with the same (key, type) by unioning
// the buy/sell symbol sets, or appends it. Entries past the max age are
// pruned on every insertion.
func (l *Ledger) Add(s Strategy) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := false
	for i := range l.entries {
		if l.entries[i].Key == s.Key && l.entries[i].Type == s.Type {
			l.entries[i].Buy = unionSymbols(l.entries[i].Buy, s.Buy)
			l.entries[i].Sell = unionSymbols(l.entries[i].Sell, s.Sell)
			merged = true
			break
		}
	}
	if !merged {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = l.now()
		}
		l.entries = append(l.entries, s)
	}

	l.pruneLocked(l.maxAge)
	return l.persistLocked()
}

// Remove filters out entries matching s on the exact (key, name, date)
// triple; callers must supply the persisted values.
func (l *Ledger) Remove(s Strategy) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.Key == s.Key && e.Name == s.Name && e.CreatedAt.Equal(s.CreatedAt) {
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return l.persistLocked()
}

// Sweep is the secondary prune path, run off the nightly maintenance
// schedule with a looser age bound than Add applies.
func (l *Ledger) Sweep() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.sweepAge)
	return l.persistLocked()
}

// All returns a copy of the current entries.
func (l *Ledger) All() []Strategy {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Strategy, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) pruneLocked(maxAge time.Duration) {
	cutoff := l.now().Add(-maxAge)
	kept := l.entries[:0]
	pruned := 0
	for _, e := range l.entries {
		if e.CreatedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	if pruned > 0 {
		observ.Log("strategy_ledger_pruned", map[string]any{"count": pruned})
	}
}

func (l *Ledger) persistLocked() error {
	return l.store.Put(store.NSStrategy, allKey, l.entries)
}

func unionSymbols(existing, incoming []string) []string {
	seen := map[string]bool{}
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range incoming {
		if !seen[s] {
			seen[s] = true
			existing = append(existing, s)
		}
	}
	return existing
}
