package ledger

import (
	"sync"
	"time"

	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

// ComplexState tracks a multi-leg position through its lifecycle.
type ComplexState string

const (
	StateAssembling    ComplexState = "assembling"
	StateAssembled     ComplexState = "assembled"
	StateDisassembling ComplexState = "disassembling"
	StateDisassembled  ComplexState = "disassembled"
)

// ComplexStrategy is a persisted multi-leg position under assembly or
// teardown.
type ComplexStrategy struct {
	Key    string                 `json:"key"`
	State  ComplexState           `json:"state"`
	Orders []upstream.OrderIntent `json:"orders"`
	Date   *time.Time             `json:"date,omitempty"`
}

// ComplexBook owns the complex_strategy namespace exclusively.
type ComplexBook struct {
	mu      sync.Mutex
	store   store.Store
	entries []ComplexStrategy
}

func NewComplexBook(st store.Store) (*ComplexBook, error) {
	b := &ComplexBook{store: st}
	if _, err := st.Get(store.NSComplex, allKey, &b.entries); err != nil {
		return nil, err
	}
	return b, nil
}

// Upsert replaces the entry with the same key or appends a new one.
func (b *ComplexBook) Upsert(cs ComplexStrategy) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.entries {
		if b.entries[i].Key == cs.Key {
			b.entries[i] = cs
			return b.persistLocked()
		}
	}
	b.entries = append(b.entries, cs)
	return b.persistLocked()
}

// Disassemble removes every order referencing legSymbol from the keyed
// strategy. Once no orders remain the strategy transitions to disassembled;
// otherwise it stays in disassembling.
func (b *ComplexBook) Disassemble(key, legSymbol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.entries {
		if b.entries[i].Key != key {
			continue
		}
		kept := b.entries[i].Orders[:0]
		for _, o := range b.entries[i].Orders {
			if referencesLeg(o, legSymbol) {
				continue
			}
			kept = append(kept, o)
		}
		b.entries[i].Orders = kept
		if len(kept) == 0 {
			b.entries[i].State = StateDisassembled
		} else {
			b.entries[i].State = StateDisassembling
		}
		return b.persistLocked()
	}
	return nil
}

// All returns a copy of the book.
func (b *ComplexBook) All() []ComplexStrategy {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ComplexStrategy, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *ComplexBook) persistLocked() error {
	return b.store.Put(store.NSComplex, allKey, b.entries)
}

func referencesLeg(o upstream.OrderIntent, legSymbol string) bool {
	if o.Symbol == legSymbol {
		return true
	}
	if o.PrimaryLeg != nil && o.PrimaryLeg.Symbol == legSymbol {
		return true
	}
	if o.SecondaryLeg != nil && o.SecondaryLeg.Symbol == legSymbol {
		return true
	}
	return false
}
