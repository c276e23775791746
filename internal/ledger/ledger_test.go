package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

func newTestLedger(t *testing.T, st store.Store) *Ledger {
	t.Helper()
	l, err := New(st, 5, 10)
	require.NoError(t, err)
	return l
}

func TestAddMergesOnKeyAndType(t *testing.T) {
	l := newTestLedger(t, store.NewMem())

	require.NoError(t, l.Add(Strategy{Name: "pair", Type: "pairTrade", Key: "AAPL", Buy: []string{"AAPL"}}))
	require.NoError(t, l.Add(Strategy{Name: "pair", Type: "pairTrade", Key: "AAPL", Buy: []string{"MSFT"}, Sell: []string{"QQQ"}}))

	all := l.All()
	require.Len(t, all, 1, "same (key,type) must merge, not duplicate")
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, all[0].Buy)
	assert.Equal(t, []string{"QQQ"}, all[0].Sell)

	// A different type under the same key is a distinct entry.
	require.NoError(t, l.Add(Strategy{Name: "strangle", Type: "optionsStrangle", Key: "AAPL", Buy: []string{"AAPL"}}))
	assert.Len(t, l.All(), 2)
}

func TestAddPrunesOldEntries(t *testing.T) {
	l := newTestLedger(t, store.NewMem())

	require.NoError(t, l.Add(Strategy{Name: "old", Type: "pairTrade", Key: "GE",
		CreatedAt: time.Now().Add(-6 * 24 * time.Hour)}))
	require.NoError(t, l.Add(Strategy{Name: "new", Type: "pairTrade", Key: "F"}))

	all := l.All()
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].Name)
}

func TestSweepUsesLooserBound(t *testing.T) {
	st := store.NewMem()
	l := newTestLedger(t, st)

	aged := Strategy{Name: "aged", Type: "pairTrade", Key: "GE",
		CreatedAt: time.Now().Add(-8 * 24 * time.Hour)}
	l.entries = append(l.entries, aged) // bypass Add's 5-day prune
	require.NoError(t, l.Sweep())
	assert.Len(t, l.All(), 1, "8 days old survives the 10-day sweep")

	l.entries[0].CreatedAt = time.Now().Add(-11 * 24 * time.Hour)
	require.NoError(t, l.Sweep())
	assert.Empty(t, l.All())
}

func TestRemoveRequiresExactTriple(t *testing.T) {
	l := newTestLedger(t, store.NewMem())
	created := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Add(Strategy{Name: "pair", Type: "pairTrade", Key: "AAPL", CreatedAt: created}))

	// Wrong date: no-op.
	require.NoError(t, l.Remove(Strategy{Name: "pair", Key: "AAPL", CreatedAt: created.Add(time.Hour)}))
	assert.Len(t, l.All(), 1)

	require.NoError(t, l.Remove(Strategy{Name: "pair", Key: "AAPL", CreatedAt: created}))
	assert.Empty(t, l.All())
}

func TestLedgerRoundTrip(t *testing.T) {
	st := store.NewMem()
	l := newTestLedger(t, st)
	require.NoError(t, l.Add(Strategy{Name: "pair", Type: "pairTrade", Key: "AAPL",
		Buy: []string{"AAPL", "MSFT"}, Sell: []string{"QQQ"}}))

	reloaded := newTestLedger(t, st)
	require.NoError(t, reloaded.Sweep()) // pruning rules applied on reload

	want := l.All()
	got := reloaded.All()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Key, got[i].Key)
		assert.Equal(t, want[i].Type, got[i].Type)
		assert.Equal(t, want[i].Buy, got[i].Buy)
		assert.Equal(t, want[i].Sell, got[i].Sell)
	}
}

func TestComplexDisassemble(t *testing.T) {
	st := store.NewMem()
	book, err := NewComplexBook(st)
	require.NoError(t, err)

	require.NoError(t, book.Upsert(ComplexStrategy{
		Key:   "AAPL_strangle",
		State: StateAssembled,
		Orders: []upstream.OrderIntent{
			{ID: "1", Symbol: "AAPL_0918C150"},
			{ID: "2", Symbol: "AAPL_0918P120"},
		},
	}))

	require.NoError(t, book.Disassemble("AAPL_strangle", "AAPL_0918C150"))
	all := book.All()
	require.Len(t, all, 1)
	assert.Equal(t, StateDisassembling, all[0].State)
	require.Len(t, all[0].Orders, 1)

	require.NoError(t, book.Disassemble("AAPL_strangle", "AAPL_0918P120"))
	all = book.All()
	assert.Equal(t, StateDisassembled, all[0].State)
	assert.Empty(t, all[0].Orders)

	// Book survives a reload.
	reloaded, err := NewComplexBook(st)
	require.NoError(t, err)
	assert.Equal(t, all, reloaded.All())
}
