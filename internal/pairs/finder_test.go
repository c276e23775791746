package pairs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/tradepilot/internal/store"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

func history(start time.Time, n int, every time.Duration) []upstream.HistoryEntry {
	out := make([]upstream.HistoryEntry, n)
	for i := 0; i < n; i++ {
		out[i] = upstream.HistoryEntry{Date: start.Add(time.Duration(i) * every)}
	}
	return out
}

func TestCorrelateOffsetWithinWindow(t *testing.T) {
	f := NewFinder(store.NewMem(), 0.55, 9)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a := history(base, 6, 20*24*time.Hour)
	b := history(base.Add(5*24*time.Hour), 6, 20*24*time.Hour)

	// Identical histories offset by 5 days: every entry co-occurs.
	assert.Equal(t, 1.0, f.Correlate(a, b))
}

func TestCorrelateOffsetBeyondWindow(t *testing.T) {
	f := NewFinder(store.NewMem(), 0.55, 9)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a := history(base, 4, 60*24*time.Hour)
	b := history(base.Add(30*24*time.Hour), 4, 60*24*time.Hour)

	assert.Equal(t, 0.0, f.Correlate(a, b))
}

func TestCorrelateEmptyHistory(t *testing.T) {
	f := NewFinder(store.NewMem(), 0.55, 9)
	assert.Equal(t, 0.0, f.Correlate(nil, history(time.Now(), 3, time.Hour)))
}

func TestFindPersistsAndDedupes(t *testing.T) {
	st := store.NewMem()
	f := NewFinder(st, 0.55, 9)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	anchor := history(base, 6, 20*24*time.Hour)
	close := history(base.Add(2*24*time.Hour), 6, 20*24*time.Hour)
	far := history(base.Add(200*24*time.Hour), 2, 365*24*time.Hour)

	got, err := f.Find(context.Background(), "AAPL", anchor, map[string][]upstream.HistoryEntry{
		"MSFT": close,
		"GLD":  far,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MSFT", got[0].Correlated)

	// Re-running replaces the existing pair instead of appending a duplicate.
	got, err = f.Find(context.Background(), "AAPL", anchor, map[string][]upstream.HistoryEntry{
		"MSFT": close,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	var persisted []TradingPair
	ok, err := st.Get(store.NSTradingPairs, "AAPL", &persisted)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got, persisted)
}
