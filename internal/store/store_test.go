package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blob struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

func TestMemRoundTrip(t *testing.T) {
	s := NewMem()

	require.NoError(t, s.Put(NSBacktest, "AAPL", blob{Symbol: "AAPL", Score: 0.8}))

	var got blob
	ok, err := s.Get(NSBacktest, "AAPL", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, blob{Symbol: "AAPL", Score: 0.8}, got)

	// Namespaces are isolated.
	ok, err = s.Get(NSTradingPairs, "AAPL", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemKeysAndDelete(t *testing.T) {
	s := NewMem()
	require.NoError(t, s.Put(NSBlacklist, "TSLA", true))
	require.NoError(t, s.Put(NSBlacklist, "GME", true))

	keys, err := s.Keys(NSBlacklist)
	require.NoError(t, err)
	assert.Equal(t, []string{"GME", "TSLA"}, keys)

	require.NoError(t, s.Delete(NSBlacklist, "GME"))
	keys, err = s.Keys(NSBlacklist)
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA"}, keys)
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := t.TempDir() + "/store.db"
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(NSProfitLoss, "last", blob{Symbol: "SPY", Score: 1.5}))
	require.NoError(t, s.Put(NSProfitLoss, "last", blob{Symbol: "SPY", Score: 2.5})) // upsert

	var got blob
	ok, err := s.Get(NSProfitLoss, "last", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2.5, got.Score)

	keys, err := s.Keys(NSProfitLoss)
	require.NoError(t, err)
	assert.Equal(t, []string{"last"}, keys)
}
