// Package store provides the durable key-value blob port that every stateful
// component takes as a constructor dependency. Values are JSON blobs grouped
// by namespace.
package store

// Persisted namespaces, one per logical state owner.
const (
	NSBacktest     = "backtest"
	NSTradingPairs = "tradingPairs"
	NSStrategy     = "tradingStrategy"
	NSComplex      = "complex_strategy"
	NSAlwaysBuy    = "always_buy"
	NSBlacklist    = "blacklist"
	NSNewStocks    = "newStockList"
	NSProfitLoss   = "profitLoss"
)

type Store interface {
	// Get decodes the blob at (ns, key) into v. The boolean reports presence.
	Get(ns, key string, v any) (bool, error)
	Put(ns, key string, v any) error
	Delete(ns, key string) error
	Keys(ns string) ([]string, error)
	Close() error
}
