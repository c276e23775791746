package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks an upstream outage: logged, counted, never fatal to a
// cycle. Test with errors.Is.
var ErrUnavailable = errors.New("upstream unavailable")

// Unavailable wraps err as an upstream outage for a named service.
func Unavailable(service string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, service, err)
}

type BacktestService interface {
	GetBacktestData(ctx context.Context, symbol string, start, end time.Time) (BacktestData, error)
}

type MarketData interface {
	GetImpliedMove(ctx context.Context, symbol string) (ImpliedMove, error)
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetEquityMarketHours(ctx context.Context, date time.Time) (MarketHours, error)
}

type Brokerage interface {
	GetPortfolio(ctx context.Context) ([]PortfolioEntry, error)
	GetBalance(ctx context.Context) (Balance, error)
}

// OrderGateway executes order intents. AddToCart stages without executing.
type OrderGateway interface {
	AddToCart(ctx context.Context, intent OrderIntent) error
	SubmitBuy(ctx context.Context, intent OrderIntent) error
	SubmitSell(ctx context.Context, intent OrderIntent) error
}
