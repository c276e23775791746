package upstream

import (
	"context"
	"sync"
	"time"
)

// Stub is a deterministic in-memory implementation of every collaborator,
// used in dry-run mode and by orchestrator tests. Zero-value fields behave
// like an empty but healthy upstream.
type Stub struct {
	mu sync.Mutex

	Backtests    map[string]BacktestData
	BacktestErr  map[string]error
	ImpliedMoves map[string]ImpliedMove
	Prices       map[string]float64
	Portfolio    []PortfolioEntry
	Balances     Balance
	Hours        MarketHours

	BacktestCalls int
	Submitted     []OrderIntent
	Carted        []OrderIntent
}

func NewStub() *Stub {
	return &Stub{
		Backtests:    map[string]BacktestData{},
		BacktestErr:  map[string]error{},
		ImpliedMoves: map[string]ImpliedMove{},
		Prices:       map[string]float64{},
		Hours:        MarketHours{IsOpen: true},
	}
}

func (s *Stub) GetBacktestData(ctx context.Context, symbol string, start, end time.Time) (BacktestData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BacktestCalls++
	if err := s.BacktestErr[symbol]; err != nil {
		return BacktestData{}, Unavailable("backtest", err)
	}
	d, ok := s.Backtests[symbol]
	if !ok {
		return BacktestData{Symbol: symbol, Recommendation: RecommendationNone, BacktestDate: time.Now()}, nil
	}
	return d, nil
}

func (s *Stub) GetImpliedMove(ctx context.Context, symbol string) (ImpliedMove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ImpliedMoves[symbol], nil
}

func (s *Stub) GetPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Prices[symbol], nil
}

func (s *Stub) GetEquityMarketHours(ctx context.Context, date time.Time) (MarketHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Hours, nil
}

func (s *Stub) GetPortfolio(ctx context.Context) ([]PortfolioEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PortfolioEntry, len(s.Portfolio))
	copy(out, s.Portfolio)
	return out, nil
}

func (s *Stub) GetBalance(ctx context.Context) (Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Balances, nil
}

func (s *Stub) AddToCart(ctx context.Context, intent OrderIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Carted = append(s.Carted, intent)
	return nil
}

func (s *Stub) SubmitBuy(ctx context.Context, intent OrderIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Submitted = append(s.Submitted, intent)
	return nil
}

func (s *Stub) SubmitSell(ctx context.Context, intent OrderIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Submitted = append(s.Submitted, intent)
	return nil
}
