// Package options scans option chains for call/put leg pairs that satisfy
// movement, price, and liquidity constraints.
package options

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/quantdesk/tradepilot/internal/observ"
	"github.com/quantdesk/tradepilot/internal/upstream"
)

// Liquidity and price bounds for a tradable leg. Prices are in dollars; the
// contract cost (price*100) must stay inside the band.
const (
	priceFloorCents = 70
	priceCeilCents  = 3700
	minOpenInterest = 390
	minTotalVolume  = 200
)

// Audit reasons attached to a scan that could not fill both legs.
const (
	ReasonMoveAbsent  = "implied movement absent"
	ReasonMoveTooHigh = "implied movement too high"
	ReasonNoCallLeg   = "no call leg within movement band"
	ReasonNoPutLeg    = "no put leg within movement band"
	ReasonNoCallHedge = "no call hedge beyond movement band"
	ReasonNoPutHedge  = "no put hedge beyond movement band"
)

type Config struct {
	MaxImpliedMove    float64
	MinExpirationDays int
}

// Selector finds strangle legs around the current underlying price. Scans
// are throttled through a shared limiter so bulk discovery passes cannot
// hammer the upstream chain service.
type Selector struct {
	market  upstream.MarketData
	limiter *rate.Limiter
	cfg     Config
}

func NewSelector(market upstream.MarketData, limiter *rate.Limiter, cfg Config) *Selector {
	return &Selector{market: market, limiter: limiter, cfg: cfg}
}

// Strangle pairs a call and a put leg; either may be nil while being
// searched. Audit carries a distinct reason per missing leg.
type Strangle struct {
	Symbol string
	Call   *upstream.OptionLeg
	Put    *upstream.OptionLeg
	Audit  []string
}

func (s Strangle) Complete() bool { return s.Call != nil && s.Put != nil }

// FindOptionsPrice returns the bid/ask midpoint rounded to one decimal,
// carried at two-decimal scale. A zero midpoint falls back to the raw bid so
// a zero-price order is never emitted.
func FindOptionsPrice(bid, ask float64) float64 {
	price := math.Round((bid+ask)/2*10) / 10
	if price == 0 {
		return bid
	}
	return price
}

// CallStrangle finds a tight call leg plus a put hedge strictly beyond the
// implied band. Missing legs come back nil with audit reasons; only upstream
// failures return an error.
func (s *Selector) CallStrangle(ctx context.Context, symbol string) (Strangle, error) {
	return s.scan(ctx, symbol, false)
}

// PutStrangle swaps the roles: the put leg must sit inside the movement band
// and the call leg acts as the hedge beyond it.
func (s *Selector) PutStrangle(ctx context.Context, symbol string) (Strangle, error) {
	return s.scan(ctx, symbol, true)
}

func (s *Selector) scan(ctx context.Context, symbol string, putSide bool) (Strangle, error) {
	result := Strangle{Symbol: symbol}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, err
		}
	}

	im, err := s.market.GetImpliedMove(ctx, symbol)
	if err != nil {
		return result, err
	}
	if im.Move <= 0 {
		return s.abort(result, ReasonMoveAbsent), nil
	}
	if im.Move > s.cfg.MaxImpliedMove {
		return s.abort(result, ReasonMoveTooHigh), nil
	}

	underlying := im.Chain.UnderlyingPrice
	maxDays := 6 * s.cfg.MinExpirationDays
	for days := s.cfg.MinExpirationDays; days <= maxDays; days++ {
		bucket, ok := expirationBucket(im.Chain, days)
		if !ok {
			continue
		}
		call, put := reduceBucket(bucket, underlying, im.Move, putSide)
		if call != nil {
			result.Call = call
		}
		if put != nil {
			result.Put = put
		}
		if result.Complete() {
			break
		}
	}

	if result.Call == nil {
		reason := ReasonNoCallLeg
		if putSide {
			reason = ReasonNoCallHedge
		}
		result.Audit = append(result.Audit, reason)
	}
	if result.Put == nil {
		reason := ReasonNoPutHedge
		if putSide {
			reason = ReasonNoPutLeg
		}
		result.Audit = append(result.Audit, reason)
	}
	for _, reason := range result.Audit {
		observ.Log("strangle_leg_missing", map[string]any{"symbol": symbol, "reason": reason})
		observ.IncCounter("strangle_scan_misses_total", map[string]string{"reason": reason})
	}
	return result, nil
}

func (s *Selector) abort(result Strangle, reason string) Strangle {
	result.Audit = append(result.Audit, reason)
	observ.Log("strangle_scan_aborted", map[string]any{"symbol": result.Symbol, "reason": reason})
	observ.IncCounter("strangle_scan_aborts_total", map[string]string{"reason": reason})
	return result
}

func expirationBucket(chain upstream.OptionsChain, days int) (upstream.MonthlyStrategyList, bool) {
	for _, m := range chain.Monthly {
		if m.DaysToExp == days {
			return m, true
		}
	}
	return upstream.MonthlyStrategyList{}, false
}

// reduceBucket folds over every strike offering in one expiration bucket,
// keeping the best qualifying call and put. Selection is strictly improving:
// after the first candidate, a replacement must carry more open interest.
func reduceBucket(bucket upstream.MonthlyStrategyList, underlying, move float64, putSide bool) (call, put *upstream.OptionLeg) {
	for _, strat := range bucket.Strategies {
		for _, leg := range []*upstream.OptionLeg{strat.PrimaryLeg, strat.SecondaryLeg} {
			if leg == nil {
				continue
			}
			switch {
			case leg.IsCall():
				wanted := isWithinCallMovementRange(leg.Strike, underlying, move)
				if putSide {
					wanted = isCallHedge(leg.Strike, underlying, move)
				}
				if wanted && passesPriceCheck(leg) && passesVolumeCheck(leg, call) {
					call = leg
				}
			case leg.IsPut():
				wanted := isPutHedge(leg.Strike, underlying, move)
				if putSide {
					wanted = isWithinPutMovementRange(leg.Strike, underlying, move)
				}
				if wanted && passesPriceCheck(leg) && passesVolumeCheck(leg, put) {
					put = leg
				}
			}
		}
	}
	return call, put
}

// isWithinCallMovementRange keeps calls no further out than the implied move
// (plus a cent of slack on the ratio).
func isWithinCallMovementRange(strike, price, move float64) bool {
	if strike <= price {
		return false
	}
	ratio := (strike - price) / price
	return ratio >= 0 && ratio < move+0.01
}

// isPutHedge wants puts strictly beyond the implied band: a defensive hedge,
// not a symmetric strangle leg.
func isPutHedge(strike, price, move float64) bool {
	if strike >= price {
		return false
	}
	return (strike-price)/price < -move
}

func isWithinPutMovementRange(strike, price, move float64) bool {
	if strike >= price {
		return false
	}
	ratio := (strike - price) / price
	return ratio <= 0 && ratio > -(move+0.01)
}

func isCallHedge(strike, price, move float64) bool {
	if strike <= price {
		return false
	}
	return (strike-price)/price > move
}

func passesPriceCheck(leg *upstream.OptionLeg) bool {
	cents := FindOptionsPrice(leg.Bid, leg.Ask) * 100
	return cents > priceFloorCents && cents < priceCeilCents
}

// passesVolumeCheck admits the first candidate on raw liquidity and after
// that only strictly-improving open interest.
func passesVolumeCheck(leg, prior *upstream.OptionLeg) bool {
	if prior == nil {
		return leg.OpenInterest > minOpenInterest || leg.TotalVolume > minTotalVolume
	}
	return leg.OpenInterest > prior.OpenInterest
}
