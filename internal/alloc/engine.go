// Package alloc sizes positions from backtest signal counts and the model
// score: a probability-of-profit estimate feeding a Kelly bet fraction.
package alloc

import (
	"fmt"
	"math"
)

// ValidationError reports bad sizing inputs. It propagates to the immediate
// caller of the calculation and is never swallowed.
type ValidationError struct {
	Field string
	Value float64
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Msg)
}

// ProbabilityOfProfit estimates the chance a position closes profitable by
// weighing bullish signal counts by the model score and bearish counts by its
// complement, rounded to four decimals.
//
// With no signals at all the result is +Inf: callers must treat that as "no
// usable signal", never as a high-confidence probability. impliedMovement is
// part of the upstream contract but does not enter the estimate.
func ProbabilityOfProfit(buyCount, sellCount int, impliedMovement, mlScore float64) float64 {
	total := float64(buyCount + sellCount)
	if total == 0 {
		return math.Inf(1)
	}
	p := (float64(buyCount)*mlScore + float64(sellCount)*(1-mlScore)) / total
	return round4(p)
}

// KellyCriterion returns the capital fraction to stake given win probability
// p and net payoff ratio b, floored at zero (never bet a negative edge).
func KellyCriterion(p, b float64) (float64, error) {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, &ValidationError{Field: "probability", Value: p, Msg: "must be within [0,1]"}
	}
	if b <= 0 || math.IsNaN(b) {
		return 0, &ValidationError{Field: "gain", Value: b, Msg: "must be positive"}
	}
	return math.Max(0, p-(1-p)/b), nil
}

// KellyNotional converts a Kelly fraction into an order notional against the
// available balance, capped so one position cannot exceed cap dollars.
func KellyNotional(balance, fraction, cap float64) float64 {
	n := balance * fraction
	if cap > 0 && n > cap {
		return cap
	}
	if n < 0 {
		return 0
	}
	return n
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
