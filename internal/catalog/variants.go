package catalog

import "github.com/quantdesk/tradepilot/internal/upstream"

// Variant names the strategy flavors the orchestrator can rotate through.
type Variant string

const (
	Daytrade        Variant = "Daytrade"
	Swingtrade      Variant = "Swingtrade"
	Short           Variant = "Short"
	TrimHoldings    Variant = "TrimHoldings"
	StateMachine    Variant = "StateMachine"
	MLSpy           Variant = "MLSpy"
	OptionsStrangle Variant = "OptionsStrangle"
)

// Advice is a variant's verdict for one holding.
type Advice string

const (
	AdviceHold  Advice = "HOLD"
	AdviceBuy   Advice = "BUY"
	AdviceSell  Advice = "SELL"
	AdviceHedge Advice = "HEDGE"
)

// Input carries everything a variant may weigh for one holding.
type Input struct {
	Symbol           string
	Recommendation   upstream.Recommendation
	MLScore          float64
	SellML           float64
	BuySignals       int
	SellSignals      int
	Probability      float64 // may be +Inf: no usable signal
	AllocationWeight float64
	RiskFraction     float64
	ImpliedMovement  float64
	IsStrangle       bool
}

// Strategy is one variant's decision rule. Each implementation terminates on
// its own; there is no shared fallthrough between variants.
type Strategy interface {
	Name() Variant
	Evaluate(in Input) Advice
}

// Variants returns the ordered strategy list the cursor walks.
func Variants() []Strategy {
	return []Strategy{
		daytrade{}, swingtrade{}, short{}, trimHoldings{},
		stateMachine{}, mlSpy{}, optionsStrangle{},
	}
}

type daytrade struct{}

func (daytrade) Name() Variant { return Daytrade }
func (daytrade) Evaluate(in Input) Advice {
	if in.Recommendation == upstream.RecommendationBuy && in.MLScore > 0.65 {
		return AdviceBuy
	}
	if in.Recommendation == upstream.RecommendationSell {
		return AdviceSell
	}
	return AdviceHold
}

type swingtrade struct{}

func (swingtrade) Name() Variant { return Swingtrade }
func (swingtrade) Evaluate(in Input) Advice {
	if in.Recommendation == upstream.RecommendationBuy && in.BuySignals > in.SellSignals {
		return AdviceBuy
	}
	if in.Recommendation == upstream.RecommendationSell && in.SellSignals > in.BuySignals {
		return AdviceSell
	}
	return AdviceHold
}

// short sells on a bearish consensus and otherwise holds. It never falls
// through to another variant's rule.
type short struct{}

func (short) Name() Variant { return Short }
func (short) Evaluate(in Input) Advice {
	if in.Recommendation == upstream.RecommendationSell && in.SellML > 0.6 {
		return AdviceSell
	}
	return AdviceHold
}

type trimHoldings struct{}

func (trimHoldings) Name() Variant { return TrimHoldings }
func (trimHoldings) Evaluate(in Input) Advice {
	if in.AllocationWeight > in.RiskFraction && in.AllocationWeight > 0 {
		return AdviceSell
	}
	return AdviceHold
}

// stateMachine follows the backtest recommendation directly.
type stateMachine struct{}

func (stateMachine) Name() Variant { return StateMachine }
func (stateMachine) Evaluate(in Input) Advice {
	switch in.Recommendation {
	case upstream.RecommendationBuy:
		return AdviceBuy
	case upstream.RecommendationSell:
		return AdviceSell
	}
	return AdviceHold
}

type mlSpy struct{}

func (mlSpy) Name() Variant { return MLSpy }
func (mlSpy) Evaluate(in Input) Advice {
	if in.MLScore > 0.7 {
		return AdviceBuy
	}
	if in.SellML > 0.7 {
		return AdviceSell
	}
	return AdviceHold
}

type optionsStrangle struct{}

func (optionsStrangle) Name() Variant { return OptionsStrangle }
func (optionsStrangle) Evaluate(in Input) Advice {
	if in.IsStrangle {
		return AdviceHold
	}
	if in.ImpliedMovement > 0 && in.Recommendation != upstream.RecommendationSell {
		return AdviceHedge
	}
	return AdviceHold
}
