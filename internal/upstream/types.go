// Package upstream defines the collaborator contracts the orchestrator
// consumes: backtest/ML scoring, market data, the brokerage snapshot, and the
// order gateway. Wire formats belong to the services; these structs are the
// validated boundary shapes.
package upstream

import "time"

type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationSell Recommendation = "SELL"
	RecommendationNone Recommendation = "NONE"
)

// BacktestData is the black-box backtest/ML result for one symbol.
type BacktestData struct {
	Symbol          string         `json:"symbol"`
	Recommendation  Recommendation `json:"recommendation"`
	Net             float64        `json:"net"`
	Returns         float64        `json:"returns"`
	ML              float64        `json:"ml"`
	MLScore         float64        `json:"mlScore"`
	SellML          float64        `json:"sellMl"`
	ImpliedMovement float64        `json:"impliedMovement"`
	AverageMove     float64        `json:"averageMove"`
	BuySignals      []string       `json:"buySignals"`
	SellSignals     []string       `json:"sellSignals"`
	OrderHistory    []HistoryEntry `json:"orderHistory"`
	BacktestDate    time.Time      `json:"backtestDate"`
}

// HistoryEntry is one simulated trade from a backtest timeline.
type HistoryEntry struct {
	Symbol string    `json:"symbol"`
	Side   string    `json:"side"`
	Date   time.Time `json:"date"`
}

// OptionLeg is immutable once fetched from the option-chain snapshot.
type OptionLeg struct {
	Symbol           string  `json:"symbol"`
	PutCall          string  `json:"putCall"` // "CALL" | "PUT"
	Bid              float64 `json:"bid"`
	Ask              float64 `json:"ask"`
	OpenInterest     int64   `json:"openInterest"`
	TotalVolume      int64   `json:"totalVolume"`
	Strike           float64 `json:"strikePrice"`
	Description      string  `json:"description"` // carries expiration
	UnderlyingSymbol string  `json:"underlyingSymbol"`
}

func (l OptionLeg) IsCall() bool { return l.PutCall == "CALL" }
func (l OptionLeg) IsPut() bool  { return l.PutCall == "PUT" }

type OptionStrategy struct {
	StrategyStrike float64    `json:"strategyStrike"`
	PrimaryLeg     *OptionLeg `json:"primaryLeg"`
	SecondaryLeg   *OptionLeg `json:"secondaryLeg"`
}

type MonthlyStrategyList struct {
	DaysToExp  int              `json:"daysToExp"`
	Strategies []OptionStrategy `json:"optionStrategyList"`
}

type OptionsChain struct {
	UnderlyingPrice float64               `json:"underlyingPrice"`
	Monthly         []MonthlyStrategyList `json:"monthlyStrategyList"`
}

// ImpliedMove is the market-implied expected percentage move plus the chain
// snapshot it was derived from. Move <= 0 means no usable data.
type ImpliedMove struct {
	Move  float64      `json:"move"`
	Chain OptionsChain `json:"optionsChain"`
}

type Instrument struct {
	AssetType        string `json:"assetType"` // "EQUITY" | "OPTION"
	Symbol           string `json:"symbol"`
	PutCall          string `json:"putCall"`
	UnderlyingSymbol string `json:"underlyingSymbol"`
}

type PortfolioEntry struct {
	Instrument   Instrument `json:"instrument"`
	LongQuantity float64    `json:"longQuantity"`
	AveragePrice float64    `json:"averagePrice"`
	MarketValue  float64    `json:"marketValue"`
}

type Balance struct {
	CashBalance      float64 `json:"cashBalance"`
	AvailableFunds   float64 `json:"availableFunds"`
	BuyingPower      float64 `json:"buyingPower"`
	LiquidationValue float64 `json:"liquidationValue"`
}

type MarketHours struct {
	IsOpen bool `json:"isOpen"`
}

// OrderIntent is the opaque record handed to the gateway; this core never
// talks to an exchange.
type OrderIntent struct {
	ID             string     `json:"id"`
	Symbol         string     `json:"symbol"`
	Side           string     `json:"side"` // "BUY" | "SELL"
	Quantity       float64    `json:"quantity"`
	LimitPrice     float64    `json:"limitPrice"`
	PrimaryLeg     *OptionLeg `json:"primaryLeg,omitempty"`
	SecondaryLeg   *OptionLeg `json:"secondaryLeg,omitempty"`
	Reason         string     `json:"reason"`
	CreatedAt      time.Time  `json:"createdAt"`
	IdempotencyKey string     `json:"idempotencyKey"`
}
