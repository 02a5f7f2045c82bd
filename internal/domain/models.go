// Package domain holds the shared value types used across modules.
// It is deliberately dependency-free: no database, HTTP, or logging
// imports belong here.
package domain

// Commodity identifies a tradeable grain.
type Commodity string

const (
	CommodityCorn     Commodity = "CORN"
	CommoditySoybeans Commodity = "SOYBEANS"
	CommodityWheat    Commodity = "WHEAT"
	CommodityOats     Commodity = "OATS"
)

// AllCommodities lists every supported commodity in a stable order.
var AllCommodities = []Commodity{
	CommodityCorn,
	CommoditySoybeans,
	CommodityWheat,
	CommodityOats,
}

// FuturesSymbol returns the front-month futures root for a commodity.
func (c Commodity) FuturesSymbol() string {
	switch c {
	case CommodityCorn:
		return "ZC"
	case CommoditySoybeans:
		return "ZS"
	case CommodityWheat:
		return "ZW"
	case CommodityOats:
		return "ZO"
	default:
		return ""
	}
}

// Valid reports whether the commodity is one of the supported grains.
func (c Commodity) Valid() bool {
	for _, known := range AllCommodities {
		if c == known {
			return true
		}
	}
	return false
}

// SignalType identifies the marketing tool a signal recommends.
type SignalType string

const (
	SignalCashSale           SignalType = "CASH_SALE"
	SignalBasisContract      SignalType = "BASIS_CONTRACT"
	SignalHedgeToArrive      SignalType = "HEDGE_TO_ARRIVE"
	SignalAccumulator        SignalType = "ACCUMULATOR"
	SignalAccumulatorInquiry SignalType = "ACCUMULATOR_INQUIRY"
	SignalOptionStrategy     SignalType = "OPTION_STRATEGY"
	SignalNewsAlert          SignalType = "NEWS_ALERT"
)

// EvaluatedSignalTypes lists the tool types the threshold evaluator can
// produce. Option strategies and news alerts are created through other
// paths and never come out of the evaluator.
var EvaluatedSignalTypes = []SignalType{
	SignalCashSale,
	SignalBasisContract,
	SignalHedgeToArrive,
	SignalAccumulator,
	SignalAccumulatorInquiry,
}

// Valid reports whether the signal type is known.
func (s SignalType) Valid() bool {
	switch s {
	case SignalCashSale, SignalBasisContract, SignalHedgeToArrive,
		SignalAccumulator, SignalAccumulatorInquiry,
		SignalOptionStrategy, SignalNewsAlert:
		return true
	}
	return false
}

// Strength is the discrete recommendation strength of a signal.
// The ordering matters: Rank() is monotonic from STRONG_SELL to STRONG_BUY.
type Strength string

const (
	StrengthStrongSell Strength = "STRONG_SELL"
	StrengthSell       Strength = "SELL"
	StrengthHold       Strength = "HOLD"
	StrengthBuy        Strength = "BUY"
	StrengthStrongBuy  Strength = "STRONG_BUY"
)

// Rank maps strength to an integer for monotonicity comparisons.
// Higher rank = stronger recommendation to act (sell grain).
func (s Strength) Rank() int {
	switch s {
	case StrengthStrongSell:
		return 0
	case StrengthSell:
		return 1
	case StrengthHold:
		return 2
	case StrengthBuy:
		return 3
	case StrengthStrongBuy:
		return 4
	default:
		return -1
	}
}

// Actionable reports whether a strength is surfaced to users as a stored
// signal. HOLD/SELL/STRONG_SELL classifications are computed internally
// but suppressed from output.
func (s Strength) Actionable() bool {
	return s == StrengthBuy || s == StrengthStrongBuy
}

// SignalStatus is the lifecycle state of a stored signal.
type SignalStatus string

const (
	StatusActive    SignalStatus = "ACTIVE"
	StatusDismissed SignalStatus = "DISMISSED"
	StatusTriggered SignalStatus = "TRIGGERED"
	StatusExpired   SignalStatus = "EXPIRED"
)

// RiskTolerance is the user-selected risk posture.
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "CONSERVATIVE"
	RiskModerate     RiskTolerance = "MODERATE"
	RiskAggressive   RiskTolerance = "AGGRESSIVE"
)

// Multiplier returns the fixed threshold multiplier for a risk tolerance.
// Percentage thresholds are divided by this value, so a conservative user
// needs a proportionally larger margin to trigger the same strength.
func (r RiskTolerance) Multiplier() float64 {
	switch r {
	case RiskConservative:
		return 1.5
	case RiskAggressive:
		return 0.7
	default:
		return 1.0
	}
}

// Valid reports whether the risk tolerance is known.
func (r RiskTolerance) Valid() bool {
	return r == RiskConservative || r == RiskModerate || r == RiskAggressive
}

// Quote is a single OHLC+volume observation for a symbol.
type Quote struct {
	Symbol string  `json:"symbol"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// NotFoundError is the typed not-found condition surfaced by services.
// Handlers decide the HTTP mapping.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found: " + e.Key
}

// NewNotFound creates a NotFoundError for the given entity and key.
func NewNotFound(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}
