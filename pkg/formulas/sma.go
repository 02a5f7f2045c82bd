package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateSMA calculates the Simple Moving Average over the given period.
// Returns the current SMA value or nil if there is insufficient data.
func CalculateSMA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}

	sma := talib.Sma(closes, length)

	if len(sma) > 0 && !isNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}

	return nil
}

// TrendDirection describes the relationship between a short and a long
// moving average.
type TrendDirection string

const (
	TrendUp      TrendDirection = "UP"
	TrendDown    TrendDirection = "DOWN"
	TrendNeutral TrendDirection = "NEUTRAL"
)

// DetectTrend compares a short SMA against a long SMA to classify the trend.
// A short average more than 0.5% above the long average is UP, more than
// 0.5% below is DOWN, anything in between is NEUTRAL.
func DetectTrend(closes []float64, shortLength, longLength int) TrendDirection {
	shortSMA := CalculateSMA(closes, shortLength)
	longSMA := CalculateSMA(closes, longLength)

	if shortSMA == nil || longSMA == nil || *longSMA == 0 {
		return TrendNeutral
	}

	ratio := (*shortSMA - *longSMA) / *longSMA
	switch {
	case ratio > 0.005:
		return TrendUp
	case ratio < -0.005:
		return TrendDown
	default:
		return TrendNeutral
	}
}
