package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// VolatilityRegime classifies annualized price volatility into bands used
// by the accumulator inquiry gates.
type VolatilityRegime string

const (
	VolatilityLow      VolatilityRegime = "LOW"
	VolatilityModerate VolatilityRegime = "MODERATE"
	VolatilityHigh     VolatilityRegime = "HIGH"
)

// AnnualizedVolatility computes the annualized standard deviation of daily
// log returns. Returns nil when there are fewer than two closes or any
// non-positive price in the series.
func AnnualizedVolatility(closes []float64) *float64 {
	if len(closes) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return nil
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}

	sd := stat.StdDev(returns, nil)
	if isNaN(sd) {
		return nil
	}

	// 252 trading days per year
	annualized := sd * math.Sqrt(252)
	return &annualized
}

// ClassifyVolatility maps annualized volatility to a regime.
// Grain markets typically run 15-30% annualized; below 18% is LOW,
// above 30% is HIGH.
func ClassifyVolatility(annualized float64) VolatilityRegime {
	switch {
	case annualized < 0.18:
		return VolatilityLow
	case annualized < 0.30:
		return VolatilityModerate
	default:
		return VolatilityHigh
	}
}

// BasisPercentile returns the fraction of historical basis observations
// strictly below the current basis. Returns nil when history is empty.
func BasisPercentile(history []float64, current float64) *float64 {
	if len(history) == 0 {
		return nil
	}

	below := 0
	for _, b := range history {
		if b < current {
			below++
		}
	}

	pct := float64(below) / float64(len(history)) * 100
	return &pct
}
