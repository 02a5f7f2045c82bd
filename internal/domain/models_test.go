package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskToleranceMultiplier(t *testing.T) {
	assert.Equal(t, 1.5, RiskConservative.Multiplier())
	assert.Equal(t, 1.0, RiskModerate.Multiplier())
	assert.Equal(t, 0.7, RiskAggressive.Multiplier())
	// Unknown tolerances fall back to moderate
	assert.Equal(t, 1.0, RiskTolerance("BOLD").Multiplier())
}

func TestStrengthRankIsMonotonic(t *testing.T) {
	ordered := []Strength{StrengthStrongSell, StrengthSell, StrengthHold, StrengthBuy, StrengthStrongBuy}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(),
			"%s should rank above %s", ordered[i], ordered[i-1])
	}
}

func TestStrengthActionable(t *testing.T) {
	assert.True(t, StrengthBuy.Actionable())
	assert.True(t, StrengthStrongBuy.Actionable())
	assert.False(t, StrengthHold.Actionable())
	assert.False(t, StrengthSell.Actionable())
	assert.False(t, StrengthStrongSell.Actionable())
}

func TestCommodityFuturesSymbol(t *testing.T) {
	assert.Equal(t, "ZC", CommodityCorn.FuturesSymbol())
	assert.Equal(t, "ZS", CommoditySoybeans.FuturesSymbol())
	assert.Equal(t, "", Commodity("RICE").FuturesSymbol())
}
