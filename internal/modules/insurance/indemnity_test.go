package insurance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRPIndemnity(t *testing.T) {
	// Guaranteed revenue 180 x 0.8 x 4.66 = 671.04; actual 150 x 4.00 = 600
	in := Inputs{APH: 180, CoverageLevel: 80, ProjectedPrice: 4.66, ActualYield: 150, HarvestPrice: 4.00}
	assert.InDelta(t, 71.04, RPIndemnity(in), 0.001)
}

func TestRPIndemnity_HarvestPriceUpside(t *testing.T) {
	// Harvest above projected raises the guarantee
	in := Inputs{APH: 180, CoverageLevel: 80, ProjectedPrice: 4.00, ActualYield: 130, HarvestPrice: 5.00}
	// 180 x 0.8 x 5.00 = 720; actual 130 x 5.00 = 650
	assert.InDelta(t, 70.0, RPIndemnity(in), 0.001)
}

func TestRPIndemnity_ZeroWhenRevenueCovers(t *testing.T) {
	in := Inputs{APH: 180, CoverageLevel: 80, ProjectedPrice: 4.66, ActualYield: 180, HarvestPrice: 4.50}
	assert.Zero(t, RPIndemnity(in))
}

func TestYPIndemnity(t *testing.T) {
	// Guarantee 180 x 0.75 = 135 bu; shortfall 15 bu at $4.66
	in := Inputs{APH: 180, CoverageLevel: 75, ProjectedPrice: 4.66, ActualYield: 120, HarvestPrice: 5.50}
	assert.InDelta(t, 15*4.66, YPIndemnity(in), 0.001)

	// Yield at guarantee pays nothing, harvest price irrelevant
	in.ActualYield = 135
	assert.Zero(t, YPIndemnity(in))
}

func TestRPHPEIndemnity_NoHarvestUpside(t *testing.T) {
	in := Inputs{APH: 180, CoverageLevel: 80, ProjectedPrice: 4.00, ActualYield: 130, HarvestPrice: 5.00}
	// Guarantee stays at projected: 180 x 0.8 x 4.00 = 576; actual 650
	assert.Zero(t, RPHPEIndemnity(in))
	// Plain RP would have paid on the same facts
	assert.Positive(t, RPIndemnity(in))
}

func TestSCOIndemnity_CountyTrigger(t *testing.T) {
	in := Inputs{APH: 180, CoverageLevel: 80, ProjectedPrice: 4.66, ActualYield: 170, HarvestPrice: 4.66}
	band := 180 * (0.86 - 0.80) * 4.66

	// County revenue ratio 0.80: 6 points of the 6-point band
	county := &CountyData{ExpectedYield: 200, ActualYield: 160}
	payout := SCOIndemnity(PlanRP, in, county)
	assert.InDelta(t, band, payout, 0.001, "ratio at the band bottom pays the full band")

	// Ratio 0.83: half the band
	county.ActualYield = 166
	payout = SCOIndemnity(PlanRP, in, county)
	assert.InDelta(t, band/2, payout, 0.001)

	// Ratio above the 86% trigger pays nothing
	county.ActualYield = 180
	assert.Zero(t, SCOIndemnity(PlanRP, in, county))
}

func TestSCOIndemnity_ClampedToBand(t *testing.T) {
	in := Inputs{APH: 180, CoverageLevel: 80, ProjectedPrice: 4.66, ActualYield: 170, HarvestPrice: 4.66}
	band := 180 * (0.86 - 0.80) * 4.66

	// County wiped out: still only the band
	county := &CountyData{ExpectedYield: 200, ActualYield: 20}
	assert.InDelta(t, band, SCOIndemnity(PlanRP, in, county), 0.001)

	// Farm-level fallback with a severe loss is also capped
	in.ActualYield = 50
	assert.LessOrEqual(t, SCOIndemnity(PlanRP, in, nil), band+0.001)
}

func TestECOIndemnity_BandAbove86(t *testing.T) {
	in := Inputs{APH: 180, CoverageLevel: 80, ProjectedPrice: 4.66, ActualYield: 170, HarvestPrice: 4.66}
	band := 180 * (0.90 - 0.86) * 4.66

	// Ratio 0.80, below the 86% floor of the ECO band: full band
	county := &CountyData{ExpectedYield: 200, ActualYield: 160}
	assert.InDelta(t, band, ECOIndemnity(PlanRP, in, 90, county), 0.001)

	// Ratio 0.88: 2 of the 4 points
	county.ActualYield = 176
	assert.InDelta(t, band/2, ECOIndemnity(PlanRP, in, 90, county), 0.001)

	// Ratio at 0.90 pays nothing
	county.ActualYield = 180
	assert.Zero(t, ECOIndemnity(PlanRP, in, 90, county))
}

func TestRidersJointlyBounded(t *testing.T) {
	in := Inputs{APH: 180, CoverageLevel: 80, ProjectedPrice: 4.66, ActualYield: 0, HarvestPrice: 4.66}
	county := &CountyData{ExpectedYield: 200, ActualYield: 0}

	sco := SCOIndemnity(PlanRP, in, county)
	eco := ECOIndemnity(PlanRP, in, 95, county)

	combined := 180 * (0.95 - 0.80) * 4.66
	assert.LessOrEqual(t, sco+eco, combined+0.001)
}

func TestEstimate_FullBreakdown(t *testing.T) {
	policy := &Policy{
		PlanType:         PlanRP,
		CoverageLevel:    80,
		APH:              180,
		ProjectedPrice:   4.66,
		SCOEnabled:       true,
		ECOEnabled:       true,
		ECOCoverageLevel: 90,
	}
	county := &CountyData{ExpectedYield: 200, ActualYield: 150}

	b := Estimate(policy, 150, 4.00, county)

	assert.InDelta(t, 71.04, b.Base, 0.001)
	assert.Positive(t, b.SCO)
	assert.Positive(t, b.ECO)
	assert.InDelta(t, b.Base+b.SCO+b.ECO, b.Total, 0.001)
}

func TestEstimate_RidersDisabled(t *testing.T) {
	policy := &Policy{PlanType: PlanYP, CoverageLevel: 75, APH: 180, ProjectedPrice: 4.66}

	b := Estimate(policy, 120, 5.50, nil)

	assert.InDelta(t, 15*4.66, b.Base, 0.001)
	assert.Zero(t, b.SCO)
	assert.Zero(t, b.ECO)
}

func TestIndemnitiesNeverNegative(t *testing.T) {
	cases := []Inputs{
		{APH: 180, CoverageLevel: 80, ProjectedPrice: 4.66, ActualYield: 300, HarvestPrice: 6.00},
		{APH: 0, CoverageLevel: 80, ProjectedPrice: 4.66, ActualYield: 100, HarvestPrice: 4.00},
		{APH: 180, CoverageLevel: 50, ProjectedPrice: 4.66, ActualYield: 200, HarvestPrice: 3.00},
	}
	for _, in := range cases {
		assert.GreaterOrEqual(t, RPIndemnity(in), 0.0)
		assert.GreaterOrEqual(t, YPIndemnity(in), 0.0)
		assert.GreaterOrEqual(t, RPHPEIndemnity(in), 0.0)
		assert.GreaterOrEqual(t, SCOIndemnity(PlanRP, in, nil), 0.0)
		assert.GreaterOrEqual(t, ECOIndemnity(PlanRP, in, 95, nil), 0.0)
	}
}
