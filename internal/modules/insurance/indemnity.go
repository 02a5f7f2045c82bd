// Package insurance manages crop insurance policies and computes
// per-acre indemnity estimates for RP, YP, and RP-HPE plans with
// optional SCO/ECO area riders.
package insurance

import "math"

// PlanType is the underlying insurance plan.
type PlanType string

const (
	PlanRP    PlanType = "RP"     // Revenue Protection
	PlanYP    PlanType = "YP"     // Yield Protection
	PlanRPHPE PlanType = "RP_HPE" // RP with Harvest Price Exclusion
)

// Valid reports whether the plan type is known.
func (p PlanType) Valid() bool {
	return p == PlanRP || p == PlanYP || p == PlanRPHPE
}

// scoTopPct is the fixed top of the SCO band; ECO bands run from the
// rider's own level down to this same line.
const scoTopPct = 0.86

// Inputs are the per-acre parameters every indemnity formula takes.
type Inputs struct {
	APH            float64 // actual production history, bu/acre
	CoverageLevel  float64 // percent, e.g. 80
	ProjectedPrice float64 // $/bu set at planting
	ActualYield    float64 // bu/acre realized
	HarvestPrice   float64 // $/bu discovered at harvest
}

// CountyData carries county-level yields for area-triggered riders.
type CountyData struct {
	ExpectedYield float64 `json:"expected_yield"`
	ActualYield   float64 `json:"actual_yield"`
}

// Breakdown is a per-acre indemnity estimate split by component.
// Computed on demand, never persisted.
type Breakdown struct {
	Base  float64 `json:"base"`
	SCO   float64 `json:"sco"`
	ECO   float64 `json:"eco"`
	Total float64 `json:"total"`
}

// guaranteePrice applies the plan's price rule: RP guarantees the higher
// of projected and harvest price, YP and RP-HPE stay at projected.
func guaranteePrice(plan PlanType, in Inputs) float64 {
	if plan == PlanRP {
		return math.Max(in.ProjectedPrice, in.HarvestPrice)
	}
	return in.ProjectedPrice
}

// RPIndemnity computes the Revenue Protection payout per acre.
// Guaranteed revenue uses the higher of projected and harvest price;
// actual revenue values the crop at harvest price.
func RPIndemnity(in Inputs) float64 {
	guarantee := in.APH * (in.CoverageLevel / 100) * math.Max(in.ProjectedPrice, in.HarvestPrice)
	actual := in.ActualYield * in.HarvestPrice
	return math.Max(0, guarantee-actual)
}

// YPIndemnity computes the Yield Protection payout per acre: the yield
// shortfall below the guarantee, valued at projected price.
func YPIndemnity(in Inputs) float64 {
	shortfall := in.APH*(in.CoverageLevel/100) - in.ActualYield
	return math.Max(0, shortfall) * in.ProjectedPrice
}

// RPHPEIndemnity computes RP with Harvest Price Exclusion: like RP but
// the guarantee stays at projected price, giving no harvest-price upside.
func RPHPEIndemnity(in Inputs) float64 {
	guarantee := in.APH * (in.CoverageLevel / 100) * in.ProjectedPrice
	actual := in.ActualYield * in.HarvestPrice
	return math.Max(0, guarantee-actual)
}

// BaseIndemnity dispatches to the plan's formula.
func BaseIndemnity(plan PlanType, in Inputs) float64 {
	switch plan {
	case PlanYP:
		return YPIndemnity(in)
	case PlanRPHPE:
		return RPHPEIndemnity(in)
	default:
		return RPIndemnity(in)
	}
}

// bandIndemnity computes an area-triggered rider payout for the band
// (bottomPct, topPct], expressed as fractions of expected yield/revenue.
// The payout is clamped to [0, band] where band is the full dollar value
// of the covered slice.
func bandIndemnity(plan PlanType, in Inputs, topPct, bottomPct float64, county *CountyData) float64 {
	if topPct <= bottomPct {
		return 0
	}

	bandPrice := guaranteePrice(plan, in)
	band := in.APH * (topPct - bottomPct) * bandPrice

	if county != nil && county.ExpectedYield > 0 {
		var ratio float64
		if plan == PlanYP {
			ratio = county.ActualYield / county.ExpectedYield
		} else {
			expected := county.ExpectedYield * in.ProjectedPrice
			actual := county.ActualYield * guaranteePrice(plan, in)
			if expected <= 0 {
				return 0
			}
			ratio = actual / expected
		}

		if ratio >= topPct {
			return 0
		}
		factor := math.Min(topPct-ratio, topPct-bottomPct) / (topPct - bottomPct)
		return factor * band
	}

	// No county data: fall back to the farm-level shortfall against the
	// band's top guarantee, capped at the band value.
	var loss float64
	if plan == PlanYP {
		loss = math.Max(0, in.APH*topPct-in.ActualYield) * in.ProjectedPrice
	} else {
		loss = math.Max(0, in.APH*topPct*bandPrice-in.ActualYield*in.HarvestPrice)
	}
	return math.Min(loss, band)
}

// SCOIndemnity computes the Supplemental Coverage Option payout: the
// band from 86% down to the policy's own coverage level.
func SCOIndemnity(plan PlanType, in Inputs, county *CountyData) float64 {
	return bandIndemnity(plan, in, scoTopPct, in.CoverageLevel/100, county)
}

// ECOIndemnity computes the Enhanced Coverage Option payout: the band
// from the rider's level (90 or 95) down to 86%.
func ECOIndemnity(plan PlanType, in Inputs, ecoLevel float64, county *CountyData) float64 {
	return bandIndemnity(plan, in, ecoLevel/100, scoTopPct, county)
}

// Estimate computes the full per-acre breakdown for a policy.
func Estimate(policy *Policy, actualYield, harvestPrice float64, county *CountyData) Breakdown {
	in := Inputs{
		APH:            policy.APH,
		CoverageLevel:  policy.CoverageLevel,
		ProjectedPrice: policy.ProjectedPrice,
		ActualYield:    actualYield,
		HarvestPrice:   harvestPrice,
	}

	var b Breakdown
	b.Base = BaseIndemnity(policy.PlanType, in)
	if policy.SCOEnabled {
		b.SCO = SCOIndemnity(policy.PlanType, in, county)
	}
	if policy.ECOEnabled {
		b.ECO = ECOIndemnity(policy.PlanType, in, policy.ECOCoverageLevel, county)
	}
	b.Total = b.Base + b.SCO + b.ECO
	return b
}
