package insurance

import "fmt"

// Policy is a farm's crop insurance policy. One-to-one with a farm.
type Policy struct {
	ID               string   `json:"id"`
	FarmID           string   `json:"farm_id"`
	PlanType         PlanType `json:"plan_type"`
	CoverageLevel    float64  `json:"coverage_level"` // percent
	APH              float64  `json:"aph"`            // bu/acre
	ProjectedPrice   float64  `json:"projected_price"`
	PremiumPerAcre   float64  `json:"premium_per_acre"`
	SCOEnabled       bool     `json:"sco_enabled"`
	SCOPremium       float64  `json:"sco_premium"`
	ECOEnabled       bool     `json:"eco_enabled"`
	ECOCoverageLevel float64  `json:"eco_coverage_level"` // 90 or 95
	ECOPremium       float64  `json:"eco_premium"`
	CreatedAt        int64    `json:"created_at"`
	UpdatedAt        int64    `json:"updated_at"`
}

// Validate rejects malformed policies before they reach storage.
func (p *Policy) Validate() error {
	if p.FarmID == "" {
		return fmt.Errorf("farm_id is required")
	}
	if !p.PlanType.Valid() {
		return fmt.Errorf("invalid plan type: %s", p.PlanType)
	}
	if p.CoverageLevel < 50 || p.CoverageLevel > 85 {
		return fmt.Errorf("coverage level must be between 50 and 85, got %.0f", p.CoverageLevel)
	}
	if p.APH <= 0 {
		return fmt.Errorf("aph must be positive")
	}
	if p.ProjectedPrice <= 0 {
		return fmt.Errorf("projected price must be positive")
	}
	if p.ECOEnabled && p.ECOCoverageLevel != 90 && p.ECOCoverageLevel != 95 {
		return fmt.Errorf("eco coverage level must be 90 or 95, got %.0f", p.ECOCoverageLevel)
	}
	return nil
}

// EstimateRequest is the POST body for an on-demand indemnity estimate.
type EstimateRequest struct {
	ActualYield  float64     `json:"actual_yield"`
	HarvestPrice float64     `json:"harvest_price"`
	County       *CountyData `json:"county,omitempty"`
}

// Validate rejects malformed estimate requests.
func (r *EstimateRequest) Validate() error {
	if r.ActualYield < 0 {
		return fmt.Errorf("actual yield must be >= 0")
	}
	if r.HarvestPrice <= 0 {
		return fmt.Errorf("harvest price must be positive")
	}
	if r.County != nil && r.County.ExpectedYield <= 0 {
		return fmt.Errorf("county expected yield must be positive")
	}
	return nil
}

// EstimateResponse pairs the breakdown with the premium cost for a
// simple net view.
type EstimateResponse struct {
	Breakdown
	PremiumPerAcre float64 `json:"premium_per_acre"`
	NetPerAcre     float64 `json:"net_per_acre"`
}
