// Package preferences manages per-business marketing preferences.
// Exactly one row exists per business; first read creates it with defaults.
package preferences

import (
	"fmt"

	"github.com/grainwise/grainwise/internal/domain"
)

// SchemaVersion is bumped whenever a field is added to Preferences.
// All fields are explicit from day one; readers of older rows get
// zero values filled with defaults on write-back.
const SchemaVersion = 1

// Preferences holds a business's marketing configuration.
type Preferences struct {
	BusinessID         string               `json:"business_id"`
	SchemaVersion      int                  `json:"schema_version"`
	RiskTolerance      domain.RiskTolerance `json:"risk_tolerance"`
	TargetProfitMargin float64              `json:"target_profit_margin"` // $/bu above break-even
	MinAboveBreakEven  float64              `json:"min_above_break_even"` // fraction, e.g. 0.05
	Commodities        []domain.Commodity   `json:"commodities"`
	SignalTypes        []domain.SignalType  `json:"signal_types"`
	CreatedAt          int64                `json:"created_at"`
	UpdatedAt          int64                `json:"updated_at"`
}

// UpdateRequest is the PUT body for preference changes. Nil fields are
// left unchanged.
type UpdateRequest struct {
	RiskTolerance      *domain.RiskTolerance `json:"risk_tolerance,omitempty"`
	TargetProfitMargin *float64              `json:"target_profit_margin,omitempty"`
	MinAboveBreakEven  *float64              `json:"min_above_break_even,omitempty"`
	Commodities        []domain.Commodity    `json:"commodities,omitempty"`
	SignalTypes        []domain.SignalType   `json:"signal_types,omitempty"`
}

// Defaults returns the preferences a business starts with.
func Defaults(businessID string) Preferences {
	return Preferences{
		BusinessID:         businessID,
		SchemaVersion:      SchemaVersion,
		RiskTolerance:      domain.RiskModerate,
		TargetProfitMargin: 0.50,
		MinAboveBreakEven:  0.05,
		Commodities:        []domain.Commodity{domain.CommodityCorn, domain.CommoditySoybeans},
		SignalTypes: []domain.SignalType{
			domain.SignalCashSale,
			domain.SignalBasisContract,
			domain.SignalHedgeToArrive,
		},
	}
}

// Validate rejects malformed preference updates.
func (u *UpdateRequest) Validate() error {
	if u.RiskTolerance != nil {
		switch *u.RiskTolerance {
		case domain.RiskConservative, domain.RiskModerate, domain.RiskAggressive:
		default:
			return fmt.Errorf("invalid risk tolerance: %s", *u.RiskTolerance)
		}
	}
	if u.TargetProfitMargin != nil && *u.TargetProfitMargin < 0 {
		return fmt.Errorf("target profit margin must be >= 0")
	}
	if u.MinAboveBreakEven != nil && (*u.MinAboveBreakEven < 0 || *u.MinAboveBreakEven > 1) {
		return fmt.Errorf("min above break-even must be between 0 and 1")
	}
	for _, c := range u.Commodities {
		switch c {
		case domain.CommodityCorn, domain.CommoditySoybeans, domain.CommodityWheat, domain.CommodityOats:
		default:
			return fmt.Errorf("unknown commodity: %s", c)
		}
	}
	for _, st := range u.SignalTypes {
		found := false
		for _, known := range domain.EvaluatedSignalTypes {
			if st == known {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown signal type: %s", st)
		}
	}
	return nil
}
