// Package breakeven manages per-crop cost budgets and derives the
// break-even price the signal engine measures the market against.
package breakeven

import (
	"fmt"

	"github.com/grainwise/grainwise/internal/domain"
)

// Budget is one crop year's cost plan for a commodity. All cost fields
// are dollars per acre.
type Budget struct {
	ID            string           `json:"id"`
	BusinessID    string           `json:"business_id"`
	Commodity     domain.Commodity `json:"commodity"`
	CropYear      int              `json:"crop_year"`
	Acres         float64          `json:"acres"`
	ExpectedYield float64          `json:"expected_yield"` // bu/acre
	Seed          float64          `json:"seed"`
	Fertilizer    float64          `json:"fertilizer"`
	Chemicals     float64          `json:"chemicals"`
	Insurance     float64          `json:"insurance"`
	Land          float64          `json:"land"`
	Equipment     float64          `json:"equipment"`
	Labor         float64          `json:"labor"`
	Other         float64          `json:"other"`
	CreatedAt     int64            `json:"created_at"`
	UpdatedAt     int64            `json:"updated_at"`
}

// TotalCostPerAcre sums every cost category.
func (b *Budget) TotalCostPerAcre() float64 {
	return b.Seed + b.Fertilizer + b.Chemicals + b.Insurance +
		b.Land + b.Equipment + b.Labor + b.Other
}

// BreakEvenPrice is the per-bushel cost basis: total cost per acre
// spread over the expected yield. Zero when yield is not positive.
func (b *Budget) BreakEvenPrice() float64 {
	if b.ExpectedYield <= 0 {
		return 0
	}
	return b.TotalCostPerAcre() / b.ExpectedYield
}

// ExpectedProduction is the budgeted crop in whole bushels.
func (b *Budget) ExpectedProduction() int64 {
	return int64(b.Acres * b.ExpectedYield)
}

// Validate rejects malformed budgets.
func (b *Budget) Validate() error {
	if b.BusinessID == "" {
		return fmt.Errorf("business_id is required")
	}
	if !b.Commodity.Valid() {
		return fmt.Errorf("unknown commodity: %s", b.Commodity)
	}
	if b.CropYear < 2000 || b.CropYear > 2100 {
		return fmt.Errorf("crop year out of range: %d", b.CropYear)
	}
	if b.Acres <= 0 {
		return fmt.Errorf("acres must be positive")
	}
	if b.ExpectedYield <= 0 {
		return fmt.Errorf("expected yield must be positive")
	}
	for name, v := range map[string]float64{
		"seed": b.Seed, "fertilizer": b.Fertilizer, "chemicals": b.Chemicals,
		"insurance": b.Insurance, "land": b.Land, "equipment": b.Equipment,
		"labor": b.Labor, "other": b.Other,
	} {
		if v < 0 {
			return fmt.Errorf("%s cost must be >= 0", name)
		}
	}
	return nil
}
