// Package ledger tracks equipment and loans in ledger.db: straight-line
// depreciation schedules and amortized loan payments.
package ledger

import (
	"fmt"
	"math"
)

// EquipmentCategory classifies a machine.
type EquipmentCategory string

const (
	CategoryTractor   EquipmentCategory = "TRACTOR"
	CategoryCombine   EquipmentCategory = "COMBINE"
	CategoryImplement EquipmentCategory = "IMPLEMENT"
	CategoryTruck     EquipmentCategory = "TRUCK"
	CategoryOther     EquipmentCategory = "OTHER"
)

// Valid reports whether the category is known.
func (c EquipmentCategory) Valid() bool {
	switch c {
	case CategoryTractor, CategoryCombine, CategoryImplement, CategoryTruck, CategoryOther:
		return true
	}
	return false
}

// Equipment is one machine on the books.
type Equipment struct {
	ID              string            `json:"id"`
	BusinessID      string            `json:"business_id"`
	Name            string            `json:"name"`
	Category        EquipmentCategory `json:"category"`
	PurchaseDate    int64             `json:"purchase_date"`
	PurchasePrice   float64           `json:"purchase_price"`
	SalvageValue    float64           `json:"salvage_value"`
	UsefulLifeYears int               `json:"useful_life_years"`
	SoldAt          *int64            `json:"sold_at,omitempty"`
	SoldPrice       *float64          `json:"sold_price,omitempty"`
	CreatedAt       int64             `json:"created_at"`
}

// AnnualDepreciation is the straight-line write-down per year.
func (e *Equipment) AnnualDepreciation() float64 {
	if e.UsefulLifeYears <= 0 {
		return 0
	}
	return (e.PurchasePrice - e.SalvageValue) / float64(e.UsefulLifeYears)
}

// BookValue is the depreciated value after yearsHeld, never below
// salvage.
func (e *Equipment) BookValue(yearsHeld float64) float64 {
	if yearsHeld < 0 {
		yearsHeld = 0
	}
	value := e.PurchasePrice - e.AnnualDepreciation()*yearsHeld
	return math.Max(value, e.SalvageValue)
}

// Validate rejects malformed equipment records.
func (e *Equipment) Validate() error {
	if e.BusinessID == "" {
		return fmt.Errorf("business_id is required")
	}
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !e.Category.Valid() {
		return fmt.Errorf("invalid category: %s", e.Category)
	}
	if e.PurchasePrice <= 0 {
		return fmt.Errorf("purchase price must be positive")
	}
	if e.SalvageValue < 0 || e.SalvageValue > e.PurchasePrice {
		return fmt.Errorf("salvage value must be between 0 and the purchase price")
	}
	if e.UsefulLifeYears <= 0 {
		return fmt.Errorf("useful life must be positive")
	}
	return nil
}

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanActive  LoanStatus = "ACTIVE"
	LoanPaidOff LoanStatus = "PAID_OFF"
)

// Loan is one borrowing on the books.
type Loan struct {
	ID         string     `json:"id"`
	BusinessID string     `json:"business_id"`
	Lender     string     `json:"lender"`
	Purpose    *string    `json:"purpose,omitempty"`
	Principal  float64    `json:"principal"`
	AnnualRate float64    `json:"annual_rate"`
	TermMonths int        `json:"term_months"`
	StartDate  int64      `json:"start_date"`
	Status     LoanStatus `json:"status"`
	CreatedAt  int64      `json:"created_at"`
}

// MonthlyPayment is the level amortized payment. A zero rate degrades
// to straight division.
func (l *Loan) MonthlyPayment() float64 {
	if l.TermMonths <= 0 {
		return 0
	}
	if l.AnnualRate == 0 {
		return l.Principal / float64(l.TermMonths)
	}
	r := l.AnnualRate / 12
	factor := math.Pow(1+r, float64(l.TermMonths))
	return l.Principal * r * factor / (factor - 1)
}

// SplitPayment divides a payment into interest and principal portions
// against the outstanding balance.
func (l *Loan) SplitPayment(outstanding, amount float64) (principal, interest float64) {
	interest = outstanding * l.AnnualRate / 12
	if interest > amount {
		interest = amount
	}
	principal = amount - interest
	if principal > outstanding {
		principal = outstanding
	}
	return principal, interest
}

// Validate rejects malformed loans.
func (l *Loan) Validate() error {
	if l.BusinessID == "" {
		return fmt.Errorf("business_id is required")
	}
	if l.Lender == "" {
		return fmt.Errorf("lender is required")
	}
	if l.Principal <= 0 {
		return fmt.Errorf("principal must be positive")
	}
	if l.AnnualRate < 0 || l.AnnualRate > 1 {
		return fmt.Errorf("annual rate must be a fraction between 0 and 1")
	}
	if l.TermMonths <= 0 {
		return fmt.Errorf("term must be positive")
	}
	return nil
}

// Payment is one recorded loan payment.
type Payment struct {
	ID               string  `json:"id"`
	LoanID           string  `json:"loan_id"`
	PaidAt           int64   `json:"paid_at"`
	Amount           float64 `json:"amount"`
	PrincipalPortion float64 `json:"principal_portion"`
	InterestPortion  float64 `json:"interest_portion"`
}
