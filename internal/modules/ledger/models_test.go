package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnualDepreciation(t *testing.T) {
	e := &Equipment{PurchasePrice: 250000, SalvageValue: 50000, UsefulLifeYears: 10}
	assert.InDelta(t, 20000, e.AnnualDepreciation(), 0.001)

	e.UsefulLifeYears = 0
	assert.Zero(t, e.AnnualDepreciation())
}

func TestBookValue_FlooredAtSalvage(t *testing.T) {
	e := &Equipment{PurchasePrice: 250000, SalvageValue: 50000, UsefulLifeYears: 10}

	assert.InDelta(t, 250000, e.BookValue(0), 0.001)
	assert.InDelta(t, 150000, e.BookValue(5), 0.001)
	assert.InDelta(t, 50000, e.BookValue(10), 0.001)
	assert.InDelta(t, 50000, e.BookValue(25), 0.001, "book value never drops below salvage")
	assert.InDelta(t, 250000, e.BookValue(-3), 0.001, "negative holding period treated as zero")
}

func TestMonthlyPayment(t *testing.T) {
	// 300k at 6% over 20 years works out to roughly 2149/mo.
	l := &Loan{Principal: 300000, AnnualRate: 0.06, TermMonths: 240}
	assert.InDelta(t, 2149.29, l.MonthlyPayment(), 0.01)

	zero := &Loan{Principal: 12000, AnnualRate: 0, TermMonths: 12}
	assert.InDelta(t, 1000, zero.MonthlyPayment(), 0.001)

	bad := &Loan{Principal: 12000, AnnualRate: 0.05, TermMonths: 0}
	assert.Zero(t, bad.MonthlyPayment())
}

func TestSplitPayment(t *testing.T) {
	l := &Loan{Principal: 300000, AnnualRate: 0.06, TermMonths: 240}

	principal, interest := l.SplitPayment(300000, 2149.29)
	assert.InDelta(t, 1500, interest, 0.001, "first month interest is balance times rate/12")
	assert.InDelta(t, 649.29, principal, 0.001)

	// Final payment larger than the balance: principal capped.
	principal, interest = l.SplitPayment(500, 2149.29)
	assert.InDelta(t, 2.50, interest, 0.001)
	assert.InDelta(t, 500, principal, 0.001)

	// Tiny payment all goes to interest.
	principal, interest = l.SplitPayment(300000, 100)
	assert.InDelta(t, 100, interest, 0.001)
	assert.Zero(t, principal)
}

func TestEquipmentValidate(t *testing.T) {
	good := &Equipment{
		BusinessID:      "biz-1",
		Name:            "John Deere 8R",
		Category:        CategoryTractor,
		PurchasePrice:   250000,
		SalvageValue:    50000,
		UsefulLifeYears: 10,
	}
	assert.NoError(t, good.Validate())

	bad := *good
	bad.Category = "DRONE"
	assert.Error(t, bad.Validate())

	bad = *good
	bad.SalvageValue = 300000
	assert.Error(t, bad.Validate())

	bad = *good
	bad.UsefulLifeYears = 0
	assert.Error(t, bad.Validate())
}

func TestLoanValidate(t *testing.T) {
	good := &Loan{BusinessID: "biz-1", Lender: "Farm Credit", Principal: 300000, AnnualRate: 0.06, TermMonths: 240}
	assert.NoError(t, good.Validate())

	bad := *good
	bad.AnnualRate = 6.0
	assert.Error(t, bad.Validate(), "rate is a fraction, not a percentage")

	bad = *good
	bad.Principal = 0
	assert.Error(t, bad.Validate())
}
