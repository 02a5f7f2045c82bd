// Package contracts tracks grain sale contracts: cash, basis,
// hedge-to-arrive, and accumulator positions. The signal engine reads
// sold-bushel totals and open accumulator barriers from here.
package contracts

import (
	"fmt"

	"github.com/grainwise/grainwise/internal/domain"
)

// ContractType is the marketing instrument behind a contract.
type ContractType string

const (
	TypeCash        ContractType = "CASH"
	TypeBasis       ContractType = "BASIS"
	TypeHTA         ContractType = "HTA"
	TypeAccumulator ContractType = "ACCUMULATOR"
)

// Valid reports whether the contract type is known.
func (t ContractType) Valid() bool {
	return t == TypeCash || t == TypeBasis || t == TypeHTA || t == TypeAccumulator
}

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	StatusOpen       ContractStatus = "OPEN"
	StatusFilled     ContractStatus = "FILLED"
	StatusCancelled  ContractStatus = "CANCELLED"
	StatusKnockedOut ContractStatus = "KNOCKED_OUT" // accumulators only
)

// Contract is one grain sale commitment.
type Contract struct {
	ID            string           `json:"id"`
	BusinessID    string           `json:"business_id"`
	Commodity     domain.Commodity `json:"commodity"`
	ContractType  ContractType     `json:"contract_type"`
	Bushels       int64            `json:"bushels"`
	FuturesPrice  *float64         `json:"futures_price,omitempty"`
	Basis         *float64         `json:"basis,omitempty"`
	CashPrice     *float64         `json:"cash_price,omitempty"`
	DeliveryStart *int64           `json:"delivery_start,omitempty"`
	DeliveryEnd   *int64           `json:"delivery_end,omitempty"`
	Elevator      *string          `json:"elevator,omitempty"`
	Status        ContractStatus   `json:"status"`

	// Accumulator fields
	KnockoutBarrier    *float64 `json:"knockout_barrier,omitempty"`
	DoubleUpBarrier    *float64 `json:"doubleup_barrier,omitempty"`
	AccumulatedBushels int64    `json:"accumulated_bushels"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// CommittedBushels is how many bushels this contract has actually taken
// out of unsold inventory: the full quantity for fixed contracts, only
// what has accumulated so far for accumulators.
func (c *Contract) CommittedBushels() int64 {
	if c.Status == StatusCancelled {
		return 0
	}
	if c.ContractType == TypeAccumulator {
		return c.AccumulatedBushels
	}
	return c.Bushels
}

// Validate rejects malformed contracts.
func (c *Contract) Validate() error {
	if c.BusinessID == "" {
		return fmt.Errorf("business_id is required")
	}
	if !c.Commodity.Valid() {
		return fmt.Errorf("unknown commodity: %s", c.Commodity)
	}
	if !c.ContractType.Valid() {
		return fmt.Errorf("invalid contract type: %s", c.ContractType)
	}
	if c.Bushels <= 0 {
		return fmt.Errorf("bushels must be positive")
	}
	if c.ContractType == TypeAccumulator {
		if c.KnockoutBarrier == nil {
			return fmt.Errorf("accumulator contracts require a knockout barrier")
		}
		if c.AccumulatedBushels < 0 || c.AccumulatedBushels > c.Bushels {
			return fmt.Errorf("accumulated bushels must be between 0 and the contract total")
		}
	}
	switch c.ContractType {
	case TypeCash:
		if c.CashPrice == nil {
			return fmt.Errorf("cash contracts require a cash price")
		}
	case TypeBasis:
		if c.Basis == nil {
			return fmt.Errorf("basis contracts require a basis")
		}
	case TypeHTA:
		if c.FuturesPrice == nil {
			return fmt.Errorf("HTA contracts require a futures price")
		}
	}
	return nil
}
