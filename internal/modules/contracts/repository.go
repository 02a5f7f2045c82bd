package contracts

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/signals"
	"github.com/rs/zerolog"
)

// Repository handles grain contract rows in farm.db. It also implements
// signals.ContractProvider for the orchestrator.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new contracts repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "contracts").Logger(),
	}
}

const contractColumns = `id, business_id, commodity, contract_type, bushels,
	futures_price, basis, cash_price, delivery_start, delivery_end, elevator,
	status, knockout_barrier, doubleup_barrier, accumulated_bushels,
	created_at, updated_at`

// Create inserts a new contract.
func (r *Repository) Create(c *Contract) (*Contract, error) {
	now := time.Now().Unix()
	c.ID = uuid.New().String()
	if c.Status == "" {
		c.Status = StatusOpen
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO grain_contracts
			(id, business_id, commodity, contract_type, bushels,
			 futures_price, basis, cash_price, delivery_start, delivery_end, elevator,
			 status, knockout_barrier, doubleup_barrier, accumulated_bushels,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.BusinessID, c.Commodity, c.ContractType, c.Bushels,
		c.FuturesPrice, c.Basis, c.CashPrice, c.DeliveryStart, c.DeliveryEnd, c.Elevator,
		c.Status, c.KnockoutBarrier, c.DoubleUpBarrier, c.AccumulatedBushels,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert contract: %w", err)
	}
	return c, nil
}

// GetByID fetches one contract.
func (r *Repository) GetByID(id string) (*Contract, error) {
	row := r.db.QueryRow(`SELECT `+contractColumns+` FROM grain_contracts WHERE id = ?`, id)

	contract, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("contract", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract %s: %w", id, err)
	}
	return contract, nil
}

// List returns a business's contracts, newest first, optionally filtered
// by commodity.
func (r *Repository) List(businessID string, commodity *domain.Commodity) ([]*Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM grain_contracts WHERE business_id = ?`
	args := []interface{}{businessID}
	if commodity != nil {
		query += ` AND commodity = ?`
		args = append(args, *commodity)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan contract row")
			continue
		}
		contracts = append(contracts, contract)
	}
	return contracts, rows.Err()
}

// UpdateStatus transitions a contract's status.
func (r *Repository) UpdateStatus(id string, status ContractStatus) error {
	result, err := r.db.Exec(`
		UPDATE grain_contracts SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update contract %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewNotFound("contract", id)
	}
	return nil
}

// RecordAccumulation adds bushels to an accumulator's running total,
// capped at the contract quantity.
func (r *Repository) RecordAccumulation(id string, bushels int64) (*Contract, error) {
	contract, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if contract.ContractType != TypeAccumulator {
		return nil, fmt.Errorf("contract %s is not an accumulator", id)
	}

	total := contract.AccumulatedBushels + bushels
	if total > contract.Bushels {
		total = contract.Bushels
	}

	_, err = r.db.Exec(`
		UPDATE grain_contracts SET accumulated_bushels = ?, updated_at = ? WHERE id = ?
	`, total, time.Now().Unix(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to record accumulation: %w", err)
	}
	return r.GetByID(id)
}

// ContractedBushels sums the bushels a business has already committed
// for a commodity. Cancelled contracts do not count; accumulators count
// only what has accumulated.
func (r *Repository) ContractedBushels(businessID string, commodity domain.Commodity) (int64, error) {
	contracts, err := r.List(businessID, &commodity)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, c := range contracts {
		total += c.CommittedBushels()
	}
	return total, nil
}

// OpenAccumulators returns the barrier positions of a business's open
// accumulator contracts, in the shape the signal evaluator consumes.
func (r *Repository) OpenAccumulators(businessID string, commodity domain.Commodity) ([]signals.AccumulatorPosition, error) {
	rows, err := r.db.Query(`
		SELECT id, knockout_barrier, doubleup_barrier, status
		FROM grain_contracts
		WHERE business_id = ? AND commodity = ? AND contract_type = 'ACCUMULATOR'
		  AND status IN ('OPEN', 'KNOCKED_OUT')
	`, businessID, commodity)
	if err != nil {
		return nil, fmt.Errorf("failed to list accumulators: %w", err)
	}
	defer rows.Close()

	var positions []signals.AccumulatorPosition
	for rows.Next() {
		var pos signals.AccumulatorPosition
		var status ContractStatus
		if err := rows.Scan(&pos.ContractID, &pos.KnockoutBarrier, &pos.DoubleUpBarrier, &status); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan accumulator row")
			continue
		}
		pos.KnockoutReached = status == StatusKnockedOut
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContract(row rowScanner) (*Contract, error) {
	var c Contract
	err := row.Scan(
		&c.ID, &c.BusinessID, &c.Commodity, &c.ContractType, &c.Bushels,
		&c.FuturesPrice, &c.Basis, &c.CashPrice, &c.DeliveryStart, &c.DeliveryEnd, &c.Elevator,
		&c.Status, &c.KnockoutBarrier, &c.DoubleUpBarrier, &c.AccumulatedBushels,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
