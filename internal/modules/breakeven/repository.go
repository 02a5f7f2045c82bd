package breakeven

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles break-even budget rows in farm.db. It also
// implements signals.CostProvider: the orchestrator reads break-even
// prices and expected production through it.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new breakeven repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "breakeven").Logger(),
	}
}

const budgetColumns = `id, business_id, commodity, crop_year, acres, expected_yield,
	seed, fertilizer, chemicals, insurance, land, equipment, labor, other,
	created_at, updated_at`

// Upsert creates or replaces the budget for a (business, commodity,
// crop year) triple.
func (r *Repository) Upsert(budget *Budget) (*Budget, error) {
	now := time.Now().Unix()
	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}

	_, err := r.db.Exec(`
		INSERT INTO breakeven_budgets
			(id, business_id, commodity, crop_year, acres, expected_yield,
			 seed, fertilizer, chemicals, insurance, land, equipment, labor, other,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(business_id, commodity, crop_year) DO UPDATE SET
			acres = excluded.acres,
			expected_yield = excluded.expected_yield,
			seed = excluded.seed,
			fertilizer = excluded.fertilizer,
			chemicals = excluded.chemicals,
			insurance = excluded.insurance,
			land = excluded.land,
			equipment = excluded.equipment,
			labor = excluded.labor,
			other = excluded.other,
			updated_at = excluded.updated_at
	`, budget.ID, budget.BusinessID, budget.Commodity, budget.CropYear,
		budget.Acres, budget.ExpectedYield,
		budget.Seed, budget.Fertilizer, budget.Chemicals, budget.Insurance,
		budget.Land, budget.Equipment, budget.Labor, budget.Other,
		now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert budget: %w", err)
	}

	return r.Get(budget.BusinessID, budget.Commodity, budget.CropYear)
}

// Get fetches one budget.
func (r *Repository) Get(businessID string, commodity domain.Commodity, cropYear int) (*Budget, error) {
	row := r.db.QueryRow(`
		SELECT `+budgetColumns+`
		FROM breakeven_budgets
		WHERE business_id = ? AND commodity = ? AND crop_year = ?
	`, businessID, commodity, cropYear)

	budget, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("budget", fmt.Sprintf("%s/%s/%d", businessID, commodity, cropYear))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return budget, nil
}

// Latest fetches the most recent crop year's budget for a commodity.
func (r *Repository) Latest(businessID string, commodity domain.Commodity) (*Budget, error) {
	row := r.db.QueryRow(`
		SELECT `+budgetColumns+`
		FROM breakeven_budgets
		WHERE business_id = ? AND commodity = ?
		ORDER BY crop_year DESC
		LIMIT 1
	`, businessID, commodity)

	budget, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("budget", fmt.Sprintf("%s/%s", businessID, commodity))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest budget: %w", err)
	}
	return budget, nil
}

// List returns all budgets for a business, newest crop year first.
func (r *Repository) List(businessID string) ([]*Budget, error) {
	rows, err := r.db.Query(`
		SELECT `+budgetColumns+`
		FROM breakeven_budgets
		WHERE business_id = ?
		ORDER BY crop_year DESC, commodity ASC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan budget row")
			continue
		}
		budgets = append(budgets, budget)
	}
	return budgets, rows.Err()
}

// Delete removes one budget.
func (r *Repository) Delete(businessID string, commodity domain.Commodity, cropYear int) error {
	result, err := r.db.Exec(`
		DELETE FROM breakeven_budgets
		WHERE business_id = ? AND commodity = ? AND crop_year = ?
	`, businessID, commodity, cropYear)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewNotFound("budget", fmt.Sprintf("%s/%s/%d", businessID, commodity, cropYear))
	}
	return nil
}

// BreakEven returns the latest budget's per-bushel cost basis.
func (r *Repository) BreakEven(businessID string, commodity domain.Commodity) (float64, error) {
	budget, err := r.Latest(businessID, commodity)
	if err != nil {
		return 0, err
	}
	return budget.BreakEvenPrice(), nil
}

// ExpectedProduction returns the latest budget's expected crop in
// bushels.
func (r *Repository) ExpectedProduction(businessID string, commodity domain.Commodity) (int64, error) {
	budget, err := r.Latest(businessID, commodity)
	if err != nil {
		return 0, err
	}
	return budget.ExpectedProduction(), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBudget(row rowScanner) (*Budget, error) {
	var b Budget
	err := row.Scan(
		&b.ID, &b.BusinessID, &b.Commodity, &b.CropYear, &b.Acres, &b.ExpectedYield,
		&b.Seed, &b.Fertilizer, &b.Chemicals, &b.Insurance,
		&b.Land, &b.Equipment, &b.Labor, &b.Other,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
