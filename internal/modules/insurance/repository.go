package insurance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles crop insurance policy rows in farm.db.
// The farm_id unique constraint enforces one policy per farm; writes go
// through an upsert keyed on it.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new insurance repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "insurance").Logger(),
	}
}

// Upsert creates or replaces the policy for a farm.
func (r *Repository) Upsert(policy *Policy) (*Policy, error) {
	now := time.Now().Unix()
	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	policy.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO crop_insurance_policies
			(id, farm_id, plan_type, coverage_level, aph, projected_price,
			 premium_per_acre, sco_enabled, sco_premium,
			 eco_enabled, eco_coverage_level, eco_premium, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(farm_id) DO UPDATE SET
			plan_type = excluded.plan_type,
			coverage_level = excluded.coverage_level,
			aph = excluded.aph,
			projected_price = excluded.projected_price,
			premium_per_acre = excluded.premium_per_acre,
			sco_enabled = excluded.sco_enabled,
			sco_premium = excluded.sco_premium,
			eco_enabled = excluded.eco_enabled,
			eco_coverage_level = excluded.eco_coverage_level,
			eco_premium = excluded.eco_premium,
			updated_at = excluded.updated_at
	`, policy.ID, policy.FarmID, policy.PlanType, policy.CoverageLevel,
		policy.APH, policy.ProjectedPrice, policy.PremiumPerAcre,
		policy.SCOEnabled, policy.SCOPremium,
		policy.ECOEnabled, policy.ECOCoverageLevel, policy.ECOPremium,
		now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert policy for farm %s: %w", policy.FarmID, err)
	}

	return r.GetByFarm(policy.FarmID)
}

// GetByFarm fetches the policy for a farm.
func (r *Repository) GetByFarm(farmID string) (*Policy, error) {
	var p Policy
	err := r.db.QueryRow(`
		SELECT id, farm_id, plan_type, coverage_level, aph, projected_price,
		       premium_per_acre, sco_enabled, sco_premium,
		       eco_enabled, eco_coverage_level, eco_premium, created_at, updated_at
		FROM crop_insurance_policies
		WHERE farm_id = ?
	`, farmID).Scan(
		&p.ID, &p.FarmID, &p.PlanType, &p.CoverageLevel, &p.APH, &p.ProjectedPrice,
		&p.PremiumPerAcre, &p.SCOEnabled, &p.SCOPremium,
		&p.ECOEnabled, &p.ECOCoverageLevel, &p.ECOPremium, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("policy", farmID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy for farm %s: %w", farmID, err)
	}
	return &p, nil
}

// Delete removes a farm's policy.
func (r *Repository) Delete(farmID string) error {
	result, err := r.db.Exec("DELETE FROM crop_insurance_policies WHERE farm_id = ?", farmID)
	if err != nil {
		return fmt.Errorf("failed to delete policy for farm %s: %w", farmID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewNotFound("policy", farmID)
	}
	return nil
}
