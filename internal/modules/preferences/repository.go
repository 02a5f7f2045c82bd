package preferences

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles marketing preference rows in farm.db.
// There is exactly one row per business; GetOrCreate inserts the defaults
// on first read so callers never see a missing row.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new preferences repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "preferences").Logger(),
	}
}

// GetOrCreate returns the preferences for a business, inserting the
// defaults if none exist yet.
func (r *Repository) GetOrCreate(businessID string) (*Preferences, error) {
	prefs, err := r.get(businessID)
	if err != nil {
		return nil, err
	}
	if prefs != nil {
		return prefs, nil
	}

	defaults := Defaults(businessID)
	now := time.Now().Unix()
	defaults.CreatedAt = now
	defaults.UpdatedAt = now

	if err := r.insert(&defaults); err != nil {
		// Concurrent first read may have inserted already; re-read wins.
		if existing, readErr := r.get(businessID); readErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	r.log.Info().Str("business_id", businessID).Msg("Created default marketing preferences")
	return &defaults, nil
}

// Update applies an update request and returns the new state.
func (r *Repository) Update(businessID string, update *UpdateRequest) (*Preferences, error) {
	prefs, err := r.GetOrCreate(businessID)
	if err != nil {
		return nil, err
	}

	if update.RiskTolerance != nil {
		prefs.RiskTolerance = *update.RiskTolerance
	}
	if update.TargetProfitMargin != nil {
		prefs.TargetProfitMargin = *update.TargetProfitMargin
	}
	if update.MinAboveBreakEven != nil {
		prefs.MinAboveBreakEven = *update.MinAboveBreakEven
	}
	if update.Commodities != nil {
		prefs.Commodities = update.Commodities
	}
	if update.SignalTypes != nil {
		prefs.SignalTypes = update.SignalTypes
	}
	prefs.SchemaVersion = SchemaVersion
	prefs.UpdatedAt = time.Now().Unix()

	commodities, err := json.Marshal(prefs.Commodities)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal commodities: %w", err)
	}
	signalTypes, err := json.Marshal(prefs.SignalTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signal types: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE marketing_preferences
		SET schema_version = ?, risk_tolerance = ?, target_profit_margin = ?,
		    min_above_break_even = ?, commodities = ?, signal_types = ?, updated_at = ?
		WHERE business_id = ?
	`, prefs.SchemaVersion, prefs.RiskTolerance, prefs.TargetProfitMargin,
		prefs.MinAboveBreakEven, string(commodities), string(signalTypes),
		prefs.UpdatedAt, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences for %s: %w", businessID, err)
	}

	return prefs, nil
}

// ListBusinessIDs returns every business that has a preferences row.
// The orchestrator iterates this to know who gets signals.
func (r *Repository) ListBusinessIDs() ([]string, error) {
	rows, err := r.db.Query("SELECT business_id FROM marketing_preferences ORDER BY business_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan business id")
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) get(businessID string) (*Preferences, error) {
	var prefs Preferences
	var commodities, signalTypes string

	err := r.db.QueryRow(`
		SELECT business_id, schema_version, risk_tolerance, target_profit_margin,
		       min_above_break_even, commodities, signal_types, created_at, updated_at
		FROM marketing_preferences
		WHERE business_id = ?
	`, businessID).Scan(
		&prefs.BusinessID, &prefs.SchemaVersion, &prefs.RiskTolerance,
		&prefs.TargetProfitMargin, &prefs.MinAboveBreakEven,
		&commodities, &signalTypes, &prefs.CreatedAt, &prefs.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences for %s: %w", businessID, err)
	}

	if err := json.Unmarshal([]byte(commodities), &prefs.Commodities); err != nil {
		return nil, fmt.Errorf("corrupt commodities JSON for %s: %w", businessID, err)
	}
	if err := json.Unmarshal([]byte(signalTypes), &prefs.SignalTypes); err != nil {
		return nil, fmt.Errorf("corrupt signal types JSON for %s: %w", businessID, err)
	}

	return &prefs, nil
}

func (r *Repository) insert(prefs *Preferences) error {
	commodities, err := json.Marshal(prefs.Commodities)
	if err != nil {
		return fmt.Errorf("failed to marshal commodities: %w", err)
	}
	signalTypes, err := json.Marshal(prefs.SignalTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal signal types: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO marketing_preferences
			(business_id, schema_version, risk_tolerance, target_profit_margin,
			 min_above_break_even, commodities, signal_types, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, prefs.BusinessID, prefs.SchemaVersion, prefs.RiskTolerance,
		prefs.TargetProfitMargin, prefs.MinAboveBreakEven,
		string(commodities), string(signalTypes), prefs.CreatedAt, prefs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert preferences for %s: %w", prefs.BusinessID, err)
	}
	return nil
}

// EnabledFor reports whether a commodity and signal type are both enabled.
func (p *Preferences) EnabledFor(commodity domain.Commodity, signalType domain.SignalType) bool {
	hasCommodity := false
	for _, c := range p.Commodities {
		if c == commodity {
			hasCommodity = true
			break
		}
	}
	if !hasCommodity {
		return false
	}
	for _, st := range p.SignalTypes {
		if st == signalType {
			return true
		}
	}
	return false
}
