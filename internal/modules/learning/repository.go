package learning

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles decisions, profiles, and learned thresholds in
// farm.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new learning repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "learning").Logger(),
	}
}

// InsertDecision records one decision. This is the primary write that
// triggers a profile recompute.
func (r *Repository) InsertDecision(d *Decision) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.DecidedAt == 0 {
		d.DecidedAt = time.Now().Unix()
	}

	_, err := r.db.Exec(`
		INSERT INTO marketing_decisions
			(id, user_id, business_id, commodity, signal_type,
			 pct_above_break_even, bushels, response_hours, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.UserID, d.BusinessID, d.Commodity, d.SignalType,
		d.PctAboveBE, d.Bushels, d.ResponseHours, d.DecidedAt)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// DecisionsForUser returns a user's full decision history, oldest first.
func (r *Repository) DecisionsForUser(userID string) ([]Decision, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, business_id, commodity, signal_type,
		       pct_above_break_even, bushels, response_hours, decided_at
		FROM marketing_decisions
		WHERE user_id = ?
		ORDER BY decided_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions for %s: %w", userID, err)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.UserID, &d.BusinessID, &d.Commodity, &d.SignalType,
			&d.PctAboveBE, &d.Bushels, &d.ResponseHours, &d.DecidedAt); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan decision row")
			continue
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// SignalCountForBusiness counts how many signals a business has ever
// been shown, the denominator of the act rate.
func (r *Repository) SignalCountForBusiness(businessID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM marketing_signals WHERE business_id = ?", businessID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count signals: %w", err)
	}
	return count, nil
}

// SaveProfile upserts a user's profile.
func (r *Repository) SaveProfile(p *Profile) error {
	commodityUsage, err := json.Marshal(p.CommodityUsage)
	if err != nil {
		return fmt.Errorf("failed to marshal commodity usage: %w", err)
	}
	toolUsage, err := json.Marshal(p.ToolUsage)
	if err != nil {
		return fmt.Errorf("failed to marshal tool usage: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO user_marketing_profiles
			(user_id, business_id, learned_risk_score, avg_pct_above_be, preferred_window,
			 decision_count, act_rate, avg_response_hours, commodity_usage, tool_usage,
			 confidence_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			business_id = excluded.business_id,
			learned_risk_score = excluded.learned_risk_score,
			avg_pct_above_be = excluded.avg_pct_above_be,
			preferred_window = excluded.preferred_window,
			decision_count = excluded.decision_count,
			act_rate = excluded.act_rate,
			avg_response_hours = excluded.avg_response_hours,
			commodity_usage = excluded.commodity_usage,
			tool_usage = excluded.tool_usage,
			confidence_score = excluded.confidence_score,
			updated_at = excluded.updated_at
	`, p.UserID, p.BusinessID, p.LearnedRiskScore, p.AvgPctAboveBE, p.PreferredWindow,
		p.DecisionCount, p.ActRate, p.AvgResponseHours, string(commodityUsage), string(toolUsage),
		p.ConfidenceScore, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save profile for %s: %w", p.UserID, err)
	}
	return nil
}

// GetProfile fetches a user's profile.
func (r *Repository) GetProfile(userID string) (*Profile, error) {
	var p Profile
	var commodityUsage, toolUsage string

	err := r.db.QueryRow(`
		SELECT user_id, business_id, learned_risk_score, avg_pct_above_be, preferred_window,
		       decision_count, act_rate, avg_response_hours, commodity_usage, tool_usage,
		       confidence_score, updated_at
		FROM user_marketing_profiles
		WHERE user_id = ?
	`, userID).Scan(
		&p.UserID, &p.BusinessID, &p.LearnedRiskScore, &p.AvgPctAboveBE, &p.PreferredWindow,
		&p.DecisionCount, &p.ActRate, &p.AvgResponseHours, &commodityUsage, &toolUsage,
		&p.ConfidenceScore, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("profile", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile for %s: %w", userID, err)
	}

	if err := json.Unmarshal([]byte(commodityUsage), &p.CommodityUsage); err != nil {
		return nil, fmt.Errorf("corrupt commodity usage JSON for %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(toolUsage), &p.ToolUsage); err != nil {
		return nil, fmt.Errorf("corrupt tool usage JSON for %s: %w", userID, err)
	}
	return &p, nil
}

// SaveThresholds replaces a user's learned threshold rows.
func (r *Repository) SaveThresholds(userID string, thresholds []LearnedThreshold) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin threshold save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM learned_thresholds WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear thresholds for %s: %w", userID, err)
	}

	for _, th := range thresholds {
		_, err := tx.Exec(`
			INSERT INTO learned_thresholds
				(user_id, commodity, signal_type, buy_threshold, strong_buy_threshold,
				 data_points, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, th.UserID, th.Commodity, th.SignalType, th.BuyThreshold, th.StrongBuyThreshold,
			th.DataPoints, th.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert threshold: %w", err)
		}
	}

	return tx.Commit()
}

// GetThreshold fetches one learned threshold row, nil when none exists.
func (r *Repository) GetThreshold(userID string, commodity domain.Commodity, signalType domain.SignalType) (*LearnedThreshold, error) {
	var th LearnedThreshold
	err := r.db.QueryRow(`
		SELECT user_id, commodity, signal_type, buy_threshold, strong_buy_threshold,
		       data_points, updated_at
		FROM learned_thresholds
		WHERE user_id = ? AND commodity = ? AND signal_type = ?
	`, userID, commodity, signalType).Scan(
		&th.UserID, &th.Commodity, &th.SignalType, &th.BuyThreshold, &th.StrongBuyThreshold,
		&th.DataPoints, &th.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get threshold: %w", err)
	}
	return &th, nil
}

// OwnerUserID resolves a business to its owner, who carries the learned
// profile. Empty string when the business is unknown.
func (r *Repository) OwnerUserID(businessID string) (string, error) {
	var userID string
	err := r.db.QueryRow("SELECT owner_user_id FROM businesses WHERE id = ?", businessID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve business owner: %w", err)
	}
	return userID, nil
}
