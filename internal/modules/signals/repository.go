package signals

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
)

// dedupeWindow bounds how far back the duplicate check looks. At most
// one ACTIVE signal per (business, type, commodity) exists within it.
const dedupeWindow = 24 * time.Hour

// signalTTL is how long a freshly generated signal stays ACTIVE before
// the expiration sweep retires it.
const signalTTL = 7 * 24 * time.Hour

// Repository handles marketing signal rows in farm.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new signals repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "signals").Logger(),
	}
}

const signalColumns = `id, business_id, signal_type, commodity, strength, status,
	current_price, break_even_price, margin, pct_margin, recommended_bushels,
	title, summary, rationale, recommended_action, narrative,
	expires_at, viewed_at, dismissed_at, acted_at, created_at, updated_at`

// SaveWithDedupe persists a newly evaluated signal, honoring the
// duplicate-suppression invariant: an ACTIVE signal of the same
// (business, type, commodity) created within the window is either
// returned unmodified (same strength) or updated in place (strength
// changed). Otherwise a new row is inserted.
func (r *Repository) SaveWithDedupe(signal *MarketingSignal) (stored *MarketingSignal, created bool, updated bool, err error) {
	now := time.Now()

	existing, err := r.findRecentActive(signal.BusinessID, signal.SignalType, signal.Commodity, now.Add(-dedupeWindow).Unix())
	if err != nil {
		return nil, false, false, err
	}

	if existing != nil {
		if existing.Strength == signal.Strength {
			return existing, false, false, nil
		}
		if err := r.updateInPlace(existing.ID, signal, now.Unix()); err != nil {
			return nil, false, false, err
		}
		refreshed, err := r.GetByID(existing.ID)
		if err != nil {
			return nil, false, false, err
		}
		r.log.Info().
			Str("signal_id", existing.ID).
			Str("old_strength", string(existing.Strength)).
			Str("new_strength", string(signal.Strength)).
			Msg("Updated signal strength in place")
		return refreshed, false, true, nil
	}

	signal.ID = uuid.New().String()
	signal.Status = domain.StatusActive
	signal.CreatedAt = now.Unix()
	signal.UpdatedAt = now.Unix()
	signal.ExpiresAt = now.Add(signalTTL).Unix()

	_, err = r.db.Exec(`
		INSERT INTO marketing_signals
			(id, business_id, signal_type, commodity, strength, status,
			 current_price, break_even_price, margin, pct_margin, recommended_bushels,
			 title, summary, rationale, recommended_action,
			 expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, signal.ID, signal.BusinessID, signal.SignalType, signal.Commodity,
		signal.Strength, signal.Status,
		signal.CurrentPrice, signal.BreakEvenPrice, signal.Margin, signal.PctMargin,
		signal.RecommendedBushels,
		signal.Title, signal.Summary, signal.Rationale, signal.RecommendedAction,
		signal.ExpiresAt, signal.CreatedAt, signal.UpdatedAt)
	if err != nil {
		return nil, false, false, fmt.Errorf("failed to insert signal: %w", err)
	}

	return signal, true, false, nil
}

// updateInPlace overwrites the evaluation fields of an existing signal.
// The narrative is cleared so enrichment regenerates it for the new
// strength.
func (r *Repository) updateInPlace(id string, signal *MarketingSignal, now int64) error {
	_, err := r.db.Exec(`
		UPDATE marketing_signals
		SET strength = ?, current_price = ?, break_even_price = ?, margin = ?,
		    pct_margin = ?, recommended_bushels = ?, title = ?, summary = ?,
		    rationale = ?, recommended_action = ?, narrative = NULL, updated_at = ?
		WHERE id = ?
	`, signal.Strength, signal.CurrentPrice, signal.BreakEvenPrice, signal.Margin,
		signal.PctMargin, signal.RecommendedBushels, signal.Title, signal.Summary,
		signal.Rationale, signal.RecommendedAction, now, id)
	if err != nil {
		return fmt.Errorf("failed to update signal %s: %w", id, err)
	}
	return nil
}

func (r *Repository) findRecentActive(businessID string, signalType domain.SignalType, commodity domain.Commodity, since int64) (*MarketingSignal, error) {
	row := r.db.QueryRow(`
		SELECT `+signalColumns+`
		FROM marketing_signals
		WHERE business_id = ? AND signal_type = ? AND commodity = ?
		  AND status = 'ACTIVE' AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1
	`, businessID, signalType, commodity, since)

	signal, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recent signal: %w", err)
	}
	return signal, nil
}

// GetByID fetches a signal by id.
func (r *Repository) GetByID(id string) (*MarketingSignal, error) {
	row := r.db.QueryRow(`SELECT `+signalColumns+` FROM marketing_signals WHERE id = ?`, id)

	signal, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("signal", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal %s: %w", id, err)
	}
	return signal, nil
}

// ListForBusiness returns a business's signals, optionally filtered by
// status, newest first.
func (r *Repository) ListForBusiness(businessID string, status *domain.SignalStatus) ([]*MarketingSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM marketing_signals WHERE business_id = ?`
	args := []interface{}{businessID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	defer rows.Close()

	var signals []*MarketingSignal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan signal row")
			continue
		}
		signals = append(signals, signal)
	}
	return signals, rows.Err()
}

// MarkViewed stamps viewed_at the first time a signal is seen.
func (r *Repository) MarkViewed(id string) error {
	now := time.Now().Unix()
	result, err := r.db.Exec(`
		UPDATE marketing_signals
		SET viewed_at = COALESCE(viewed_at, ?), updated_at = ?
		WHERE id = ?
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark signal %s viewed: %w", id, err)
	}
	return notFoundIfNoRows(result, id)
}

// Dismiss moves an ACTIVE signal to DISMISSED.
func (r *Repository) Dismiss(id string) error {
	now := time.Now().Unix()
	result, err := r.db.Exec(`
		UPDATE marketing_signals
		SET status = 'DISMISSED', dismissed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'ACTIVE'
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to dismiss signal %s: %w", id, err)
	}
	return notFoundIfNoRows(result, id)
}

// MarkTriggered moves an ACTIVE signal to TRIGGERED after the user acted
// on it.
func (r *Repository) MarkTriggered(id string) error {
	now := time.Now().Unix()
	result, err := r.db.Exec(`
		UPDATE marketing_signals
		SET status = 'TRIGGERED', acted_at = ?, updated_at = ?
		WHERE id = ? AND status = 'ACTIVE'
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark signal %s triggered: %w", id, err)
	}
	return notFoundIfNoRows(result, id)
}

// ExpireSweep flips every ACTIVE signal past its expiry to EXPIRED and
// returns how many rows changed.
func (r *Repository) ExpireSweep(now time.Time) (int64, error) {
	result, err := r.db.Exec(`
		UPDATE marketing_signals
		SET status = 'EXPIRED', updated_at = ?
		WHERE status = 'ACTIVE' AND expires_at < ?
	`, now.Unix(), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to expire signals: %w", err)
	}
	return result.RowsAffected()
}

// AttachNarrative stores generated narrative text on a signal.
func (r *Repository) AttachNarrative(id string, narrative string) error {
	result, err := r.db.Exec(`
		UPDATE marketing_signals
		SET narrative = ?, updated_at = ?
		WHERE id = ?
	`, narrative, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to attach narrative to signal %s: %w", id, err)
	}
	return notFoundIfNoRows(result, id)
}

// ListMissingNarrative returns ACTIVE signals without narrative text,
// oldest first, for the enrichment job.
func (r *Repository) ListMissingNarrative(limit int) ([]*MarketingSignal, error) {
	rows, err := r.db.Query(`
		SELECT `+signalColumns+`
		FROM marketing_signals
		WHERE status = 'ACTIVE' AND narrative IS NULL
		ORDER BY created_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals missing narrative: %w", err)
	}
	defer rows.Close()

	var signals []*MarketingSignal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan signal row")
			continue
		}
		signals = append(signals, signal)
	}
	return signals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row rowScanner) (*MarketingSignal, error) {
	var s MarketingSignal
	err := row.Scan(
		&s.ID, &s.BusinessID, &s.SignalType, &s.Commodity, &s.Strength, &s.Status,
		&s.CurrentPrice, &s.BreakEvenPrice, &s.Margin, &s.PctMargin, &s.RecommendedBushels,
		&s.Title, &s.Summary, &s.Rationale, &s.RecommendedAction, &s.Narrative,
		&s.ExpiresAt, &s.ViewedAt, &s.DismissedAt, &s.ActedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func notFoundIfNoRows(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewNotFound("signal", id)
	}
	return nil
}
