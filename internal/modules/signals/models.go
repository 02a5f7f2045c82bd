// Package signals implements the grain marketing signal engine: threshold
// evaluation, deduplicated persistence, and batch generation across
// businesses.
package signals

import (
	"github.com/grainwise/grainwise/internal/domain"
)

// MarketingSignal is a stored recommendation for one business, tool, and
// commodity. Created by the generation pass; mutated on view/dismiss/act;
// flipped to EXPIRED by the expiration sweep.
type MarketingSignal struct {
	ID                 string              `json:"id"`
	BusinessID         string              `json:"business_id"`
	SignalType         domain.SignalType   `json:"signal_type"`
	Commodity          domain.Commodity    `json:"commodity"`
	Strength           domain.Strength     `json:"strength"`
	Status             domain.SignalStatus `json:"status"`
	CurrentPrice       float64             `json:"current_price"`
	BreakEvenPrice     float64             `json:"break_even_price"`
	Margin             float64             `json:"margin"`
	PctMargin          float64             `json:"pct_margin"`
	RecommendedBushels *int64              `json:"recommended_bushels,omitempty"`
	Title              string              `json:"title"`
	Summary            string              `json:"summary"`
	Rationale          string              `json:"rationale"`
	RecommendedAction  string              `json:"recommended_action"`
	Narrative          *string             `json:"narrative,omitempty"`
	ExpiresAt          int64               `json:"expires_at"`
	ViewedAt           *int64              `json:"viewed_at,omitempty"`
	DismissedAt        *int64              `json:"dismissed_at,omitempty"`
	ActedAt            *int64              `json:"acted_at,omitempty"`
	CreatedAt          int64               `json:"created_at"`
	UpdatedAt          int64               `json:"updated_at"`
}

// ActionRequest is the POST body recording that a user acted on a signal.
type ActionRequest struct {
	UserID  string `json:"user_id"`
	Bushels int64  `json:"bushels"`
}

// AccumulatorPosition is the slice of an open accumulator contract the
// evaluator needs for barrier monitoring.
type AccumulatorPosition struct {
	ContractID      string
	KnockoutBarrier *float64
	DoubleUpBarrier *float64
	KnockoutReached bool
}

// GenerationItem is the outcome of evaluating one (business, commodity,
// tool) triple during a generation pass.
type GenerationItem struct {
	BusinessID string            `json:"business_id"`
	Commodity  domain.Commodity  `json:"commodity"`
	SignalType domain.SignalType `json:"signal_type"`
	SignalID   string            `json:"signal_id,omitempty"`
	Created    bool              `json:"created"`
	Updated    bool              `json:"updated"`
	Suppressed bool              `json:"suppressed"`
	Error      string            `json:"error,omitempty"`
}

// GenerationReport summarizes one full generation pass. One item's
// failure never aborts the batch; tests assert partial-failure behavior
// through this type instead of scraping logs.
type GenerationReport struct {
	StartedAt  int64            `json:"started_at"`
	DurationMs int64            `json:"duration_ms"`
	Businesses int              `json:"businesses"`
	Items      []GenerationItem `json:"items"`
}

// Counts tallies the report by outcome.
func (r *GenerationReport) Counts() (created, updated, suppressed, failed int) {
	for _, item := range r.Items {
		switch {
		case item.Error != "":
			failed++
		case item.Created:
			created++
		case item.Updated:
			updated++
		case item.Suppressed:
			suppressed++
		}
	}
	return
}
