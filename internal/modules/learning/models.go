// Package learning maintains per-user marketing profiles: running
// statistics over recorded decisions that personalize the signal
// engine's thresholds.
package learning

import (
	"github.com/grainwise/grainwise/internal/domain"
)

// Window buckets the calendar into sell-timing thirds.
type Window string

const (
	WindowEarly Window = "EARLY" // Jan-Apr
	WindowMid   Window = "MID"   // May-Aug
	WindowLate  Window = "LATE"  // Sep-Dec
)

// Decision is one recorded grain sale triggered from a signal.
type Decision struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	BusinessID    string            `json:"business_id"`
	Commodity     domain.Commodity  `json:"commodity"`
	SignalType    domain.SignalType `json:"signal_type"`
	PctAboveBE    float64           `json:"pct_above_break_even"`
	Bushels       int64             `json:"bushels"`
	ResponseHours *float64          `json:"response_hours,omitempty"`
	DecidedAt     int64             `json:"decided_at"`
}

// Profile is the learned picture of one user's marketing behavior.
// Recomputed after each recorded decision once enough history exists.
type Profile struct {
	UserID           string             `json:"user_id"`
	BusinessID       string             `json:"business_id"`
	LearnedRiskScore int                `json:"learned_risk_score"` // 0-100, higher = more aggressive
	AvgPctAboveBE    float64            `json:"avg_pct_above_be"`
	PreferredWindow  Window             `json:"preferred_window"`
	DecisionCount    int                `json:"decision_count"`
	ActRate          float64            `json:"act_rate"`
	AvgResponseHours float64            `json:"avg_response_hours"`
	CommodityUsage   map[string]float64 `json:"commodity_usage"` // frequency ratios
	ToolUsage        map[string]float64 `json:"tool_usage"`
	ConfidenceScore  int                `json:"confidence_score"` // saturates at 20 decisions
	UpdatedAt        int64              `json:"updated_at"`
}

// LearnedThreshold is a personalized cutoff pair for one (user,
// commodity, tool) triple.
type LearnedThreshold struct {
	UserID             string            `json:"user_id"`
	Commodity          domain.Commodity  `json:"commodity"`
	SignalType         domain.SignalType `json:"signal_type"`
	BuyThreshold       float64           `json:"buy_threshold"`
	StrongBuyThreshold float64           `json:"strong_buy_threshold"`
	DataPoints         int               `json:"data_points"`
	UpdatedAt          int64             `json:"updated_at"`
}

// History thresholds: overrides apply only past these decision counts.
const (
	minDecisionsForProfile   = 5
	minDecisionsForCommodity = 3
)
