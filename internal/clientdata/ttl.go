package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Short-lived data (changes while markets trade)
	TTLQuote = 10 * time.Minute // Current price cache for batch operations

	// Daily data
	TTLPriceHistory = 24 * time.Hour // Trailing close series for trend indicators
	TTLBasisHistory = 24 * time.Hour // Trailing-12-month local basis observations

	// Narratives are regenerated when the underlying signal changes
	TTLNarrative = 7 * 24 * time.Hour
)
