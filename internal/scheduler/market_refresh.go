package scheduler

import (
	"context"
	"time"

	"github.com/grainwise/grainwise/internal/clients/marketdata"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/markethours"
	"github.com/rs/zerolog"
)

// MarketRefreshJob warms the quote and basis caches for every
// commodity. Runs every 15 minutes but only while the grain markets
// are trading.
type MarketRefreshJob struct {
	snapshots   *marketdata.SnapshotService
	marketHours *markethours.Service
	timeout     time.Duration
	log         zerolog.Logger
}

// NewMarketRefreshJob creates a new market refresh job
func NewMarketRefreshJob(snapshots *marketdata.SnapshotService, marketHours *markethours.Service, log zerolog.Logger) *MarketRefreshJob {
	return &MarketRefreshJob{
		snapshots:   snapshots,
		marketHours: marketHours,
		timeout:     2 * time.Minute,
		log:         log.With().Str("job", "market_refresh").Logger(),
	}
}

// Name returns the job name
func (j *MarketRefreshJob) Name() string {
	return "market_refresh"
}

// Run refreshes snapshots for all commodities during market hours.
func (j *MarketRefreshJob) Run() error {
	if !j.marketHours.IsMarketOpen(time.Now()) {
		j.log.Debug().Msg("Market closed, skipping refresh")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	// Per-commodity failures are logged and the rest still refresh.
	for _, commodity := range domain.AllCommodities {
		if _, err := j.snapshots.SnapshotFor(ctx, commodity); err != nil {
			j.log.Error().Err(err).Str("commodity", string(commodity)).Msg("Failed to refresh market snapshot")
		}
	}
	return nil
}
