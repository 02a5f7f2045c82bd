package scheduler

import (
	"context"
	"time"

	"github.com/grainwise/grainwise/internal/markethours"
	"github.com/grainwise/grainwise/internal/modules/signals"
	"github.com/rs/zerolog"
)

// SignalGenerationJob evaluates marketing thresholds for every
// business. Runs hourly during market hours.
type SignalGenerationJob struct {
	signals     *signals.Service
	marketHours *markethours.Service
	timeout     time.Duration
	log         zerolog.Logger
}

// NewSignalGenerationJob creates a new signal generation job
func NewSignalGenerationJob(signalService *signals.Service, marketHours *markethours.Service, log zerolog.Logger) *SignalGenerationJob {
	return &SignalGenerationJob{
		signals:     signalService,
		marketHours: marketHours,
		timeout:     5 * time.Minute,
		log:         log.With().Str("job", "signal_generation").Logger(),
	}
}

// Name returns the job name
func (j *SignalGenerationJob) Name() string {
	return "signal_generation"
}

// Run generates signals for all businesses during market hours.
func (j *SignalGenerationJob) Run() error {
	if !j.marketHours.IsMarketOpen(time.Now()) {
		j.log.Debug().Msg("Market closed, skipping signal generation")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.signals.GenerateAll(ctx)
	if err != nil {
		return err
	}

	created, updated, suppressed, failed := report.Counts()
	j.log.Info().
		Int("businesses", report.Businesses).
		Int("created", created).
		Int("updated", updated).
		Int("suppressed", suppressed).
		Int("failed", failed).
		Int64("duration_ms", report.DurationMs).
		Msg("Signal generation completed")

	return nil
}
