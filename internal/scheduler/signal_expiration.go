package scheduler

import (
	"github.com/grainwise/grainwise/internal/modules/signals"
	"github.com/rs/zerolog"
)

// SignalExpirationJob flips stale ACTIVE signals to EXPIRED. Runs
// hourly.
type SignalExpirationJob struct {
	signals *signals.Service
	log     zerolog.Logger
}

// NewSignalExpirationJob creates a new signal expiration job
func NewSignalExpirationJob(signalService *signals.Service, log zerolog.Logger) *SignalExpirationJob {
	return &SignalExpirationJob{
		signals: signalService,
		log:     log.With().Str("job", "signal_expiration").Logger(),
	}
}

// Name returns the job name
func (j *SignalExpirationJob) Name() string {
	return "signal_expiration"
}

// Run expires stale signals.
func (j *SignalExpirationJob) Run() error {
	expired, err := j.signals.ExpireSweep()
	if err != nil {
		return err
	}
	if expired > 0 {
		j.log.Info().Int64("expired", expired).Msg("Expired stale signals")
	}
	return nil
}
