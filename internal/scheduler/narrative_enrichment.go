package scheduler

import (
	"context"
	"time"

	"github.com/grainwise/grainwise/internal/modules/signals"
	"github.com/rs/zerolog"
)

// NarrativeEnrichmentJob attaches LLM narratives to signals that are
// missing one. Runs every 10 minutes regardless of market hours; the
// signals it works through were created earlier.
type NarrativeEnrichmentJob struct {
	enricher *signals.Enricher
	timeout  time.Duration
	log      zerolog.Logger
}

// NewNarrativeEnrichmentJob creates a new narrative enrichment job
func NewNarrativeEnrichmentJob(enricher *signals.Enricher, log zerolog.Logger) *NarrativeEnrichmentJob {
	return &NarrativeEnrichmentJob{
		enricher: enricher,
		timeout:  8 * time.Minute,
		log:      log.With().Str("job", "narrative_enrichment").Logger(),
	}
}

// Name returns the job name
func (j *NarrativeEnrichmentJob) Name() string {
	return "narrative_enrichment"
}

// Run enriches pending signals.
func (j *NarrativeEnrichmentJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	enriched, err := j.enricher.EnrichPending(ctx)
	if err != nil {
		return err
	}
	if enriched > 0 {
		j.log.Info().Int("enriched", enriched).Msg("Narrative enrichment completed")
	}
	return nil
}
