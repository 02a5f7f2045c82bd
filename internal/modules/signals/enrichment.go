package signals

import (
	"context"

	"github.com/grainwise/grainwise/internal/narrative"
	"github.com/rs/zerolog"
)

// NarrativeGenerator produces narrative text for a signal. Satisfied by
// narrative.Service; tests substitute a stub.
type NarrativeGenerator interface {
	Generate(ctx context.Context, req narrative.Request) narrative.ParseResult
}

// enrichmentBatchSize bounds how many signals one enrichment pass
// touches. LLM calls are sequential and rate-limited, so a large backlog
// drains over several ticks instead of blocking one.
const enrichmentBatchSize = 10

// Enricher attaches narrative text to signals that lack it.
type Enricher struct {
	repo *Repository
	gen  NarrativeGenerator
	log  zerolog.Logger
}

// NewEnricher creates an enrichment pass over the signals repository.
func NewEnricher(repo *Repository, gen NarrativeGenerator, log zerolog.Logger) *Enricher {
	return &Enricher{
		repo: repo,
		gen:  gen,
		log:  log.With().Str("service", "signal_enrichment").Logger(),
	}
}

// EnrichPending generates and stores narratives for ACTIVE signals
// missing one. Returns how many signals were enriched. A generation
// failure for one signal is logged and skipped, never propagated.
func (e *Enricher) EnrichPending(ctx context.Context) (int, error) {
	pending, err := e.repo.ListMissingNarrative(enrichmentBatchSize)
	if err != nil {
		return 0, err
	}

	enriched := 0
	for _, signal := range pending {
		if ctx.Err() != nil {
			return enriched, ctx.Err()
		}

		result := e.gen.Generate(ctx, narrative.Request{
			AnalysisType:    narrative.AnalysisSignalRationale,
			Commodity:       signal.Commodity,
			SignalType:      signal.SignalType,
			Strength:        signal.Strength,
			CurrentPrice:    signal.CurrentPrice,
			BreakEvenPrice:  signal.BreakEvenPrice,
			PctMargin:       signal.PctMargin,
			RecommendedText: signal.RecommendedAction,
		})

		if err := e.repo.AttachNarrative(signal.ID, result.Raw); err != nil {
			e.log.Warn().Err(err).Str("signal_id", signal.ID).Msg("Failed to store narrative")
			continue
		}
		enriched++
	}

	if enriched > 0 {
		e.log.Info().Int("enriched", enriched).Msg("Narrative enrichment pass complete")
	}
	return enriched, nil
}
