package narrative

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
)

// Request carries the signal fields a narrative is assembled from.
type Request struct {
	AnalysisType    AnalysisType
	Commodity       domain.Commodity
	SignalType      domain.SignalType
	Strength        domain.Strength
	CurrentPrice    float64
	BreakEvenPrice  float64
	PctMargin       float64
	RecommendedText string
}

// Service generates narrative text for signals.
// Calls are sequential with a fixed delay to respect provider rate limits;
// failures degrade to canned templates and are never returned as errors.
type Service struct {
	client    LLMClient
	callDelay time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewService creates a narrative service. client may be nil, in which
// case every request gets the canned fallback.
func NewService(client LLMClient, log zerolog.Logger) *Service {
	return &Service{
		client:    client,
		callDelay: 2 * time.Second,
		log:       log.With().Str("service", "narrative").Logger(),
	}
}

const systemPrompt = "You are a grain marketing advisor writing for a farmer. " +
	"Be concrete and brief. Structure your answer with the labeled sections " +
	"SUMMARY:, RECOMMENDATIONS:, RISK_ASSESSMENT: and ACTION_ITEMS:, each on its own line."

// Generate produces narrative text for a request.
// The returned ParseResult always carries usable text: model output when
// the call succeeded, the canned template otherwise.
func (s *Service) Generate(ctx context.Context, req Request) ParseResult {
	fallback := FallbackNarrative(req.AnalysisType, req.Commodity, req.Strength)

	if s.client == nil {
		return Parse(fallback)
	}

	s.throttle()

	raw, err := s.client.Complete(ctx, systemPrompt, s.buildPrompt(req))
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("commodity", string(req.Commodity)).
			Str("signal_type", string(req.SignalType)).
			Msg("LLM call failed, using canned narrative")
		return Parse(fallback)
	}

	result := Parse(raw)
	if result.Structured == nil {
		// Unparseable output is still useful raw text; keep it, but log so
		// prompt drift is visible.
		s.log.Debug().
			Str("commodity", string(req.Commodity)).
			Msg("Narrative output had no labeled sections, keeping raw text")
	}
	return result
}

// buildPrompt assembles the user prompt from signal fields.
func (s *Service) buildPrompt(req Request) string {
	return fmt.Sprintf(
		"Commodity: %s\nMarketing tool: %s\nSignal strength: %s\n"+
			"Current cash price: $%.2f/bu\nBreak-even: $%.2f/bu\nMargin above break-even: %.1f%%\n"+
			"Recommendation: %s\n\n"+
			"Explain why this is (or is not) a good moment to price grain, in plain language.",
		req.Commodity, req.SignalType, req.Strength,
		req.CurrentPrice, req.BreakEvenPrice, req.PctMargin*100,
		req.RecommendedText,
	)
}

// throttle enforces the fixed delay between consecutive LLM calls.
// Concurrent callers serialize here so the provider never sees two
// calls closer together than callDelay.
func (s *Service) throttle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastCall.IsZero() {
		if wait := s.callDelay - time.Since(s.lastCall); wait > 0 {
			time.Sleep(wait)
		}
	}
	s.lastCall = time.Now()
}
