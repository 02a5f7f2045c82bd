package marketdata

import (
	"context"
	"fmt"

	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/pkg/formulas"
	"github.com/rs/zerolog"
)

// Snapshot bundles everything the threshold evaluator needs to know about
// one commodity's market right now.
type Snapshot struct {
	Commodity       domain.Commodity
	FuturesPrice    float64
	Basis           float64 // local cash minus nearby futures
	CashPrice       float64 // futures + basis
	Trend           formulas.TrendDirection
	RSI             *float64
	BasisPercentile *float64 // fraction (0-100) of trailing obs below current
	Volatility      *formulas.VolatilityRegime
}

// SnapshotService builds market snapshots from the provider client.
type SnapshotService struct {
	client *Client
	log    zerolog.Logger
}

// NewSnapshotService creates a snapshot service.
func NewSnapshotService(client *Client, log zerolog.Logger) *SnapshotService {
	return &SnapshotService{
		client: client,
		log:    log.With().Str("service", "market_snapshot").Logger(),
	}
}

// historyDays covers the 50-day SMA plus warmup for RSI.
const historyDays = 90

// SnapshotFor assembles a snapshot for one commodity.
// Trend indicators are best-effort: a missing history series leaves RSI
// nil and the trend NEUTRAL rather than failing the snapshot.
func (s *SnapshotService) SnapshotFor(ctx context.Context, commodity domain.Commodity) (*Snapshot, error) {
	symbol := commodity.FuturesSymbol()
	if symbol == "" {
		return nil, fmt.Errorf("no futures symbol for commodity %s", commodity)
	}

	quotes, err := s.client.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	quote, ok := quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("provider returned no quote for %s", symbol)
	}

	basis, err := s.client.GetBasis(ctx, commodity)
	if err != nil {
		return nil, fmt.Errorf("failed to get basis for %s: %w", commodity, err)
	}

	snap := &Snapshot{
		Commodity:    commodity,
		FuturesPrice: quote.Close,
		Basis:        basis.Current,
		CashPrice:    quote.Close + basis.Current,
		Trend:        formulas.TrendNeutral,
	}

	snap.BasisPercentile = formulas.BasisPercentile(basis.History, basis.Current)

	closes, err := s.client.GetPriceHistory(ctx, symbol, historyDays)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("No price history, trend indicators unavailable")
		return snap, nil
	}

	snap.RSI = formulas.CalculateRSI(closes, 14)
	snap.Trend = formulas.DetectTrend(closes, 20, 50)
	if vol := formulas.AnnualizedVolatility(closes); vol != nil {
		regime := formulas.ClassifyVolatility(*vol)
		snap.Volatility = &regime
	}

	return snap, nil
}
