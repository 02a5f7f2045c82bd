package signals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grainwise/grainwise/internal/clients/marketdata"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/preferences"
	"github.com/rs/zerolog"
)

// SnapshotProvider supplies market snapshots per commodity.
type SnapshotProvider interface {
	SnapshotFor(ctx context.Context, commodity domain.Commodity) (*marketdata.Snapshot, error)
}

// CostProvider supplies break-even prices and expected production from
// the business's crop budgets.
type CostProvider interface {
	BreakEven(businessID string, commodity domain.Commodity) (float64, error)
	ExpectedProduction(businessID string, commodity domain.Commodity) (int64, error)
}

// ContractProvider supplies sold-bushel totals and open accumulator
// positions from the contract ledger.
type ContractProvider interface {
	ContractedBushels(businessID string, commodity domain.Commodity) (int64, error)
	OpenAccumulators(businessID string, commodity domain.Commodity) ([]AccumulatorPosition, error)
}

// ThresholdProvider supplies BUY/STRONG_BUY cutoffs, personalized where
// enough decision history exists and defaults otherwise.
type ThresholdProvider interface {
	ThresholdsFor(businessID string, commodity domain.Commodity, signalType domain.SignalType) Thresholds
}

// DecisionRecorder persists a user's marketing decision and kicks off
// the best-effort profile recompute.
type DecisionRecorder interface {
	RecordDecision(userID, businessID string, commodity domain.Commodity, signalType domain.SignalType, pctAboveBE float64, bushels int64, responseHours *float64) error
}

// Service is the signal orchestrator: it walks every business's enabled
// (commodity, tool) pairs, evaluates each against a market snapshot, and
// persists actionable results with duplicate suppression.
type Service struct {
	repo       *Repository
	prefs      *preferences.Repository
	snapshots  SnapshotProvider
	costs      CostProvider
	contracts  ContractProvider
	thresholds ThresholdProvider
	decisions  DecisionRecorder
	log        zerolog.Logger
}

// NewService creates the signal orchestrator.
func NewService(
	repo *Repository,
	prefs *preferences.Repository,
	snapshots SnapshotProvider,
	costs CostProvider,
	contracts ContractProvider,
	thresholds ThresholdProvider,
	decisions DecisionRecorder,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		prefs:      prefs,
		snapshots:  snapshots,
		costs:      costs,
		contracts:  contracts,
		thresholds: thresholds,
		decisions:  decisions,
		log:        log.With().Str("service", "signals").Logger(),
	}
}

// GenerateAll runs one full generation pass over every business.
// Businesses are processed sequentially; one item's failure is recorded
// in the report and never aborts the batch.
func (s *Service) GenerateAll(ctx context.Context) (*GenerationReport, error) {
	started := time.Now()
	report := &GenerationReport{StartedAt: started.Unix()}

	businessIDs, err := s.prefs.ListBusinessIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	report.Businesses = len(businessIDs)

	// Snapshots are shared across businesses within one pass
	snapshotCache := make(map[domain.Commodity]*marketdata.Snapshot)

	for _, businessID := range businessIDs {
		s.generateForBusiness(ctx, businessID, snapshotCache, report)
	}

	report.DurationMs = time.Since(started).Milliseconds()

	created, updated, suppressed, failed := report.Counts()
	s.log.Info().
		Int("businesses", report.Businesses).
		Int("created", created).
		Int("updated", updated).
		Int("suppressed", suppressed).
		Int("failed", failed).
		Int64("duration_ms", report.DurationMs).
		Msg("Signal generation pass complete")

	return report, nil
}

// GenerateForBusiness runs the generation pass for a single business,
// used by the admin trigger endpoint.
func (s *Service) GenerateForBusiness(ctx context.Context, businessID string) (*GenerationReport, error) {
	started := time.Now()
	report := &GenerationReport{StartedAt: started.Unix(), Businesses: 1}

	snapshotCache := make(map[domain.Commodity]*marketdata.Snapshot)
	s.generateForBusiness(ctx, businessID, snapshotCache, report)

	report.DurationMs = time.Since(started).Milliseconds()
	return report, nil
}

func (s *Service) generateForBusiness(ctx context.Context, businessID string, snapshotCache map[domain.Commodity]*marketdata.Snapshot, report *GenerationReport) {
	prefs, err := s.prefs.GetOrCreate(businessID)
	if err != nil {
		report.Items = append(report.Items, GenerationItem{
			BusinessID: businessID,
			Error:      fmt.Sprintf("failed to load preferences: %v", err),
		})
		return
	}

	for _, commodity := range prefs.Commodities {
		snapshot, err := s.snapshotFor(ctx, commodity, snapshotCache)
		if err != nil {
			for _, signalType := range prefs.SignalTypes {
				report.Items = append(report.Items, GenerationItem{
					BusinessID: businessID,
					Commodity:  commodity,
					SignalType: signalType,
					Error:      fmt.Sprintf("market snapshot unavailable: %v", err),
				})
			}
			continue
		}

		for _, signalType := range prefs.SignalTypes {
			item := s.evaluateOne(businessID, commodity, signalType, snapshot, prefs)
			report.Items = append(report.Items, item)
		}
	}
}

func (s *Service) evaluateOne(businessID string, commodity domain.Commodity, signalType domain.SignalType, snapshot *marketdata.Snapshot, prefs *preferences.Preferences) GenerationItem {
	item := GenerationItem{
		BusinessID: businessID,
		Commodity:  commodity,
		SignalType: signalType,
	}

	input, err := s.buildInput(businessID, commodity, signalType, snapshot, prefs)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	if input == nil {
		// Nothing to evaluate, e.g. no open accumulators to monitor
		item.Suppressed = true
		return item
	}

	eval := Evaluate(*input)
	if eval == nil || !eval.Actionable {
		item.Suppressed = true
		return item
	}

	signal := &MarketingSignal{
		BusinessID:         businessID,
		SignalType:         signalType,
		Commodity:          commodity,
		Strength:           eval.Strength,
		CurrentPrice:       snapshot.CashPrice,
		BreakEvenPrice:     input.BreakEven,
		Margin:             snapshot.CashPrice - input.BreakEven,
		PctMargin:          PctMargin(snapshot.CashPrice, input.BreakEven),
		RecommendedBushels: eval.RecommendedBushels,
		Title:              eval.Title,
		Summary:            eval.Summary,
		Rationale:          eval.Rationale,
		RecommendedAction:  eval.RecommendedAction,
	}

	stored, created, updated, err := s.repo.SaveWithDedupe(signal)
	if err != nil {
		item.Error = fmt.Sprintf("failed to persist signal: %v", err)
		return item
	}

	item.SignalID = stored.ID
	item.Created = created
	item.Updated = updated
	item.Suppressed = !created && !updated
	return item
}

// buildInput assembles the evaluator input for one triple. A nil input
// with nil error means there is nothing to evaluate for this tool.
func (s *Service) buildInput(businessID string, commodity domain.Commodity, signalType domain.SignalType, snapshot *marketdata.Snapshot, prefs *preferences.Preferences) (*Input, error) {
	breakEven, err := s.costs.BreakEven(businessID, commodity)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("no break-even budget for %s", commodity)
		}
		return nil, fmt.Errorf("failed to load break-even: %w", err)
	}

	remaining, err := s.remainingBushels(businessID, commodity)
	if err != nil {
		return nil, err
	}

	input := &Input{
		SignalType:         signalType,
		Snapshot:           snapshot,
		BreakEven:          breakEven,
		RiskTolerance:      prefs.RiskTolerance,
		TargetProfitMargin: prefs.TargetProfitMargin,
		MinAboveBreakEven:  prefs.MinAboveBreakEven,
		Thresholds:         s.thresholds.ThresholdsFor(businessID, commodity, signalType),
		TotalBushels:       remaining,
	}

	switch signalType {
	case domain.SignalAccumulator:
		positions, err := s.contracts.OpenAccumulators(businessID, commodity)
		if err != nil {
			return nil, fmt.Errorf("failed to load accumulators: %w", err)
		}
		if len(positions) == 0 {
			return nil, nil
		}
		input.Accumulators = positions
	case domain.SignalAccumulatorInquiry:
		input.DaysToHarvest = daysToHarvest(commodity, time.Now())
	}

	return input, nil
}

func (s *Service) remainingBushels(businessID string, commodity domain.Commodity) (int64, error) {
	production, err := s.costs.ExpectedProduction(businessID, commodity)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load expected production: %w", err)
	}

	contracted, err := s.contracts.ContractedBushels(businessID, commodity)
	if err != nil {
		return 0, fmt.Errorf("failed to load contracted bushels: %w", err)
	}

	remaining := production - contracted
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *Service) snapshotFor(ctx context.Context, commodity domain.Commodity, cache map[domain.Commodity]*marketdata.Snapshot) (*marketdata.Snapshot, error) {
	if snap, ok := cache[commodity]; ok {
		return snap, nil
	}
	snap, err := s.snapshots.SnapshotFor(ctx, commodity)
	if err != nil {
		return nil, err
	}
	cache[commodity] = snap
	return snap, nil
}

// Get fetches a signal and stamps it viewed.
func (s *Service) Get(id string) (*MarketingSignal, error) {
	signal, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkViewed(id); err != nil {
		s.log.Warn().Err(err).Str("signal_id", id).Msg("Failed to stamp viewed_at")
	}
	return signal, nil
}

// List returns a business's signals, optionally filtered by status.
func (s *Service) List(businessID string, status *domain.SignalStatus) ([]*MarketingSignal, error) {
	return s.repo.ListForBusiness(businessID, status)
}

// Dismiss marks a signal dismissed.
func (s *Service) Dismiss(id string) error {
	return s.repo.Dismiss(id)
}

// Act records that the user acted on a signal: the signal transitions to
// TRIGGERED and the decision feeds the learning profile. Profile updates
// are best-effort and never fail the action.
func (s *Service) Act(id string, req ActionRequest) (*MarketingSignal, error) {
	signal, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkTriggered(id); err != nil {
		return nil, err
	}

	if s.decisions != nil {
		var responseHours *float64
		if signal.CreatedAt > 0 {
			hours := time.Since(time.Unix(signal.CreatedAt, 0)).Hours()
			responseHours = &hours
		}
		err := s.decisions.RecordDecision(
			req.UserID, signal.BusinessID, signal.Commodity, signal.SignalType,
			signal.PctMargin, req.Bushels, responseHours)
		if err != nil {
			s.log.Warn().Err(err).Str("signal_id", id).Msg("Failed to record decision for learning")
		}
	}

	return s.repo.GetByID(id)
}

// ExpireSweep retires ACTIVE signals past their expiry.
func (s *Service) ExpireSweep() (int64, error) {
	return s.repo.ExpireSweep(time.Now())
}

// Harvest anchor dates per commodity, used to size the accumulation
// window for new-contract inquiries.
func daysToHarvest(commodity domain.Commodity, now time.Time) int {
	var month time.Month
	var day int
	switch commodity {
	case domain.CommodityWheat:
		month, day = time.July, 1
	case domain.CommodityOats:
		month, day = time.August, 1
	default:
		// Corn and soybeans
		month, day = time.October, 15
	}

	harvest := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if harvest.Before(now) {
		harvest = harvest.AddDate(1, 0, 0)
	}
	return int(harvest.Sub(now).Hours() / 24)
}
