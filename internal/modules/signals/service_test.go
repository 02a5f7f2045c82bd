package signals

import (
	"context"
	"errors"
	"testing"

	graintest "github.com/grainwise/grainwise/internal/testing"

	"github.com/grainwise/grainwise/internal/clients/marketdata"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/preferences"
	"github.com/grainwise/grainwise/pkg/formulas"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSnapshots struct {
	snaps map[domain.Commodity]*marketdata.Snapshot
	errs  map[domain.Commodity]error
	calls int
}

func (s *stubSnapshots) SnapshotFor(ctx context.Context, commodity domain.Commodity) (*marketdata.Snapshot, error) {
	s.calls++
	if err, ok := s.errs[commodity]; ok {
		return nil, err
	}
	snap, ok := s.snaps[commodity]
	if !ok {
		return nil, errors.New("no snapshot")
	}
	return snap, nil
}

type stubCosts struct {
	breakEvens map[domain.Commodity]float64
	production map[domain.Commodity]int64
}

func (s *stubCosts) BreakEven(businessID string, commodity domain.Commodity) (float64, error) {
	be, ok := s.breakEvens[commodity]
	if !ok {
		return 0, domain.NewNotFound("budget", string(commodity))
	}
	return be, nil
}

func (s *stubCosts) ExpectedProduction(businessID string, commodity domain.Commodity) (int64, error) {
	p, ok := s.production[commodity]
	if !ok {
		return 0, domain.NewNotFound("budget", string(commodity))
	}
	return p, nil
}

type stubContracts struct {
	contracted   map[domain.Commodity]int64
	accumulators map[domain.Commodity][]AccumulatorPosition
}

func (s *stubContracts) ContractedBushels(businessID string, commodity domain.Commodity) (int64, error) {
	return s.contracted[commodity], nil
}

func (s *stubContracts) OpenAccumulators(businessID string, commodity domain.Commodity) ([]AccumulatorPosition, error) {
	return s.accumulators[commodity], nil
}

type stubThresholds struct{}

func (stubThresholds) ThresholdsFor(businessID string, commodity domain.Commodity, signalType domain.SignalType) Thresholds {
	return DefaultThresholds()
}

type recordedDecision struct {
	userID    string
	commodity domain.Commodity
	bushels   int64
}

type stubDecisions struct {
	recorded []recordedDecision
	err      error
}

func (s *stubDecisions) RecordDecision(userID, businessID string, commodity domain.Commodity, signalType domain.SignalType, pctAboveBE float64, bushels int64, responseHours *float64) error {
	if s.err != nil {
		return s.err
	}
	s.recorded = append(s.recorded, recordedDecision{userID: userID, commodity: commodity, bushels: bushels})
	return nil
}

func strongBuySnapshot(commodity domain.Commodity) *marketdata.Snapshot {
	// Basis kept above the weak-basis cutoff so only the cash sale fires
	rsi := 75.0
	return &marketdata.Snapshot{
		Commodity:    commodity,
		FuturesPrice: 4.60,
		Basis:        -0.10,
		CashPrice:    4.50,
		Trend:        formulas.TrendDown,
		RSI:          &rsi,
	}
}

func newTestService(t *testing.T, snapshots *stubSnapshots, costs *stubCosts, contracts *stubContracts, decisions *stubDecisions) (*Service, *preferences.Repository, func()) {
	db, cleanup := graintest.NewTestDB(t, "farm")
	repo := NewRepository(db.Conn(), zerolog.Nop())
	prefsRepo := preferences.NewRepository(db.Conn(), zerolog.Nop())
	svc := NewService(repo, prefsRepo, snapshots, costs, contracts, stubThresholds{}, decisions, zerolog.Nop())
	return svc, prefsRepo, cleanup
}

func TestGenerateAll_CreatesActionableSignals(t *testing.T) {
	snapshots := &stubSnapshots{snaps: map[domain.Commodity]*marketdata.Snapshot{
		domain.CommodityCorn:     strongBuySnapshot(domain.CommodityCorn),
		domain.CommoditySoybeans: {Commodity: domain.CommoditySoybeans, CashPrice: 9.00, FuturesPrice: 9.30, Basis: -0.30},
	}}
	costs := &stubCosts{
		breakEvens: map[domain.Commodity]float64{domain.CommodityCorn: 3.80, domain.CommoditySoybeans: 10.00},
		production: map[domain.Commodity]int64{domain.CommodityCorn: 40000, domain.CommoditySoybeans: 15000},
	}
	svc, prefsRepo, cleanup := newTestService(t, snapshots, costs, &stubContracts{}, nil)
	defer cleanup()

	_, err := prefsRepo.GetOrCreate("biz-1")
	require.NoError(t, err)

	report, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)

	// Defaults: 2 commodities x 3 tool types
	assert.Len(t, report.Items, 6)
	created, _, suppressed, failed := report.Counts()
	assert.Equal(t, 1, created, "only the corn cash sale is actionable")
	assert.Equal(t, 5, suppressed)
	assert.Zero(t, failed)

	active, err := svc.List("biz-1", nil)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.StrengthStrongBuy, active[0].Strength)
	assert.Equal(t, domain.CommodityCorn, active[0].Commodity)
	require.NotNil(t, active[0].RecommendedBushels)
	assert.Equal(t, int64(10000), *active[0].RecommendedBushels)
}

func TestGenerateAll_PartialFailure(t *testing.T) {
	// Soybean snapshot fails; corn still generates
	snapshots := &stubSnapshots{
		snaps: map[domain.Commodity]*marketdata.Snapshot{
			domain.CommodityCorn: strongBuySnapshot(domain.CommodityCorn),
		},
		errs: map[domain.Commodity]error{
			domain.CommoditySoybeans: errors.New("provider timeout"),
		},
	}
	costs := &stubCosts{
		breakEvens: map[domain.Commodity]float64{domain.CommodityCorn: 3.80},
		production: map[domain.Commodity]int64{domain.CommodityCorn: 40000},
	}
	svc, prefsRepo, cleanup := newTestService(t, snapshots, costs, &stubContracts{}, nil)
	defer cleanup()

	_, err := prefsRepo.GetOrCreate("biz-1")
	require.NoError(t, err)

	report, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)

	created, _, _, failed := report.Counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, 3, failed, "each soybean tool records the snapshot failure")
	for _, item := range report.Items {
		if item.Commodity == domain.CommoditySoybeans {
			assert.Contains(t, item.Error, "provider timeout")
		}
	}
}

func TestGenerateAll_SecondPassDeduplicates(t *testing.T) {
	snapshots := &stubSnapshots{snaps: map[domain.Commodity]*marketdata.Snapshot{
		domain.CommodityCorn: strongBuySnapshot(domain.CommodityCorn),
	}}
	costs := &stubCosts{
		breakEvens: map[domain.Commodity]float64{domain.CommodityCorn: 3.80},
		production: map[domain.Commodity]int64{domain.CommodityCorn: 40000},
	}
	svc, prefsRepo, cleanup := newTestService(t, snapshots, costs, &stubContracts{}, nil)
	defer cleanup()

	_, err := prefsRepo.Update("biz-1", &preferences.UpdateRequest{
		Commodities: []domain.Commodity{domain.CommodityCorn},
		SignalTypes: []domain.SignalType{domain.SignalCashSale},
	})
	require.NoError(t, err)

	first, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	created, _, _, _ := first.Counts()
	assert.Equal(t, 1, created)

	second, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	created, updated, suppressed, _ := second.Counts()
	assert.Zero(t, created)
	assert.Zero(t, updated)
	assert.Equal(t, 1, suppressed, "unchanged strength within the window is a no-op")

	active := domain.StatusActive
	signals, err := svc.List("biz-1", &active)
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}

func TestGenerateAll_RemainingBushelsCapped(t *testing.T) {
	snapshots := &stubSnapshots{snaps: map[domain.Commodity]*marketdata.Snapshot{
		domain.CommodityCorn: strongBuySnapshot(domain.CommodityCorn),
	}}
	costs := &stubCosts{
		breakEvens: map[domain.Commodity]float64{domain.CommodityCorn: 3.80},
		production: map[domain.Commodity]int64{domain.CommodityCorn: 40000},
	}
	contracts := &stubContracts{contracted: map[domain.Commodity]int64{
		domain.CommodityCorn: 38000, // only 2,000 bushels left
	}}
	svc, prefsRepo, cleanup := newTestService(t, snapshots, costs, contracts, nil)
	defer cleanup()

	_, err := prefsRepo.Update("biz-1", &preferences.UpdateRequest{
		Commodities: []domain.Commodity{domain.CommodityCorn},
		SignalTypes: []domain.SignalType{domain.SignalCashSale},
	})
	require.NoError(t, err)

	_, err = svc.GenerateAll(context.Background())
	require.NoError(t, err)

	signals, err := svc.List("biz-1", nil)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.NotNil(t, signals[0].RecommendedBushels)
	assert.Equal(t, int64(500), *signals[0].RecommendedBushels, "25% of the 2,000 remaining")
	assert.LessOrEqual(t, *signals[0].RecommendedBushels, int64(2000))
}

func TestGenerateAll_AccumulatorMonitoring(t *testing.T) {
	knockout := 4.80
	snapshots := &stubSnapshots{snaps: map[domain.Commodity]*marketdata.Snapshot{
		domain.CommodityCorn: {Commodity: domain.CommodityCorn, FuturesPrice: 4.60, Basis: -0.20, CashPrice: 4.40},
	}}
	costs := &stubCosts{
		breakEvens: map[domain.Commodity]float64{domain.CommodityCorn: 3.80},
		production: map[domain.Commodity]int64{domain.CommodityCorn: 40000},
	}
	contracts := &stubContracts{accumulators: map[domain.Commodity][]AccumulatorPosition{
		domain.CommodityCorn: {{ContractID: "c-1", KnockoutBarrier: &knockout}},
	}}
	svc, prefsRepo, cleanup := newTestService(t, snapshots, costs, contracts, nil)
	defer cleanup()

	_, err := prefsRepo.Update("biz-1", &preferences.UpdateRequest{
		Commodities: []domain.Commodity{domain.CommodityCorn},
		SignalTypes: []domain.SignalType{domain.SignalAccumulator},
	})
	require.NoError(t, err)

	_, err = svc.GenerateAll(context.Background())
	require.NoError(t, err)

	signals, err := svc.List("biz-1", nil)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, domain.StrengthStrongSell, signals[0].Strength)
	assert.Contains(t, signals[0].Title, "knockout")
}

func TestAct_RecordsDecisionAndTransitions(t *testing.T) {
	snapshots := &stubSnapshots{snaps: map[domain.Commodity]*marketdata.Snapshot{
		domain.CommodityCorn: strongBuySnapshot(domain.CommodityCorn),
	}}
	costs := &stubCosts{
		breakEvens: map[domain.Commodity]float64{domain.CommodityCorn: 3.80},
		production: map[domain.Commodity]int64{domain.CommodityCorn: 40000},
	}
	decisions := &stubDecisions{}
	svc, prefsRepo, cleanup := newTestService(t, snapshots, costs, &stubContracts{}, decisions)
	defer cleanup()

	_, err := prefsRepo.Update("biz-1", &preferences.UpdateRequest{
		Commodities: []domain.Commodity{domain.CommodityCorn},
		SignalTypes: []domain.SignalType{domain.SignalCashSale},
	})
	require.NoError(t, err)

	_, err = svc.GenerateAll(context.Background())
	require.NoError(t, err)
	signals, err := svc.List("biz-1", nil)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	acted, err := svc.Act(signals[0].ID, ActionRequest{UserID: "user-1", Bushels: 5000})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTriggered, acted.Status)
	require.Len(t, decisions.recorded, 1)
	assert.Equal(t, "user-1", decisions.recorded[0].userID)
	assert.Equal(t, int64(5000), decisions.recorded[0].bushels)
}

func TestAct_LearningFailureDoesNotBlock(t *testing.T) {
	snapshots := &stubSnapshots{snaps: map[domain.Commodity]*marketdata.Snapshot{
		domain.CommodityCorn: strongBuySnapshot(domain.CommodityCorn),
	}}
	costs := &stubCosts{
		breakEvens: map[domain.Commodity]float64{domain.CommodityCorn: 3.80},
		production: map[domain.Commodity]int64{domain.CommodityCorn: 40000},
	}
	decisions := &stubDecisions{err: errors.New("learning db locked")}
	svc, prefsRepo, cleanup := newTestService(t, snapshots, costs, &stubContracts{}, decisions)
	defer cleanup()

	_, err := prefsRepo.Update("biz-1", &preferences.UpdateRequest{
		Commodities: []domain.Commodity{domain.CommodityCorn},
		SignalTypes: []domain.SignalType{domain.SignalCashSale},
	})
	require.NoError(t, err)

	_, err = svc.GenerateAll(context.Background())
	require.NoError(t, err)
	signals, err := svc.List("biz-1", nil)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	acted, err := svc.Act(signals[0].ID, ActionRequest{UserID: "user-1", Bushels: 5000})
	require.NoError(t, err, "best-effort learning never fails the action")
	assert.Equal(t, domain.StatusTriggered, acted.Status)
}

func TestSnapshotCacheSharedAcrossBusinesses(t *testing.T) {
	snapshots := &stubSnapshots{snaps: map[domain.Commodity]*marketdata.Snapshot{
		domain.CommodityCorn: strongBuySnapshot(domain.CommodityCorn),
	}}
	costs := &stubCosts{
		breakEvens: map[domain.Commodity]float64{domain.CommodityCorn: 3.80},
		production: map[domain.Commodity]int64{domain.CommodityCorn: 40000},
	}
	svc, prefsRepo, cleanup := newTestService(t, snapshots, costs, &stubContracts{}, nil)
	defer cleanup()

	for _, biz := range []string{"biz-1", "biz-2", "biz-3"} {
		_, err := prefsRepo.Update(biz, &preferences.UpdateRequest{
			Commodities: []domain.Commodity{domain.CommodityCorn},
			SignalTypes: []domain.SignalType{domain.SignalCashSale},
		})
		require.NoError(t, err)
	}

	_, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snapshots.calls, "one snapshot fetch serves every business in the pass")
}
