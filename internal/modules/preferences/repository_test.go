package preferences

import (
	"testing"

	graintest "github.com/grainwise/grainwise/internal/testing"

	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repository, func()) {
	db, cleanup := graintest.NewTestDB(t, "farm")
	return NewRepository(db.Conn(), zerolog.Nop()), cleanup
}

func TestGetOrCreate_LazyDefaults(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	prefs, err := repo.GetOrCreate("biz-1")

	require.NoError(t, err)
	assert.Equal(t, domain.RiskModerate, prefs.RiskTolerance)
	assert.Equal(t, 0.50, prefs.TargetProfitMargin)
	assert.Equal(t, 0.05, prefs.MinAboveBreakEven)
	assert.Contains(t, prefs.Commodities, domain.CommodityCorn)
	assert.NotZero(t, prefs.CreatedAt)

	// Second read returns the same row, not a new one
	again, err := repo.GetOrCreate("biz-1")
	require.NoError(t, err)
	assert.Equal(t, prefs.CreatedAt, again.CreatedAt)
}

func TestUpdate(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	risk := domain.RiskAggressive
	margin := 0.75
	updated, err := repo.Update("biz-1", &UpdateRequest{
		RiskTolerance:      &risk,
		TargetProfitMargin: &margin,
		Commodities:        []domain.Commodity{domain.CommodityWheat},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RiskAggressive, updated.RiskTolerance)
	assert.Equal(t, 0.75, updated.TargetProfitMargin)
	assert.Equal(t, []domain.Commodity{domain.CommodityWheat}, updated.Commodities)
	// Untouched field keeps its default
	assert.Equal(t, 0.05, updated.MinAboveBreakEven)

	reread, err := repo.GetOrCreate("biz-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskAggressive, reread.RiskTolerance)
	assert.Equal(t, []domain.Commodity{domain.CommodityWheat}, reread.Commodities)
}

func TestListBusinessIDs(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	_, err := repo.GetOrCreate("biz-b")
	require.NoError(t, err)
	_, err = repo.GetOrCreate("biz-a")
	require.NoError(t, err)

	ids, err := repo.ListBusinessIDs()

	require.NoError(t, err)
	assert.Equal(t, []string{"biz-a", "biz-b"}, ids)
}

func TestEnabledFor(t *testing.T) {
	prefs := Defaults("biz-1")

	assert.True(t, prefs.EnabledFor(domain.CommodityCorn, domain.SignalCashSale))
	assert.False(t, prefs.EnabledFor(domain.CommodityWheat, domain.SignalCashSale), "wheat not in defaults")
	assert.False(t, prefs.EnabledFor(domain.CommodityCorn, domain.SignalAccumulator), "accumulator not in defaults")
}

func TestUpdateRequestValidate(t *testing.T) {
	bad := domain.RiskTolerance("YOLO")
	err := (&UpdateRequest{RiskTolerance: &bad}).Validate()
	assert.Error(t, err)

	negative := -0.1
	err = (&UpdateRequest{TargetProfitMargin: &negative}).Validate()
	assert.Error(t, err)

	err = (&UpdateRequest{Commodities: []domain.Commodity{"RICE"}}).Validate()
	assert.Error(t, err)

	ok := domain.RiskConservative
	err = (&UpdateRequest{RiskTolerance: &ok}).Validate()
	assert.NoError(t, err)
}
