package breakeven

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

func testBudget(cropYear int) *Budget {
	return &Budget{
		BusinessID:    "biz-1",
		Commodity:     domain.CommodityCorn,
		CropYear:      cropYear,
		Acres:         200,
		ExpectedYield: 200,
		Seed:          120,
		Fertilizer:    180,
		Chemicals:     60,
		Insurance:     25,
		Land:          250,
		Equipment:     90,
		Labor:         20,
		Other:         15,
	}
}

func TestBreakEvenArithmetic(t *testing.T) {
	b := testBudget(2026)
	// 760 $/acre over 200 bu/acre
	assert.InDelta(t, 760.0, b.TotalCostPerAcre(), 1e-9)
	assert.InDelta(t, 3.80, b.BreakEvenPrice(), 1e-9)
	assert.Equal(t, int64(40000), b.ExpectedProduction())

	b.ExpectedYield = 0
	assert.Zero(t, b.BreakEvenPrice())
}

func TestUpsertAndGet(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	saved, err := repo.Upsert(testBudget(2026))
	require.NoError(t, err)
	assert.InDelta(t, 3.80, saved.BreakEvenPrice(), 1e-9)

	// Replacing the same crop year does not duplicate
	updated := testBudget(2026)
	updated.Fertilizer = 220
	saved, err = repo.Upsert(updated)
	require.NoError(t, err)
	assert.Equal(t, 220.0, saved.Fertilizer)

	budgets, err := repo.List("biz-1")
	require.NoError(t, err)
	assert.Len(t, budgets, 1)
}

func TestLatestPicksNewestCropYear(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	_, err := repo.Upsert(testBudget(2025))
	require.NoError(t, err)

	newer := testBudget(2026)
	newer.Land = 300 // 810 $/acre -> 4.05 break-even
	_, err = repo.Upsert(newer)
	require.NoError(t, err)

	be, err := repo.BreakEven("biz-1", domain.CommodityCorn)
	require.NoError(t, err)
	assert.InDelta(t, 4.05, be, 1e-9)

	production, err := repo.ExpectedProduction("biz-1", domain.CommodityCorn)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), production)
}

func TestBreakEven_NotFound(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	_, err := repo.BreakEven("biz-1", domain.CommodityWheat)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDelete(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	_, err := repo.Upsert(testBudget(2026))
	require.NoError(t, err)

	require.NoError(t, repo.Delete("biz-1", domain.CommodityCorn, 2026))

	var notFound *domain.NotFoundError
	err = repo.Delete("biz-1", domain.CommodityCorn, 2026)
	assert.ErrorAs(t, err, &notFound)
}

func TestBudgetValidate(t *testing.T) {
	assert.NoError(t, testBudget(2026).Validate())

	bad := testBudget(2026)
	bad.Commodity = "RICE"
	assert.Error(t, bad.Validate())

	bad = testBudget(2026)
	bad.Acres = 0
	assert.Error(t, bad.Validate())

	bad = testBudget(1990)
	assert.Error(t, bad.Validate())

	bad = testBudget(2026)
	bad.Seed = -1
	assert.Error(t, bad.Validate())
}
