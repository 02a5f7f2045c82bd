package signals

import (
	"database/sql"
	"testing"
	"time"

	graintest "github.com/grainwise/grainwise/internal/testing"

	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repository, *sql.DB, func()) {
	db, cleanup := graintest.NewTestDB(t, "farm")
	return NewRepository(db.Conn(), zerolog.Nop()), db.Conn(), cleanup
}

func testSignal(strength domain.Strength) *MarketingSignal {
	bushels := int64(10000)
	return &MarketingSignal{
		BusinessID:         "biz-1",
		SignalType:         domain.SignalCashSale,
		Commodity:          domain.CommodityCorn,
		Strength:           strength,
		CurrentPrice:       4.50,
		BreakEvenPrice:     3.80,
		Margin:             0.70,
		PctMargin:          0.184,
		RecommendedBushels: &bushels,
		Title:              "CORN cash sale opportunity",
		Summary:            "Cash price well above break-even.",
		Rationale:          "Margin clears the cutoff.",
		RecommendedAction:  "Price 10000 bushels via cash sale.",
	}
}

func TestSaveWithDedupe_SameStrengthReturnsExisting(t *testing.T) {
	repo, db, cleanup := newTestRepo(t)
	defer cleanup()

	first, created, updated, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, updated)
	assert.Equal(t, domain.StatusActive, first.Status)

	second, created, updated, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, updated)
	assert.Equal(t, first.ID, second.ID)

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM marketing_signals WHERE status = 'ACTIVE'").Scan(&count))
	assert.Equal(t, 1, count, "dedupe keeps exactly one ACTIVE row")
}

func TestSaveWithDedupe_ChangedStrengthUpdatesInPlace(t *testing.T) {
	repo, db, cleanup := newTestRepo(t)
	defer cleanup()

	first, _, _, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)

	// Attach a narrative to verify it is cleared on strength change
	require.NoError(t, repo.AttachNarrative(first.ID, "old text"))

	stronger, created, updated, err := repo.SaveWithDedupe(testSignal(domain.StrengthStrongBuy))
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, updated)
	assert.Equal(t, first.ID, stronger.ID)
	assert.Equal(t, domain.StrengthStrongBuy, stronger.Strength)
	assert.Nil(t, stronger.Narrative, "narrative regenerates after a strength change")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM marketing_signals").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSaveWithDedupe_OutsideWindowInsertsNew(t *testing.T) {
	repo, db, cleanup := newTestRepo(t)
	defer cleanup()

	first, _, _, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)

	// Age the first signal past the dedupe window
	old := time.Now().Add(-25 * time.Hour).Unix()
	_, err = db.Exec("UPDATE marketing_signals SET created_at = ? WHERE id = ?", old, first.ID)
	require.NoError(t, err)

	second, created, _, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSaveWithDedupe_DismissedDoesNotSuppress(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	first, _, _, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)
	require.NoError(t, repo.Dismiss(first.ID))

	second, created, _, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)
	assert.True(t, created, "only ACTIVE signals participate in dedupe")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestLifecycleTransitions(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	signal, _, _, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)

	require.NoError(t, repo.MarkViewed(signal.ID))
	require.NoError(t, repo.MarkTriggered(signal.ID))

	got, err := repo.GetByID(signal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTriggered, got.Status)
	assert.NotNil(t, got.ViewedAt)
	assert.NotNil(t, got.ActedAt)

	// Terminal states reject further transitions
	err = repo.Dismiss(signal.ID)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestExpireSweep(t *testing.T) {
	repo, db, cleanup := newTestRepo(t)
	defer cleanup()

	signal, _, _, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)

	// Not yet expired
	count, err := repo.ExpireSweep(time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)

	// Force expiry into the past
	_, err = db.Exec("UPDATE marketing_signals SET expires_at = ? WHERE id = ?",
		time.Now().Add(-time.Hour).Unix(), signal.ID)
	require.NoError(t, err)

	count, err = repo.ExpireSweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := repo.GetByID(signal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
}

func TestListMissingNarrative(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	signal, _, _, err := repo.SaveWithDedupe(testSignal(domain.StrengthBuy))
	require.NoError(t, err)

	missing, err := repo.ListMissingNarrative(10)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	require.NoError(t, repo.AttachNarrative(signal.ID, "SUMMARY: good time to sell."))

	missing, err = repo.ListMissingNarrative(10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	got, err := repo.GetByID(signal.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Narrative)
	assert.Contains(t, *got.Narrative, "good time")
}

func TestGetByID_NotFound(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	_, err := repo.GetByID("nope")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
