package markethours

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

func TestIsMarketOpen_DaySession(t *testing.T) {
	svc := NewService()
	loc := chicago(t)

	// Wednesday 2026-03-11, 10:00 Chicago - mid day session
	open := time.Date(2026, 3, 11, 10, 0, 0, 0, loc)
	assert.True(t, svc.IsMarketOpen(open))

	// Same day 13:20 - session closed (close is exclusive)
	closed := time.Date(2026, 3, 11, 13, 20, 0, 0, loc)
	assert.False(t, svc.IsMarketOpen(closed))

	// Same day 14:30 - between sessions
	afternoon := time.Date(2026, 3, 11, 14, 30, 0, 0, loc)
	assert.False(t, svc.IsMarketOpen(afternoon))
}

func TestIsMarketOpen_NightSession(t *testing.T) {
	svc := NewService()
	loc := chicago(t)

	// Sunday 2026-03-08 evening, 20:00 Chicago - night session open
	sundayNight := time.Date(2026, 3, 8, 20, 0, 0, 0, loc)
	assert.True(t, svc.IsMarketOpen(sundayNight))

	// Monday 06:00 - overnight leg still open
	mondayMorning := time.Date(2026, 3, 9, 6, 0, 0, 0, loc)
	assert.True(t, svc.IsMarketOpen(mondayMorning))

	// Monday 08:00 - gap between night close (07:45) and day open (08:30)
	gap := time.Date(2026, 3, 9, 8, 0, 0, 0, loc)
	assert.False(t, svc.IsMarketOpen(gap))

	// Friday 20:00 - no Friday evening session
	fridayNight := time.Date(2026, 3, 13, 20, 0, 0, 0, loc)
	assert.False(t, svc.IsMarketOpen(fridayNight))
}

func TestIsMarketOpen_Weekend(t *testing.T) {
	svc := NewService()
	loc := chicago(t)

	saturday := time.Date(2026, 3, 14, 10, 0, 0, 0, loc)
	assert.False(t, svc.IsMarketOpen(saturday))

	// Sunday before 19:00
	sundayDay := time.Date(2026, 3, 15, 12, 0, 0, 0, loc)
	assert.False(t, svc.IsMarketOpen(sundayDay))
}

func TestIsMarketOpen_Holiday(t *testing.T) {
	svc := NewService()
	loc := chicago(t)

	// Christmas 2026 falls on a Friday
	christmas := time.Date(2026, 12, 25, 10, 0, 0, 0, loc)
	assert.False(t, svc.IsMarketOpen(christmas))

	// Thanksgiving 2026: Thursday Nov 26
	thanksgiving := time.Date(2026, 11, 26, 10, 0, 0, 0, loc)
	assert.False(t, svc.IsMarketOpen(thanksgiving))

	// The morning after a holiday has no overnight leg
	dayAfterThanksgiving := time.Date(2026, 11, 27, 6, 0, 0, 0, loc)
	assert.False(t, svc.IsMarketOpen(dayAfterThanksgiving))
}

func TestIsMarketOpen_ConcurrentCallers(t *testing.T) {
	// One instance is shared between scheduler jobs and HTTP handlers,
	// all hitting the lazily built holiday cache.
	svc := NewService()
	loc := chicago(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for year := 2024; year <= 2030; year++ {
				at := time.Date(year, 3, 11, 10, 0, 0, 0, loc).AddDate(0, 0, offset)
				svc.IsMarketOpen(at)
			}
		}(i)
	}
	wg.Wait()
}

func TestNextOpen(t *testing.T) {
	svc := NewService()
	loc := chicago(t)

	// From Saturday noon the next open is Sunday evening
	saturday := time.Date(2026, 3, 14, 12, 0, 0, 0, loc)
	next := svc.NextOpen(saturday)

	assert.True(t, svc.IsMarketOpen(next))
	assert.Equal(t, time.Sunday, next.In(loc).Weekday())
}
