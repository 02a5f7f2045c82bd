// Package markethours answers "are the grain markets trading right now".
// The scheduler gates market-data refresh and signal generation on this.
package markethours

import (
	"sync"
	"time"
)

// CME grain trading sessions, America/Chicago:
//   - Day session:   Mon-Fri 08:30-13:20
//   - Night session: Sun-Thu 19:00 through 07:45 the next morning
type session struct {
	openHour, openMinute   int
	closeHour, closeMinute int
}

var (
	daySession     = session{8, 30, 13, 20}
	nightOpen      = session{19, 0, 0, 0} // evening leg, 19:00-24:00
	nightOvernight = session{0, 0, 7, 45} // morning leg, 00:00-07:45
)

// Service provides grain market hours checks. Safe for concurrent use;
// the scheduler jobs and HTTP handlers share one instance.
type Service struct {
	location *time.Location

	mu           sync.Mutex
	holidayCache map[int][]time.Time
}

// NewService creates a market hours service anchored to the exchange timezone.
func NewService() *Service {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		// Fixed offset fallback; CST without DST is close enough for gating
		loc = time.FixedZone("CST", -6*3600)
	}
	return &Service{
		location:     loc,
		holidayCache: make(map[int][]time.Time),
	}
}

// IsMarketOpen reports whether grain futures are trading at t.
func (s *Service) IsMarketOpen(t time.Time) bool {
	ct := t.In(s.location)

	if s.isHoliday(ct) {
		return false
	}

	wd := ct.Weekday()

	// Day session: weekdays only
	if wd >= time.Monday && wd <= time.Friday && inWindow(ct, daySession) {
		return true
	}

	// Evening leg of the night session: Sun-Thu
	if wd != time.Friday && wd != time.Saturday && inWindow(ct, nightOpen) {
		return true
	}

	// Morning leg of the night session: Mon-Fri (opened the prior evening)
	if wd >= time.Monday && wd <= time.Friday && inWindow(ct, nightOvernight) {
		// The morning leg only exists if the prior evening was a trading
		// evening; a holiday yesterday means no overnight session.
		yesterday := ct.AddDate(0, 0, -1)
		if !s.isHoliday(yesterday) {
			return true
		}
	}

	return false
}

// NextOpen returns the next time the market opens at or after t.
// Scans in 15 minute steps; only used for status reporting.
func (s *Service) NextOpen(t time.Time) time.Time {
	candidate := t
	for i := 0; i < 4*24*8; i++ { // up to 8 days out
		if s.IsMarketOpen(candidate) {
			return candidate
		}
		candidate = candidate.Add(15 * time.Minute)
	}
	return candidate
}

func inWindow(t time.Time, w session) bool {
	open := time.Date(t.Year(), t.Month(), t.Day(), w.openHour, w.openMinute, 0, 0, t.Location())
	close := time.Date(t.Year(), t.Month(), t.Day(), w.closeHour, w.closeMinute, 0, 0, t.Location())
	if w.closeHour == 0 && w.closeMinute == 0 {
		close = open.AddDate(0, 0, 1) // through midnight
	}
	return !t.Before(open) && t.Before(close)
}

// isHoliday checks whether the date falls on an exchange holiday.
func (s *Service) isHoliday(t time.Time) bool {
	for _, h := range s.holidaysForYear(t.Year()) {
		if h.Year() == t.Year() && h.Month() == t.Month() && h.Day() == t.Day() {
			return true
		}
	}
	return false
}

// holidaysForYear returns the CME grain holidays for a year, cached.
func (s *Service) holidaysForYear(year int) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if holidays, ok := s.holidayCache[year]; ok {
		return holidays
	}

	holidays := []time.Time{
		// Fixed-date holidays
		time.Date(year, time.January, 1, 0, 0, 0, 0, s.location),
		time.Date(year, time.July, 4, 0, 0, 0, 0, s.location),
		time.Date(year, time.December, 25, 0, 0, 0, 0, s.location),
		// Rule-based holidays
		findNthWeekday(year, time.January, time.Monday, 3, s.location),    // MLK Day
		findNthWeekday(year, time.February, time.Monday, 3, s.location),   // Presidents Day
		findLastWeekday(year, time.May, time.Monday, s.location),          // Memorial Day
		findNthWeekday(year, time.September, time.Monday, 1, s.location),  // Labor Day
		findNthWeekday(year, time.November, time.Thursday, 4, s.location), // Thanksgiving
	}

	s.holidayCache[year] = holidays
	return holidays
}

// findNthWeekday returns the nth given weekday of the month.
func findNthWeekday(year int, month time.Month, weekday time.Weekday, n int, loc *time.Location) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	count := 0
	for d.Month() == month {
		if d.Weekday() == weekday {
			count++
			if count == n {
				return d
			}
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// findLastWeekday returns the last given weekday of the month.
func findLastWeekday(year int, month time.Month, weekday time.Weekday, loc *time.Location) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
