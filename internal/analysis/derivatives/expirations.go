package derivatives

import (
	"sort"
	"time"

	"github.com/seenimoa/optiscreen/pkg/models"
)

// DefaultWindowDays bounds how far ahead an expiration may be chosen.
const DefaultWindowDays = 31

// Suitability classifies an expiration calendar. A symbol with no listed
// expirations is unknown; one with at least minNextMonth expirations in the
// next calendar month is suitable.
func Suitability(dates []models.Date, today time.Time, minNextMonth int) int {
	if len(dates) == 0 {
		return models.SuitabilityUnknown
	}
	if len(NextMonth(dates, today)) >= minNextMonth {
		return models.SuitabilitySuitable
	}
	return models.SuitabilityUnsuitable
}

// NextMonth returns the dates that fall in the calendar month after today.
func NextMonth(dates []models.Date, today time.Time) []models.Date {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	var out []models.Date
	for _, d := range dates {
		if d.Year() == first.Year() && d.Month() == first.Month() {
			out = append(out, d)
		}
	}
	return out
}

// ClosestDates returns up to two dates within [today, today+windowDays],
// nearest to the end of the window first.
func ClosestDates(dates []models.Date, today time.Time, windowDays int) []models.Date {
	start := models.DateOf(today)
	end := start.AddDays(windowDays)
	var in []models.Date
	for _, d := range dates {
		if d.Before(start.Time) || d.After(end.Time) {
			continue
		}
		in = append(in, d)
	}
	sort.SliceStable(in, func(i, j int) bool {
		return end.Sub(in[i].Time) < end.Sub(in[j].Time)
	})
	if len(in) > 2 {
		in = in[:2]
	}
	return in
}

// Latest returns the latest of dates.
func Latest(dates []models.Date) (models.Date, bool) {
	if len(dates) == 0 {
		return models.Date{}, false
	}
	latest := dates[0]
	for _, d := range dates[1:] {
		if d.After(latest.Time) {
			latest = d
		}
	}
	return latest, true
}

// OptionExpiry picks the expiration to trade: the later of the two dates
// closest to the end of the window, falling back to the latest next-month
// expiration when none fall inside the window.
func OptionExpiry(dates []models.Date, today time.Time, windowDays int) (models.Date, bool) {
	if d, ok := Latest(ClosestDates(dates, today, windowDays)); ok {
		return d, true
	}
	return Latest(NextMonth(dates, today))
}
