package utils

import (
	"time"
)

// ET is the U.S. Eastern time zone the exchanges trade in.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// No tz database; EST without daylight saving.
		ET = time.FixedZone("EST", -5*60*60)
	}
}

// NowET returns the current time in ET.
func NowET() time.Time {
	return time.Now().In(ET)
}

// MarketOpenTime returns the regular session open (9:30 ET) on t's date.
func MarketOpenTime(t time.Time) time.Time {
	d := t.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, ET)
}

// MarketCloseTime returns the regular session close (16:00 ET) on t's date.
func MarketCloseTime(t time.Time) time.Time {
	d := t.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, ET)
}

// PreMarketStart returns the start of pre-market trading (4:00 ET).
func PreMarketStart(t time.Time) time.Time {
	d := t.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 4, 0, 0, 0, ET)
}

// IsTradingDay reports whether t falls on a weekday that is not an
// exchange holiday.
func IsTradingDay(t time.Time) bool {
	t = t.In(ET)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// IsMarketOpenAt reports whether the regular session is open at t.
func IsMarketOpenAt(t time.Time) bool {
	if !IsTradingDay(t) {
		return false
	}
	return !t.Before(MarketOpenTime(t)) && t.Before(MarketCloseTime(t))
}

// NextTradingDay returns the first trading day after from.
func NextTradingDay(from time.Time) time.Time {
	next := from.In(ET).AddDate(0, 0, 1)
	for !IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// IsTradingHoliday reports whether t is a full-day NYSE holiday.
func IsTradingHoliday(t time.Time) bool {
	_, ok := nyseHolidays[t.In(ET).Format(time.DateOnly)]
	return ok
}

// TODO: load holidays from config once the 2027 calendar is published.
var nyseHolidays = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// MarketStatusAt describes the session at t, e.g. "OPEN" or
// "CLOSED (Weekend)".
func MarketStatusAt(t time.Time) string {
	t = t.In(ET)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if name, ok := nyseHolidays[t.Format(time.DateOnly)]; ok {
		return "CLOSED (" + name + ")"
	}
	switch {
	case t.Before(PreMarketStart(t)):
		return "CLOSED"
	case t.Before(MarketOpenTime(t)):
		return "PRE-MARKET"
	case t.Before(MarketCloseTime(t)):
		return "OPEN"
	default:
		return "AFTER-HOURS"
	}
}

// MarketStatus is MarketStatusAt(now).
func MarketStatus() string {
	return MarketStatusAt(NowET())
}

// FormatDateTimeET formats t as "2006-01-02 15:04:05 MST" in ET.
func FormatDateTimeET(t time.Time) string {
	return t.In(ET).Format("2006-01-02 15:04:05 MST")
}
