package subscriptions

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddCalendarMonth moves t forward by one calendar month keeping the clock
// time. When the target month is shorter the day is clamped to its last day,
// so Jan 31 becomes Feb 28 (or 29) rather than rolling into March.
func AddCalendarMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	targetYear, targetMonth := year, month+1
	if targetMonth > time.December {
		targetMonth = time.January
		targetYear++
	}
	if last := daysIn(targetYear, targetMonth, t.Location()); day > last {
		day = last
	}
	return time.Date(targetYear, targetMonth, day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Period returns the billing window starting at now.
func Period(now time.Time) (time.Time, time.Time) {
	return now, AddCalendarMonth(now)
}

// ReferenceAmount converts an IQD amount to the reference currency at the
// configured rate, rounded to cents. A non-positive rate yields zero.
func ReferenceAmount(amountIQD, iqdPerUnit int64) decimal.Decimal {
	if iqdPerUnit <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(amountIQD).Div(decimal.NewFromInt(iqdPerUnit)).Round(2)
}
