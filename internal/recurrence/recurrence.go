// Package recurrence computes forward occurrences for recurring reminders
// and transactions. It is pure: no clock, no storage.
package recurrence

import "time"

// Frequency is the unit a rule advances by.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Rule describes how an item repeats: every Interval periods of Frequency,
// optionally anchored to a day of the month, optionally bounded by EndDate.
type Rule struct {
	Frequency  Frequency  `json:"frequency"`
	Interval   int        `json:"interval"`
	DayOfMonth *int       `json:"day_of_month,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// Valid reports whether the rule is well formed.
func (r Rule) Valid() bool {
	if r.Interval < 1 {
		return false
	}
	switch r.Frequency {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return false
	}
	if r.DayOfMonth != nil && (*r.DayOfMonth < 1 || *r.DayOfMonth > 31) {
		return false
	}
	return true
}

// Next returns the occurrence following from, or false when the rule is
// invalid or the computed date falls strictly after the rule's end date.
//
// Monthly rules with a day-of-month anchor clamp to the last day of the
// target month when the anchor does not exist there (anchor 31 in a
// 30-day month lands on the 30th).
func (r Rule) Next(from time.Time) (time.Time, bool) {
	if !r.Valid() {
		return time.Time{}, false
	}

	var next time.Time
	switch r.Frequency {
	case Daily:
		next = from.AddDate(0, 0, r.Interval)
	case Weekly:
		next = from.AddDate(0, 0, 7*r.Interval)
	case Monthly:
		next = addMonthsClamped(from, r.Interval, r.DayOfMonth)
	case Yearly:
		next = from.AddDate(r.Interval, 0, 0)
	}

	if r.EndDate != nil && next.After(*r.EndDate) {
		return time.Time{}, false
	}
	return next, true
}

// addMonthsClamped advances by months without the normalization surprise of
// AddDate (Jan 31 + 1 month must not become Mar 3). The anchor day, when
// set, overrides the source day; either way the day is clamped to the
// target month's length.
func addMonthsClamped(from time.Time, months int, anchor *int) time.Time {
	year, month, day := from.Date()
	m := int(month) + months
	year += (m - 1) / 12
	month = time.Month((m-1)%12 + 1)

	if anchor != nil {
		day = *anchor
	}
	if last := daysIn(year, month); day > last {
		day = last
	}

	h, min, sec := from.Clock()
	return time.Date(year, month, day, h, min, sec, from.Nanosecond(), from.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
