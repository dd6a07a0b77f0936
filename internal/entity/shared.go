package entity

import (
	"strings"
	"time"
)

// DayLayout is the wire and storage format for calendar days.
const DayLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar day n days after day.
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

// FormatDay renders a day as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return Day(day).Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD string into a UTC day.
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// DueOn reports whether a review date is on or before today.
func DueOn(next *time.Time, today time.Time) bool {
	if next == nil {
		return false
	}
	return !Day(*next).After(Day(today))
}

// NormalizeID trims surrounding whitespace from opaque identifiers.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
