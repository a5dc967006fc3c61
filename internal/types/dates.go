package types

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used for unit keys and raw rows.
const DateLayout = "2006-01-02"

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysSinceEpoch returns the number of whole days between 1970-01-01 and t.
func DaysSinceEpoch(t time.Time) int32 {
	return int32(Day(t).Unix() / 86400)
}

// DateFromDays is the inverse of DaysSinceEpoch.
func DateFromDays(days int32) time.Time {
	return epoch.AddDate(0, 0, int(days))
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int((Day(b).Unix() - Day(a).Unix()) / 86400)
}

// WeekStart returns the Monday on or before t. Rankings are published weekly
// on Mondays.
func WeekStart(t time.Time) time.Time {
	d := Day(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeeklyDates returns every Monday between from and to, inclusive of the week
// containing from.
func WeeklyDates(from, to time.Time) []time.Time {
	start := WeekStart(from)
	end := Day(to)
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d)
	}
	return dates
}
