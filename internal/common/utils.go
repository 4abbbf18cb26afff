package common

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used for price keys and query params.
const DateLayout = "2006-01-02"

// HasAny returns true if s contains any of the substrings (case-insensitive).
func HasAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// CalendarDate drops the time of day and the zone of t. The wall-clock date in
// t's own location is kept and re-anchored at midnight UTC, so two values that
// fall on the same local day compare equal regardless of their offsets.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return CalendarDate(t), nil
}
