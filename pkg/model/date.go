package model

import "time"

// DateLayout is the calendar-date key format used on every wire and store.
const DateLayout = "2006-01-02"

// DateKey renders t as a calendar date in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DateLayout)
}

// ParseDate parses a DateLayout key as midnight in loc.
func ParseDate(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, key, loc)
}
