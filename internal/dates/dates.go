// Package dates implements the calendar-day bucketing every derived view
// joins on. A delivery belongs to the local-midnight day of its timestamp;
// the day key doubles as the delivery document ID.
package dates

import "time"

// Layout is the wire form of a day key.
const Layout = "2006-01-02"

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey returns the canonical day identifier for t. Two timestamps on the
// same calendar day always map to the same key.
func DayKey(t time.Time) string {
	return StartOfDay(t).Format(Layout)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}

// LastNDays returns the n calendar days strictly before now, oldest first:
// offsets now-n through now-1. Today itself is excluded.
func LastNDays(now time.Time, n int) []time.Time {
	today := StartOfDay(now)
	out := make([]time.Time, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, today.AddDate(0, 0, -i))
	}
	return out
}

// Range returns every calendar day from start to end inclusive, oldest
// first. An inverted range yields nil.
func Range(start, end time.Time) []time.Time {
	s, e := StartOfDay(start), StartOfDay(end)
	if s.After(e) {
		return nil
	}
	var out []time.Time
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
