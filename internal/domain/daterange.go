package domain

import "time"

// DateRange is an inclusive publication-date window at date granularity.
// Start never exceeds End; both are midnight UTC instants.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from two instants, truncated to their calendar
// dates. Reversed arguments are swapped rather than rejected so that callers
// never see an invalid range.
func NewDateRange(start, end time.Time) DateRange {
	s, e := Midnight(start), Midnight(end)
	if e.Before(s) {
		s, e = e, s
	}
	return DateRange{Start: s, End: e}
}

// Contains reports whether t falls inside the range, inclusive on both ends.
func (r DateRange) Contains(t time.Time) bool {
	d := Midnight(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Midnight truncates t to its calendar date in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
