package stats

import (
	"fmt"
	"time"
)

// DateRange is an inclusive date interval. A zero bound is open.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// TimeOfDay compares full timestamps instead of calendar days. The end bound is still
	// extended to the end of its calendar day.
	TimeOfDay bool `json:"timeOfDay,omitempty"`
}

// Contains reports whether ts falls inside the range. Day granularity compares calendar dates;
// timestamp granularity compares instants against [Start, end of End's day].
func (d DateRange) Contains(ts time.Time, precise bool) bool {
	if precise || d.TimeOfDay {
		if !d.Start.IsZero() && ts.Before(d.Start) {
			return false
		}
		if !d.End.IsZero() && ts.After(endOfDay(d.End)) {
			return false
		}
		return true
	}

	day := dayKey(ts)
	if !d.Start.IsZero() && day < dayKey(d.Start) {
		return false
	}
	if !d.End.IsZero() && day > dayKey(d.End) {
		return false
	}
	return true
}

// Unbounded reports whether both bounds are open.
func (d DateRange) Unbounded() bool {
	return d.Start.IsZero() && d.End.IsZero()
}

func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// Slicer is a quick date-range preset.
type Slicer string

const (
	SlicerToday     Slicer = "Today"
	SlicerThisWeek  Slicer = "ThisWeek"
	SlicerThisMonth Slicer = "ThisMonth"
	SlicerCustom    Slicer = "Custom"
)

// ParseSlicer resolves a preset name. The empty string means Custom.
func ParseSlicer(s string) (Slicer, error) {
	switch Slicer(s) {
	case "", SlicerCustom:
		return SlicerCustom, nil
	case SlicerToday, SlicerThisWeek, SlicerThisMonth:
		return Slicer(s), nil
	}
	return "", fmt.Errorf("unknown date slicer %q", s)
}

// ResolveSlicer turns a preset into a day-granularity range anchored on now. Weeks start on
// Monday. Custom returns the supplied range unchanged.
func ResolveSlicer(s Slicer, custom DateRange, now time.Time) DateRange {
	midnight := startOfDay(now)
	var first, last time.Time
	switch s {
	case SlicerToday:
		first, last = midnight, midnight
	case SlicerThisWeek:
		back := (int(now.Weekday()) + 6) % 7
		first = midnight.AddDate(0, 0, -back)
		last = first.AddDate(0, 0, 6)
	case SlicerThisMonth:
		first = midnight.AddDate(0, 0, 1-now.Day())
		last = first.AddDate(0, 1, -1)
	default:
		return custom
	}
	return DateRange{Start: first, End: endOfDay(last)}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay is the last instant of t's calendar day.
func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
