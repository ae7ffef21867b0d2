package picklog

import "time"

// Shift is a coarse time-of-day bucket derived from an event timestamp.
type Shift string

const (
	// ShiftAM covers 06:00 to 13:59.
	ShiftAM Shift = "AM"
	// ShiftPM covers 14:00 to 21:59.
	ShiftPM Shift = "PM"
	// ShiftNight covers 22:00 to 05:59.
	ShiftNight Shift = "NIGHT"
	// ShiftUnknown is used when the timestamp is missing.
	ShiftUnknown Shift = "UNKNOWN"
)

// Shifts is the natural ordering of shift groups.
var Shifts = []Shift{ShiftAM, ShiftPM, ShiftNight, ShiftUnknown}

// ShiftOf classifies a timestamp by its hour. Lower bounds are inclusive.
func ShiftOf(ts *time.Time) Shift {
	if ts == nil {
		return ShiftUnknown
	}
	return ShiftOfHour(ts.Hour())
}

// ShiftOfHour classifies an hour of day (0-23).
func ShiftOfHour(hour int) Shift {
	switch {
	case hour >= 6 && hour < 14:
		return ShiftAM
	case hour >= 14 && hour < 22:
		return ShiftPM
	default:
		return ShiftNight
	}
}

// ParseShift resolves a shift label.
func ParseShift(s string) (Shift, bool) {
	for _, sh := range Shifts {
		if string(sh) == s {
			return sh, true
		}
	}
	return "", false
}

// Rank is the position of the shift in the natural ordering.
func (s Shift) Rank() int {
	for i, sh := range Shifts {
		if sh == s {
			return i
		}
	}
	return len(Shifts)
}
