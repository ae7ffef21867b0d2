package picklog

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	// DateLayout is the calendar date format of the derived Date field.
	DateLayout = "2006-01-02"
	// TimeLayout is the time-of-day format of the derived Time field.
	TimeLayout = "15:04:05"
	// ExportLayout is the day-first timestamp format written on export. It parses back losslessly.
	ExportLayout = "02/01/2006 15:04:05"
)

// dayFirstLayouts are tried in order. Single-digit day, month and hour are accepted.
var dayFirstLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
}

// yearFirstLayouts are unambiguous and accepted alongside the day-first forms.
var yearFirstLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp interprets a timestamp cell day-first in loc. It reports false for
// empty, ambiguous or invalid content.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range yearFirstLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// parseSerialTimestamp accepts an Excel serial date number, falling back to text parsing.
func parseSerialTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ParseTimestamp(s, loc)
	}
	if serial <= 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	// Serial dates carry wall-clock time with no zone; keep the wall clock in loc.
	t = t.Round(time.Second)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
}

// parseCount coerces a counter cell. Integral non-negative numbers are accepted, including
// forms such as "5.0"; everything else is null.
func parseCount(raw string) (Count, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Count{}, "empty"
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return Count{}, "negative"
		}
		return CountOf(v), ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Count{}, "not a number"
	}
	if f < 0 {
		return Count{}, "negative"
	}
	if f != float64(int64(f)) {
		return Count{}, "not an integer"
	}
	return CountOf(int64(f)), ""
}
