package analysis

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are accepted for filter bounds: plain dates, minutes from a datetime-local input,
// and full RFC 3339 instants.
var dateLayouts = []string{"2006-01-02", "2006-01-02T15:04", "2006-01-02T15:04:05", time.RFC3339}

// ParseDate reads a filter bound, interpreting zone-less values in loc. Bounds carrying their own
// offset are converted to loc so calendar days compare in one zone.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q, expected YYYY-MM-DD", raw)
}

// Location is the zone used for zone-less timestamps and the quick date slicers.
func (s *Service) Location() *time.Location {
	return s.loc
}
