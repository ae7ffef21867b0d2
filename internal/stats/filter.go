package stats

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"picking-dash/internal/picklog"
)

// Range is an inclusive numeric interval applied to one counter.
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Contains reports whether c is a valid value inside the range. Null cells never match.
func (r Range) Contains(c picklog.Count) bool {
	return c.Valid && c.Value >= r.Min && c.Value <= r.Max
}

// FilterSpec is the conjunction of every active constraint. It is a plain value: Apply never
// mutates it and the same spec always selects the same records.
//
// Users and Workstations are allow-lists. An empty list selects nothing; callers wanting no
// restriction must pass the full distinct set (see DefaultFilter).
type FilterSpec struct {
	Users        []string  `json:"users"`
	Workstations []string  `json:"workstations"`
	Dates        DateRange `json:"dates"`
	// IncludeUndated lets records with a null timestamp pass the date predicate.
	IncludeUndated bool `json:"includeUndated"`
	// Shifts refines the selection to the listed shifts. Nil or empty disables the refinement.
	Shifts []picklog.Shift `json:"shifts,omitempty"`
	// Ranges holds the active numeric filters. Absent metrics are unconstrained.
	Ranges map[picklog.Metric]Range `json:"ranges,omitempty"`
}

// precise reports whether the date predicate compares full timestamps.
func (f FilterSpec) precise() bool {
	return f.Dates.TimeOfDay || len(f.Shifts) > 0
}

// Apply returns the records matching every predicate, in their original order. The input
// slice is not modified.
func Apply(records []picklog.Record, spec FilterSpec) []picklog.Record {
	users := setOf(spec.Users)
	stations := setOf(spec.Workstations)
	shifts := setOf(spec.Shifts)
	precise := spec.precise()

	return lo.Filter(records, func(r picklog.Record, _ int) bool {
		if _, ok := users[r.Username]; !ok {
			return false
		}
		if _, ok := stations[r.Workstation]; !ok {
			return false
		}
		if len(shifts) > 0 {
			if _, ok := shifts[r.Shift]; !ok {
				return false
			}
		}
		if r.Timestamp == nil {
			if !spec.IncludeUndated {
				return false
			}
		} else if !spec.Dates.Contains(*r.Timestamp, precise) {
			return false
		}
		for m, rng := range spec.Ranges {
			if !rng.Contains(r.Value(m)) {
				return false
			}
		}
		return true
	})
}

func setOf[T comparable](items []T) map[T]struct{} {
	return lo.Associate(items, func(item T) (T, struct{}) {
		return item, struct{}{}
	})
}

// DefaultFilter is the "select everything" spec for a dataset: every distinct user and
// workstation, the full observed date range, undated records included and no numeric ranges.
// Applying it returns every record.
func DefaultFilter(ds *picklog.Dataset) FilterSpec {
	start, end, _ := ObservedDates(ds.Records)
	return FilterSpec{
		Users:          DistinctUsers(ds.Records),
		Workstations:   DistinctWorkstations(ds.Records),
		Dates:          DateRange{Start: start, End: end},
		IncludeUndated: true,
	}
}

// DistinctUsers returns the sorted distinct usernames.
func DistinctUsers(records []picklog.Record) []string {
	return distinct(records, func(r picklog.Record) string { return r.Username })
}

// DistinctWorkstations returns the sorted distinct workstations.
func DistinctWorkstations(records []picklog.Record) []string {
	return distinct(records, func(r picklog.Record) string { return r.Workstation })
}

func distinct(records []picklog.Record, key func(picklog.Record) string) []string {
	values := lo.Uniq(lo.Map(records, func(r picklog.Record, _ int) string { return key(r) }))
	sort.Strings(values)
	return values
}

// ObservedDates returns the earliest and latest timestamps of the dated records.
func ObservedDates(records []picklog.Record) (time.Time, time.Time, bool) {
	var start, end time.Time
	found := false
	for _, r := range records {
		if r.Timestamp == nil {
			continue
		}
		ts := *r.Timestamp
		if !found || ts.Before(start) {
			start = ts
		}
		if !found || ts.After(end) {
			end = ts
		}
		found = true
	}
	return start, end, found
}

// ObservedRange returns the min and max of the valid cells of m.
func ObservedRange(records []picklog.Record, m picklog.Metric) (Range, bool) {
	var rng Range
	found := false
	for _, r := range records {
		c := r.Value(m)
		if !c.Valid {
			continue
		}
		if !found || c.Value < rng.Min {
			rng.Min = c.Value
		}
		if !found || c.Value > rng.Max {
			rng.Max = c.Value
		}
		found = true
	}
	return rng, found
}
