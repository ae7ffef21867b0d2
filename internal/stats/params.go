package stats

import (
	"fmt"
	"time"

	"picking-dash/internal/picklog"
)

// FilterParams is the selection coming from a caller (browser, MCP client, CLI flags).
// Unlike FilterSpec, a nil Users or Workstations list means "no restriction" so that an
// untouched selector behaves like a select-all default. An explicit empty list selects nothing.
type FilterParams struct {
	Users        []string `json:"users,omitempty"`
	Workstations []string `json:"workstations,omitempty"`

	// Slicer is one of Today, ThisWeek, ThisMonth or Custom (default).
	Slicer string     `json:"slicer,omitempty"`
	Start  *time.Time `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
	// TimeOfDay compares Start/End at full timestamp granularity.
	TimeOfDay bool `json:"timeOfDay,omitempty"`

	Shifts []string         `json:"shifts,omitempty"`
	Ranges map[string]Range `json:"ranges,omitempty"`

	// Metrics is the ordered subset of counters to display. Empty means all three.
	Metrics []string `json:"metrics,omitempty"`
}

// DisplayOptions carries presentation choices that do not affect which records are selected.
type DisplayOptions struct {
	Metrics []picklog.Metric `json:"metrics"`
}

// PrimaryMetric is the metric ranked views are ordered by.
func (o DisplayOptions) PrimaryMetric() picklog.Metric {
	if len(o.Metrics) == 0 {
		return picklog.SourceTotes
	}
	return o.Metrics[0]
}

// DefaultDisplayOptions shows every counter in canonical order.
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{Metrics: append([]picklog.Metric(nil), picklog.Metrics...)}
}

// Resolve turns caller parameters into an explicit FilterSpec for ds. Quick slicers are anchored
// on now. Undated records are only kept when the caller set no date restriction at all.
func (p FilterParams) Resolve(ds *picklog.Dataset, now time.Time) (FilterSpec, DisplayOptions, error) {
	spec := DefaultFilter(ds)
	if p.Users != nil {
		spec.Users = append([]string{}, p.Users...)
	}
	if p.Workstations != nil {
		spec.Workstations = append([]string{}, p.Workstations...)
	}

	slicer, err := ParseSlicer(p.Slicer)
	if err != nil {
		return FilterSpec{}, DisplayOptions{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	custom := spec.Dates
	bounded := false
	if p.Start != nil {
		custom.Start = *p.Start
		bounded = true
	}
	if p.End != nil {
		custom.End = *p.End
		bounded = true
	}
	if p.Start != nil && p.End != nil && p.End.Before(*p.Start) {
		return FilterSpec{}, DisplayOptions{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidFilter,
			p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	custom.TimeOfDay = p.TimeOfDay
	spec.Dates = ResolveSlicer(slicer, custom, now)
	spec.IncludeUndated = slicer == SlicerCustom && !bounded

	for _, s := range p.Shifts {
		sh, ok := picklog.ParseShift(s)
		if !ok {
			return FilterSpec{}, DisplayOptions{}, fmt.Errorf("%w: unknown shift %q", ErrInvalidFilter, s)
		}
		spec.Shifts = append(spec.Shifts, sh)
	}

	if len(p.Ranges) > 0 {
		spec.Ranges = make(map[picklog.Metric]Range, len(p.Ranges))
		for name, rng := range p.Ranges {
			m, ok := picklog.ParseMetric(name)
			if !ok {
				return FilterSpec{}, DisplayOptions{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
			}
			if rng.Min > rng.Max {
				return FilterSpec{}, DisplayOptions{}, fmt.Errorf("%w: range for %s has min %d above max %d", ErrInvalidFilter, name, rng.Min, rng.Max)
			}
			spec.Ranges[m] = rng
		}
	}

	opts, err := ParseDisplayMetrics(p.Metrics)
	if err != nil {
		return FilterSpec{}, DisplayOptions{}, err
	}
	return spec, opts, nil
}

// ParseDisplayMetrics resolves an ordered metric list, dropping duplicates. Empty means all.
func ParseDisplayMetrics(names []string) (DisplayOptions, error) {
	if len(names) == 0 {
		return DefaultDisplayOptions(), nil
	}
	seen := make(map[picklog.Metric]bool, len(names))
	var opts DisplayOptions
	for _, name := range names {
		m, ok := picklog.ParseMetric(name)
		if !ok {
			return DisplayOptions{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		opts.Metrics = append(opts.Metrics, m)
	}
	return opts, nil
}
