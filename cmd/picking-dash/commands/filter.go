package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"picking-dash/internal/analysis"
	"picking-dash/internal/picklog"
	"picking-dash/internal/stats"
)

// filterFlags are the selection flags shared by report and export. Unset user and workstation
// lists mean "all".
type filterFlags struct {
	users        []string
	workstations []string
	slicer       string
	start        string
	end          string
	timeOfDay    bool
	shifts       []string
	ranges       []string
	metrics      []string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVar(&f.users, "user", nil, "keep only these users (repeatable)")
	fs.StringSliceVar(&f.workstations, "workstation", nil, "keep only these workstations (repeatable)")
	fs.StringVar(&f.slicer, "slicer", "", "quick date range: Today, ThisWeek, ThisMonth or Custom")
	fs.StringVar(&f.start, "start", "", "first day of a custom range (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "last day of a custom range (YYYY-MM-DD), inclusive")
	fs.BoolVar(&f.timeOfDay, "time-of-day", false, "compare start and end as full timestamps")
	fs.StringSliceVar(&f.shifts, "shift", nil, "keep only these shifts: AM, PM, NIGHT, UNKNOWN")
	fs.StringArrayVar(&f.ranges, "range", nil, "inclusive counter range, e.g. SourceTotes=5:20 (repeatable)")
	fs.StringSliceVar(&f.metrics, "metric", nil, "counters to display, first one ranks the views")
}

func (f *filterFlags) params(loc *time.Location) (stats.FilterParams, error) {
	p := stats.FilterParams{
		Slicer:    f.slicer,
		TimeOfDay: f.timeOfDay,
		Shifts:    f.shifts,
		Metrics:   f.metrics,
	}
	if len(f.users) > 0 {
		p.Users = f.users
	}
	if len(f.workstations) > 0 {
		p.Workstations = f.workstations
	}

	for _, bound := range []struct {
		raw string
		dst **time.Time
	}{{f.start, &p.Start}, {f.end, &p.End}} {
		if bound.raw == "" {
			continue
		}
		t, err := analysis.ParseDate(bound.raw, loc)
		if err != nil {
			return stats.FilterParams{}, fmt.Errorf("%w: %w", stats.ErrInvalidFilter, err)
		}
		*bound.dst = &t
	}

	for _, raw := range f.ranges {
		name, rng, err := parseRange(raw)
		if err != nil {
			return stats.FilterParams{}, err
		}
		if p.Ranges == nil {
			p.Ranges = make(map[string]stats.Range)
		}
		p.Ranges[name] = rng
	}
	return p, nil
}

// parseRange reads Metric=min:max.
func parseRange(raw string) (string, stats.Range, error) {
	name, bounds, ok := strings.Cut(raw, "=")
	if !ok {
		return "", stats.Range{}, fmt.Errorf("%w: range %q is not Metric=min:max", stats.ErrInvalidFilter, raw)
	}
	low, high, ok := strings.Cut(bounds, ":")
	if !ok {
		return "", stats.Range{}, fmt.Errorf("%w: range %q is not Metric=min:max", stats.ErrInvalidFilter, raw)
	}
	from, err := strconv.ParseInt(strings.TrimSpace(low), 10, 64)
	if err != nil {
		return "", stats.Range{}, fmt.Errorf("%w: range %q: %w", stats.ErrInvalidFilter, raw, err)
	}
	to, err := strconv.ParseInt(strings.TrimSpace(high), 10, 64)
	if err != nil {
		return "", stats.Range{}, fmt.Errorf("%w: range %q: %w", stats.ErrInvalidFilter, raw, err)
	}
	return strings.TrimSpace(name), stats.Range{Min: from, Max: to}, nil
}

// loadFile reads a picking export into svc.
func loadFile(svc *analysis.Service, path string) (analysis.DatasetInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.DatasetInfo{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	info, _, err := svc.Load(filepath.Base(path), data)
	if err != nil {
		return analysis.DatasetInfo{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return info, nil
}

// formatFromPath guesses the export format from a file extension, defaulting to csv.
func formatFromPath(path string) picklog.Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return picklog.FormatXLSX
	}
	return picklog.FormatCSV
}
