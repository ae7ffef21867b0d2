package stats

import (
	"errors"
	"fmt"

	"picking-dash/internal/picklog"
)

var (
	// ErrUnknownDimension is returned for grouping keys the engine does not support.
	ErrUnknownDimension = errors.New("unknown grouping dimension")
	// ErrUnknownMetric is returned for counter names outside the three picking counters.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrInvalidFilter is returned for filter parameters that cannot be resolved.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Empty-state reasons. They distinguish "no data" from "all values happen to be zero".
const (
	ReasonNoRecords        = "no records match the current filter"
	ReasonNoDatedRecords   = "no records with a valid timestamp match the current filter"
	ReasonAllZeroForMetric = "every group has a zero total for the selected metric"
)

// Dimension is a grouping key selector.
type Dimension string

const (
	ByDate        Dimension = "date"
	ByUser        Dimension = "user"
	ByWorkstation Dimension = "workstation"
	ByShift       Dimension = "shift"
	ByDateUser    Dimension = "date_user"
)

// Dimensions lists every supported grouping.
var Dimensions = []Dimension{ByDate, ByUser, ByWorkstation, ByShift, ByDateUser}

// OutlierDimensions are the groupings outliers are reported for.
var OutlierDimensions = []Dimension{ByUser, ByDate, ByWorkstation}

// ParseDimension resolves a dimension name.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
}

// Field is the source column name used as the chart category for the dimension.
func (d Dimension) Field() string {
	switch d {
	case ByDate:
		return "Date"
	case ByUser:
		return picklog.ColUsername
	case ByWorkstation:
		return picklog.ColWorkstation
	case ByShift:
		return "Shift"
	case ByDateUser:
		return "Date / Username"
	}
	return string(d)
}

// dated reports whether the dimension is keyed on the calendar date.
func (d Dimension) dated() bool {
	return d == ByDate || d == ByDateUser
}

// GroupAggregate holds the summed counters and mean efficiency of one group.
type GroupAggregate struct {
	// Key is the display label of the group (e.g. "2024-01-01", "alice", "2024-01-01 / alice").
	Key string `json:"key"`
	// Parts are the individual key values; a composite key has one entry per component.
	Parts []string `json:"parts"`

	Records          int   `json:"records"`
	SourceTotes      int64 `json:"sourceTotes"`
	DestinationTotes int64 `json:"destinationTotes"`
	TotalRefills     int64 `json:"totalRefills"`

	// Efficiency is the mean of the defined per-record efficiencies of the group's members.
	Efficiency Ratio `json:"efficiency"`

	EfficiencyOutlier bool `json:"efficiencyOutlier"`
	RefillOutlier     bool `json:"refillOutlier"`
}

// Sum returns the summed counter for m.
func (g GroupAggregate) Sum(m picklog.Metric) int64 {
	switch m {
	case picklog.SourceTotes:
		return g.SourceTotes
	case picklog.DestinationTotes:
		return g.DestinationTotes
	case picklog.TotalRefills:
		return g.TotalRefills
	}
	return 0
}

// IsOutlier reports whether either flag is set.
func (g GroupAggregate) IsOutlier() bool {
	return g.EfficiencyOutlier || g.RefillOutlier
}

// GroupTable is the ordered output of one grouping. EmptyReason is set whenever Groups is empty.
type GroupTable struct {
	Dimension Dimension        `json:"dimension"`
	Field     string           `json:"field"`
	Groups    []GroupAggregate `json:"groups"`
	// RankedBy names the metric used for a ranked (display) table; empty for natural order.
	RankedBy    picklog.Metric `json:"rankedBy,omitempty"`
	EmptyReason string         `json:"emptyReason,omitempty"`
}

// Empty reports whether the table carries no groups.
func (t GroupTable) Empty() bool {
	return len(t.Groups) == 0
}

// Summary holds the global totals of a filtered record set.
type Summary struct {
	Records          int    `json:"records"`
	Undated          int    `json:"undated"`
	Users            int    `json:"users"`
	Workstations     int    `json:"workstations"`
	SourceTotes      int64  `json:"sourceTotes"`
	DestinationTotes int64  `json:"destinationTotes"`
	TotalRefills     int64  `json:"totalRefills"`
	Efficiency       Ratio  `json:"efficiency"`
	EmptyReason      string `json:"emptyReason,omitempty"`
}

// Sum returns the total for m.
func (s Summary) Sum(m picklog.Metric) int64 {
	switch m {
	case picklog.SourceTotes:
		return s.SourceTotes
	case picklog.DestinationTotes:
		return s.DestinationTotes
	case picklog.TotalRefills:
		return s.TotalRefills
	}
	return 0
}
