package stats

import (
	"time"

	"github.com/rs/zerolog/log"

	"picking-dash/internal/picklog"
)

// Dashboard is every derived table for one dataset and one filter selection.
type Dashboard struct {
	DatasetID   string         `json:"datasetId"`
	DatasetName string         `json:"datasetName"`
	Filter      FilterSpec     `json:"filter"`
	Display     DisplayOptions `json:"display"`
	Warnings    int            `json:"parseWarnings"`

	Summary Summary `json:"summary"`

	// Timeline is the date grouping in chronological order.
	Timeline GroupTable `json:"timeline"`
	// Ranked views, zero-filtered and ordered by the primary display metric.
	Users        GroupTable `json:"users"`
	Workstations GroupTable `json:"workstations"`
	Shifts       GroupTable `json:"shifts"`
	// UserEfficiency is the user grouping in natural order, for the efficiency chart.
	UserEfficiency GroupTable `json:"userEfficiency"`
	// DailyUsers is the (Date, Username) grouping in natural order.
	DailyUsers GroupTable `json:"dailyUsers"`

	Outliers []OutlierReport `json:"outliers"`

	Empty       bool      `json:"empty"`
	EmptyReason string    `json:"emptyReason,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Outlier returns the report for dim.
func (d Dashboard) Outlier(dim Dimension) (OutlierReport, bool) {
	for _, o := range d.Outliers {
		if o.Dimension == dim {
			return o, true
		}
	}
	return OutlierReport{}, false
}

// AnalysisSession runs the pipeline for a single request. The dataset is never modified; the
// filtered subset is computed once per session.
type AnalysisSession struct {
	dataset *picklog.Dataset
	spec    FilterSpec
	opts    DisplayOptions
	now     func() time.Time

	filtered []picklog.Record
	applied  bool
}

// NewAnalysisSession creates a new orchestration session.
func NewAnalysisSession(ds *picklog.Dataset, spec FilterSpec, opts DisplayOptions) *AnalysisSession {
	var valid DisplayOptions
	for _, m := range opts.Metrics {
		if _, ok := picklog.ParseMetric(string(m)); ok {
			valid.Metrics = append(valid.Metrics, m)
		}
	}
	if len(valid.Metrics) == 0 {
		valid = DefaultDisplayOptions()
	}
	opts = valid
	return &AnalysisSession{
		dataset: ds,
		spec:    spec,
		opts:    opts,
		now:     time.Now,
	}
}

// WithClock overrides the clock used to stamp GeneratedAt.
func (s *AnalysisSession) WithClock(now func() time.Time) *AnalysisSession {
	s.now = now
	return s
}

// Filtered returns the records selected by the session's filter.
func (s *AnalysisSession) Filtered() []picklog.Record {
	if !s.applied {
		s.filtered = Apply(s.dataset.Records, s.spec)
		s.applied = true
	}
	return s.filtered
}

// Run computes the dashboard.
func (s *AnalysisSession) Run() Dashboard {
	records := s.Filtered()
	primary := s.opts.PrimaryMetric()

	d := Dashboard{
		DatasetID:   s.dataset.ID,
		DatasetName: s.dataset.Name,
		Filter:      s.spec,
		Display:     s.opts,
		Warnings:    len(s.dataset.Warnings),
		Summary:     Totals(records),
		GeneratedAt: s.now(),
	}

	d.Timeline = orEmpty(Aggregate(records, ByDate))
	d.Users = orEmpty(AggregateForDisplay(records, ByUser, primary))
	d.Workstations = orEmpty(AggregateForDisplay(records, ByWorkstation, primary))
	d.Shifts = orEmpty(AggregateForDisplay(records, ByShift, primary))
	d.UserEfficiency = orEmpty(Aggregate(records, ByUser))
	d.DailyUsers = orEmpty(Aggregate(records, ByDateUser))

	for _, dim := range OutlierDimensions {
		var table GroupTable
		switch dim {
		case ByUser:
			table = d.UserEfficiency
		case ByDate:
			table = d.Timeline
		default:
			table = orEmpty(Aggregate(records, dim))
		}
		d.Outliers = append(d.Outliers, DetectOutliers(table))
	}

	if len(records) == 0 {
		d.Empty = true
		d.EmptyReason = ReasonNoRecords
	}

	log.Debug().
		Str("dataset", s.dataset.ID).
		Int("records", len(s.dataset.Records)).
		Int("selected", len(records)).
		Str("rankedBy", string(primary)).
		Msg("Analysis session completed")

	return d
}

func orEmpty(t GroupTable, err error) GroupTable {
	if err != nil {
		log.Error().Err(err).Msg("Aggregation failed")
		return GroupTable{EmptyReason: err.Error()}
	}
	return t
}
