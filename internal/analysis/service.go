package analysis

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"picking-dash/internal/metrics"
	"picking-dash/internal/picklog"
	"picking-dash/internal/stats"
)

// Surface labels the caller of a pipeline run in logs and metrics.
type Surface string

const (
	SurfaceWeb Surface = "web"
	SurfaceMCP Surface = "mcp"
	SurfaceCLI Surface = "cli"
)

// maxWarningSamples caps the parse warnings echoed back to callers.
const maxWarningSamples = 20

// Options configure a Service.
type Options struct {
	// Location interprets zone-less timestamps and anchors the quick date slicers.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
	// DefaultMetrics apply when a request selects no display metric.
	DefaultMetrics []picklog.Metric
	StoreCapacity  int
	// Metrics may be nil.
	Metrics *metrics.Recorder
}

// Service holds the uploaded datasets and runs the pipeline for every surface.
type Service struct {
	store   *picklog.DatasetStore
	loc     *time.Location
	now     func() time.Time
	metrics *metrics.Recorder
	display []string
}

// New creates a service with an empty store.
func New(opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	display := make([]string, len(opts.DefaultMetrics))
	for i, m := range opts.DefaultMetrics {
		display[i] = string(m)
	}
	return &Service{
		store:   picklog.NewDatasetStore(opts.StoreCapacity),
		loc:     loc,
		now:     now,
		metrics: opts.Metrics,
		display: display,
	}
}

// DatasetInfo describes a stored dataset without its records.
type DatasetInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Header       []string  `json:"header"`
	ExtraColumns []string  `json:"extraColumns,omitempty"`
	LoadedAt     time.Time `json:"loadedAt"`

	Records        int                    `json:"records"`
	Undated        int                    `json:"undated"`
	Warnings       int                    `json:"parseWarnings"`
	WarningSamples []picklog.ParseWarning `json:"warningSamples,omitempty"`

	// Users and Workstations are the selector options, sorted.
	Users        []string `json:"users"`
	Workstations []string `json:"workstations"`
	// Start and End bound the observed dates. Both are nil when no record is dated.
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	// Ranges are the observed bounds of each counter, for numeric range sliders.
	Ranges map[picklog.Metric]stats.Range `json:"ranges"`
}

// Describe summarizes ds for selector widgets and tool listings.
func Describe(ds *picklog.Dataset) DatasetInfo {
	info := DatasetInfo{
		ID:           ds.ID,
		Name:         ds.Name,
		Header:       ds.Header,
		ExtraColumns: ds.ExtraColumns,
		LoadedAt:     ds.LoadedAt,
		Records:      len(ds.Records),
		Warnings:     len(ds.Warnings),
		Users:        stats.DistinctUsers(ds.Records),
		Workstations: stats.DistinctWorkstations(ds.Records),
		Ranges:       make(map[picklog.Metric]stats.Range, len(picklog.Metrics)),
	}
	if len(ds.Warnings) > 0 {
		info.WarningSamples = ds.Warnings[:min(len(ds.Warnings), maxWarningSamples)]
	}
	for _, r := range ds.Records {
		if !r.Dated() {
			info.Undated++
		}
	}
	if start, end, ok := stats.ObservedDates(ds.Records); ok {
		info.Start, info.End = &start, &end
	}
	for _, m := range picklog.Metrics {
		if rng, ok := stats.ObservedRange(ds.Records, m); ok {
			info.Ranges[m] = rng
		}
	}
	return info
}

// Load parses an upload and stores it. Identical bytes resolve to the stored snapshot, reported
// by the second return value.
func (s *Service) Load(name string, data []byte) (DatasetInfo, bool, error) {
	format := picklog.DetectFormat(name, data)
	ds, err := picklog.Load(name, data, picklog.Options{Location: s.loc, Now: s.now})
	if err != nil {
		s.metrics.Upload(string(format), 0, 0, err)
		log.Warn().Err(err).Str("file", name).Str("format", string(format)).Msg("Upload rejected")
		return DatasetInfo{}, false, err
	}

	stored, existing := s.store.Put(ds)
	if !existing {
		s.metrics.Upload(string(format), len(ds.Records), len(ds.Warnings), nil)
		s.metrics.Datasets(s.store.Len())
	}

	for _, w := range stored.Warnings {
		log.Debug().Str("dataset", stored.ID).Msg(w.String())
	}
	log.Info().
		Str("dataset", stored.ID).
		Str("file", name).
		Str("format", string(format)).
		Int("records", len(stored.Records)).
		Int("warnings", len(stored.Warnings)).
		Bool("existing", existing).
		Msg("Dataset loaded")

	return Describe(stored), existing, nil
}

// Datasets lists the stored datasets, oldest first.
func (s *Service) Datasets() []DatasetInfo {
	sets := s.store.List()
	out := make([]DatasetInfo, len(sets))
	for i, ds := range sets {
		out[i] = Describe(ds)
	}
	return out
}

// Dataset returns a stored snapshot.
func (s *Service) Dataset(id string) (*picklog.Dataset, error) {
	ds, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, id)
	}
	return ds, nil
}

// Delete drops a stored dataset.
func (s *Service) Delete(id string) error {
	if _, err := s.Dataset(id); err != nil {
		return err
	}
	s.store.Delete(id)
	s.metrics.Datasets(s.store.Len())
	log.Info().Str("dataset", id).Msg("Dataset deleted")
	return nil
}

// Resolve turns caller parameters into a filter for dataset id.
func (s *Service) Resolve(id string, params stats.FilterParams) (*picklog.Dataset, stats.FilterSpec, stats.DisplayOptions, error) {
	ds, err := s.Dataset(id)
	if err != nil {
		return nil, stats.FilterSpec{}, stats.DisplayOptions{}, err
	}
	if len(params.Metrics) == 0 && len(s.display) > 0 {
		params.Metrics = s.display
	}
	spec, opts, err := params.Resolve(ds, s.now().In(s.loc))
	if err != nil {
		return nil, stats.FilterSpec{}, stats.DisplayOptions{}, err
	}
	return ds, spec, opts, nil
}

// Analyze runs the full pipeline over dataset id.
func (s *Service) Analyze(id string, params stats.FilterParams, surface Surface) (stats.Dashboard, error) {
	ds, spec, opts, err := s.Resolve(id, params)
	if err != nil {
		return stats.Dashboard{}, err
	}

	start := time.Now()
	d := stats.NewAnalysisSession(ds, spec, opts).WithClock(s.now).Run()
	s.metrics.Run(string(surface), d.Empty, time.Since(start))
	return d, nil
}

// Outliers flags the groups of one outlier dimension (user, day, workstation) under the given filter.
func (s *Service) Outliers(id string, dim stats.Dimension, params stats.FilterParams, surface Surface) (stats.OutlierReport, error) {
	if !lo.Contains(stats.OutlierDimensions, dim) {
		return stats.OutlierReport{}, fmt.Errorf("%w: %q has no outlier view", stats.ErrUnknownDimension, dim)
	}
	ds, spec, opts, err := s.Resolve(id, params)
	if err != nil {
		return stats.OutlierReport{}, err
	}

	start := time.Now()
	records := stats.NewAnalysisSession(ds, spec, opts).Filtered()
	table, err := stats.Aggregate(records, dim)
	if err != nil {
		return stats.OutlierReport{}, err
	}
	report := stats.DetectOutliers(table)
	s.metrics.Run(string(surface), len(records) == 0, time.Since(start))
	return report, nil
}

// ParseExportFormat accepts csv or xlsx, case-insensitively. Empty means csv.
func ParseExportFormat(s string) (picklog.Format, error) {
	switch picklog.Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", picklog.FormatCSV:
		return picklog.FormatCSV, nil
	case picklog.FormatXLSX:
		return picklog.FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", stats.ErrInvalidFilter, s)
}

// ExportOptions is the serializer configuration shared by every surface: the derived shift and
// efficiency columns follow the source columns.
func ExportOptions() picklog.ExportOptions {
	return picklog.ExportOptions{
		Derived:   []picklog.DerivedColumn{picklog.ShiftColumn, stats.EfficiencyColumn},
		BOMPrefix: true,
	}
}

// Export writes the filtered records of dataset id to w and returns the number of rows written.
func (s *Service) Export(w io.Writer, id string, params stats.FilterParams, format picklog.Format) (int, error) {
	ds, spec, opts, err := s.Resolve(id, params)
	if err != nil {
		return 0, err
	}
	records := stats.NewAnalysisSession(ds, spec, opts).Filtered()

	// Buffer so a failing writer never leaves a half-written response behind an error status.
	var buf bytes.Buffer
	switch format {
	case picklog.FormatXLSX:
		err = picklog.WriteXLSX(&buf, ds, records, ExportOptions())
	default:
		format = picklog.FormatCSV
		err = picklog.WriteCSV(&buf, ds, records, ExportOptions())
	}
	if err != nil {
		return 0, fmt.Errorf("failed to export dataset %s: %w", id, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}

	s.metrics.Export(string(format))
	log.Info().
		Str("dataset", id).
		Str("format", string(format)).
		Int("rows", len(records)).
		Msg("Filtered export written")
	return len(records), nil
}

// ExportFileName names an export after its source file.
func ExportFileName(ds *picklog.Dataset, format picklog.Format) string {
	base := strings.TrimSuffix(filepath.Base(ds.Name), filepath.Ext(ds.Name))
	if base == "" {
		base = "picking"
	}
	return base + "_filtered." + string(format)
}
