package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "picking_dash"

// Recorder owns the collectors of one process. A nil *Recorder records nothing, so callers
// that do not care about metrics (CLI, tests) can pass nil.
type Recorder struct {
	registry *prometheus.Registry

	uploads       *prometheus.CounterVec
	records       prometheus.Counter
	parseWarnings prometheus.Counter
	datasets      prometheus.Gauge
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	exports       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploaded picking files by format and outcome.",
		}, []string{"format", "outcome"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Picking records parsed from uploads.",
		}),
		parseWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_warnings_total",
			Help:      "Cells that could not be coerced and were nulled.",
		}),
		datasets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "datasets_loaded",
			Help:      "Datasets currently held in memory.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by surface and whether the selection was empty.",
		}, []string{"surface", "empty"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_seconds",
			Help:      "Time spent filtering, aggregating and flagging one selection.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"surface"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Filtered exports by format.",
		}, []string{"format"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.uploads, r.records, r.parseWarnings, r.datasets, r.runs, r.runDuration, r.exports,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Upload records one upload attempt.
func (r *Recorder) Upload(format string, records, warnings int, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.uploads.WithLabelValues(format, outcome).Inc()
	r.records.Add(float64(records))
	r.parseWarnings.Add(float64(warnings))
}

// Datasets sets the number of datasets in memory.
func (r *Recorder) Datasets(n int) {
	if r == nil {
		return
	}
	r.datasets.Set(float64(n))
}

// Run records one pipeline run.
func (r *Recorder) Run(surface string, empty bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	emptyLabel := "false"
	if empty {
		emptyLabel = "true"
	}
	r.runs.WithLabelValues(surface, emptyLabel).Inc()
	r.runDuration.WithLabelValues(surface).Observe(elapsed.Seconds())
}

// Export records one export.
func (r *Recorder) Export(format string) {
	if r == nil {
		return
	}
	r.exports.WithLabelValues(format).Inc()
}
