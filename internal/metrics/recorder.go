package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects pipeline metrics on its own registry. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	weatherFetches   *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	backfillRows     *prometheus.CounterVec
	backfillDuration prometheus.Histogram
	purgeOutcomes    *prometheus.CounterVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors registered.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		weatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_weather_fetch_total",
			Help: "Weather fetches by mode and outcome.",
		}, []string{"mode", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_http_cache_lookups_total",
			Help: "Response cache lookups by client and result.",
		}, []string{"client", "result"}),
		backfillRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_backfill_rows_total",
			Help: "Rows handled by monitoring backfill runs.",
		}, []string{"stage"}),
		backfillDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "energy_backfill_duration_seconds",
			Help:    "Duration of monitoring backfill runs.",
			Buckets: prometheus.DefBuckets,
		}),
		purgeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_purge_outcomes_total",
			Help: "Feature-store deletions by resource kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	registry.MustRegister(
		r.weatherFetches,
		r.cacheLookups,
		r.backfillRows,
		r.backfillDuration,
		r.purgeOutcomes,
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) WeatherFetch(mode string, err error) {
	if r == nil {
		return
	}
	r.weatherFetches.WithLabelValues(mode, outcome(err)).Inc()
}

func (r *Recorder) CacheLookup(client string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(client, result).Inc()
}

// BackfillRun records the joined and written row counts of one run.
func (r *Recorder) BackfillRun(joined, written int, seconds float64) {
	if r == nil {
		return
	}
	r.backfillRows.WithLabelValues("joined").Add(float64(joined))
	r.backfillRows.WithLabelValues("written").Add(float64(written))
	r.backfillDuration.Observe(seconds)
}

func (r *Recorder) PurgeOutcome(kind, result string) {
	if r == nil {
		return
	}
	r.purgeOutcomes.WithLabelValues(kind, result).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
