package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_dashboard"

// Metrics holds the Prometheus collectors for the dashboard service.
type Metrics struct {
	// Dataset loading.
	DatasetLoads        *prometheus.CounterVec // labels: outcome={success,error}
	DatasetLoadDuration prometheus.Histogram
	ObservationsLoaded  prometheus.Gauge

	// Fetch requests against the engine.
	FetchRequests *prometheus.CounterVec // labels: outcome={ok,no_data,not_loaded,in_progress,cancelled}
	FetchDuration prometheus.Histogram
	FetchMatches  prometheus.Histogram
	ResultCache   *prometheus.CounterVec // labels: result={hit,miss}

	Exports         *prometheus.CounterVec // labels: format={csv,xlsx,png,svg}
	EventsPublished *prometheus.CounterVec // labels: sink, outcome={success,error}
	ThemeChanges    *prometheus.CounterVec // labels: theme={light,dark}
	SnapshotStreams prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DatasetLoads,
		m.DatasetLoadDuration,
		m.ObservationsLoaded,
		m.FetchRequests,
		m.FetchDuration,
		m.FetchMatches,
		m.ResultCache,
		m.Exports,
		m.EventsPublished,
		m.ThemeChanges,
		m.SnapshotStreams,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Static dataset load attempts by outcome.",
		}, []string{"outcome"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of loading the three static resources.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ObservationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observations_loaded",
			Help:      "Number of observations in the loaded dataset.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Fetch-data requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a fetch including the simulated latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 1, 2.5},
		}),
		FetchMatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_matches",
			Help:      "Number of observations matched per fetch.",
			Buckets:   []float64{0, 1, 3, 6, 12, 24, 36, 60, 120},
		}),
		ResultCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Downloads of the current result by format.",
		}, []string{"format"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Fetch activity events published by sink and outcome.",
		}, []string{"sink", "outcome"}),
		ThemeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "theme_changes_total",
			Help:      "Theme preference changes by new theme.",
		}, []string{"theme"}),
		SnapshotStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_streams",
			Help:      "Open websocket snapshot streams.",
		}),
	}
}
