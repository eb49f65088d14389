package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "irve_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL.
type Metrics struct {
	// Feed fetching.
	FeedFetches       *prometheus.CounterVec // labels: outcome={success,network_error,decode_error}
	FeedFetchDuration prometheus.Histogram
	FeedBytes         prometheus.Counter
	FeedEncodings     *prometheus.CounterVec // labels: encoding

	// Snapshot memoization.
	SnapshotCache         *prometheus.CounterVec // labels: result={hit,miss}
	SnapshotBuildDuration prometheus.Histogram
	SnapshotStations      prometheus.Gauge
	PipelineErrors        *prometheus.CounterVec // labels: kind={network,decode,parse,other}
	JoinMismatches        prometheus.Counter

	// Place search and geocoding.
	PlaceSearches      *prometheus.CounterVec   // labels: outcome={found,not_found,empty,service_error,disabled}
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider
	GeocodeEnabled     prometheus.Gauge

	// Report sink.
	MessagesProduced prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.register(prometheus.DefaultRegisterer)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	m.register(prometheus.NewRegistry())
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Feed downloads by outcome.",
		}, []string{"outcome"}),
		FeedFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of a complete feed download and decode.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FeedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_bytes_total",
			Help:      "Total raw bytes downloaded from the feed.",
		}),
		FeedEncodings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_encodings_total",
			Help:      "Detected feed character encodings.",
		}, []string{"encoding"}),
		SnapshotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_total",
			Help:      "Snapshot lookups by result.",
		}, []string{"result"}),
		SnapshotBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_build_duration_seconds",
			Help:      "Duration of fetch, decode, and normalization for one snapshot.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		SnapshotStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_stations",
			Help:      "Number of stations in the most recently built snapshot.",
		}),
		PipelineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_errors_total",
			Help:      "Fatal pipeline failures by kind.",
		}, []string{"kind"}),
		JoinMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_mismatches_total",
			Help:      "Dashboards built where no station region code matched a polygon.",
		}),
		PlaceSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "place_searches_total",
			Help:      "Place searches by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when place search is enabled, 0 otherwise.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total report messages written to the sink topic.",
		}),
	}
}

func (m *Metrics) register(r prometheus.Registerer) {
	r.MustRegister(
		m.FeedFetches,
		m.FeedFetchDuration,
		m.FeedBytes,
		m.FeedEncodings,
		m.SnapshotCache,
		m.SnapshotBuildDuration,
		m.SnapshotStations,
		m.PipelineErrors,
		m.JoinMismatches,
		m.PlaceSearches,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.MessagesProduced,
	)
}
