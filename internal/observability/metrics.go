package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate"

// Metrics holds the Prometheus counters and histograms for the analysis service.
type Metrics struct {
	Analyses         *prometheus.CounterVec // labels: outcome={ok,no_data,invalid,source_error,cached}
	AnalysisDuration prometheus.Histogram
	SamplesPerRun    prometheus.Histogram

	// Data source metrics.
	SourceRequests    *prometheus.CounterVec   // labels: source, outcome={success,error,retry}
	SourceAPIDuration *prometheus.HistogramVec // labels: source

	CacheLookups *prometheus.CounterVec // labels: backend, result={hit,miss,set,eviction,error}
	Publish      *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.Analyses,
		m.AnalysisDuration,
		m.SamplesPerRun,
		m.SourceRequests,
		m.SourceAPIDuration,
		m.CacheLookups,
		m.Publish,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// multiple tests can each hold their own set.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      help("Exceedance analyses by outcome."),
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      help("Duration of a full analysis, including the data source fetch."),
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SamplesPerRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "samples_per_analysis",
			Help:      help("Number of samples assembled per analysis."),
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      help("Data source requests by source and outcome."),
		}, []string{"source", "outcome"}),
		SourceAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_api_duration_seconds",
			Help:      help("Data source request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      help("Report cache operations by backend and result."),
		}, []string{"backend", "result"}),
		Publish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      help("Report publications by outcome."),
		}, []string{"outcome"}),
	}
}
