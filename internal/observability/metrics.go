package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "civix"

// Metrics holds the Prometheus counters, histograms, and gauges for the hazard service.
type Metrics struct {
	// HTTP API metrics.
	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: route

	// Report lifecycle metrics.
	ReportsCreated  prometheus.Counter
	ReportsDeleted  prometheus.Counter
	ReportsPruned   prometheus.Counter
	ReportsVerified prometheus.Counter
	VotesCast       *prometheus.CounterVec // labels: kind={new,replace}

	// Store snapshot gauges, refreshed on a schedule.
	ActiveReports prometheus.Gauge
	TotalReports  prometheus.Gauge
	TotalUsers    prometheus.Gauge

	// Event stream metrics.
	EventsPublished       prometheus.Counter
	EventsDropped         prometheus.Counter
	EventPublisherRunning prometheus.Gauge
	EventBatchSize        prometheus.Histogram
	EventPublishDuration  prometheus.Histogram

	// Mapbox metrics.
	MapboxRequests    *prometheus.CounterVec   // labels: method={directions,search,reverse}, outcome={success,error,empty}
	MapboxCache       *prometheus.CounterVec   // labels: method={search,reverse}, result={hit,miss}
	MapboxAPIDuration *prometheus.HistogramVec // labels: method
	MapboxEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so tests
// can build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route"}),
		ReportsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_created_total",
			Help:      "Total hazard reports created.",
		}),
		ReportsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_deleted_total",
			Help:      "Total hazard reports deleted by their owner.",
		}),
		ReportsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_pruned_total",
			Help:      "Total expired hazard reports removed from the store.",
		}),
		ReportsVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_verified_total",
			Help:      "Total report verifications.",
		}),
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Votes cast, split by first vote or replacement.",
		}, []string{"kind"}),
		ActiveReports: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_reports",
			Help:      "Unexpired reports at the last stats refresh.",
		}),
		TotalReports: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_reports",
			Help:      "Stored reports, expired included, at the last stats refresh.",
		}),
		TotalUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_users",
			Help:      "Registered users at the last stats refresh.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Hazard events written to the event topic.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Hazard events dropped because the queue was full.",
		}),
		EventPublisherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_publisher_running",
			Help:      "1 when the event dispatcher is active, 0 when shut down.",
		}),
		EventBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_batch_size",
			Help:      "Number of events per batch written to Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		EventPublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_publish_duration_seconds",
			Help:      "Duration of a batch write to Kafka.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		MapboxRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mapbox_requests_total",
			Help:      "Mapbox API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		MapboxCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mapbox_cache_total",
			Help:      "Mapbox cache lookups by method and result.",
		}, []string{"method", "result"}),
		MapboxAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mapbox_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		MapboxEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapbox_enabled",
			Help:      "1 when the Mapbox adapter is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequests,
		m.HTTPDuration,
		m.ReportsCreated,
		m.ReportsDeleted,
		m.ReportsPruned,
		m.ReportsVerified,
		m.VotesCast,
		m.ActiveReports,
		m.TotalReports,
		m.TotalUsers,
		m.EventsPublished,
		m.EventsDropped,
		m.EventPublisherRunning,
		m.EventBatchSize,
		m.EventPublishDuration,
		m.MapboxRequests,
		m.MapboxCache,
		m.MapboxAPIDuration,
		m.MapboxEnabled,
	}
}
