package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Registry Metrics
	RegistryOperationsTotal *prometheus.CounterVec
	RegistryLocations       *prometheus.GaugeVec
	RegistryUpdates         *prometheus.GaugeVec

	// Notification Metrics
	NotificationsTotal *prometheus.CounterVec

	// Ingestion Metrics
	IngestionFetchDuration prometheus.Histogram
	IngestionSubmitTotal   *prometheus.CounterVec
	IngestionRetriesTotal  prometheus.Counter
	IngestionCycleDuration prometheus.Histogram

	// Audit Metrics
	AuditEventsTotal   prometheus.Counter
	AuditBatchSize     prometheus.Histogram
	AuditFlushDuration prometheus.Histogram

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	return &Collector{
		APIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		RegistryOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_operations_total",
				Help:      "Total number of registry operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		RegistryLocations: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_locations",
				Help:      "Distinct locations stored per registry owner",
			},
			[]string{"owner"},
		),

		RegistryUpdates: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_updates",
				Help:      "Accepted writes per registry owner",
			},
			[]string{"owner"},
		),

		NotificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_published_total",
				Help:      "Total number of notifications published by topic and outcome",
			},
			[]string{"topic", "outcome"},
		),

		IngestionFetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingestion_fetch_duration_seconds",
				Help:      "Duration of upstream source fetches in seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
		),

		IngestionSubmitTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingestion_submissions_total",
				Help:      "Total number of measurement submissions by outcome",
			},
			[]string{"outcome"},
		),

		IngestionRetriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingestion_retries_total",
				Help:      "Total number of submission retries after transient failures",
			},
		),

		IngestionCycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingestion_cycle_duration_seconds",
				Help:      "Duration of full fetch-and-submit cycles in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		),

		AuditEventsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_events_consumed_total",
				Help:      "Total number of data update events consumed from the notification stream",
			},
		),

		AuditBatchSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "audit_batch_size",
				Help:      "Number of events per audit sink batch",
				Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000},
			},
		),

		AuditFlushDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "audit_flush_duration_seconds",
				Help:      "Duration of audit sink batch flushes in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
		),

		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordRegistryOperation increments the registry operation counter
func (c *Collector) RecordRegistryOperation(operation, outcome string) {
	c.RegistryOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// SetRegistryCounters mirrors a registry's counters into gauges
func (c *Collector) SetRegistryCounters(owner string, totalLocations, updateCount uint64) {
	c.RegistryLocations.WithLabelValues(owner).Set(float64(totalLocations))
	c.RegistryUpdates.WithLabelValues(owner).Set(float64(updateCount))
}

// RecordNotification increments the notification publish counter
func (c *Collector) RecordNotification(topic, outcome string) {
	c.NotificationsTotal.WithLabelValues(topic, outcome).Inc()
}

// RecordSubmission increments the agent submission counter
func (c *Collector) RecordSubmission(outcome string) {
	c.IngestionSubmitTotal.WithLabelValues(outcome).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
