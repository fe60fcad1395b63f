package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config represents metrics configuration
type Config struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	Path      string `json:"path" yaml:"path"`
}

// Collector manages all metrics for the mapping pipeline service
type Collector struct {
	namespace string
	registry  *prometheus.Registry

	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight *prometheus.GaugeVec
	ErrorsTotal      *prometheus.CounterVec

	// System metrics
	StartTime prometheus.Gauge

	// Pipeline metrics
	PipelineOperations *prometheus.CounterVec
	PipelineDuration   *prometheus.HistogramVec
	StageDuration      *prometheus.HistogramVec
	StageFailures      *prometheus.CounterVec
	QualityScore       prometheus.Histogram

	// Saga metrics
	SagaEngagements *prometheus.CounterVec
	SagaSteps       *prometheus.CounterVec

	// Database metrics
	DatabaseQueries  *prometheus.CounterVec
	DatabaseDuration *prometheus.HistogramVec

	// Cache metrics
	CacheOperations *prometheus.CounterVec

	// Message queue metrics
	MessagesSent *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		namespace: namespace,
		registry:  registry,
	}

	c.initializeMetrics()
	c.registerMetrics()

	return c
}

// initializeMetrics initializes all metrics
func (c *Collector) initializeMetrics() {
	// HTTP metrics
	c.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	c.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status_code"},
	)

	c.RequestsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
		[]string{"method", "endpoint"},
	)

	c.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"error_type", "component"},
	)

	// System metrics
	c.StartTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "start_time_seconds",
			Help:      "Service start time in Unix seconds",
		},
	)

	// Pipeline metrics
	c.PipelineOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "pipeline_operations_total",
			Help:      "Total number of pipeline operations",
		},
		[]string{"operation", "status"},
	)

	c.PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "pipeline_operation_duration_seconds",
			Help:      "Pipeline operation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	c.StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	c.StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "pipeline_stage_failures_total",
			Help:      "Total number of pipeline stage failures by disposition",
		},
		[]string{"stage", "disposition"},
	)

	c.QualityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "data_quality_score",
			Help:      "Overall data quality score distribution",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		},
	)

	// Saga metrics
	c.SagaEngagements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "saga_engagements_total",
			Help:      "Total number of saga engagement decisions",
		},
		[]string{"operation", "outcome"},
	)

	c.SagaSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "saga_steps_total",
			Help:      "Total number of saga step advances",
		},
		[]string{"operation", "status"},
	)

	// Database metrics
	c.DatabaseQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "database_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"operation", "table"},
	)

	c.DatabaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "database_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "table"},
	)

	// Cache metrics
	c.CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "result"},
	)

	// Message queue metrics
	c.MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of messages sent",
		},
		[]string{"topic", "status"},
	)
}

// registerMetrics registers all metrics with the registry
func (c *Collector) registerMetrics() {
	c.registry.MustRegister(c.RequestsTotal)
	c.registry.MustRegister(c.RequestDuration)
	c.registry.MustRegister(c.RequestsInFlight)
	c.registry.MustRegister(c.ErrorsTotal)

	c.registry.MustRegister(c.StartTime)

	c.registry.MustRegister(c.PipelineOperations)
	c.registry.MustRegister(c.PipelineDuration)
	c.registry.MustRegister(c.StageDuration)
	c.registry.MustRegister(c.StageFailures)
	c.registry.MustRegister(c.QualityScore)

	c.registry.MustRegister(c.SagaEngagements)
	c.registry.MustRegister(c.SagaSteps)

	c.registry.MustRegister(c.DatabaseQueries)
	c.registry.MustRegister(c.DatabaseDuration)

	c.registry.MustRegister(c.CacheOperations)

	c.registry.MustRegister(c.MessagesSent)

	c.StartTime.SetToCurrentTime()
}

// RecordHTTPRequest records HTTP request metrics
func (c *Collector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusStr := strconv.Itoa(statusCode)
	c.RequestsTotal.WithLabelValues(method, endpoint, statusStr).Inc()
	c.RequestDuration.WithLabelValues(method, endpoint, statusStr).Observe(duration.Seconds())
}

// RecordHTTPRequestInFlight records in-flight HTTP requests
func (c *Collector) RecordHTTPRequestInFlight(method, endpoint string, delta float64) {
	c.RequestsInFlight.WithLabelValues(method, endpoint).Add(delta)
}

// RecordError records error metrics
func (c *Collector) RecordError(errorType, component string) {
	c.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPipelineOperation records pipeline operation metrics
func (c *Collector) RecordPipelineOperation(operation, status string, duration time.Duration) {
	c.PipelineOperations.WithLabelValues(operation, status).Inc()
	c.PipelineDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStageDuration records a pipeline stage duration
func (c *Collector) RecordStageDuration(stage string, duration time.Duration) {
	c.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordStageFailure records a stage failure with its disposition
// (degraded: pipeline continued; failed: carried into the result payload)
func (c *Collector) RecordStageFailure(stage, disposition string) {
	c.StageFailures.WithLabelValues(stage, disposition).Inc()
}

// RecordQualityScore records an overall quality score observation
func (c *Collector) RecordQualityScore(score float64) {
	c.QualityScore.Observe(score)
}

// RecordSagaEngagement records a saga engagement decision
func (c *Collector) RecordSagaEngagement(operation, outcome string) {
	c.SagaEngagements.WithLabelValues(operation, outcome).Inc()
}

// RecordSagaStep records a saga step advance
func (c *Collector) RecordSagaStep(operation, status string) {
	c.SagaSteps.WithLabelValues(operation, status).Inc()
}

// RecordDatabaseQuery records database query metrics
func (c *Collector) RecordDatabaseQuery(operation, table string, duration time.Duration) {
	c.DatabaseQueries.WithLabelValues(operation, table).Inc()
	c.DatabaseDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordCacheOperation records cache operation metrics
func (c *Collector) RecordCacheOperation(operation, result string) {
	c.CacheOperations.WithLabelValues(operation, result).Inc()
}

// RecordMessageSent records message sent metrics
func (c *Collector) RecordMessageSent(topic, status string) {
	c.MessagesSent.WithLabelValues(topic, status).Inc()
}

// GetRegistry returns the metrics registry
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// CreateHandler creates an HTTP handler for metrics
func (c *Collector) CreateHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Server represents a metrics server
type Server struct {
	config    Config
	collector *Collector
	server    *http.Server
}

// NewServer creates a new metrics server
func NewServer(config Config, collector *Collector) *Server {
	if !config.Enabled {
		return &Server{config: config}
	}

	mux := http.NewServeMux()
	mux.Handle(config.Path, collector.CreateHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return &Server{
		config:    config,
		collector: collector,
		server:    server,
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	if !s.config.Enabled || s.server == nil {
		return nil
	}

	return s.server.ListenAndServe()
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

// Timer helps measure operation duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed duration
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration observes duration on a histogram
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}
